package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/pokeapi-client/pkg/client"
	"github.com/Sternrassler/pokeapi-client/pkg/locale"
	"github.com/Sternrassler/pokeapi-client/pkg/resource"
	"github.com/spf13/cobra"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <kind> <id|name>",
		Short: "Print a resource as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			r, err := client.Fetch[json.RawMessage](cmd.Context(), c, resource.Kind(args[0]), args[1])
			if err != nil {
				return err
			}

			var out bytes.Buffer
			if err := json.Indent(&out, r.Data, "", "  "); err != nil {
				return fmt.Errorf("format %s: %w", r.Key, err)
			}
			out.WriteByte('\n')
			_, err = cmd.OutOrStdout().Write(out.Bytes())
			return err
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "Print the names of a listing, following pages lazily",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("max")

			c, err := a.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			n := 0
			for ref, err := range client.Drain[resource.NamedReference](cmd.Context(), c, resource.Kind(args[0])) {
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ref.Name)
				n++
				if limit > 0 && n >= limit {
					break
				}
			}
			return nil
		},
	}
	cmd.Flags().Int("max", 0, "stop after this many items (0 lists everything)")
	return cmd
}

// namedResource is any resource shape that carries a name list.
type namedResource struct {
	Name  string                   `json:"name"`
	Names []resource.LocalizedName `json:"names"`
}

func (r namedResource) LocalizedNames() []resource.LocalizedName { return r.Names }

func newNameCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "name <kind> <id|name>",
		Short: "Print the localized name of a resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, _ := cmd.Flags().GetString("lang")

			c, err := a.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			r, err := client.Fetch[namedResource](cmd.Context(), c, resource.Kind(args[0]), args[1])
			if err != nil {
				return err
			}

			name, ok := locale.ResolveResource(r, lang)
			if !ok {
				return fmt.Errorf("%s has no %q name", r.Key, lang)
			}
			fmt.Fprintln(cmd.OutOrStdout(), name.Name)
			return nil
		},
	}
	cmd.Flags().String("lang", "en", "language tag (e.g. en, ja, zh-Hans)")
	return cmd
}

func speciesOf(r *resource.Resource[resource.Pokemon]) *resource.NamedReference {
	return &r.Data.Species
}

func newSpeciesNameCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "species-name <pokemon>",
		Short: "Print the national dex id and localized species name of a pokemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, _ := cmd.Flags().GetString("lang")
			ctx := cmd.Context()

			c, err := a.newClient(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			pokemon := client.FetchAsync[resource.Pokemon](ctx, c, resource.KindPokemon, args[0])
			species, err := client.FollowAsync[resource.Pokemon, resource.PokemonSpecies](ctx, c, pokemon, resource.KindPokemonSpecies, speciesOf).Await(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "National dex id: %d\n", species.Data.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Name (%s): %s\n", lang, locale.DisplayName(species, lang, species.Data.Name))
			return nil
		},
	}
	cmd.Flags().String("lang", "zh-Hans", "language tag of the name")
	return cmd
}
