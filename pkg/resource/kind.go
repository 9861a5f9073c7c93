// Package resource defines how catalog resources are addressed and the
// shapes shared by every resource the client can load.
package resource

// Kind is a resource type as it appears in the API path
// (e.g. "pokemon-species" in /api/v2/pokemon-species/1/).
type Kind string

// Known resource kinds.
const (
	KindPokemon        Kind = "pokemon"
	KindPokemonSpecies Kind = "pokemon-species"
	KindVersion        Kind = "version"
	KindVersionGroup   Kind = "version-group"
	KindLanguage       Kind = "language"
	KindAbility        Kind = "ability"
	KindMove           Kind = "move"
	KindGeneration     Kind = "generation"
	KindType           Kind = "type"
)

// String returns the kind as used in URLs.
func (k Kind) String() string {
	return string(k)
}
