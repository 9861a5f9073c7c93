package resource

// Catalog shapes decoded from the API. Only the fields this module uses are
// mapped; unknown fields are ignored by the decoder.

// Pokemon is /pokemon/{id or name}/.
type Pokemon struct {
	ID             int              `json:"id"`
	Name           string           `json:"name"`
	BaseExperience int              `json:"base_experience"`
	Height         int              `json:"height"`
	Weight         int              `json:"weight"`
	Order          int              `json:"order"`
	IsDefault      bool             `json:"is_default"`
	Species        NamedReference   `json:"species"`
	Types          []PokemonType    `json:"types"`
	Abilities      []PokemonAbility `json:"abilities"`
}

// PokemonType is one slot of a Pokemon's typing.
type PokemonType struct {
	Slot int            `json:"slot"`
	Type NamedReference `json:"type"`
}

// PokemonAbility is one ability slot of a Pokemon.
type PokemonAbility struct {
	Slot     int            `json:"slot"`
	IsHidden bool           `json:"is_hidden"`
	Ability  NamedReference `json:"ability"`
}

// PokemonSpecies is /pokemon-species/{id or name}/.
type PokemonSpecies struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	Order          int             `json:"order"`
	IsLegendary    bool            `json:"is_legendary"`
	IsMythical     bool            `json:"is_mythical"`
	Generation     NamedReference  `json:"generation"`
	EvolvesFrom    *NamedReference `json:"evolves_from_species"`
	EvolutionChain APIResource     `json:"evolution_chain"`
	Names          []LocalizedName `json:"names"`
}

// LocalizedNames implements Localizable.
func (s PokemonSpecies) LocalizedNames() []LocalizedName { return s.Names }

// Version is /version/{id or name}/.
type Version struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	VersionGroup NamedReference  `json:"version_group"`
	Names        []LocalizedName `json:"names"`
}

// LocalizedNames implements Localizable.
func (v Version) LocalizedNames() []LocalizedName { return v.Names }

// VersionGroup is /version-group/{id or name}/.
type VersionGroup struct {
	ID         int              `json:"id"`
	Name       string           `json:"name"`
	Order      int              `json:"order"`
	Generation NamedReference   `json:"generation"`
	Versions   []NamedReference `json:"versions"`
}

// Language is /language/{id or name}/.
type Language struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Official bool            `json:"official"`
	ISO639   string          `json:"iso639"`
	ISO3166  string          `json:"iso3166"`
	Names    []LocalizedName `json:"names"`
}

// LocalizedNames implements Localizable.
func (l Language) LocalizedNames() []LocalizedName { return l.Names }

// Ability is /ability/{id or name}/.
type Ability struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	IsMainSeries bool            `json:"is_main_series"`
	Generation   NamedReference  `json:"generation"`
	Names        []LocalizedName `json:"names"`
}

// LocalizedNames implements Localizable.
func (a Ability) LocalizedNames() []LocalizedName { return a.Names }

// Move is /move/{id or name}/.
type Move struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Accuracy *int            `json:"accuracy"`
	Power    *int            `json:"power"`
	PP       int             `json:"pp"`
	Type     NamedReference  `json:"type"`
	Names    []LocalizedName `json:"names"`
}

// LocalizedNames implements Localizable.
func (m Move) LocalizedNames() []LocalizedName { return m.Names }

// Generation is /generation/{id or name}/.
type Generation struct {
	ID             int              `json:"id"`
	Name           string           `json:"name"`
	MainRegion     NamedReference   `json:"main_region"`
	VersionGroups  []NamedReference `json:"version_groups"`
	PokemonSpecies []NamedReference `json:"pokemon_species"`
	Names          []LocalizedName  `json:"names"`
}

// LocalizedNames implements Localizable.
func (g Generation) LocalizedNames() []LocalizedName { return g.Names }
