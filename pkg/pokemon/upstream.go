package pokemon

// Raw PokeAPI payloads. Every optional nesting level is a pointer so that an
// absent field decodes to nil instead of a silently zeroed struct.

// NamedResource is the {name, url} pair PokeAPI uses for references.
type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// RawListPage is the /pokemon?offset=&limit= payload.
type RawListPage struct {
	Count   int             `json:"count"`
	Next    *string         `json:"next"`
	Results []NamedResource `json:"results"`
}

// RawDetail is the /pokemon/{id} payload, restricted to the fields we read.
type RawDetail struct {
	ID        int          `json:"id"`
	Name      string       `json:"name"`
	Height    int          `json:"height"`
	Weight    int          `json:"weight"`
	Types     []RawType    `json:"types"`
	Stats     []RawStat    `json:"stats"`
	Abilities []RawAbility `json:"abilities"`
	Sprites   *RawSprites  `json:"sprites"`
}

// RawType is one element of RawDetail.Types.
type RawType struct {
	Slot int           `json:"slot"`
	Type NamedResource `json:"type"`
}

// RawStat is one element of RawDetail.Stats.
type RawStat struct {
	BaseStat int           `json:"base_stat"`
	Stat     NamedResource `json:"stat"`
}

// RawAbility is one element of RawDetail.Abilities.
type RawAbility struct {
	Ability  NamedResource `json:"ability"`
	IsHidden bool          `json:"is_hidden"`
}

// RawSprites holds the sprite block; only official artwork is consumed.
type RawSprites struct {
	FrontDefault *string          `json:"front_default"`
	Other        *RawOtherSprites `json:"other"`
}

// RawOtherSprites is sprites.other.
type RawOtherSprites struct {
	OfficialArtwork *RawArtwork `json:"official-artwork"`
}

// RawArtwork is sprites.other["official-artwork"].
type RawArtwork struct {
	FrontDefault *string `json:"front_default"`
}

// RawSpecies is the /pokemon-species/{id} payload, restricted to the fields we read.
type RawSpecies struct {
	ID                int             `json:"id"`
	Name              string          `json:"name"`
	Genera            []RawGenus      `json:"genera"`
	FlavorTextEntries []RawFlavorText `json:"flavor_text_entries"`
	Generation        NamedResource   `json:"generation"`
	Habitat           *NamedResource  `json:"habitat"`
	CaptureRate       int             `json:"capture_rate"`
	BaseHappiness     *int            `json:"base_happiness"`
	GrowthRate        NamedResource   `json:"growth_rate"`
	EggGroups         []NamedResource `json:"egg_groups"`
	GenderRate        int             `json:"gender_rate"`
}

// RawGenus is one localized genus entry.
type RawGenus struct {
	Genus    string        `json:"genus"`
	Language NamedResource `json:"language"`
}

// RawFlavorText is one localized flavor text entry.
type RawFlavorText struct {
	FlavorText string        `json:"flavor_text"`
	Language   NamedResource `json:"language"`
	Version    NamedResource `json:"version"`
}
