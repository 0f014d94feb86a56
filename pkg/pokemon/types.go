// Package pokemon defines the Pokédex domain model and the pure functions
// that normalize PokeAPI payloads into it.
package pokemon

// ListItem is one entry of the paginated Pokémon index.
type ListItem struct {
	// ID is parsed from the trailing path segment of the upstream resource URL.
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ListPage is one bounded batch of list items plus a continuation signal.
type ListPage struct {
	Items []ListItem `json:"items"`

	// HasMore is true when upstream reports a further page (non-null next).
	HasMore bool `json:"has_more"`
}

// Stat is a single base stat.
type Stat struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Detail is the normalized /pokemon/{id} resource.
type Detail struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Types     []string `json:"types"`
	Height    int      `json:"height"` // decimetres
	Weight    int      `json:"weight"` // hectograms
	Stats     []Stat   `json:"stats"`
	Abilities []string `json:"abilities"`

	// Artwork is the official artwork URL, empty when upstream has none.
	Artwork string `json:"artwork,omitempty"`
}

// Species is the normalized /pokemon-species/{id} resource.
type Species struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	Genus         string   `json:"genus"`
	FlavorText    string   `json:"flavor_text"`
	Generation    string   `json:"generation"`
	Habitat       string   `json:"habitat,omitempty"`
	CaptureRate   int      `json:"capture_rate"`
	BaseHappiness int      `json:"base_happiness"`
	GrowthRate    string   `json:"growth_rate"`
	EggGroups     []string `json:"egg_groups"`

	// GenderRatio is -1 for genderless, otherwise the female share in eighths (0-8).
	GenderRatio int `json:"gender_ratio"`
}

// Clone returns a deep copy so callers cannot mutate a shared snapshot.
func (d Detail) Clone() Detail {
	d.Types = append([]string(nil), d.Types...)
	d.Stats = append([]Stat(nil), d.Stats...)
	d.Abilities = append([]string(nil), d.Abilities...)
	return d
}

// Clone returns a deep copy so callers cannot mutate a shared snapshot.
func (s Species) Clone() Species {
	s.EggGroups = append([]string(nil), s.EggGroups...)
	return s
}
