package pokemon

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// languageEnglish is the language code selected from localized entries.
	languageEnglish = "en"

	// generationPrefix is stripped from generation names ("generation-iv" -> "IV").
	generationPrefix = "generation-"

	// DefaultGenus is used when no English genus exists.
	DefaultGenus = "Unknown"

	// Genderless is the upstream gender_rate for species without gender.
	Genderless = -1
)

// ExtractID parses the id from the last path segment of a PokeAPI resource URL.
// A single trailing slash is ignored: "https://x/y/25/" and "https://x/y/25" both yield 25.
func ExtractID(url string) (int, error) {
	trimmed := strings.TrimSuffix(url, "/")
	segment := trimmed[strings.LastIndex(trimmed, "/")+1:]
	if segment == "" {
		return 0, &MalformedResourceError{URL: url}
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return 0, &MalformedResourceError{URL: url, Err: fmt.Errorf("segment %q is not numeric", segment)}
		}
	}

	id, err := strconv.Atoi(segment)
	if err != nil {
		return 0, &MalformedResourceError{URL: url, Err: err}
	}
	if id < 1 {
		return 0, &MalformedResourceError{URL: url, Err: fmt.Errorf("id %d is not positive", id)}
	}
	return id, nil
}

// ToListItem builds a ListItem from a list entry.
func ToListItem(url, name string) (ListItem, error) {
	id, err := ExtractID(url)
	if err != nil {
		return ListItem{}, err
	}
	return ListItem{ID: id, Name: name}, nil
}

// ToListPage normalizes a list payload. The first malformed entry fails the whole page.
func ToListPage(raw RawListPage) (ListPage, error) {
	items := make([]ListItem, 0, len(raw.Results))
	for _, r := range raw.Results {
		item, err := ToListItem(r.URL, r.Name)
		if err != nil {
			return ListPage{}, err
		}
		items = append(items, item)
	}
	return ListPage{Items: items, HasMore: raw.Next != nil}, nil
}

// ToDetail flattens a /pokemon/{id} payload.
func ToDetail(raw RawDetail) Detail {
	d := Detail{
		ID:        raw.ID,
		Name:      raw.Name,
		Height:    raw.Height,
		Weight:    raw.Weight,
		Types:     make([]string, 0, len(raw.Types)),
		Stats:     make([]Stat, 0, len(raw.Stats)),
		Abilities: make([]string, 0, len(raw.Abilities)),
		Artwork:   officialArtwork(raw.Sprites),
	}

	for _, t := range raw.Types {
		d.Types = append(d.Types, t.Type.Name)
	}
	for _, s := range raw.Stats {
		d.Stats = append(d.Stats, Stat{Name: s.Stat.Name, Value: max(s.BaseStat, 0)})
	}
	for _, a := range raw.Abilities {
		d.Abilities = append(d.Abilities, a.Ability.Name)
	}
	return d
}

func officialArtwork(s *RawSprites) string {
	if s == nil || s.Other == nil || s.Other.OfficialArtwork == nil || s.Other.OfficialArtwork.FrontDefault == nil {
		return ""
	}
	return *s.Other.OfficialArtwork.FrontDefault
}

// ToSpecies flattens a /pokemon-species/{id} payload.
func ToSpecies(raw RawSpecies) Species {
	s := Species{
		ID:          raw.ID,
		Name:        raw.Name,
		Genus:       DefaultGenus,
		Generation:  generationCode(raw.Generation.Name),
		CaptureRate: raw.CaptureRate,
		GrowthRate:  dehyphenate(raw.GrowthRate.Name),
		EggGroups:   make([]string, 0, len(raw.EggGroups)),
		GenderRatio: raw.GenderRate,
	}

	for _, g := range raw.Genera {
		if g.Language.Name == languageEnglish {
			s.Genus = g.Genus
			break
		}
	}
	for _, f := range raw.FlavorTextEntries {
		if f.Language.Name == languageEnglish {
			s.FlavorText = CleanFlavorText(f.FlavorText)
			break
		}
	}
	if raw.Habitat != nil {
		s.Habitat = raw.Habitat.Name
	}
	if raw.BaseHappiness != nil {
		s.BaseHappiness = *raw.BaseHappiness
	}
	for _, e := range raw.EggGroups {
		s.EggGroups = append(s.EggGroups, dehyphenate(e.Name))
	}
	if s.GenderRatio < Genderless || s.GenderRatio > 8 {
		s.GenderRatio = Genderless
	}
	return s
}

// CleanFlavorText replaces form feeds and line breaks with spaces and
// collapses whitespace runs so no control characters remain.
func CleanFlavorText(text string) string {
	return strings.Join(strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '\f' || r == '\n' || r == '\r' || r == '\t' || r == '\v'
	}), " ")
}

func generationCode(name string) string {
	return strings.ToUpper(strings.TrimPrefix(name, generationPrefix))
}

func dehyphenate(name string) string {
	return strings.ReplaceAll(name, "-", " ")
}
