package pokemon

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SpriteBaseURL is the base of the deterministic sprite asset template.
const SpriteBaseURL = "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon"

// SpriteURL returns the front sprite asset for an id. Nothing is fetched.
func SpriteURL(id int) string {
	return fmt.Sprintf("%s/%d.png", SpriteBaseURL, id)
}

// DisplayNumber renders an id as "#001".
func DisplayNumber(id int) string {
	return fmt.Sprintf("#%03d", id)
}

// DisplayName title-cases an upstream slug ("mr-mime" -> "Mr Mime").
func DisplayName(name string) string {
	// Casers are stateful and must not be shared between goroutines.
	return cases.Title(language.English).String(dehyphenate(name))
}

// GenderSplit is the male/female breakdown derived from a gender ratio.
type GenderSplit struct {
	Genderless bool
	FemalePct  float64
	MalePct    float64
}

// Gender converts a gender ratio (female eighths, -1 genderless) into percentages.
func Gender(ratio int) GenderSplit {
	if ratio < 0 || ratio > 8 {
		return GenderSplit{Genderless: true}
	}
	female := float64(ratio) / 8 * 100
	return GenderSplit{FemalePct: female, MalePct: 100 - female}
}

// Label renders "Genderless" or "♂ 87.5% / ♀ 12.5%".
func (g GenderSplit) Label() string {
	if g.Genderless {
		return "Genderless"
	}
	return fmt.Sprintf("♂ %.1f%% / ♀ %.1f%%", g.MalePct, g.FemalePct)
}

// StatTier buckets a base stat for display.
type StatTier string

const (
	StatTierHigh   StatTier = "high"
	StatTierMedium StatTier = "medium"
	StatTierLow    StatTier = "low"
)

// TierFor returns the tier of a base stat value.
func TierFor(value int) StatTier {
	switch {
	case value >= 100:
		return StatTierHigh
	case value >= 50:
		return StatTierMedium
	default:
		return StatTierLow
	}
}

// WeightKg converts hectograms to kilograms.
func (d Detail) WeightKg() float64 { return float64(d.Weight) / 10 }

// HeightM converts decimetres to metres.
func (d Detail) HeightM() float64 { return float64(d.Height) / 10 }

// StatTotal sums all base stats.
func (d Detail) StatTotal() int {
	total := 0
	for _, s := range d.Stats {
		total += s.Value
	}
	return total
}

// PrimaryType is the first listed type, or "normal" when there is none.
func (d Detail) PrimaryType() string {
	if len(d.Types) == 0 {
		return "normal"
	}
	return d.Types[0]
}

// SpriteURL returns the front sprite for this Pokémon.
func (i ListItem) SpriteURL() string { return SpriteURL(i.ID) }

// Gender returns the gender split of the species.
func (s Species) Gender() GenderSplit { return Gender(s.GenderRatio) }

// HabitatLabel returns the habitat or "Unknown".
func (s Species) HabitatLabel() string {
	if s.Habitat == "" {
		return "Unknown"
	}
	return s.Habitat
}

// EggGroupsLabel joins egg groups with commas, or returns "None".
func (s Species) EggGroupsLabel() string {
	if len(s.EggGroups) == 0 {
		return "None"
	}
	return strings.Join(s.EggGroups, ", ")
}
