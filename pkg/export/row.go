// Package export renders the Pokédex as Parquet and CSV files and uploads
// them to S3.
package export

import (
	"reflect"
	"strings"

	"github.com/Sternrassler/pokedex-client/pkg/pokemon"
)

// Row is one exported Pokémon. The parquet tags define both the Parquet
// schema and the CSV header.
type Row struct {
	ID          int32   `parquet:"name=id, type=INT32"`
	Name        string  `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
	DisplayName string  `parquet:"name=display_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Number      string  `parquet:"name=number, type=BYTE_ARRAY, convertedtype=UTF8"`
	Types       string  `parquet:"name=types, type=BYTE_ARRAY, convertedtype=UTF8"`
	PrimaryType string  `parquet:"name=primary_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	Height      int32   `parquet:"name=height, type=INT32"`
	Weight      int32   `parquet:"name=weight, type=INT32"`
	HeightM     float64 `parquet:"name=height_m, type=DOUBLE"`
	WeightKg    float64 `parquet:"name=weight_kg, type=DOUBLE"`
	StatTotal   int32   `parquet:"name=stat_total, type=INT32"`
	Abilities   string  `parquet:"name=abilities, type=BYTE_ARRAY, convertedtype=UTF8"`
	Artwork     string  `parquet:"name=artwork, type=BYTE_ARRAY, convertedtype=UTF8"`
	Sprite      string  `parquet:"name=sprite, type=BYTE_ARRAY, convertedtype=UTF8"`
	Genus       string  `parquet:"name=genus, type=BYTE_ARRAY, convertedtype=UTF8"`
	Generation  string  `parquet:"name=generation, type=BYTE_ARRAY, convertedtype=UTF8"`
	Habitat     string  `parquet:"name=habitat, type=BYTE_ARRAY, convertedtype=UTF8"`
	CaptureRate int32   `parquet:"name=capture_rate, type=INT32"`
	Gender      string  `parquet:"name=gender, type=BYTE_ARRAY, convertedtype=UTF8"`
	EggGroups   string  `parquet:"name=egg_groups, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// NewRow flattens a detail and, when present, its species.
func NewRow(d pokemon.Detail, s *pokemon.Species) Row {
	row := Row{
		ID:          int32(d.ID),
		Name:        d.Name,
		DisplayName: pokemon.DisplayName(d.Name),
		Number:      pokemon.DisplayNumber(d.ID),
		Types:       strings.Join(d.Types, "/"),
		PrimaryType: d.PrimaryType(),
		Height:      int32(d.Height),
		Weight:      int32(d.Weight),
		HeightM:     d.HeightM(),
		WeightKg:    d.WeightKg(),
		StatTotal:   int32(d.StatTotal()),
		Abilities:   strings.Join(d.Abilities, "/"),
		Artwork:     d.Artwork,
		Sprite:      pokemon.SpriteURL(d.ID),
	}
	if s != nil {
		row.Genus = s.Genus
		row.Generation = s.Generation
		row.Habitat = s.HabitatLabel()
		row.CaptureRate = int32(s.CaptureRate)
		row.Gender = s.Gender().Label()
		row.EggGroups = s.EggGroupsLabel()
	}
	return row
}

// Columns returns the column names in schema order.
func Columns() []string {
	t := reflect.TypeOf(Row{})
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		names = append(names, tagValue(t.Field(i).Tag.Get("parquet"), "name"))
	}
	return names
}

// tagValue reads key from a "k=v, k=v" parquet tag.
func tagValue(tag, key string) string {
	for _, entry := range strings.Split(tag, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if ok && k == key {
			return v
		}
	}
	return ""
}
