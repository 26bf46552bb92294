package mapview

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"

	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v3"

	"github.com/mohammed-shakir/bkk-condo-map/internal/geo"
)

//go:embed palette.yaml
var defaultPalette []byte

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Mapping is one match arm: a property value and what it maps to.
type Mapping struct {
	Match string `yaml:"match"`
	Value string `yaml:"value"`
}

// Palette holds the transit styling tables.
type Palette struct {
	IconSize     float64   `yaml:"icon_size"`
	DefaultIcon  string    `yaml:"default_icon"`
	Icons        []Image   `yaml:"icons"`
	Operators    []Mapping `yaml:"operators"`
	DefaultColor string    `yaml:"default_color"`
	DashedAbove  float64   `yaml:"dashed_above"`
	Colors       []Mapping `yaml:"colors"`
}

// LoadPalette reads path, or the built-in palette when path is empty.
func LoadPalette(path string) (*Palette, error) {
	if path == "" {
		return ParsePalette(defaultPalette)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read palette: %w", err)
	}
	return ParsePalette(b)
}

func DefaultPalette() *Palette {
	p, err := ParsePalette(defaultPalette)
	if err != nil {
		panic(fmt.Sprintf("built-in palette: %v", err))
	}
	return p
}

func ParsePalette(b []byte) (*Palette, error) {
	var p Palette
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse palette: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Palette) Validate() error {
	var errs []error
	if p.IconSize <= 0 {
		errs = append(errs, errors.New("icon_size must be positive"))
	}
	ids := make([]string, 0, len(p.Icons))
	for _, ic := range p.Icons {
		if ic.ID == "" || ic.URL == "" {
			errs = append(errs, fmt.Errorf("icon %q needs id and url", ic.ID))
		}
		ids = append(ids, ic.ID)
	}
	if !slices.Contains(ids, p.DefaultIcon) {
		errs = append(errs, fmt.Errorf("default_icon %q is not a declared icon", p.DefaultIcon))
	}
	for _, m := range p.Operators {
		if !slices.Contains(ids, m.Value) {
			errs = append(errs, fmt.Errorf("operator %q maps to unknown icon %q", m.Match, m.Value))
		}
	}
	if len(p.Operators) == 0 {
		errs = append(errs, errors.New("operators needs at least one mapping"))
	}
	errs = append(errs, duplicates("operator", p.Operators)...)
	if !hexColor.MatchString(p.DefaultColor) {
		errs = append(errs, fmt.Errorf("default_color %q is not #RRGGBB", p.DefaultColor))
	}
	for _, m := range p.Colors {
		if !hexColor.MatchString(m.Value) {
			errs = append(errs, fmt.Errorf("color %q: %q is not #RRGGBB", m.Match, m.Value))
		}
	}
	if len(p.Colors) == 0 {
		errs = append(errs, errors.New("colors needs at least one mapping"))
	}
	errs = append(errs, duplicates("color", p.Colors)...)
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid palette: %w", err)
	}
	return nil
}

// duplicates reports repeated match labels.
func duplicates(what string, ms []Mapping) []error {
	var errs []error
	seen := make(map[string]bool, len(ms))
	for _, m := range ms {
		if seen[m.Match] {
			errs = append(errs, fmt.Errorf("%s %q is listed twice", what, m.Match))
		}
		seen[m.Match] = true
	}
	return errs
}

func lookup(ms []Mapping, key, fallback string) string {
	for _, m := range ms {
		if m.Match == key {
			return m.Value
		}
	}
	return fallback
}

// StationIcon picks the marker icon for a station's operator.
func (p *Palette) StationIcon(f *geojson.Feature) string {
	return lookup(p.Operators, geo.Resolve(geo.Property(geo.KeyOperator), f).String(), p.DefaultIcon)
}

// LineColor maps a line's Thai color name to hex.
func (p *Palette) LineColor(f *geojson.Feature) string {
	return lookup(p.Colors, geo.Resolve(geo.Property(geo.KeyColor), f).String(), p.DefaultColor)
}

// LineDashed reports whether the line renders dashed (Active above the threshold).
func (p *Palette) LineDashed(f *geojson.Feature) bool {
	v := geo.Resolve(geo.Property(geo.KeyActive), f)
	return v.Kind == geo.KindNumber && v.Num > p.DashedAbove
}

func matchExpr(key string, ms []Mapping, fallback string) []any {
	out := []any{"match", []any{"get", key}}
	for _, m := range ms {
		out = append(out, m.Match, m.Value)
	}
	return append(out, fallback)
}

func (p *Palette) IconExpression() []any {
	return matchExpr(geo.KeyOperator, p.Operators, p.DefaultIcon)
}

func (p *Palette) ColorExpression() []any {
	return matchExpr(geo.KeyColor, p.Colors, p.DefaultColor)
}

func (p *Palette) DashExpression() []any {
	return []any{
		"case",
		[]any{">", []any{"get", geo.KeyActive}, p.DashedAbove}, []any{"literal", []any{2, 2}},
		[]any{"literal", []any{}},
	}
}
