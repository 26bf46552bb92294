// Package search matches region names against free text and drives the suggestion box.
package search

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/bkk-condo-map/internal/geo"
)

const (
	MinInput       = 2
	MaxSuggestions = 5
)

// Suggest returns up to MaxSuggestions distinct region names containing input,
// case-insensitively, in collection order. Input shorter than MinInput runes yields nil.
func Suggest(input string, regions *geojson.FeatureCollection) []string {
	if utf8.RuneCountInString(input) < MinInput || regions == nil {
		return nil
	}
	needle := strings.ToLower(input)
	seen := make(map[string]struct{}, MaxSuggestions)
	var out []string
	for _, f := range regions.Features {
		name := geo.RegionName(f)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		if !strings.Contains(strings.ToLower(name), needle) {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}

type Key int

const (
	KeyDown Key = iota
	KeyUp
	KeyEnter
	KeyEscape
)

func ParseKey(s string) (Key, error) {
	switch s {
	case "ArrowDown", "down":
		return KeyDown, nil
	case "ArrowUp", "up":
		return KeyUp, nil
	case "Enter", "enter":
		return KeyEnter, nil
	case "Escape", "escape", "esc":
		return KeyEscape, nil
	}
	return 0, fmt.Errorf("unknown key %q", s)
}

// Box is the search input with its suggestion list. Active is -1 when nothing is
// highlighted.
type Box struct {
	Input       string   `json:"input"`
	Suggestions []string `json:"suggestions"`
	Active      int      `json:"active"`
}

func NewBox() *Box { return &Box{Active: -1} }

// SetInput replaces the text and recomputes suggestions. It reports false when the input
// is too short to search, which callers treat as a clear.
func (b *Box) SetInput(text string, regions *geojson.FeatureCollection) bool {
	b.Input = text
	b.Active = -1
	if utf8.RuneCountInString(text) < MinInput {
		b.Suggestions = nil
		return false
	}
	b.Suggestions = Suggest(text, regions)
	return true
}

// Press handles one key. On Enter with a highlighted suggestion it returns that name and
// true; the input takes the name and the list closes.
func (b *Box) Press(k Key) (string, bool) {
	n := len(b.Suggestions)
	if n == 0 {
		return "", false
	}
	switch k {
	case KeyDown:
		if b.Active < n-1 {
			b.Active++
		}
	case KeyUp:
		if b.Active > 0 {
			b.Active--
		}
	case KeyEnter:
		if b.Active >= 0 && b.Active < n {
			name := b.Suggestions[b.Active]
			b.Commit(name)
			return name, true
		}
	case KeyEscape:
		b.Dismiss()
	}
	return "", false
}

// Commit puts name in the input and closes the list, as when a suggestion is clicked.
func (b *Box) Commit(name string) {
	b.Input = name
	b.Suggestions = nil
	b.Active = -1
}

func (b *Box) Dismiss() {
	b.Suggestions = nil
	b.Active = -1
}

func (b *Box) Clear() {
	b.Input = ""
	b.Dismiss()
}
