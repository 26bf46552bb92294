package table

import (
	"slices"
	"strings"

	"github.com/mohammed-shakir/bkk-condo-map/internal/view"
)

// Rect is a screen rectangle in CSS pixels.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// Popover is the open filter value picker of one column.
type Popover struct {
	Field   string          `json:"field"`
	Bounds  Rect            `json:"bounds"`
	Search  string          `json:"search"`
	Values  []string        `json:"-"`
	Pending map[string]bool `json:"-"`
}

// Visible returns the values matching the search text, case-insensitively.
func (p *Popover) Visible() []string {
	if p.Search == "" {
		return slices.Clone(p.Values)
	}
	needle := strings.ToLower(p.Search)
	out := make([]string, 0, len(p.Values))
	for _, v := range p.Values {
		if strings.Contains(strings.ToLower(v), needle) {
			out = append(out, v)
		}
	}
	return out
}

// Selected returns the pending values in value order.
func (p *Popover) Selected() []string {
	out := make([]string, 0, len(p.Pending))
	for _, v := range p.Values {
		if p.Pending[v] {
			out = append(out, v)
		}
	}
	return out
}

// OpenFilter opens the popover for field inside bounds. values are the column's unique
// values; the pending selection starts from the active filter.
func (s *State) OpenFilter(field string, bounds Rect, values []string) *Popover {
	p := &Popover{
		Field:   field,
		Bounds:  bounds,
		Values:  values,
		Pending: make(map[string]bool, len(s.Filters[field])),
	}
	for _, v := range s.Filters[field] {
		p.Pending[v] = true
	}
	s.Popover = p
	return p
}

func (s *State) SearchValues(text string) {
	if s.Popover != nil {
		s.Popover.Search = text
	}
}

func (s *State) ToggleValue(v string) {
	if s.Popover == nil {
		return
	}
	if s.Popover.Pending[v] {
		delete(s.Popover.Pending, v)
		return
	}
	s.Popover.Pending[v] = true
}

// SelectAll sets or clears every value currently visible under the search text.
func (s *State) SelectAll(on bool) {
	if s.Popover == nil {
		return
	}
	for _, v := range s.Popover.Visible() {
		if on {
			s.Popover.Pending[v] = true
		} else {
			delete(s.Popover.Pending, v)
		}
	}
}

// Apply commits the pending selection as the column filter and closes the popover. An
// empty selection removes the filter.
func (s *State) Apply() {
	p := s.Popover
	if p == nil {
		return
	}
	if s.Filters == nil {
		s.Filters = view.ColumnFilter{}
	}
	if sel := p.Selected(); len(sel) > 0 {
		s.Filters[p.Field] = sel
	} else {
		delete(s.Filters, p.Field)
	}
	s.Popover = nil
}

func (s *State) Cancel() { s.Popover = nil }

// PointerDown closes the popover without applying when the pointer lands outside it. It
// reports whether the popover was closed.
func (s *State) PointerDown(x, y float64) bool {
	if s.Popover == nil || s.Popover.Bounds.Contains(x, y) {
		return false
	}
	s.Popover = nil
	return true
}
