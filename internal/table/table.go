// Package table holds the condo table state: sort, filters, paging, row selection and the
// filter popover.
package table

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/bkk-condo-map/internal/geo"
	"github.com/mohammed-shakir/bkk-condo-map/internal/view"
)

// Column binds a header label to the field it sorts and filters.
type Column struct {
	Label       string `json:"label"`
	Field       string `json:"field"`
	Placeholder string `json:"-"`
}

var Columns = []Column{
	{Label: "ชื่อ (ไทย)", Field: geo.KeyNameThai, Placeholder: geo.PlaceholderNameThai},
	{Label: "Name (English)", Field: geo.KeyNameEnglish, Placeholder: geo.PlaceholderName},
	{Label: "เขต/อำเภอ", Field: geo.KeyRegion, Placeholder: geo.PlaceholderRegion},
	{Label: "ที่อยู่", Field: geo.KeyAddress, Placeholder: geo.PlaceholderAddress},
	{Label: "สถานีใกล้เคียง", Field: geo.KeyNearestStation, Placeholder: geo.PlaceholderStation},
}

// FieldForLabel returns the field of the column labelled label.
func FieldForLabel(label string) (string, bool) {
	for _, c := range Columns {
		if c.Label == label {
			return c.Field, true
		}
	}
	return "", false
}

const NoRow = -1

// State is one table instance. It is not safe for concurrent use.
type State struct {
	Region      string
	Filters     view.ColumnFilter
	Sort        view.SortSpec
	Page        int
	PageSize    int
	SelectedRow int
	Visible     bool
	Popover     *Popover
}

func New(pageSize int) *State {
	if pageSize <= 0 {
		pageSize = view.DefaultPageSize
	}
	return &State{
		Filters:     view.ColumnFilter{},
		PageSize:    pageSize,
		SelectedRow: NoRow,
		Visible:     true,
	}
}

func (s *State) Query() view.Query {
	return view.Query{Region: s.Region, Filters: s.Filters.Clone(), Sort: s.Sort}
}

// SetRegion changes the region constraint. A change drops filters, sort, row selection and
// any open popover, and returns to the first page.
func (s *State) SetRegion(name string) bool {
	if name == s.Region {
		return false
	}
	s.Region = name
	s.Filters = view.ColumnFilter{}
	s.Sort = view.SortSpec{}
	s.Page = 0
	s.SelectedRow = NoRow
	s.Popover = nil
	return true
}

// RequestSort sorts by field ascending, or flips to descending when field is already
// sorted ascending.
func (s *State) RequestSort(field string) {
	if field == "" {
		return
	}
	dir := view.Asc
	if s.Sort.Field == field && s.Sort.Direction == view.Asc {
		dir = view.Desc
	}
	s.Sort = view.SortSpec{Field: field, Direction: dir}
}

// SortIndicator is the arrow shown next to a column label.
func (s *State) SortIndicator(field string) string {
	if s.Sort.Field != field || field == "" {
		return ""
	}
	if s.Sort.Direction == view.Desc {
		return "↓"
	}
	return "↑"
}

// Paging clamps the current page against total and returns its bounds.
func (s *State) Paging(total int) view.Page {
	p := view.Paginate(total, view.PageSpec{Index: s.Page, Size: s.PageSize})
	s.Page = p.Index
	return p
}

func (s *State) NextPage(total int) view.Page {
	s.Page++
	return s.Paging(total)
}

func (s *State) PrevPage(total int) view.Page {
	s.Page--
	return s.Paging(total)
}

// ToggleRow selects row, or deselects it when it is already selected. It reports whether
// the row is selected afterwards.
func (s *State) ToggleRow(row int) bool {
	if s.SelectedRow == row {
		s.SelectedRow = NoRow
		return false
	}
	s.SelectedRow = row
	return true
}

// ClearAll resets page, sort, filters and row selection. The region is kept.
func (s *State) ClearAll() {
	s.Page = 0
	s.Sort = view.SortSpec{}
	s.Filters = view.ColumnFilter{}
	s.SelectedRow = NoRow
	s.Popover = nil
}

func (s *State) ToggleVisible() bool {
	s.Visible = !s.Visible
	return s.Visible
}

// Filtered reports whether field has an active filter.
func (s *State) Filtered(field string) bool { return len(s.Filters[field]) > 0 }

// Row is one rendered table line.
type Row struct {
	Index          int        `json:"index"`
	NameThai       string     `json:"name_thai"`
	NameEnglish    string     `json:"name_english"`
	Region         string     `json:"region"`
	Address        string     `json:"address"`
	NearestStation string     `json:"nearest_station"`
	Coordinates    *orb.Point `json:"coordinates,omitempty"`
	Selected       bool       `json:"selected"`
}

// Rows renders the current page of idx, a derived view of base.
func (s *State) Rows(base *geojson.FeatureCollection, idx []int) ([]Row, view.Page) {
	p := s.Paging(len(idx))
	page := p.Slice(idx)
	out := make([]Row, 0, len(page))
	for _, i := range page {
		out = append(out, RenderRow(base.Features[i], i, i == s.SelectedRow))
	}
	return out, p
}

func RenderRow(f *geojson.Feature, index int, selected bool) Row {
	r := Row{
		Index:          index,
		NameThai:       geo.Text(f, geo.KeyNameThai, geo.PlaceholderNameThai),
		NameEnglish:    geo.Text(f, geo.KeyNameEnglish, geo.PlaceholderName),
		Region:         geo.Text(f, geo.KeyRegion, geo.PlaceholderRegion),
		Address:        geo.Text(f, geo.KeyAddress, geo.PlaceholderAddress),
		NearestStation: geo.Text(f, geo.KeyNearestStation, geo.PlaceholderStation),
		Selected:       selected,
	}
	if p, ok := geo.PointOf(f); ok {
		r.Coordinates = &p
	}
	return r
}
