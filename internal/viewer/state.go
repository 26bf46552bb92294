package viewer

import (
	"github.com/mohammed-shakir/bkk-condo-map/internal/geo"
	"github.com/mohammed-shakir/bkk-condo-map/internal/table"
	"github.com/mohammed-shakir/bkk-condo-map/internal/view"
)

// Column is one table header as rendered.
type Column struct {
	Label     string `json:"label"`
	Field     string `json:"field"`
	Indicator string `json:"indicator,omitempty"`
	Filtered  bool   `json:"filtered"`
}

type PopoverState struct {
	Field    string     `json:"field"`
	Bounds   table.Rect `json:"bounds"`
	Search   string     `json:"search"`
	Values   []string   `json:"values"`
	Selected []string   `json:"selected"`
}

type SearchState struct {
	Input       string   `json:"input"`
	Suggestions []string `json:"suggestions"`
	Active      int      `json:"active"`
}

type DatasetStatus struct {
	Version  uint64 `json:"version"`
	Features int    `json:"features"`
	Error    string `json:"error,omitempty"`
}

// State is what the browser renders after an event.
type State struct {
	Session      string                   `json:"session"`
	MapLoaded    bool                     `json:"map_loaded"`
	Selection    string                   `json:"selection"`
	Region       string                   `json:"region,omitempty"`
	SelectedRow  int                      `json:"selected_row"`
	CondoCount   float64                  `json:"condo_count"`
	TableVisible bool                     `json:"table_visible"`
	Columns      []Column                 `json:"columns"`
	Rows         []table.Row              `json:"rows"`
	Page         view.Page                `json:"page"`
	Filters      view.ColumnFilter        `json:"filters"`
	Popover      *PopoverState            `json:"popover,omitempty"`
	Search       SearchState              `json:"search"`
	Datasets     map[string]DatasetStatus `json:"datasets"`
}

func (v *Viewer) state() State {
	condos := v.collection(geo.Condos)
	rows, page := v.tbl.Rows(condos, v.derived())

	st := State{
		Session:      v.id,
		MapLoaded:    v.installed,
		Selection:    v.sel.State().String(),
		Region:       v.tbl.Region,
		SelectedRow:  v.tbl.SelectedRow,
		TableVisible: v.tbl.Visible,
		Rows:         rows,
		Page:         page,
		Filters:      v.tbl.Filters.Clone(),
		Search: SearchState{
			Input:       v.box.Input,
			Suggestions: append([]string{}, v.box.Suggestions...),
			Active:      v.box.Active,
		},
		Datasets: make(map[string]DatasetStatus, len(geo.Kinds)),
	}
	if v.tbl.Region != "" {
		st.CondoCount = view.CountInRegion(condos, v.tbl.Region, v.opts.CountDivisor)
	}
	for _, c := range table.Columns {
		st.Columns = append(st.Columns, Column{
			Label:     c.Label,
			Field:     c.Field,
			Indicator: v.tbl.SortIndicator(c.Field),
			Filtered:  v.tbl.Filtered(c.Field),
		})
	}
	if p := v.tbl.Popover; p != nil {
		st.Popover = &PopoverState{
			Field:    p.Field,
			Bounds:   p.Bounds,
			Search:   p.Search,
			Values:   p.Visible(),
			Selected: p.Selected(),
		}
	}
	for _, k := range geo.Kinds {
		snap := v.snapshot(k)
		ds := DatasetStatus{Version: snap.Version, Features: snap.Len()}
		if snap.Err != nil {
			ds.Error = snap.Err.Error()
		}
		st.Datasets[k.String()] = ds
	}
	return st
}
