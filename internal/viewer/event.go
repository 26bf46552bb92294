package viewer

import (
	"errors"
	"fmt"

	"github.com/mohammed-shakir/bkk-condo-map/internal/table"
)

var (
	ErrUnknownEvent = errors.New("unknown event type")
	ErrNotFound     = errors.New("session not found")
)

// Event types posted by the browser.
const (
	EventMapLoaded       = "map_loaded"
	EventSearchInput     = "search_input"
	EventSearchKey       = "search_key"
	EventSuggestionClick = "suggestion_click"
	EventSelectRegion    = "select_region"
	EventClearSelection  = "clear_selection"
	EventSort            = "sort"
	EventOpenFilter      = "open_filter"
	EventFilterSearch    = "filter_search"
	EventFilterToggle    = "filter_toggle"
	EventFilterSelectAll = "filter_select_all"
	EventFilterApply     = "filter_apply"
	EventFilterCancel    = "filter_cancel"
	EventPointerDown     = "pointer_down"
	EventNextPage        = "next_page"
	EventPrevPage        = "prev_page"
	EventRowClick        = "row_click"
	EventPointClick      = "point_click"
	EventClearAll        = "clear_all"
	EventToggleTable     = "toggle_table"
	EventRefresh         = "refresh"
)

// Event is one UI interaction. Which fields matter depends on Type.
type Event struct {
	Type   string     `json:"type"`
	Text   string     `json:"text,omitempty"`
	Key    string     `json:"key,omitempty"`
	Field  string     `json:"field,omitempty"`
	Value  string     `json:"value,omitempty"`
	Index  int        `json:"index,omitempty"`
	On     bool       `json:"on,omitempty"`
	X      float64    `json:"x,omitempty"`
	Y      float64    `json:"y,omitempty"`
	Bounds table.Rect `json:"bounds,omitzero"`
}

func (e Event) Validate() error {
	switch e.Type {
	case EventMapLoaded, EventSearchInput, EventSearchKey, EventSuggestionClick,
		EventSelectRegion, EventClearSelection, EventSort, EventOpenFilter,
		EventFilterSearch, EventFilterToggle, EventFilterSelectAll, EventFilterApply,
		EventFilterCancel, EventPointerDown, EventNextPage, EventPrevPage,
		EventRowClick, EventPointClick, EventClearAll, EventToggleTable, EventRefresh:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, e.Type)
	}
	switch e.Type {
	case EventSort, EventOpenFilter:
		if e.Field == "" {
			return fmt.Errorf("%s: field is required", e.Type)
		}
	case EventSuggestionClick, EventSelectRegion:
		if e.Value == "" {
			return fmt.Errorf("%s: value is required", e.Type)
		}
	}
	return nil
}
