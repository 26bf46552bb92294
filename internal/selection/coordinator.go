// Package selection tracks the selected region and row and drives the matching map
// highlight, filters and camera.
package selection

import (
	"errors"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/bkk-condo-map/internal/geo"
	"github.com/mohammed-shakir/bkk-condo-map/internal/mapview"
)

type State int

const (
	NoSelection State = iota
	RowSelected
	RegionSelected
	RegionAndRowSelected
)

func (s State) String() string {
	switch s {
	case RowSelected:
		return "row_selected"
	case RegionSelected:
		return "region_selected"
	case RegionAndRowSelected:
		return "region_and_row_selected"
	default:
		return "no_selection"
	}
}

type Options struct {
	DefaultCenter orb.Point
	DefaultZoom   float64
	FitPadding    float64
	FitMaxZoom    float64
	RowZoom       float64
	PointZoom     float64
	FlyDuration   time.Duration
}

func DefaultOptions() Options {
	return Options{
		DefaultCenter: orb.Point{100.547224, 13.737520},
		DefaultZoom:   10,
		FitPadding:    50,
		FitMaxZoom:    16,
		RowZoom:       16,
		PointZoom:     15,
		FlyDuration:   time.Second,
	}
}

const noRow = -1

// Coordinator is owned by one viewer and is not safe for concurrent use.
type Coordinator struct {
	s      *mapview.Session
	opts   Options
	region string
	row    int
}

func New(s *mapview.Session, opts Options) *Coordinator {
	return &Coordinator{s: s, opts: opts, row: noRow}
}

func (c *Coordinator) State() State {
	switch {
	case c.region != "" && c.row != noRow:
		return RegionAndRowSelected
	case c.region != "":
		return RegionSelected
	case c.row != noRow:
		return RowSelected
	}
	return NoSelection
}

func (c *Coordinator) Region() string { return c.region }

// Row returns the selected feature index, or -1.
func (c *Coordinator) Row() int { return c.row }

// SelectRegion highlights name, restricts the condo points to it and fits the camera to
// its bounds. A name missing from regions clears the selection instead; ok reports which
// happened.
func (c *Coordinator) SelectRegion(name string, regions *geojson.FeatureCollection) (ok bool, err error) {
	feat, found := geo.FindRegion(regions, name)
	if !found {
		return false, c.Clear()
	}
	if name != c.region {
		c.row = noRow
	}
	c.region = name
	errs := []error{c.applyFilters()}
	if b, berr := geo.Bound(feat); berr == nil && !b.IsEmpty() {
		errs = append(errs, c.s.FitBounds(mapview.FitBounds(b, c.opts.FitPadding, c.opts.FitMaxZoom)))
	}
	return true, errors.Join(errs...)
}

// Clear drops region and row, resets every filter and flies home.
func (c *Coordinator) Clear() error {
	c.region = ""
	c.row = noRow
	return errors.Join(
		c.applyFilters(),
		c.s.FlyTo(mapview.FlyTo(c.opts.DefaultCenter, c.opts.DefaultZoom, c.opts.FlyDuration)),
	)
}

// ClickRow toggles the row highlight and flies to the feature. A nil feature is a no-op.
func (c *Coordinator) ClickRow(row int, f *geojson.Feature) (selected bool, err error) {
	if f == nil {
		return c.row != noRow && c.row == row, nil
	}
	if c.row == row {
		c.row = noRow
	} else {
		c.row = row
	}
	if p, ok := geo.PointOf(f); ok {
		err = c.s.FlyTo(mapview.FlyTo(p, c.opts.RowZoom, c.opts.FlyDuration))
	}
	return c.row == row, err
}

// ClearRow drops the row highlight without moving the camera.
func (c *Coordinator) ClearRow() { c.row = noRow }

// ClickPoint flies to a condo point clicked on the map.
func (c *Coordinator) ClickPoint(f *geojson.Feature) error {
	p, ok := geo.PointOf(f)
	if !ok {
		return nil
	}
	return c.s.FlyTo(mapview.FlyTo(p, c.opts.PointZoom, c.opts.FlyDuration))
}

// Sync re-applies the layer filters of the current state, for layers added later.
func (c *Coordinator) Sync() error { return c.applyFilters() }

func (c *Coordinator) applyFilters() error {
	highlight, points := mapview.MatchNone(), mapview.MatchAll()
	if c.region != "" {
		highlight = mapview.Equals(geo.KeyRegion, c.region)
		points = highlight
	}
	return errors.Join(
		c.s.SetLayerFilter(mapview.LayerAmphoeHighlighted, highlight),
		c.s.SetLayerFilter(mapview.LayerAmphoeHighlightBd, highlight),
		c.s.SetLayerFilter(mapview.LayerCondoPoints, points),
	)
}
