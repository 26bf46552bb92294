// Package mapview drives the map renderer: the adapter contract, a recording
// implementation served to browsers, and the session that owns every created resource.
package mapview

import (
	"errors"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var (
	ErrLayerExists  = errors.New("layer already exists")
	ErrSourceExists = errors.New("source already exists")
	ErrImageExists  = errors.New("image already exists")
	ErrNoSuchLayer  = errors.New("no such layer")
	ErrNoSuchSource = errors.New("no such source")
	ErrClosed       = errors.New("map session closed")
)

type Layer struct {
	ID     string         `json:"id" yaml:"id"`
	Type   string         `json:"type" yaml:"type"`
	Source string         `json:"source" yaml:"source"`
	Layout map[string]any `json:"layout,omitempty" yaml:"layout,omitempty"`
	Paint  map[string]any `json:"paint,omitempty" yaml:"paint,omitempty"`
	Filter *Filter        `json:"filter,omitempty" yaml:"-"`
}

// Image is a named marker image the renderer loads from URL.
type Image struct {
	ID  string `json:"id" yaml:"id"`
	URL string `json:"url" yaml:"url"`
}

// Camera describes a flyTo, or a fitBounds when Bounds is set as [west, south, east, north].
type Camera struct {
	Center     *orb.Point `json:"center,omitempty"`
	Zoom       float64    `json:"zoom,omitempty"`
	Bounds     []float64  `json:"bounds,omitempty"`
	Padding    float64    `json:"padding,omitempty"`
	MaxZoom    float64    `json:"max_zoom,omitempty"`
	DurationMS int64      `json:"duration_ms,omitempty"`
}

func FlyTo(center orb.Point, zoom float64, d time.Duration) Camera {
	return Camera{Center: &center, Zoom: zoom, DurationMS: d.Milliseconds()}
}

func FitBounds(b orb.Bound, padding, maxZoom float64) Camera {
	return Camera{
		Bounds:  []float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()},
		Padding: padding,
		MaxZoom: maxZoom,
	}
}

// Map is the renderer contract. Add calls on an existing id fail; removals of absent ids
// are no-ops.
type Map interface {
	AddOrUpdateSource(id string, data *geojson.FeatureCollection) error
	AddLayer(l Layer, beforeID string) error
	MoveLayer(id, beforeID string) error
	SetLayerFilter(id string, f Filter) error
	AddImage(img Image) error
	FlyTo(c Camera) error
	FitBounds(c Camera) error
	RemoveLayer(id string) error
	RemoveSource(id string) error
	RemoveImage(id string) error
	HasLayer(id string) bool
	HasSource(id string) bool
	HasImage(id string) bool
}
