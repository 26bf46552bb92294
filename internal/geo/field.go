package geo

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type FieldKind int

const (
	PropertyField FieldKind = iota
	CoordinateField
)

type Axis int

const (
	Longitude Axis = iota
	Latitude
)

// FieldRef addresses a value on a feature: either a property key or one coordinate axis.
type FieldRef struct {
	kind FieldKind
	key  string
	axis Axis
}

func Property(key string) FieldRef { return FieldRef{kind: PropertyField, key: key} }

func Coordinate(axis Axis) FieldRef { return FieldRef{kind: CoordinateField, axis: axis} }

// ParseField maps a wire name to a FieldRef. Coordinate names accept both the readable
// form and the indexed form older clients send.
func ParseField(name string) FieldRef {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "longitude", "lon", "lng", "coordinates[0]":
		return Coordinate(Longitude)
	case "latitude", "lat", "coordinates[1]":
		return Coordinate(Latitude)
	}
	return Property(strings.TrimSpace(name))
}

func (f FieldRef) Kind() FieldKind { return f.kind }

func (f FieldRef) IsZero() bool { return f.kind == PropertyField && f.key == "" }

func (f FieldRef) Name() string {
	if f.kind == CoordinateField {
		if f.axis == Latitude {
			return "latitude"
		}
		return "longitude"
	}
	return f.key
}

func (f FieldRef) String() string { return f.Name() }

// Resolve reads the value f addresses on feat. Missing properties and geometries resolve to null.
func Resolve(f FieldRef, feat *geojson.Feature) Value {
	if feat == nil {
		return Null()
	}
	if f.kind == CoordinateField {
		p, ok := PointOf(feat)
		if !ok {
			return Null()
		}
		if f.axis == Latitude {
			return Number(p.Lat())
		}
		return Number(p.Lon())
	}
	if feat.Properties == nil {
		return Null()
	}
	return FromAny(feat.Properties[f.key])
}

// PointOf returns the feature's point, or the center of its bound for other geometries.
func PointOf(feat *geojson.Feature) (orb.Point, bool) {
	if feat == nil || feat.Geometry == nil {
		return orb.Point{}, false
	}
	if p, ok := feat.Geometry.(orb.Point); ok {
		return p, true
	}
	b := feat.Geometry.Bound()
	if b.IsEmpty() {
		return orb.Point{}, false
	}
	return b.Center(), true
}

func Bound(feat *geojson.Feature) (orb.Bound, error) {
	if feat == nil || feat.Geometry == nil {
		return orb.Bound{}, fmt.Errorf("feature has no geometry")
	}
	return feat.Geometry.Bound(), nil
}
