// Package density bins condo points into H3 cells for the density layer.
package density

import (
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/bkk-condo-map/internal/geo"
)

const (
	PropCell  = "cell"
	PropCount = "count"
)

func ValidateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

// CellOf returns the cell containing p at res.
func CellOf(p orb.Point, res int) (h3.Cell, error) {
	if err := ValidateRes(res); err != nil {
		return 0, err
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: p.Lat(), Lng: p.Lon()}, res)
	if err != nil {
		return 0, fmt.Errorf("h3 cell: %w", err)
	}
	return c, nil
}

// Hexbin counts the features of fc per cell, one Polygon feature per cell sorted by cell
// id. Features without a location are skipped. Cells in cover appear even when empty.
func Hexbin(fc *geojson.FeatureCollection, res int, cover []h3.Cell) (*geojson.FeatureCollection, error) {
	if err := ValidateRes(res); err != nil {
		return nil, err
	}
	counts := make(map[h3.Cell]int)
	for _, c := range cover {
		counts[c] += 0
	}
	if fc != nil {
		for _, f := range fc.Features {
			p, ok := geo.PointOf(f)
			if !ok {
				continue
			}
			c, err := CellOf(p, res)
			if err != nil {
				return nil, err
			}
			counts[c]++
		}
	}

	cells := make([]h3.Cell, 0, len(counts))
	for c := range counts {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].String() < cells[j].String() })

	out := geo.NewCollection()
	for _, c := range cells {
		poly, err := cellPolygon(c)
		if err != nil {
			return nil, err
		}
		f := geojson.NewFeature(poly)
		f.ID = c.String()
		f.Properties[PropCell] = c.String()
		f.Properties[PropCount] = counts[c]
		out.Append(f)
	}
	return out, nil
}

func cellPolygon(c h3.Cell) (orb.Polygon, error) {
	b, err := c.Boundary()
	if err != nil {
		return nil, fmt.Errorf("h3 boundary %s: %w", c, err)
	}
	ring := make(orb.Ring, 0, len(b)+1)
	for _, ll := range b {
		ring = append(ring, orb.Point{ll.Lng, ll.Lat})
	}
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	return orb.Polygon{ring}, nil
}

// RegionCells covers a Polygon or MultiPolygon region feature with cells at res, sorted
// and deduplicated.
func RegionCells(f *geojson.Feature, res int) ([]h3.Cell, error) {
	if err := ValidateRes(res); err != nil {
		return nil, err
	}
	if f == nil || f.Geometry == nil {
		return nil, errors.New("region has no geometry")
	}
	var polys []orb.Polygon
	switch g := f.Geometry.(type) {
	case orb.Polygon:
		polys = []orb.Polygon{g}
	case orb.MultiPolygon:
		polys = g
	default:
		return nil, fmt.Errorf("unsupported region geometry %s", f.Geometry.GeoJSONType())
	}

	seen := make(map[h3.Cell]struct{})
	var out []h3.Cell
	for pi, p := range polys {
		if len(p) == 0 {
			return nil, fmt.Errorf("polygon %d is empty", pi)
		}
		outer := toLoop(p[0])
		if len(outer) < 3 {
			return nil, fmt.Errorf("polygon %d outer ring has < 3 distinct vertices", pi)
		}
		var holes []h3.GeoLoop
		for _, r := range p[1:] {
			holes = append(holes, toLoop(r))
		}
		cells, err := h3.PolygonToCells(h3.GeoPolygon{GeoLoop: outer, Holes: holes}, res)
		if err != nil {
			return nil, fmt.Errorf("h3 polyfill: %w", err)
		}
		for _, c := range cells {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// toLoop converts a ring to an h3 loop, dropping the closing vertex.
func toLoop(r orb.Ring) h3.GeoLoop {
	loop := make(h3.GeoLoop, 0, len(r))
	for _, p := range r {
		loop = append(loop, h3.LatLng{Lat: p.Lat(), Lng: p.Lon()})
	}
	if n := len(loop); n >= 2 && loop[0] == loop[n-1] {
		loop = loop[:n-1]
	}
	return loop
}
