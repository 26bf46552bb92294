package mapview

import (
	"errors"

	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/bkk-condo-map/internal/geo"
)

const (
	SourceCondos   = "condos"
	SourceAmphoe   = "amphoe"
	SourceStations = "transit-stations"
	SourceLines    = "bts-lines"
	SourceDensity  = "condo-density"
)

const (
	LayerAmphoeBorders     = "amphoe-borders"
	LayerAmphoeHighlighted = "amphoe-highlighted"
	LayerAmphoeHighlightBd = "amphoe-highlighted-border"
	LayerCondoPoints       = "condo-points"
	LayerDensity           = "condo-density-layer"
	LayerLines             = "bts-lines-layer"
	LayerStations          = "transit-stations-layer"
)

// Datasets are the collections to draw. A nil collection means the dataset is
// unavailable and its layers are not added.
type Datasets struct {
	Condos   *geojson.FeatureCollection
	Amphoe   *geojson.FeatureCollection
	Stations *geojson.FeatureCollection
	Lines    *geojson.FeatureCollection
	Density  *geojson.FeatureCollection
}

func filterPtr(f Filter) *Filter { return &f }

func AmphoeLayers() []Layer {
	return []Layer{
		{
			ID: LayerAmphoeBorders, Type: "line", Source: SourceAmphoe,
			Paint: map[string]any{"line-color": "#cccccc", "line-width": 1, "line-opacity": 0.5},
		},
		{
			ID: LayerAmphoeHighlighted, Type: "fill", Source: SourceAmphoe,
			Paint:  map[string]any{"fill-color": "#FF5722", "fill-opacity": 0.2},
			Filter: filterPtr(MatchNone()),
		},
		{
			ID: LayerAmphoeHighlightBd, Type: "line", Source: SourceAmphoe,
			Paint:  map[string]any{"line-color": "#FF5722", "line-width": 3, "line-opacity": 0.8},
			Filter: filterPtr(MatchNone()),
		},
	}
}

func CondoLayer() Layer {
	return Layer{
		ID: LayerCondoPoints, Type: "circle", Source: SourceCondos,
		Paint: map[string]any{
			"circle-radius":       6,
			"circle-color":        "#FF5722",
			"circle-stroke-width": 2,
			"circle-stroke-color": "#000",
		},
	}
}

func DensityLayer() Layer {
	return Layer{
		ID: LayerDensity, Type: "fill", Source: SourceDensity,
		Paint: map[string]any{
			"fill-color": []any{
				"interpolate", []any{"linear"}, []any{"get", "count"},
				1, "#FFE0B2",
				10, "#FF9800",
				50, "#E65100",
			},
			"fill-opacity": 0.35,
		},
	}
}

func (p *Palette) StationLayer() Layer {
	return Layer{
		ID: LayerStations, Type: "symbol", Source: SourceStations,
		Layout: map[string]any{
			"icon-image":         p.IconExpression(),
			"icon-size":          p.IconSize,
			"icon-allow-overlap": true,
			"text-field":         []any{"get", geo.KeyStationEN},
			"text-font":          []any{"Open Sans Bold", "Arial Unicode MS Bold"},
			"text-size":          12,
			"text-offset":        []any{0, 1.2},
			"text-anchor":        "top",
		},
		Paint: map[string]any{"text-color": "#000000"},
	}
}

func (p *Palette) LineLayer() Layer {
	return Layer{
		ID: LayerLines, Type: "line", Source: SourceLines,
		Layout: map[string]any{"line-join": "round", "line-cap": "round"},
		Paint: map[string]any{
			"line-color":     p.ColorExpression(),
			"line-width":     []any{"interpolate", []any{"linear"}, []any{"zoom"}, 10, 4, 15, 8},
			"line-opacity":   0.8,
			"line-dasharray": p.DashExpression(),
		},
	}
}

// WithIndexIDs returns a copy of fc whose features carry their position in fc as id.
// Null features are skipped and the input features are not modified.
func WithIndexIDs(fc *geojson.FeatureCollection) *geojson.FeatureCollection {
	out := geo.NewCollection()
	if fc == nil {
		return out
	}
	out.Features = make([]*geojson.Feature, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f == nil {
			continue
		}
		cp := *f
		cp.ID = i
		out.Features = append(out.Features, &cp)
	}
	return out
}

// Install adds the sources and layers for every available dataset. Station icons are
// added before the station layer, and transit lines sit below the stations.
func Install(s *Session, p *Palette, d Datasets) error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if d.Amphoe != nil {
		add(s.AddOrUpdateSource(SourceAmphoe, d.Amphoe))
		for _, l := range AmphoeLayers() {
			add(s.AddLayerOnce(l, ""))
		}
	}
	if d.Density != nil {
		add(s.AddOrUpdateSource(SourceDensity, d.Density))
		add(s.AddLayerOnce(DensityLayer(), ""))
	}
	if d.Condos != nil {
		add(s.AddOrUpdateSource(SourceCondos, d.Condos))
		add(s.AddLayerOnce(CondoLayer(), ""))
	}
	if d.Stations != nil {
		for _, img := range p.Icons {
			add(s.AddImageOnce(img))
		}
		add(s.AddOrUpdateSource(SourceStations, d.Stations))
		add(s.AddLayerOnce(p.StationLayer(), ""))
	}
	if d.Lines != nil {
		add(s.AddOrUpdateSource(SourceLines, WithIndexIDs(d.Lines)))
		add(s.AddLayerOnce(p.LineLayer(), LayerStations))
		add(s.MoveLayer(LayerStations, ""))
	}
	return errors.Join(errs...)
}
