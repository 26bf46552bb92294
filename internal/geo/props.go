package geo

import (
	"github.com/paulmach/orb/geojson"
)

// Property keys of the static datasets.
const (
	KeyNameThai       = "name_thai"
	KeyNameEnglish    = "name_english"
	KeyRegion         = "AMP_NAME_T"
	KeyAddress        = "formatted_address"
	KeyNearestStation = "nearest_station_1"
	KeyOperator       = "Operate"
	KeyStationEN      = "StationEN"
	KeyColor          = "Color"
	KeyActive         = "Active"
)

// Placeholders shown when a property is missing or empty.
const (
	PlaceholderNameThai = "ไม่ระบุชื่อ"
	PlaceholderName     = "Unnamed"
	PlaceholderRegion   = "Unknown"
	PlaceholderAddress  = "No Address"
	PlaceholderStation  = "N/A"
)

// Text returns the property as display text, or placeholder when it is missing or empty.
func Text(feat *geojson.Feature, key, placeholder string) string {
	v := Resolve(Property(key), feat)
	if v.IsEmpty() {
		return placeholder
	}
	return v.String()
}

// RegionName returns the administrative region name as stored, or "" when absent.
func RegionName(feat *geojson.Feature) string {
	return Resolve(Property(KeyRegion), feat).String()
}

// NewCollection returns an empty FeatureCollection that marshals with an empty features array.
func NewCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = make([]*geojson.Feature, 0)
	return fc
}

// Subset builds a collection holding the features at idx, in that order.
func Subset(base *geojson.FeatureCollection, idx []int) *geojson.FeatureCollection {
	out := NewCollection()
	if base == nil {
		return out
	}
	out.Features = make([]*geojson.Feature, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < len(base.Features) {
			out.Features = append(out.Features, base.Features[i])
		}
	}
	return out
}

// FindRegion returns the first feature whose region name equals name exactly.
func FindRegion(fc *geojson.FeatureCollection, name string) (*geojson.Feature, bool) {
	if fc == nil || name == "" {
		return nil, false
	}
	for _, f := range fc.Features {
		if RegionName(f) == name {
			return f, true
		}
	}
	return nil, false
}
