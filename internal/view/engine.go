package view

import (
	"sort"

	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/bkk-condo-map/internal/geo"
)

// ComputeView returns indices into base.Features for the derived view: region match, then
// every active column filter, then a stable sort. The base collection is not modified.
func ComputeView(base *geojson.FeatureCollection, q Query) []int {
	if base == nil {
		return []int{}
	}

	type filter struct {
		ref    geo.FieldRef
		accept map[string]struct{}
	}
	active := q.Filters.Active()
	filters := make([]filter, 0, len(active))
	for _, name := range active {
		set := make(map[string]struct{}, len(q.Filters[name]))
		for _, v := range q.Filters[name] {
			set[v] = struct{}{}
		}
		filters = append(filters, filter{ref: geo.ParseField(name), accept: set})
	}

	idx := make([]int, 0, len(base.Features))
	for i, f := range base.Features {
		if q.Region != "" && geo.RegionName(f) != q.Region {
			continue
		}
		keep := true
		for _, flt := range filters {
			if _, ok := flt.accept[geo.Resolve(flt.ref, f).String()]; !ok {
				keep = false
				break
			}
		}
		if keep {
			idx = append(idx, i)
		}
	}

	if q.Sort.Active() {
		sortIndices(base, idx, geo.ParseField(q.Sort.Field), q.Sort.Direction)
	}
	return idx
}

// sortIndices stable-sorts idx by the value at ref; equal keys keep their input order in
// both directions.
func sortIndices(base *geojson.FeatureCollection, idx []int, ref geo.FieldRef, dir Direction) {
	keys := make([]geo.Value, len(idx))
	for i, fi := range idx {
		keys[i] = geo.Resolve(ref, base.Features[fi])
	}
	order := make([]int, len(idx))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		c := geo.Compare(keys[order[a]], keys[order[b]])
		if dir == Desc {
			c = -c
		}
		return c < 0
	})
	sorted := make([]int, len(idx))
	for i, o := range order {
		sorted[i] = idx[o]
	}
	copy(idx, sorted)
}

// Features materializes a view as a collection.
func Features(base *geojson.FeatureCollection, idx []int) *geojson.FeatureCollection {
	return geo.Subset(base, idx)
}

// UniqueValues lists the distinct non-empty values of field across base, optionally
// restricted to one region, in ascending comparator order.
func UniqueValues(base *geojson.FeatureCollection, field, region string) []string {
	out := []string{}
	if base == nil || field == "" {
		return out
	}
	ref := geo.ParseField(field)
	seen := make(map[string]struct{})
	var vals []geo.Value
	for _, f := range base.Features {
		if region != "" && geo.RegionName(f) != region {
			continue
		}
		v := geo.Resolve(ref, f)
		if v.IsEmpty() {
			continue
		}
		s := v.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		vals = append(vals, v)
	}
	sort.SliceStable(vals, func(i, j int) bool {
		if c := geo.Compare(vals[i], vals[j]); c != 0 {
			return c < 0
		}
		return vals[i].String() < vals[j].String()
	})
	for _, v := range vals {
		out = append(out, v.String())
	}
	return out
}

// CountInRegion counts the features in region (all features when region is empty) and
// divides by divisor for display. A non-positive divisor counts as 1.
func CountInRegion(base *geojson.FeatureCollection, region string, divisor float64) float64 {
	if base == nil {
		return 0
	}
	n := 0
	for _, f := range base.Features {
		if region == "" || geo.RegionName(f) == region {
			n++
		}
	}
	if divisor <= 0 {
		divisor = 1
	}
	return float64(n) / divisor
}
