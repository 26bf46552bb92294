// Package view derives the filtered, sorted and paged condo table from a base collection.
package view

import (
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strings"
)

type Direction int

const (
	Asc Direction = iota
	Desc
)

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Asc, nil
	case "desc", "descending":
		return Desc, nil
	}
	return Asc, fmt.Errorf("invalid direction %q (want asc|desc)", s)
}

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

func (d Direction) Reverse() Direction {
	if d == Desc {
		return Asc
	}
	return Desc
}

func (d Direction) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

// UnmarshalJSON accepts both string and int representations
func (d *Direction) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := ParseDirection(s)
		if err != nil {
			return err
		}
		*d = v
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		if n != int(Asc) && n != int(Desc) {
			return fmt.Errorf("invalid direction %d", n)
		}
		*d = Direction(n)
		return nil
	}
	return fmt.Errorf("direction must be string or int")
}

// SortSpec is the single active sort. An empty Field means no sort.
type SortSpec struct {
	Field     string    `json:"field,omitempty"`
	Direction Direction `json:"direction"`
}

func (s SortSpec) Active() bool { return s.Field != "" }

// ColumnFilter maps a field wire name to its accepted values. A missing or empty set accepts all.
type ColumnFilter map[string][]string

// Active returns the fields with a non-empty accepted set, sorted.
func (f ColumnFilter) Active() []string {
	out := make([]string, 0, len(f))
	for k, vs := range f {
		if len(vs) > 0 {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (f ColumnFilter) Clone() ColumnFilter {
	if f == nil {
		return ColumnFilter{}
	}
	out := make(ColumnFilter, len(f))
	for k, vs := range f {
		out[k] = slices.Clone(vs)
	}
	return out
}

type Query struct {
	Region  string       `json:"region,omitempty"`
	Filters ColumnFilter `json:"filters,omitempty"`
	Sort    SortSpec     `json:"sort"`
}

// Canonical renders q as a stable string; equal queries render equally regardless of map
// or value order.
func (q Query) Canonical() string {
	v := url.Values{}
	if q.Region != "" {
		v.Set("region", q.Region)
	}
	for _, k := range q.Filters.Active() {
		vals := slices.Clone(q.Filters[k])
		sort.Strings(vals)
		vals = slices.Compact(vals)
		v["f."+k] = vals
	}
	if q.Sort.Active() {
		v.Set("sort", q.Sort.Field)
		v.Set("dir", q.Sort.Direction.String())
	}
	return v.Encode()
}
