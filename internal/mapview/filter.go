package mapview

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/bkk-condo-map/internal/geo"
)

type FilterKind int

const (
	FilterAll FilterKind = iota
	FilterNone
	FilterEquals
)

// Filter is a layer predicate. It marshals to the mapping library's expression syntax;
// MatchAll marshals to null, which clears a layer filter.
type Filter struct {
	Kind  FilterKind
	Key   string
	Value string
}

func MatchAll() Filter { return Filter{Kind: FilterAll} }

func MatchNone() Filter { return Filter{Kind: FilterNone} }

func Equals(key, value string) Filter { return Filter{Kind: FilterEquals, Key: key, Value: value} }

// Matches evaluates the filter against a feature the way the renderer would.
func (f Filter) Matches(feat *geojson.Feature) bool {
	switch f.Kind {
	case FilterNone:
		return false
	case FilterEquals:
		return geo.Resolve(geo.Property(f.Key), feat).String() == f.Value
	default:
		return true
	}
}

func (f Filter) String() string {
	switch f.Kind {
	case FilterNone:
		return "none"
	case FilterEquals:
		return fmt.Sprintf("%s==%s", f.Key, f.Value)
	default:
		return "all"
	}
}

func (f Filter) Expression() any {
	switch f.Kind {
	case FilterNone:
		return []any{"literal", false}
	case FilterEquals:
		return []any{"==", []any{"get", f.Key}, f.Value}
	default:
		return nil
	}
}

func (f Filter) MarshalJSON() ([]byte, error) { return json.Marshal(f.Expression()) }

var errFilterExpr = errors.New("unsupported filter expression")

// UnmarshalJSON reads back what MarshalJSON writes. ["literal",true] decodes as MatchAll.
func (f *Filter) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*f = MatchAll()
		return nil
	}
	var expr []json.RawMessage
	if err := json.Unmarshal(b, &expr); err != nil || len(expr) == 0 {
		return fmt.Errorf("%w: %s", errFilterExpr, b)
	}
	var op string
	if err := json.Unmarshal(expr[0], &op); err != nil {
		return fmt.Errorf("%w: %s", errFilterExpr, b)
	}
	switch {
	case op == "literal" && len(expr) == 2:
		var v bool
		if err := json.Unmarshal(expr[1], &v); err != nil {
			return fmt.Errorf("%w: %s", errFilterExpr, b)
		}
		if v {
			*f = MatchAll()
		} else {
			*f = MatchNone()
		}
		return nil
	case op == "==" && len(expr) == 3:
		var get []string
		if err := json.Unmarshal(expr[1], &get); err != nil || len(get) != 2 || get[0] != "get" {
			return fmt.Errorf("%w: %s", errFilterExpr, b)
		}
		var v any
		if err := json.Unmarshal(expr[2], &v); err != nil {
			return fmt.Errorf("%w: %s", errFilterExpr, b)
		}
		*f = Equals(get[1], geo.FromAny(v).String())
		return nil
	}
	return fmt.Errorf("%w: %s", errFilterExpr, b)
}
