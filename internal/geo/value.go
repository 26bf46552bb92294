package geo

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
)

// Value is a resolved scalar: null, string or number.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
}

func Null() Value { return Value{Kind: KindNull} }

func String(s string) Value { return Value{Kind: KindString, Str: s} }

func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

func (v Value) IsEmpty() bool {
	return v.Kind == KindNull || (v.Kind == KindString && v.Str == "")
}

// FromAny converts a decoded JSON property into a Value.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case string:
		return String(t)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Number(f)
		}
		return String(t.String())
	case bool:
		return String(strconv.FormatBool(t))
	default:
		return String(fmt.Sprint(t))
	}
}

// String is the canonical text used for filter membership and display.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		return json.Marshal(v.Num)
	default:
		return []byte("null"), nil
	}
}

// Compare orders two values ascending. Null counts as the empty string. Two numbers
// compare numerically, two strings compare case-insensitively, and a number sorts
// before a string.
func Compare(a, b Value) int {
	if a.Kind == KindNull {
		a = String("")
	}
	if b.Kind == KindNull {
		b = String("")
	}
	switch {
	case a.Kind == KindNumber && b.Kind == KindNumber:
		switch {
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		}
		return 0
	case a.Kind == KindNumber:
		return -1
	case b.Kind == KindNumber:
		return 1
	}
	return strings.Compare(strings.ToLower(a.Str), strings.ToLower(b.Str))
}
