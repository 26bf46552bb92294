// Package geo defines the feature model shared by the store, the view engine and the map adapter.
package geo

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	Condos   Kind = "condos"
	Amphoe   Kind = "amphoe"
	Stations Kind = "stations"
	Lines    Kind = "lines"
)

// Kinds lists every dataset in load order.
var Kinds = []Kind{Condos, Amphoe, Stations, Lines}

var ErrUnknownKind = errors.New("unknown dataset kind")

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) String() string { return string(k) }
