// Package invalidation defines the dataset reload events published on the bus.
package invalidation

import (
	"errors"
	"fmt"
	"time"

	"github.com/mohammed-shakir/bkk-condo-map/internal/geo"
)

const OpReload = "reload"

var ErrInvalidEvent = errors.New("invalid reload event")

// Event asks every replica to refetch one dataset.
type Event struct {
	Version int       `json:"version"`
	Op      string    `json:"op"`
	Dataset string    `json:"dataset"`
	TS      time.Time `json:"ts"`
	Source  string    `json:"source,omitempty"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("%w: version must be 1", ErrInvalidEvent)
	}
	if e.Op != OpReload {
		return fmt.Errorf("%w: op must be %s", ErrInvalidEvent, OpReload)
	}
	if _, err := geo.ParseKind(e.Dataset); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if e.TS.IsZero() {
		return fmt.Errorf("%w: ts is required", ErrInvalidEvent)
	}
	return nil
}

// Kind returns the dataset of a validated event.
func (e Event) Kind() geo.Kind {
	k, _ := geo.ParseKind(e.Dataset)
	return k
}
