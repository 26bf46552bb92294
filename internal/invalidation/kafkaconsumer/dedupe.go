package kafkaconsumer

import (
	"sync"
	"time"

	"github.com/mohammed-shakir/bkk-condo-map/internal/geo"
)

// reloadLedger remembers the timestamp of the newest reload applied per dataset.
// Redelivered and out-of-order older events compare at or below it and are skipped.
type reloadLedger struct {
	mu   sync.Mutex
	last map[geo.Kind]time.Time
}

func newReloadLedger() *reloadLedger {
	return &reloadLedger{last: make(map[geo.Kind]time.Time, len(geo.Kinds))}
}

func (l *reloadLedger) isNewer(kind geo.Kind, ts time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	last, ok := l.last[kind]
	return !ok || ts.After(last)
}

func (l *reloadLedger) record(kind geo.Kind, ts time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.last[kind]; ok && !ts.After(last) {
		return
	}
	l.last[kind] = ts
}
