package viewer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mohammed-shakir/bkk-condo-map/internal/core/observability"
	"github.com/mohammed-shakir/bkk-condo-map/internal/dataset"
	"github.com/mohammed-shakir/bkk-condo-map/internal/logger"
	"github.com/mohammed-shakir/bkk-condo-map/internal/view"
)

// Manager owns the live viewers. Viewers idle for longer than ttl are torn down.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Viewer

	store *dataset.Store
	views *view.Cache
	opts  Options
	ttl   time.Duration
	log   *slog.Logger
	now   func() time.Time
	newID func() string
}

func NewManager(store *dataset.Store, views *view.Cache, opts Options, ttl time.Duration, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*Viewer),
		store:    store,
		views:    views,
		opts:     opts,
		ttl:      ttl,
		log:      log.With("component", "viewer"),
		now:      time.Now,
		newID:    logger.NewID,
	}
}

func (m *Manager) Create() *Viewer {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.newID()
	for m.sessions[id] != nil {
		id = m.newID()
	}
	v := New(id, m.store, m.views, m.opts, m.log)
	v.now = m.now
	v.lastSeen = m.now()
	m.sessions[id] = v
	observability.SessionOpened()
	m.log.Debug("session opened", "session", id)
	return v
}

// Get returns the viewer with id. An expired viewer is torn down and reported missing.
func (m *Manager) Get(id string) (*Viewer, bool) {
	m.mu.Lock()
	v, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	if m.expired(v) {
		m.Delete(id)
		return nil, false
	}
	return v, true
}

// Delete tears down and forgets the viewer. It reports whether id existed.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	v, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}
	if err := v.Close(); err != nil {
		m.log.Warn("session teardown", "session", id, "err", err)
	}
	observability.SessionClosed()
	m.log.Debug("session closed", "session", id)
	return true
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep deletes every expired viewer and returns how many it removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	var ids []string
	for id, v := range m.sessions {
		if m.expired(v) {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()
	n := 0
	for _, id := range ids {
		if m.Delete(id) {
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done, then deletes all viewers.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				m.log.Info("expired sessions removed", "count", n)
			}
		}
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.Delete(id)
	}
}

func (m *Manager) expired(v *Viewer) bool {
	return m.ttl > 0 && m.now().Sub(v.idleSince()) > m.ttl
}
