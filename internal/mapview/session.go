package mapview

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/paulmach/orb/geojson"
)

type resourceKind int

const (
	resSource resourceKind = iota
	resLayer
	resImage
)

type resource struct {
	kind resourceKind
	id   string
}

// Session owns one Map for the lifetime of a viewer. Calls made before MarkLoaded are
// queued and replayed in order.
type Session struct {
	mu      sync.Mutex
	m       Map
	log     *slog.Logger
	loaded  bool
	closed  bool
	queue   []func() error
	created []resource
}

func NewSession(m Map, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{m: m, log: log}
}

func (s *Session) Map() Map { return s.m }

func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// MarkLoaded opens the load gate and flushes queued calls. Later calls are no-ops.
func (s *Session) MarkLoaded() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.loaded {
		return nil
	}
	s.loaded = true
	q := s.queue
	s.queue = nil
	var errs []error
	for _, fn := range q {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// do runs fn now when loaded, otherwise queues it. s.mu must be held.
func (s *Session) do(fn func() error) error {
	if s.closed {
		return ErrClosed
	}
	if !s.loaded {
		s.queue = append(s.queue, fn)
		return nil
	}
	return fn()
}

func (s *Session) track(kind resourceKind, id string) {
	s.created = append(s.created, resource{kind: kind, id: id})
}

func (s *Session) AddOrUpdateSource(id string, data *geojson.FeatureCollection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.do(func() error {
		existed := s.m.HasSource(id)
		if err := s.m.AddOrUpdateSource(id, data); err != nil {
			return fmt.Errorf("source %s: %w", id, err)
		}
		if !existed {
			s.track(resSource, id)
		}
		return nil
	})
}

// AddLayerOnce adds l below beforeID. An existing layer id is left alone. A missing
// beforeID places the layer on top.
func (s *Session) AddLayerOnce(l Layer, beforeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.do(func() error {
		if s.m.HasLayer(l.ID) {
			return nil
		}
		if beforeID != "" && !s.m.HasLayer(beforeID) {
			beforeID = ""
		}
		if err := s.m.AddLayer(l, beforeID); err != nil {
			return fmt.Errorf("layer %s: %w", l.ID, err)
		}
		s.track(resLayer, l.ID)
		return nil
	})
}

// MoveLayer ignores absent layers.
func (s *Session) MoveLayer(id, beforeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.do(func() error {
		if !s.m.HasLayer(id) {
			return nil
		}
		if beforeID != "" && !s.m.HasLayer(beforeID) {
			beforeID = ""
		}
		return s.m.MoveLayer(id, beforeID)
	})
}

func (s *Session) AddImageOnce(img Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.do(func() error {
		if s.m.HasImage(img.ID) {
			return nil
		}
		if err := s.m.AddImage(img); err != nil {
			return fmt.Errorf("image %s: %w", img.ID, err)
		}
		s.track(resImage, img.ID)
		return nil
	})
}

// SetLayerFilter filters an existing layer. A layer that was never added, for example
// because its dataset failed to load, is skipped.
func (s *Session) SetLayerFilter(id string, f Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.do(func() error {
		if !s.m.HasLayer(id) {
			s.log.Debug("filter on absent layer skipped", "layer", id, "filter", f.String())
			return nil
		}
		return s.m.SetLayerFilter(id, f)
	})
}

func (s *Session) FlyTo(c Camera) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.do(func() error { return s.m.FlyTo(c) })
}

func (s *Session) FitBounds(c Camera) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.do(func() error { return s.m.FitBounds(c) })
}

// Teardown removes every layer, source and image this session created, newest first,
// and closes the session. Queued calls are dropped.
func (s *Session) Teardown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.queue = nil
	var errs []error
	for i := len(s.created) - 1; i >= 0; i-- {
		r := s.created[i]
		var err error
		switch r.kind {
		case resLayer:
			err = s.m.RemoveLayer(r.id)
		case resSource:
			err = s.m.RemoveSource(r.id)
		case resImage:
			err = s.m.RemoveImage(r.id)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", r.id, err))
		}
	}
	s.created = nil
	return errors.Join(errs...)
}
