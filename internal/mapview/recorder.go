package mapview

import (
	"fmt"
	"slices"
	"sync"

	"github.com/paulmach/orb/geojson"
)

// Command is one renderer call, replayed in Seq order by the browser.
type Command struct {
	Seq      uint64                     `json:"seq"`
	Op       string                     `json:"op"`
	ID       string                     `json:"id,omitempty"`
	BeforeID string                     `json:"before_id,omitempty"`
	Data     *geojson.FeatureCollection `json:"data,omitempty"`
	Layer    *Layer                     `json:"layer,omitempty"`
	Filter   *Filter                    `json:"filter,omitempty"`
	Camera   *Camera                    `json:"camera,omitempty"`
	Image    *Image                     `json:"image,omitempty"`
}

const (
	OpAddSource    = "addSource"
	OpSetData      = "setData"
	OpAddLayer     = "addLayer"
	OpMoveLayer    = "moveLayer"
	OpSetFilter    = "setFilter"
	OpAddImage     = "addImage"
	OpFlyTo        = "flyTo"
	OpFitBounds    = "fitBounds"
	OpRemoveLayer  = "removeLayer"
	OpRemoveSource = "removeSource"
	OpRemoveImage  = "removeImage"
)

// Recorder is the Map served to browsers. It tracks which resources exist and the layer
// stacking order, and queues every call as a Command until drained.
type Recorder struct {
	mu      sync.Mutex
	seq     uint64
	pending []Command
	sources map[string]*geojson.FeatureCollection
	layers  []string
	filters map[string]Filter
	images  map[string]Image
	camera  *Camera
}

func NewRecorder() *Recorder {
	return &Recorder{
		sources: map[string]*geojson.FeatureCollection{},
		filters: map[string]Filter{},
		images:  map[string]Image{},
	}
}

func (r *Recorder) emit(c Command) {
	r.seq++
	c.Seq = r.seq
	r.pending = append(r.pending, c)
}

func (r *Recorder) AddOrUpdateSource(id string, data *geojson.FeatureCollection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	op := OpAddSource
	if _, ok := r.sources[id]; ok {
		op = OpSetData
	}
	r.sources[id] = data
	r.emit(Command{Op: op, ID: id, Data: data})
	return nil
}

func (r *Recorder) AddLayer(l Layer, beforeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.layers, l.ID) {
		return fmt.Errorf("%w: %s", ErrLayerExists, l.ID)
	}
	if _, ok := r.sources[l.Source]; !ok {
		return fmt.Errorf("%w: %s (layer %s)", ErrNoSuchSource, l.Source, l.ID)
	}
	r.insert(l.ID, beforeID)
	if l.Filter != nil {
		r.filters[l.ID] = *l.Filter
	}
	cp := l
	r.emit(Command{Op: OpAddLayer, ID: l.ID, BeforeID: beforeID, Layer: &cp})
	return nil
}

// insert places id below beforeID, or on top when beforeID is empty or absent.
func (r *Recorder) insert(id, beforeID string) {
	if i := slices.Index(r.layers, beforeID); beforeID != "" && i >= 0 {
		r.layers = slices.Insert(r.layers, i, id)
		return
	}
	r.layers = append(r.layers, id)
}

func (r *Recorder) MoveLayer(id, beforeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.Index(r.layers, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNoSuchLayer, id)
	}
	r.layers = slices.Delete(r.layers, i, i+1)
	r.insert(id, beforeID)
	r.emit(Command{Op: OpMoveLayer, ID: id, BeforeID: beforeID})
	return nil
}

func (r *Recorder) SetLayerFilter(id string, f Filter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.layers, id) {
		return fmt.Errorf("%w: %s", ErrNoSuchLayer, id)
	}
	r.filters[id] = f
	r.emit(Command{Op: OpSetFilter, ID: id, Filter: &f})
	return nil
}

func (r *Recorder) AddImage(img Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.images[img.ID]; ok {
		return fmt.Errorf("%w: %s", ErrImageExists, img.ID)
	}
	r.images[img.ID] = img
	r.emit(Command{Op: OpAddImage, ID: img.ID, Image: &img})
	return nil
}

func (r *Recorder) FlyTo(c Camera) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.camera = &c
	r.emit(Command{Op: OpFlyTo, Camera: &c})
	return nil
}

func (r *Recorder) FitBounds(c Camera) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.camera = &c
	r.emit(Command{Op: OpFitBounds, Camera: &c})
	return nil
}

func (r *Recorder) RemoveLayer(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.Index(r.layers, id)
	if i < 0 {
		return nil
	}
	r.layers = slices.Delete(r.layers, i, i+1)
	delete(r.filters, id)
	r.emit(Command{Op: OpRemoveLayer, ID: id})
	return nil
}

func (r *Recorder) RemoveSource(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[id]; !ok {
		return nil
	}
	delete(r.sources, id)
	r.emit(Command{Op: OpRemoveSource, ID: id})
	return nil
}

func (r *Recorder) RemoveImage(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.images[id]; !ok {
		return nil
	}
	delete(r.images, id)
	r.emit(Command{Op: OpRemoveImage, ID: id})
	return nil
}

func (r *Recorder) HasLayer(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.layers, id)
}

func (r *Recorder) HasSource(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sources[id]
	return ok
}

func (r *Recorder) HasImage(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.images[id]
	return ok
}

// Drain returns the commands recorded since the last drain.
func (r *Recorder) Drain() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.pending
	r.pending = nil
	if out == nil {
		out = []Command{}
	}
	return out
}

// Layers lists layer ids from bottom to top.
func (r *Recorder) Layers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.layers)
}

// LayerFilter returns the current filter of id; layers without one match all.
func (r *Recorder) LayerFilter(id string) Filter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.filters[id]; ok {
		return f
	}
	return MatchAll()
}

func (r *Recorder) Source(id string) *geojson.FeatureCollection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sources[id]
}

func (r *Recorder) Camera() *Camera {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.camera
}
