// Package viewer holds the per-browser state: the table, the search box, the selection and
// the map session whose command log the browser replays.
package viewer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/bkk-condo-map/internal/core/observability"
	"github.com/mohammed-shakir/bkk-condo-map/internal/dataset"
	"github.com/mohammed-shakir/bkk-condo-map/internal/density"
	"github.com/mohammed-shakir/bkk-condo-map/internal/geo"
	"github.com/mohammed-shakir/bkk-condo-map/internal/mapview"
	"github.com/mohammed-shakir/bkk-condo-map/internal/search"
	"github.com/mohammed-shakir/bkk-condo-map/internal/selection"
	"github.com/mohammed-shakir/bkk-condo-map/internal/table"
	"github.com/mohammed-shakir/bkk-condo-map/internal/view"
)

type Options struct {
	PageSize     int
	CountDivisor float64
	DensityRes   int
	Palette      *mapview.Palette
	Selection    selection.Options
}

func DefaultOptions() Options {
	return Options{
		PageSize:     view.DefaultPageSize,
		CountDivisor: 1,
		DensityRes:   8,
		Palette:      mapview.DefaultPalette(),
		Selection:    selection.DefaultOptions(),
	}
}

// Viewer is one browser session. Handle serializes events.
type Viewer struct {
	mu sync.Mutex

	id    string
	store *dataset.Store
	views *view.Cache
	opts  Options
	log   *slog.Logger

	tbl  *table.State
	box  *search.Box
	sel  *selection.Coordinator
	rec  *mapview.Recorder
	sess *mapview.Session

	installed bool
	frame     map[geo.Kind]*dataset.Snapshot
	versions  map[geo.Kind]uint64
	viewKey   string
	lastSeen  time.Time
	now       func() time.Time
}

func New(id string, store *dataset.Store, views *view.Cache, opts Options, log *slog.Logger) *Viewer {
	if log == nil {
		log = slog.Default()
	}
	if opts.Palette == nil {
		opts.Palette = mapview.DefaultPalette()
	}
	log = log.With("session", id)
	rec := mapview.NewRecorder()
	sess := mapview.NewSession(rec, log)
	return &Viewer{
		id:       id,
		store:    store,
		views:    views,
		opts:     opts,
		log:      log,
		tbl:      table.New(opts.PageSize),
		box:      search.NewBox(),
		sel:      selection.New(sess, opts.Selection),
		rec:      rec,
		sess:     sess,
		versions: map[geo.Kind]uint64{},
		lastSeen: time.Now(),
		now:      time.Now,
	}
}

func (v *Viewer) ID() string { return v.id }

// Handle applies one event and returns the resulting state. Map calls that fail are
// logged; only invalid events are returned as errors.
func (v *Viewer) Handle(e Event) (State, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	defer v.pin()()
	v.lastSeen = v.now()

	err := e.Validate()
	if err == nil {
		err = v.dispatch(e)
	}
	typ := e.Type
	if errors.Is(err, ErrUnknownEvent) {
		typ = "unknown"
	}
	observability.ObserveEvent(typ, err)
	if err != nil {
		return v.state(), err
	}
	v.refreshSources()
	v.syncCondos()
	return v.state(), nil
}

// State renders the current state without changing it.
func (v *Viewer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	defer v.pin()()
	return v.state()
}

// Commands returns and clears the pending map commands.
func (v *Viewer) Commands() []mapview.Command {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rec.Drain()
}

// Close removes every map resource the session created.
func (v *Viewer) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sess.Teardown()
}

func (v *Viewer) idleSince() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen
}

func (v *Viewer) dispatch(e Event) error {
	switch e.Type {
	case EventMapLoaded:
		v.mapLoaded()
	case EventSearchInput:
		if !v.box.SetInput(e.Text, v.collection(geo.Amphoe)) {
			v.clearSelection()
		}
	case EventSearchKey:
		k, err := search.ParseKey(e.Key)
		if err != nil {
			return err
		}
		if name, ok := v.box.Press(k); ok {
			v.selectRegion(name)
		}
	case EventSuggestionClick:
		v.box.Commit(e.Value)
		v.selectRegion(e.Value)
	case EventSelectRegion:
		v.selectRegion(e.Value)
	case EventClearSelection:
		v.box.Clear()
		v.clearSelection()
	case EventSort:
		v.tbl.RequestSort(fieldOf(e.Field))
	case EventOpenFilter:
		field := fieldOf(e.Field)
		v.tbl.OpenFilter(field, e.Bounds, view.UniqueValues(v.collection(geo.Condos), field, v.tbl.Region))
	case EventFilterSearch:
		v.tbl.SearchValues(e.Text)
	case EventFilterToggle:
		v.tbl.ToggleValue(e.Value)
	case EventFilterSelectAll:
		v.tbl.SelectAll(e.On)
	case EventFilterApply:
		v.tbl.Apply()
	case EventFilterCancel:
		v.tbl.Cancel()
	case EventPointerDown:
		v.tbl.PointerDown(e.X, e.Y)
	case EventNextPage:
		v.tbl.NextPage(len(v.derived()))
	case EventPrevPage:
		v.tbl.PrevPage(len(v.derived()))
	case EventRowClick:
		v.rowClick(e.Index)
	case EventPointClick:
		if f := v.feature(e.Index); f != nil {
			v.warn("point click", v.sel.ClickPoint(f))
		}
	case EventClearAll:
		v.tbl.ClearAll()
		v.syncRow()
	case EventToggleTable:
		v.tbl.ToggleVisible()
	case EventRefresh:
	}
	return nil
}

func fieldOf(s string) string {
	if f, ok := table.FieldForLabel(s); ok {
		return f
	}
	return s
}

func (v *Viewer) selectRegion(name string) {
	ok, err := v.sel.SelectRegion(name, v.collection(geo.Amphoe))
	v.warn("select region", err)
	if !ok {
		v.log.Debug("region not found", "region", name)
		v.tbl.SetRegion("")
		v.syncRow()
		return
	}
	v.tbl.SetRegion(name)
	v.syncRow()
}

func (v *Viewer) clearSelection() {
	v.warn("clear selection", v.sel.Clear())
	v.tbl.SetRegion("")
	v.syncRow()
}

// rowClick selects the row's region first when it differs from the current one, then
// toggles the row and flies to it.
func (v *Viewer) rowClick(idx int) {
	f := v.feature(idx)
	if f == nil {
		return
	}
	if r := geo.RegionName(f); r != "" && r != v.tbl.Region {
		v.selectRegion(r)
	}
	_, err := v.sel.ClickRow(idx, f)
	v.warn("row click", err)
	v.tbl.SelectedRow = v.sel.Row()
}

// syncRow mirrors the coordinator's row selection into the table.
func (v *Viewer) syncRow() {
	if v.tbl.SelectedRow == table.NoRow {
		v.sel.ClearRow()
	}
	v.tbl.SelectedRow = v.sel.Row()
}

func (v *Viewer) mapLoaded() {
	if v.installed {
		return
	}
	if err := v.sess.MarkLoaded(); err != nil {
		v.warn("map loaded", err)
		return
	}
	versions := v.frameVersions()
	v.install(versions)
	v.warn("sync filters", v.sel.Sync())
	v.installed = true
	v.versions = versions
	v.viewKey = v.currentViewKey()
}

// refreshSources re-installs datasets whose version changed since the map was set up.
func (v *Viewer) refreshSources() {
	if !v.installed {
		return
	}
	changed := map[geo.Kind]uint64{}
	for k, ver := range v.frameVersions() {
		if v.versions[k] != ver {
			changed[k] = ver
			v.versions[k] = ver
		}
	}
	if len(changed) > 0 {
		v.install(changed)
	}
}

// install adds sources and layers for the given datasets, skipping unavailable ones.
func (v *Viewer) install(kinds map[geo.Kind]uint64) {
	var d mapview.Datasets
	for k := range kinds {
		if !v.available(k) {
			v.log.Warn("dataset unavailable, layers skipped", "dataset", k.String())
			continue
		}
		fc := v.collection(k)
		switch k {
		case geo.Condos:
			d.Condos = view.Features(fc, v.derived())
			d.Density = v.density()
		case geo.Amphoe:
			d.Amphoe = fc
		case geo.Stations:
			d.Stations = fc
		case geo.Lines:
			d.Lines = fc
		}
	}
	v.warn("install layers", mapview.Install(v.sess, v.opts.Palette, d))
	if d.Condos != nil {
		v.viewKey = v.currentViewKey()
	}
}

// syncCondos updates the condos source with the derived view when the view changed.
func (v *Viewer) syncCondos() {
	if !v.installed || !v.available(geo.Condos) {
		return
	}
	key := v.currentViewKey()
	if key == v.viewKey {
		return
	}
	v.viewKey = key
	fc := view.Features(v.collection(geo.Condos), v.derived())
	v.warn("update condos", v.sess.AddOrUpdateSource(mapview.SourceCondos, fc))
}

func (v *Viewer) currentViewKey() string {
	snap := v.snapshot(geo.Condos)
	return fmt.Sprintf("v%d:%s", snap.Version, v.tbl.Query().Canonical())
}

func (v *Viewer) density() *geojson.FeatureCollection {
	fc, err := density.Hexbin(v.collection(geo.Condos), v.opts.DensityRes, nil)
	if err != nil {
		v.warn("density", err)
		return nil
	}
	return fc
}

// pin fixes the snapshots the current call reads. A reload swapping a collection in the
// store takes effect on the next call, never between two reads of one call.
func (v *Viewer) pin() (unpin func()) {
	v.frame = make(map[geo.Kind]*dataset.Snapshot, len(geo.Kinds))
	for _, k := range geo.Kinds {
		v.frame[k] = v.store.Get(k)
	}
	return func() { v.frame = nil }
}

func (v *Viewer) snapshot(k geo.Kind) *dataset.Snapshot {
	if s, ok := v.frame[k]; ok {
		return s
	}
	return v.store.Get(k)
}

func (v *Viewer) frameVersions() map[geo.Kind]uint64 {
	out := make(map[geo.Kind]uint64, len(geo.Kinds))
	for _, k := range geo.Kinds {
		out[k] = v.snapshot(k).Version
	}
	return out
}

func (v *Viewer) derived() []int {
	return v.views.View(v.snapshot(geo.Condos), v.tbl.Query())
}

func (v *Viewer) collection(k geo.Kind) *geojson.FeatureCollection {
	return v.snapshot(k).Collection
}

func (v *Viewer) available(k geo.Kind) bool {
	snap := v.snapshot(k)
	return snap.Attempted && snap.Err == nil
}

func (v *Viewer) feature(idx int) *geojson.Feature {
	fc := v.collection(geo.Condos)
	if idx < 0 || idx >= len(fc.Features) {
		return nil
	}
	return fc.Features[idx]
}

func (v *Viewer) warn(op string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, mapview.ErrClosed) {
		v.log.Debug("map session closed", "op", op)
		return
	}
	v.log.Warn("map call failed", "op", op, "err", err)
}
