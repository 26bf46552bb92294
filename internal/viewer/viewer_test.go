package viewer

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/bkk-condo-map/internal/dataset"
	"github.com/mohammed-shakir/bkk-condo-map/internal/geo"
	"github.com/mohammed-shakir/bkk-condo-map/internal/mapview"
	"github.com/mohammed-shakir/bkk-condo-map/internal/view"
)

func square(name string, lon float64) *geojson.Feature {
	f := geojson.NewFeature(orb.Polygon{{{lon, 13.6}, {lon + 0.1, 13.6}, {lon + 0.1, 13.8}, {lon, 13.8}, {lon, 13.6}}})
	f.Properties["AMP_NAME_T"] = name
	return f
}

func testStore(t *testing.T) *dataset.Store {
	t.Helper()
	s := dataset.NewStore()

	condos := geo.NewCollection()
	regions := []string{
		"Chatuchak", "Bangrak", "Other", "Chatuchak", "Other", "Bangrak",
		"Other", "Chatuchak", "Other", "Bangrak", "Chatuchak", "Other",
	}
	for i, r := range regions {
		f := geojson.NewFeature(orb.Point{100 + float64(i)/100, 13.7})
		f.Properties["name_thai"] = fmt.Sprintf("c%02d", i)
		f.Properties["AMP_NAME_T"] = r
		condos.Append(f)
	}
	s.Put(geo.Condos, condos, nil)

	amphoe := geo.NewCollection()
	amphoe.Append(square("Chatuchak", 100))
	amphoe.Append(square("Bangrak", 100.2))
	s.Put(geo.Amphoe, amphoe, nil)

	stations := geo.NewCollection()
	st := geojson.NewFeature(orb.Point{100.05, 13.7})
	st.Properties["Operate"] = "BTS"
	stations.Append(st)
	s.Put(geo.Stations, stations, nil)

	s.Put(geo.Lines, nil, errors.New("fetch failed"))
	return s
}

func newViewer(t *testing.T) (*Viewer, *dataset.Store) {
	t.Helper()
	store := testStore(t)
	return New("test", store, view.NewCache(16), DefaultOptions(), nil), store
}

func handle(t *testing.T, v *Viewer, e Event) State {
	t.Helper()
	st, err := v.Handle(e)
	if err != nil {
		t.Fatalf("Handle(%+v): %v", e, err)
	}
	return st
}

func TestMapLoadedInstallsAvailableLayers(t *testing.T) {
	v, _ := newViewer(t)
	st := handle(t, v, Event{Type: EventMapLoaded})
	if !st.MapLoaded {
		t.Fatalf("map not marked loaded")
	}
	layers := v.rec.Layers()
	for _, id := range []string{mapview.LayerAmphoeBorders, mapview.LayerCondoPoints, mapview.LayerDensity, mapview.LayerStations} {
		if !slices.Contains(layers, id) {
			t.Fatalf("layer %s missing: %v", id, layers)
		}
	}
	if slices.Contains(layers, mapview.LayerLines) {
		t.Fatalf("failed dataset must not get a layer")
	}
	if st.Datasets["lines"].Error == "" {
		t.Fatalf("failed dataset should report its error: %+v", st.Datasets)
	}
	if got := v.rec.LayerFilter(mapview.LayerAmphoeHighlighted); got.Kind != mapview.FilterNone {
		t.Fatalf("highlight filter=%s", got)
	}

	v.Commands()
	handle(t, v, Event{Type: EventMapLoaded})
	if cmds := v.Commands(); len(cmds) != 0 {
		t.Fatalf("second map_loaded emitted %d commands", len(cmds))
	}
}

func TestMapLoadedSkipsNullLineFeatures(t *testing.T) {
	v, store := newViewer(t)
	fc, err := dataset.Decode([]byte(`{"type":"FeatureCollection","features":[null,
 {"type":"Feature","geometry":{"type":"LineString","coordinates":[[100.5,13.7],[100.6,13.8]]},"properties":{"Operate":"BTS"}}]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	store.Put(geo.Lines, fc, nil)
	handle(t, v, Event{Type: EventMapLoaded})
	if !slices.Contains(v.rec.Layers(), mapview.LayerLines) {
		t.Fatalf("lines layer not installed: %v", v.rec.Layers())
	}

	// a collection built in process can still carry a nil entry
	raw := geo.NewCollection()
	raw.Features = append(raw.Features, nil, fc.Features[0])
	store.Put(geo.Lines, raw, nil)
	handle(t, v, Event{Type: EventRefresh})
}

func TestStateDuringConcurrentReloads(t *testing.T) {
	v, store := newViewer(t)
	handle(t, v, Event{Type: EventMapLoaded})
	handle(t, v, Event{Type: EventNextPage})

	sized := func(n int) *geojson.FeatureCollection {
		fc := geo.NewCollection()
		for i := range n {
			f := geojson.NewFeature(orb.Point{100 + float64(i)/100, 13.7})
			f.Properties["name_thai"] = fmt.Sprintf("r%d", i)
			f.Properties["AMP_NAME_T"] = "Chatuchak"
			fc.Append(f)
		}
		return fc
	}
	small, large := sized(1), sized(5)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			if i%2 == 0 {
				store.Put(geo.Condos, small, nil)
			} else {
				store.Put(geo.Condos, large, nil)
			}
		}
	}()

	var panicked any
	func() {
		defer func() { panicked = recover() }()
		for i := 0; i < 2000; i++ {
			st := v.State()
			if len(st.Rows) > st.Page.Size {
				t.Errorf("page holds %d rows, size %d", len(st.Rows), st.Page.Size)
				return
			}
			if i%50 == 0 {
				if _, err := v.Handle(Event{Type: EventRefresh}); err != nil {
					t.Errorf("refresh: %v", err)
					return
				}
			}
		}
	}()
	close(done)
	wg.Wait()
	if panicked != nil {
		t.Fatalf("state panicked during reloads: %v", panicked)
	}
}

func TestSearchKeyboardSelectsRegion(t *testing.T) {
	v, _ := newViewer(t)
	handle(t, v, Event{Type: EventMapLoaded})

	st := handle(t, v, Event{Type: EventSearchInput, Text: "chat"})
	if !slices.Equal(st.Search.Suggestions, []string{"Chatuchak"}) || st.Search.Active != -1 {
		t.Fatalf("search=%+v", st.Search)
	}
	handle(t, v, Event{Type: EventSearchKey, Key: "ArrowDown"})
	st = handle(t, v, Event{Type: EventSearchKey, Key: "Enter"})

	if st.Region != "Chatuchak" || st.Selection != "region_selected" {
		t.Fatalf("region=%q selection=%s", st.Region, st.Selection)
	}
	if st.CondoCount != 4 || st.Page.Total != 4 || len(st.Rows) != 4 || st.Page.TotalPages != 1 {
		t.Fatalf("count=%v page=%+v rows=%d", st.CondoCount, st.Page, len(st.Rows))
	}
	if st.Search.Input != "Chatuchak" || len(st.Search.Suggestions) != 0 {
		t.Fatalf("search=%+v", st.Search)
	}
	if got := v.rec.LayerFilter(mapview.LayerCondoPoints); got != mapview.Equals("AMP_NAME_T", "Chatuchak") {
		t.Fatalf("point filter=%s", got)
	}
	if cam := v.rec.Camera(); cam == nil || cam.Padding != 50 || cam.MaxZoom != 16 {
		t.Fatalf("camera=%+v", cam)
	}
	if src := v.rec.Source(mapview.SourceCondos); src == nil || len(src.Features) != 4 {
		t.Fatalf("condos source must carry the derived view")
	}
}

func TestShortInputClearsSelection(t *testing.T) {
	v, _ := newViewer(t)
	handle(t, v, Event{Type: EventMapLoaded})
	handle(t, v, Event{Type: EventSelectRegion, Value: "Bangrak"})

	st := handle(t, v, Event{Type: EventSearchInput, Text: "B"})
	if st.Region != "" || st.Selection != "no_selection" || st.CondoCount != 0 {
		t.Fatalf("state=%+v", st)
	}
	if st.Page.Total != 12 {
		t.Fatalf("cleared view total=%d", st.Page.Total)
	}
	cam := v.rec.Camera()
	if cam.Center == nil || *cam.Center != (orb.Point{100.547224, 13.737520}) || cam.Zoom != 10 {
		t.Fatalf("camera=%+v", cam)
	}
}

func TestUnknownRegionBehavesAsClear(t *testing.T) {
	v, _ := newViewer(t)
	handle(t, v, Event{Type: EventSelectRegion, Value: "Chatuchak"})
	st := handle(t, v, Event{Type: EventSelectRegion, Value: "Atlantis"})
	if st.Region != "" || st.Page.Total != 12 {
		t.Fatalf("state=%+v", st)
	}
}

func TestRowClickSelectsRegionAndToggles(t *testing.T) {
	v, _ := newViewer(t)
	handle(t, v, Event{Type: EventMapLoaded})

	st := handle(t, v, Event{Type: EventRowClick, Index: 5})
	if st.Region != "Bangrak" || st.SelectedRow != 5 || st.Selection != "region_and_row_selected" {
		t.Fatalf("state region=%q row=%d sel=%s", st.Region, st.SelectedRow, st.Selection)
	}
	var selected int
	for _, r := range st.Rows {
		if r.Selected {
			selected = r.Index
		}
	}
	if selected != 5 {
		t.Fatalf("row 5 not rendered selected: %+v", st.Rows)
	}
	if cam := v.rec.Camera(); cam.Zoom != 16 || cam.DurationMS != 1000 {
		t.Fatalf("camera=%+v", cam)
	}

	st = handle(t, v, Event{Type: EventRowClick, Index: 5})
	if st.SelectedRow != -1 || st.Region != "Bangrak" {
		t.Fatalf("second click: row=%d region=%q", st.SelectedRow, st.Region)
	}

	v.Commands()
	st = handle(t, v, Event{Type: EventRowClick, Index: 99})
	if st.SelectedRow != -1 || len(v.Commands()) != 0 {
		t.Fatalf("missing row must be a no-op")
	}
}

func TestPointClickFlies(t *testing.T) {
	v, _ := newViewer(t)
	handle(t, v, Event{Type: EventMapLoaded})
	handle(t, v, Event{Type: EventPointClick, Index: 2})
	want, _ := geo.PointOf(v.collection(geo.Condos).Features[2])
	if cam := v.rec.Camera(); cam.Zoom != 15 || *cam.Center != want {
		t.Fatalf("camera=%+v", cam)
	}
}

func TestFilterPopoverFlow(t *testing.T) {
	v, _ := newViewer(t)
	st := handle(t, v, Event{Type: EventOpenFilter, Field: "เขต/อำเภอ"})
	if st.Popover == nil || !slices.Equal(st.Popover.Values, []string{"Bangrak", "Chatuchak", "Other"}) {
		t.Fatalf("popover=%+v", st.Popover)
	}
	handle(t, v, Event{Type: EventFilterToggle, Value: "Chatuchak"})
	handle(t, v, Event{Type: EventFilterToggle, Value: "Bangrak"})
	st = handle(t, v, Event{Type: EventFilterApply})
	if st.Popover != nil || st.Page.Total != 7 || st.Page.TotalPages != 2 {
		t.Fatalf("after apply popover=%v page=%+v", st.Popover, st.Page)
	}
	var filtered bool
	for _, c := range st.Columns {
		if c.Field == geo.KeyRegion {
			filtered = c.Filtered
		}
	}
	if !filtered {
		t.Fatalf("region column should show as filtered")
	}

	st = handle(t, v, Event{Type: EventNextPage})
	if st.Page.Index != 1 || len(st.Rows) != 2 {
		t.Fatalf("page 2=%+v rows=%d", st.Page, len(st.Rows))
	}

	handle(t, v, Event{Type: EventSort, Field: "name_thai"})
	st = handle(t, v, Event{Type: EventClearAll})
	if st.Page.Total != 12 || st.Page.Index != 0 || len(st.Filters) != 0 {
		t.Fatalf("clear all: %+v", st.Page)
	}
}

func TestSortIndicator(t *testing.T) {
	v, _ := newViewer(t)
	st := handle(t, v, Event{Type: EventSort, Field: "name_thai"})
	if st.Rows[0].NameThai != "c00" || st.Columns[0].Indicator != "↑" {
		t.Fatalf("asc rows[0]=%s ind=%q", st.Rows[0].NameThai, st.Columns[0].Indicator)
	}
	st = handle(t, v, Event{Type: EventSort, Field: "name_thai"})
	if st.Rows[0].NameThai != "c11" || st.Columns[0].Indicator != "↓" {
		t.Fatalf("desc rows[0]=%s ind=%q", st.Rows[0].NameThai, st.Columns[0].Indicator)
	}
}

func TestInvalidEvents(t *testing.T) {
	v, _ := newViewer(t)
	if _, err := v.Handle(Event{Type: "explode"}); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("err=%v", err)
	}
	if _, err := v.Handle(Event{Type: EventSort}); err == nil {
		t.Fatalf("sort without field should fail")
	}
	if _, err := v.Handle(Event{Type: EventSearchKey, Key: "Tab"}); err == nil {
		t.Fatalf("unknown key should fail")
	}
}

func TestReloadRefreshesInstalledSources(t *testing.T) {
	v, store := newViewer(t)
	handle(t, v, Event{Type: EventMapLoaded})
	v.Commands()

	lines := geo.NewCollection()
	lines.Append(geojson.NewFeature(orb.LineString{{100, 13.7}, {100.1, 13.8}}))
	store.Put(geo.Lines, lines, nil)

	handle(t, v, Event{Type: EventRefresh})
	layers := v.rec.Layers()
	li, si := slices.Index(layers, mapview.LayerLines), slices.Index(layers, mapview.LayerStations)
	if li < 0 || si < 0 || li > si {
		t.Fatalf("lines must sit below stations: %v", layers)
	}
	if src := v.rec.Source(mapview.SourceLines); src == nil || src.Features[0].ID != 0 {
		t.Fatalf("lines source missing index ids")
	}
}

func TestCloseTearsDownMap(t *testing.T) {
	v, _ := newViewer(t)
	handle(t, v, Event{Type: EventMapLoaded})
	if err := v.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(v.rec.Layers()) != 0 || v.rec.HasSource(mapview.SourceCondos) || v.rec.HasImage("bts-icon") {
		t.Fatalf("resources left after teardown: %v", v.rec.Layers())
	}
}

func TestManagerLifecycle(t *testing.T) {
	store := testStore(t)
	clock := time.Unix(1_700_000_000, 0)
	m := NewManager(store, view.NewCache(16), DefaultOptions(), time.Minute, nil)
	m.now = func() time.Time { return clock }

	v := m.Create()
	if got, ok := m.Get(v.ID()); !ok || got != v {
		t.Fatalf("Get(%s) failed", v.ID())
	}
	if _, ok := m.Get("nope"); ok {
		t.Fatalf("unknown id found")
	}

	clock = clock.Add(30 * time.Second)
	handle(t, v, Event{Type: EventRefresh})
	clock = clock.Add(45 * time.Second)
	if n := m.Sweep(); n != 0 {
		t.Fatalf("active session swept")
	}
	clock = clock.Add(2 * time.Minute)
	if _, ok := m.Get(v.ID()); ok {
		t.Fatalf("expired session still served")
	}
	if m.Len() != 0 {
		t.Fatalf("expired session not removed")
	}

	w := m.Create()
	if !m.Delete(w.ID()) || m.Delete(w.ID()) {
		t.Fatalf("delete should succeed exactly once")
	}
}
