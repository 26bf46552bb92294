package invalidation_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/bkk-condo-map/internal/cache/datasetcache"
	"github.com/mohammed-shakir/bkk-condo-map/internal/cache/keys"
	"github.com/mohammed-shakir/bkk-condo-map/internal/cache/redisstore"
	"github.com/mohammed-shakir/bkk-condo-map/internal/dataset"
	"github.com/mohammed-shakir/bkk-condo-map/internal/geo"
	"github.com/mohammed-shakir/bkk-condo-map/internal/invalidation"
	"github.com/mohammed-shakir/bkk-condo-map/internal/invalidation/kafkaconsumer"
)

const (
	oneStation  = `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[100.53,13.74]},"properties":{"Operate":"BTS"}}]}`
	twoStations = `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[100.53,13.74]},"properties":{"Operate":"BTS"}},{"type":"Feature","geometry":{"type":"Point","coordinates":[100.56,13.75]},"properties":{"Operate":"MRT"}}]}`
)

func TestIntegration_Miniredis_ReloadRefreshesStoreAndCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	cli, err := redisstore.New(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("redisstore: %v", err)
	}
	t.Cleanup(func() { _ = cli.Close() })

	path := filepath.Join(t.TempDir(), "stations.geojson")
	if err := os.WriteFile(path, []byte(oneStation), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := dataset.NewStore()
	dc := datasetcache.NewRedis(cli, time.Hour)
	loader := dataset.NewLoader(store, map[geo.Kind]string{geo.Stations: path},
		dataset.WithCache(dc, time.Hour, time.Second))
	ctx := context.Background()
	if _, err := loader.Load(ctx, geo.Stations); err != nil {
		t.Fatalf("load: %v", err)
	}
	key := cli.Key(keys.DatasetKey("stations", path))
	if !mr.Exists(key) {
		t.Fatalf("expected %s to be cached", key)
	}

	if err := os.WriteFile(path, []byte(twoStations), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	// a plain load still serves the cached copy
	if snap, _ := loader.Load(ctx, geo.Stations); snap.Len() != 1 {
		t.Fatalf("cached load len=%d", snap.Len())
	}

	cons := kafkaconsumer.New(kafkaconsumer.Config{Topic: "dataset-reload"}, nil, loader)
	body, _ := json.Marshal(invalidation.Event{Version: 1, Op: "reload", Dataset: "stations", TS: time.Now().UTC()})
	msg := &sarama.ConsumerMessage{Topic: "dataset-reload", Partition: 0, Offset: 1, Value: body}
	if err := cons.ProcessOne(ctx, msg); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}

	if store.Get(geo.Stations).Len() != 2 {
		t.Fatalf("store not refreshed: len=%d", store.Get(geo.Stations).Len())
	}
	cached, ok, err := dc.Get(ctx, "stations", path)
	if err != nil || !ok || !strings.Contains(string(cached), "MRT") {
		t.Fatalf("cache not refilled after reload: %s", cached)
	}

	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	out := rr.Body.String()
	for _, s := range []string{
		`dataset_reload_events_total{dataset="stations",outcome="ok"}`,
		`dataset_loads_total`,
		`redis_cache_ops_total`,
	} {
		if !strings.Contains(out, s) {
			t.Fatalf("metrics missing %q", s)
		}
	}
}
