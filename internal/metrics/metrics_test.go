package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mohammed-shakir/bkk-condo-map/internal/core/observability"
	"github.com/mohammed-shakir/bkk-condo-map/internal/dataset"
	"github.com/mohammed-shakir/bkk-condo-map/internal/geo"
)

func scrape(t *testing.T, p *Provider) string {
	t.Helper()
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	return rr.Body.String()
}

func TestProvider_ServesDefaultAndPrivateRegistries(t *testing.T) {
	p := Init(Config{Build: BuildInfo{Version: "test", Revision: "r", Branch: "b", BuildDate: "now"}})

	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "smoke"})
	p.Register(g)
	g.Set(42)

	if n := testutil.CollectAndCount(g); n == 0 {
		t.Fatalf("expected at least 1 sample from test_gauge, got %d", n)
	}

	observability.ObserveHTTP("GET", "/regions/suggest", 200, 0.002)

	body := scrape(t, p)
	for _, want := range []string{"go_goroutines", "test_gauge 42", `app_build_details{`, `route="/regions/suggest"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in payload; got:\n%s", want, body)
		}
	}
	if strings.Contains(body, "dataset_snapshot_version") {
		t.Fatalf("snapshot gauges need a store")
	}
}

func TestSnapshotCollector(t *testing.T) {
	store := dataset.NewStore()
	store.Put(geo.Condos, geo.NewCollection(), nil)
	store.Put(geo.Lines, nil, errors.New("404"))

	loaded := store.Get(geo.Condos).LoadedAt
	c := newSnapshotCollector(store, func() time.Time { return loaded.Add(90 * time.Second) })

	// condos and lines emit three series, amphoe and stations only a version
	if n := testutil.CollectAndCount(c); n != 8 {
		t.Fatalf("series=%d want 8", n)
	}
	if n := testutil.CollectAndCount(c, "dataset_snapshot_failed"); n != 2 {
		t.Fatalf("failed series=%d want 2", n)
	}

	p := Init(Config{Store: store})
	body := scrape(t, p)
	for _, want := range []string{
		`dataset_snapshot_version{dataset="condos"} 1`,
		`dataset_snapshot_failed{dataset="lines"} 1`,
		`dataset_snapshot_failed{dataset="condos"} 0`,
		`dataset_snapshot_version{dataset="amphoe"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in payload; got:\n%s", want, body)
		}
	}
}
