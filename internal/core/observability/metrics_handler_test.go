package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsHandler_Smoke(t *testing.T) {
	ExposeBuildInfo("test")
	ObserveHTTP("GET", "/condos", 200, 0.001)
	ObserveDatasetLoad("condos", "fetch", nil, 12, 0.02)
	ObserveDatasetLoad("lines", "fetch", errors.New("boom"), 0, 0.01)
	IncViewCacheMiss()
	ObserveEvent("row_click", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"app_build_info",
		`http_requests_total{method="GET",route="/condos",status="200"}`,
		`dataset_loads_total{dataset="lines",origin="fetch",outcome="error"}`,
		`dataset_features{dataset="condos"} 12`,
		`view_computations_total{outcome="miss"}`,
		`viewer_events_total{outcome="ok",type="row_click"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics payload missing %s; got:\n%s", want, body)
		}
	}
}
