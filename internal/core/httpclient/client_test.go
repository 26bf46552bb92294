package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewOutbound_Timeout(t *testing.T) {
	if c := NewOutbound(0); c.Timeout != 30*time.Second {
		t.Fatalf("default timeout=%v", c.Timeout)
	}
	if c := NewOutbound(5 * time.Second); c.Timeout != 5*time.Second {
		t.Fatalf("timeout=%v", c.Timeout)
	}
}

func TestNewOutbound_DefaultHeaders(t *testing.T) {
	var ua, accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua, accept = r.Header.Get("User-Agent"), r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	}))
	defer srv.Close()

	c := NewOutbound(time.Second)
	resp, err := c.Get(srv.URL + "/Condos.geojson")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if ua != DefaultUserAgent || accept != acceptGeoJSON {
		t.Fatalf("ua=%q accept=%q", ua, accept)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("User-Agent", "custom")
	resp, err = c.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	_ = resp.Body.Close()
	if ua != "custom" || accept != acceptGeoJSON {
		t.Fatalf("caller headers must win: ua=%q accept=%q", ua, accept)
	}
	if req.Header.Get("Accept") != "" {
		t.Fatalf("caller request must not be mutated")
	}
}
