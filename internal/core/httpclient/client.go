// Package httpclient configures the HTTP client used to fetch remote datasets.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

const (
	DefaultUserAgent = "bkk-condo-map"
	acceptGeoJSON    = "application/geo+json, application/json;q=0.9, */*;q=0.1"
)

// NewOutbound creates the client for dataset fetches. timeout bounds a whole request;
// zero selects 30s. Requests without their own User-Agent or Accept get the dataset
// defaults.
func NewOutbound(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Transport: &datasetTransport{
			ua: DefaultUserAgent,
			next: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
		Timeout: timeout,
	}
}

type datasetTransport struct {
	ua   string
	next http.RoundTripper
}

func (t *datasetTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get("User-Agent") != "" && r.Header.Get("Accept") != "" {
		return t.next.RoundTrip(r)
	}
	r = r.Clone(r.Context())
	if r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", t.ua)
	}
	if r.Header.Get("Accept") == "" {
		r.Header.Set("Accept", acceptGeoJSON)
	}
	return t.next.RoundTrip(r)
}
