// Package health serves the liveness and readiness probes.
package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// Liveness always answers 200 with the seconds since started.
func Liveness(started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":         "alive",
			"uptime_seconds": int64(time.Since(started).Seconds()),
		})
	}
}

// Dataset is the load state of one dataset as reported by readiness.
type Dataset struct {
	Version  uint64 `json:"version"`
	Features int    `json:"features"`
	Loaded   bool   `json:"loaded"`
	Error    string `json:"error,omitempty"`
}

type ReadinessReporter interface {
	Readiness() (ready bool, datasets map[string]Dataset)
}

// Readiness answers 200 once every dataset load was attempted, failed ones included,
// and 503 before that.
func Readiness(rr ReadinessReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		type resp struct {
			Status   string             `json:"status"`
			Datasets map[string]Dataset `json:"datasets"`
		}
		ready, ds := rr.Readiness()
		out := resp{Status: "not_ready", Datasets: ds}
		if ready {
			out.Status = "ready"
		}
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
