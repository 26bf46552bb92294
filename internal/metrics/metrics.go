// Package metrics runs the dedicated Prometheus listener. Besides the default registry,
// where the promauto collectors of observability live, it serves build metadata and the
// freshness of every dataset snapshot, read at scrape time.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/bkk-condo-map/internal/dataset"
	"github.com/mohammed-shakir/bkk-condo-map/internal/geo"
)

type BuildInfo struct {
	Version   string
	Revision  string
	Branch    string
	BuildDate string
}

type Config struct {
	Addr  string
	Path  string
	Build BuildInfo
	// Store, when set, is exported as dataset_snapshot_* gauges.
	Store *dataset.Store
}

type Provider struct {
	cfg Config
	reg *prometheus.Registry
}

func Init(cfg Config) *Provider {
	if cfg.Path == "" {
		cfg.Path = "/metrics"
	}
	reg := prometheus.NewRegistry()

	build := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_details",
			Help: "Build metadata for this binary (value is always 1).",
		},
		[]string{"version", "revision", "branch", "build_date"},
	)
	reg.MustRegister(build)
	v := cfg.Build
	if v.Version == "" {
		v.Version = "dev"
	}
	build.WithLabelValues(v.Version, v.Revision, v.Branch, v.BuildDate).Set(1)

	if cfg.Store != nil {
		reg.MustRegister(newSnapshotCollector(cfg.Store, time.Now))
	}
	return &Provider{cfg: cfg, reg: reg}
}

func (p *Provider) Handler() http.Handler {
	g := prometheus.Gatherers{prometheus.DefaultGatherer, p.reg}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (p *Provider) Register(cs ...prometheus.Collector) {
	for _, c := range cs {
		p.reg.MustRegister(c)
	}
}

// Serve listens on the configured address until ctx is done.
func (p *Provider) Serve(ctx context.Context, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle(p.cfg.Path, p.Handler())
	srv := &http.Server{
		Addr:              p.cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn("metrics shutdown", "err", err)
		}
	}()

	log.Info("metrics listening", "addr", p.cfg.Addr, "path", p.cfg.Path)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server exited", "err", err)
	}
}

type snapshotCollector struct {
	store   *dataset.Store
	now     func() time.Time
	version *prometheus.Desc
	age     *prometheus.Desc
	failed  *prometheus.Desc
}

func newSnapshotCollector(store *dataset.Store, now func() time.Time) *snapshotCollector {
	labels := []string{"dataset"}
	return &snapshotCollector{
		store:   store,
		now:     now,
		version: prometheus.NewDesc("dataset_snapshot_version", "Version of the current snapshot (0 before the first load).", labels, nil),
		age:     prometheus.NewDesc("dataset_snapshot_age_seconds", "Seconds since the current snapshot was stored.", labels, nil),
		failed:  prometheus.NewDesc("dataset_snapshot_failed", "1 when the current snapshot holds a load error.", labels, nil),
	}
}

func (c *snapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.version
	ch <- c.age
	ch <- c.failed
}

func (c *snapshotCollector) Collect(ch chan<- prometheus.Metric) {
	for _, k := range geo.Kinds {
		snap := c.store.Get(k)
		ch <- prometheus.MustNewConstMetric(c.version, prometheus.GaugeValue, float64(snap.Version), k.String())
		if !snap.Attempted {
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.age, prometheus.GaugeValue, c.now().Sub(snap.LoadedAt).Seconds(), k.String())
		failed := 0.0
		if snap.Err != nil {
			failed = 1
		}
		ch <- prometheus.MustNewConstMetric(c.failed, prometheus.GaugeValue, failed, k.String())
	}
}
