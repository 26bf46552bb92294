package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/bkk-condo-map/internal/cache/datasetcache"
	"github.com/mohammed-shakir/bkk-condo-map/internal/core/observability"
	"github.com/mohammed-shakir/bkk-condo-map/internal/geo"
	mylog "github.com/mohammed-shakir/bkk-condo-map/internal/logger"
)

var ErrNoSource = errors.New("dataset has no source")

const maxBodyBytes = 64 << 20

type LoaderOption func(*Loader)

func WithHTTPClient(c *http.Client) LoaderOption {
	return func(l *Loader) { l.client = c }
}

// WithCache puts a raw-bytes cache in front of every fetch. opTimeout bounds each cache call.
func WithCache(c datasetcache.Cache, ttl, opTimeout time.Duration) LoaderOption {
	return func(l *Loader) {
		l.cache = c
		l.cacheTTL = ttl
		l.cacheTimeout = opTimeout
	}
}

func WithLogger(lg *slog.Logger) LoaderOption {
	return func(l *Loader) { l.log = lg }
}

func WithFetchTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) { l.fetchTimeout = d }
}

// Loader fetches datasets into a Store. A source is an http(s) URL or a local file path.
type Loader struct {
	store        *Store
	sources      map[geo.Kind]string
	client       *http.Client
	cache        datasetcache.Cache
	cacheTTL     time.Duration
	cacheTimeout time.Duration
	fetchTimeout time.Duration
	log          *slog.Logger

	once    sync.Once
	initErr error
}

func NewLoader(store *Store, sources map[geo.Kind]string, opts ...LoaderOption) *Loader {
	l := &Loader{
		store:        store,
		sources:      sources,
		client:       http.DefaultClient,
		cacheTimeout: 500 * time.Millisecond,
		fetchTimeout: 30 * time.Second,
		log:          slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Loader) Store() *Store { return l.store }

// LoadAll starts every dataset load concurrently and waits for them. Only the first call
// fetches; later calls return the first result.
func (l *Loader) LoadAll(ctx context.Context) error {
	l.once.Do(func() {
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			errs []error
		)
		for _, k := range geo.Kinds {
			wg.Add(1)
			go func(k geo.Kind) {
				defer wg.Done()
				if _, err := l.Load(ctx, k); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}(k)
		}
		wg.Wait()
		l.initErr = errors.Join(errs...)
	})
	return l.initErr
}

// Load reads one dataset, from the cache when possible, and stores the result. On failure
// the slot holds an empty collection and the error is returned; nothing is retried.
func (l *Loader) Load(ctx context.Context, kind geo.Kind) (*Snapshot, error) {
	return l.load(ctx, kind, true)
}

// Reload drops the cached copy of kind and fetches it again from its source. When the
// fetch fails a previously loaded snapshot stays in place and is returned with the error.
func (l *Loader) Reload(ctx context.Context, kind geo.Kind) (*Snapshot, error) {
	if src := l.sources[kind]; src != "" && l.cache != nil {
		cctx, cancel := context.WithTimeout(ctx, l.cacheTimeout)
		if err := l.cache.Invalidate(cctx, kind.String(), src); err != nil {
			l.logger(ctx, kind).Warn("dataset cache invalidate failed", "err", err)
		}
		cancel()
	}
	return l.load(ctx, kind, false)
}

func (l *Loader) load(ctx context.Context, kind geo.Kind, useCache bool) (*Snapshot, error) {
	lg := l.logger(ctx, kind)
	src := strings.TrimSpace(l.sources[kind])
	start := time.Now()
	if src == "" {
		err := fmt.Errorf("%w: %s", ErrNoSource, kind)
		observability.ObserveDatasetLoad(kind.String(), "fetch", err, 0, 0)
		lg.Error("dataset load failed", "err", err)
		return l.store.Put(kind, nil, err), err
	}

	if useCache && l.cache != nil {
		if fc, ok := l.fromCache(ctx, kind, src); ok {
			observability.ObserveDatasetLoad(kind.String(), "cache", nil, len(fc.Features), time.Since(start).Seconds())
			lg.Debug("dataset served from cache", "features", len(fc.Features))
			return l.store.Put(kind, fc, nil), nil
		}
	}

	body, err := l.fetch(ctx, src)
	var fc *geojson.FeatureCollection
	if err == nil {
		fc, err = Decode(body)
	}
	if err != nil {
		err = fmt.Errorf("load %s from %s: %w", kind, src, err)
		observability.ObserveDatasetLoad(kind.String(), "fetch", err, 0, time.Since(start).Seconds())
		lg.Error("dataset load failed", "src", src, "err", err)
		if prev := l.store.Get(kind); !useCache && prev.Attempted && prev.Err == nil {
			return prev, err
		}
		return l.store.Put(kind, nil, err), err
	}

	observability.ObserveDatasetLoad(kind.String(), "fetch", nil, len(fc.Features), time.Since(start).Seconds())
	lg.Info("dataset loaded", "src", src, "features", len(fc.Features))
	snap := l.store.Put(kind, fc, nil)

	if l.cache != nil {
		cctx, cancel := context.WithTimeout(ctx, l.cacheTimeout)
		if perr := l.cache.Put(cctx, kind.String(), src, body, l.cacheTTL); perr != nil {
			lg.Warn("dataset cache fill failed", "err", perr)
		}
		cancel()
	}
	return snap, nil
}

func (l *Loader) fromCache(ctx context.Context, kind geo.Kind, src string) (*geojson.FeatureCollection, bool) {
	cctx, cancel := context.WithTimeout(ctx, l.cacheTimeout)
	defer cancel()
	body, ok, err := l.cache.Get(cctx, kind.String(), src)
	if err != nil {
		l.logger(ctx, kind).Warn("dataset cache unavailable, fetching directly", "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	fc, err := Decode(body)
	if err != nil {
		l.logger(ctx, kind).Warn("dataset cache entry unreadable", "err", err)
		return nil, false
	}
	return fc, true
}

func (l *Loader) fetch(ctx context.Context, src string) ([]byte, error) {
	if !isURL(src) {
		b, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		return b, nil
	}

	ctx, cancel := context.WithTimeout(ctx, l.fetchTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return b, nil
}

// Decode parses a GeoJSON FeatureCollection. Anything else is an error. Null entries in
// the features array are dropped.
func Decode(b []byte) (*geojson.FeatureCollection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(b)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	features := make([]*geojson.Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		if f.Properties == nil {
			f.Properties = geojson.Properties{}
		}
		features = append(features, f)
	}
	fc.Features = features
	return fc, nil
}

func (l *Loader) logger(ctx context.Context, kind geo.Kind) *slog.Logger {
	ctx = mylog.WithDataset(mylog.WithComponent(ctx, "dataset"), kind.String())
	return l.log.With(mylog.Attrs(ctx)...)
}

func isURL(src string) bool {
	s := strings.ToLower(src)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
