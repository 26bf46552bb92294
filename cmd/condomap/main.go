package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohammed-shakir/bkk-condo-map/internal/cache/datasetcache"
	"github.com/mohammed-shakir/bkk-condo-map/internal/cache/redisstore"
	"github.com/mohammed-shakir/bkk-condo-map/internal/core/config"
	"github.com/mohammed-shakir/bkk-condo-map/internal/core/httpclient"
	"github.com/mohammed-shakir/bkk-condo-map/internal/core/observability"
	"github.com/mohammed-shakir/bkk-condo-map/internal/core/router"
	"github.com/mohammed-shakir/bkk-condo-map/internal/core/server"
	"github.com/mohammed-shakir/bkk-condo-map/internal/dataset"
	"github.com/mohammed-shakir/bkk-condo-map/internal/geo"
	"github.com/mohammed-shakir/bkk-condo-map/internal/invalidation/kafkaconsumer"
	"github.com/mohammed-shakir/bkk-condo-map/internal/logger"
	"github.com/mohammed-shakir/bkk-condo-map/internal/mapview"
	"github.com/mohammed-shakir/bkk-condo-map/internal/metrics"
	"github.com/mohammed-shakir/bkk-condo-map/internal/selection"
	"github.com/mohammed-shakir/bkk-condo-map/internal/view"
	"github.com/mohammed-shakir/bkk-condo-map/internal/viewer"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "condomap",
		Component: "server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting condomap", "addr", cfg.Addr, "version", Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	palette := mapview.DefaultPalette()
	if cfg.PaletteFile != "" {
		p, err := mapview.LoadPalette(cfg.PaletteFile)
		if err != nil {
			appLog.Error("palette load failed", "file", cfg.PaletteFile, "err", err)
			return 1
		}
		palette = p
	}

	loaderOpts := []dataset.LoaderOption{
		dataset.WithHTTPClient(httpclient.NewOutbound(cfg.FetchTimeout)),
		dataset.WithFetchTimeout(cfg.FetchTimeout),
		dataset.WithLogger(appLog),
	}
	if cfg.Redis.Enabled {
		cli, err := redisstore.New(ctx, cfg.Redis.Addr,
			redisstore.WithNamespace(cfg.Redis.Namespace),
			redisstore.WithDialTimeout(cfg.Redis.OpTimeout*4),
			redisstore.WithReadTimeout(cfg.Redis.OpTimeout),
			redisstore.WithWriteTimeout(cfg.Redis.OpTimeout),
		)
		if err != nil {
			// datasets are still fetched from their sources
			appLog.Warn("redis unavailable, dataset cache disabled", "addr", cfg.Redis.Addr, "err", err)
		} else {
			defer func() { _ = cli.Close() }()
			loaderOpts = append(loaderOpts, dataset.WithCache(
				datasetcache.NewRedis(cli, cfg.Redis.DatasetCacheTTL), cfg.Redis.DatasetCacheTTL, cfg.Redis.OpTimeout))
			appLog.Info("dataset cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.DatasetCacheTTL)
		}
	}

	store := dataset.NewStore()
	if cfg.Metrics.Enabled {
		mp := metrics.Init(metrics.Config{
			Addr:  cfg.Metrics.Addr,
			Path:  cfg.Metrics.Path,
			Store: store,
			Build: metrics.BuildInfo{
				Version:   Version,
				Revision:  os.Getenv("BUILD_REVISION"),
				Branch:    os.Getenv("BUILD_BRANCH"),
				BuildDate: os.Getenv("BUILD_DATE"),
			},
		})
		go mp.Serve(ctx, appLog)
	}

	loader := dataset.NewLoader(store, map[geo.Kind]string{
		geo.Condos:   cfg.Sources.Condos,
		geo.Amphoe:   cfg.Sources.Amphoe,
		geo.Stations: cfg.Sources.Stations,
		geo.Lines:    cfg.Sources.Lines,
	}, loaderOpts...)

	go func() {
		if err := loader.LoadAll(ctx); err != nil {
			appLog.Error("some datasets failed to load; their layers stay empty", "err", err)
			return
		}
		appLog.Info("all datasets loaded")
	}()

	views := view.NewCache(cfg.ViewCacheSize)
	sel := selection.DefaultOptions()
	sel.RowZoom = cfg.RowZoom
	sel.PointZoom = cfg.PointZoom
	sessions := viewer.NewManager(store, views, viewer.Options{
		PageSize:     cfg.PageSize,
		CountDivisor: cfg.CountDivisor,
		DensityRes:   cfg.H3Res,
		Palette:      palette,
		Selection:    sel,
	}, cfg.SessionTTL, appLog)
	go sessions.Run(ctx, time.Minute)

	if cfg.Invalidation.Enabled {
		cons := kafkaconsumer.New(kafkaconsumer.FromConfig(cfg.Invalidation), appLog, loader)
		go func() {
			if err := cons.Start(ctx); err != nil {
				appLog.Error("reload consumer stopped", "err", err)
			}
		}()
	}

	api := router.New(store, views, sessions, router.Options{
		PageSize:     cfg.PageSize,
		CountDivisor: cfg.CountDivisor,
		DensityRes:   cfg.H3Res,
	}, appLog)

	if err := server.Run(ctx, cfg.Addr, appLog, server.NewRouter(appLog, api)); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
