// Package config reads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Sources are the static GeoJSON locations, either http(s) URLs or file paths.
type Sources struct {
	Condos   string
	Amphoe   string
	Stations string
	Lines    string
}

type RedisCfg struct {
	Enabled         bool
	Addr            string
	Namespace       string
	DatasetCacheTTL time.Duration
	OpTimeout       time.Duration
}

type InvalidationCfg struct {
	Enabled bool
	Topic   string
	Brokers string
	GroupID string
}

type MetricsCfg struct {
	Enabled bool
	Addr    string
	Path    string
}

type Config struct {
	Addr          string
	LogLevel      string
	LogConsole    bool
	LogSampleN    int
	Sources       Sources
	FetchTimeout  time.Duration
	PageSize      int
	CountDivisor  float64
	RowZoom       float64
	PointZoom     float64
	H3Res         int
	ViewCacheSize int
	SessionTTL    time.Duration
	PaletteFile   string
	Redis         RedisCfg
	Invalidation  InvalidationCfg
	Metrics       MetricsCfg
}

func FromEnv() Config {
	pageSize := getint("PAGE_SIZE", 5)
	if pageSize <= 0 {
		pageSize = 5
	}
	divisor := getfloat("COUNT_DIVISOR", 1)
	if divisor <= 0 {
		divisor = 1
	}
	res := getint("H3_RES", 8)
	if res < 0 || res > 15 {
		res = 8
	}

	return Config{
		Addr:       getenv("ADDR", ":8090"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogConsole: getbool("LOG_CONSOLE", false),
		LogSampleN: getint("LOG_SAMPLE_N", 0),
		Sources: Sources{
			Condos:   getenv("CONDOS_SRC", "data/Condos.geojson"),
			Amphoe:   getenv("AMPHOE_SRC", "data/Amphoe-4326.geojson"),
			Stations: getenv("STATIONS_SRC", "data/BTS_point_th.geojson"),
			Lines:    getenv("LINES_SRC", "data/BTS_lines.geojson"),
		},
		FetchTimeout:  getduration("FETCH_TIMEOUT", 30*time.Second),
		PageSize:      pageSize,
		CountDivisor:  divisor,
		RowZoom:       getfloat("ROW_ZOOM", 16),
		PointZoom:     getfloat("POINT_ZOOM", 15),
		H3Res:         res,
		ViewCacheSize: getint("VIEW_CACHE_SIZE", 256),
		SessionTTL:    getduration("SESSION_TTL", 30*time.Minute),
		PaletteFile:   getenv("PALETTE_FILE", ""),
		Redis: RedisCfg{
			Enabled:         getbool("REDIS_ENABLED", false),
			Addr:            getenv("REDIS_ADDR", "localhost:6379"),
			Namespace:       getenv("REDIS_NAMESPACE", "condomap"),
			DatasetCacheTTL: getduration("DATASET_CACHE_TTL", 10*time.Minute),
			OpTimeout:       getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		},
		Invalidation: InvalidationCfg{
			Enabled: getbool("INVALIDATION_ENABLED", false),
			Topic:   getenv("KAFKA_TOPIC", "dataset-reload"),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			GroupID: getenv("KAFKA_GROUP_ID", "condomap-reloader"),
		},
		Metrics: MetricsCfg{
			Enabled: getbool("METRICS_ENABLED", false),
			Addr:    getenv("METRICS_ADDR", ":9090"),
			Path:    getenv("METRICS_PATH", "/metrics"),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}
