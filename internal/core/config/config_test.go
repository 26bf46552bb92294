package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.Addr != ":8090" {
		t.Fatalf("Addr=%q want :8090", cfg.Addr)
	}
	if cfg.PageSize != 5 {
		t.Fatalf("PageSize=%d want 5", cfg.PageSize)
	}
	if cfg.CountDivisor != 1 {
		t.Fatalf("CountDivisor=%v want 1", cfg.CountDivisor)
	}
	if cfg.Sources.Amphoe != "data/Amphoe-4326.geojson" {
		t.Fatalf("Amphoe source=%q", cfg.Sources.Amphoe)
	}
	if cfg.Redis.Enabled || cfg.Invalidation.Enabled || cfg.Metrics.Enabled {
		t.Fatalf("optional integrations must default to disabled: %+v", cfg)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PAGE_SIZE", "10")
	t.Setenv("COUNT_DIVISOR", "2")
	t.Setenv("REDIS_ENABLED", "yes")
	t.Setenv("DATASET_CACHE_TTL", "90s")
	t.Setenv("CONDOS_SRC", "https://example.test/Condos.geojson")
	t.Setenv("H3_RES", "42")

	cfg := FromEnv()
	if cfg.PageSize != 10 {
		t.Fatalf("PageSize=%d want 10", cfg.PageSize)
	}
	if cfg.CountDivisor != 2 {
		t.Fatalf("CountDivisor=%v want 2", cfg.CountDivisor)
	}
	if !cfg.Redis.Enabled || cfg.Redis.DatasetCacheTTL != 90*time.Second {
		t.Fatalf("redis cfg=%+v", cfg.Redis)
	}
	if cfg.Sources.Condos != "https://example.test/Condos.geojson" {
		t.Fatalf("Condos source=%q", cfg.Sources.Condos)
	}
	if cfg.H3Res != 8 {
		t.Fatalf("out-of-range H3_RES must fall back to 8, got %d", cfg.H3Res)
	}
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("PAGE_SIZE", "-3")
	t.Setenv("COUNT_DIVISOR", "0")
	t.Setenv("SESSION_TTL", "soon")

	cfg := FromEnv()
	if cfg.PageSize != 5 || cfg.CountDivisor != 1 || cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("fallbacks not applied: page=%d div=%v ttl=%v", cfg.PageSize, cfg.CountDivisor, cfg.SessionTTL)
	}
}
