package datasetcache

import (
	"context"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/bkk-condo-map/internal/cache/keys"
	"github.com/mohammed-shakir/bkk-condo-map/internal/cache/redisstore"
)

func newMini(t *testing.T) (*redisstore.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	cli, err := redisstore.New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("redisstore.New: %v", err)
	}
	t.Cleanup(func() { _ = cli.Close() })

	return cli, mr
}

func TestRedisCache_RoundTripAndTTL(t *testing.T) {
	cli, mr := newMini(t)
	c := NewRedis(cli, 10*time.Minute)
	ctx := context.Background()

	body := []byte(`{"type":"FeatureCollection","features":[]}`)
	if err := c.Put(ctx, "amphoe", "data/Amphoe-4326.geojson", body, 0); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := c.Get(ctx, "amphoe", "data/Amphoe-4326.geojson")
	if err != nil || !ok || string(got) != string(body) {
		t.Fatalf("Get = %q ok=%v err=%v", got, ok, err)
	}

	key := cli.Key(keys.DatasetKey("amphoe", "data/Amphoe-4326.geojson"))
	raw, err := mr.Get(key)
	if err != nil || !strings.HasPrefix(raw, string(zstdMagic)) {
		t.Fatalf("stored entry should be zstd framed: %q err=%v", raw, err)
	}
	ttl := mr.TTL(key)
	if ttl <= 0 || ttl > 10*time.Minute {
		t.Fatalf("default ttl not applied: %v", ttl)
	}

	if _, ok, _ := c.Get(ctx, "amphoe", "other.geojson"); ok {
		t.Fatalf("different source must miss")
	}

	mr.FastForward(11 * time.Minute)
	if _, ok, _ := c.Get(ctx, "amphoe", "data/Amphoe-4326.geojson"); ok {
		t.Fatalf("entry should expire")
	}
}

func TestRedisCache_InvalidateAndEmptyBody(t *testing.T) {
	cli, _ := newMini(t)
	c := NewRedis(cli, time.Minute)
	ctx := context.Background()

	if err := c.Put(ctx, "lines", "l.geojson", nil, 0); err != nil {
		t.Fatalf("Put empty: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "lines", "l.geojson"); ok {
		t.Fatalf("empty bodies are not cached")
	}

	_ = c.Put(ctx, "lines", "l.geojson", []byte("x"), time.Minute)
	if err := c.Invalidate(ctx, "lines", "l.geojson"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "lines", "l.geojson"); ok {
		t.Fatalf("entry should be gone after Invalidate")
	}
}

func TestRedisCache_LargeBodyCompressesAndPlainEntriesStillRead(t *testing.T) {
	cli, mr := newMini(t)
	c := NewRedis(cli, time.Minute)
	ctx := context.Background()

	body := []byte(`{"type":"FeatureCollection","features":[` +
		strings.Repeat(`{"type":"Feature","geometry":{"type":"Point","coordinates":[100.5,13.7]},"properties":{"AMP_NAME_T":"จตุจักร"}},`, 200) +
		`{"type":"Feature","geometry":null,"properties":{}}]}`)
	if err := c.Put(ctx, "condos", "Condos.geojson", body, 0); err != nil {
		t.Fatalf("Put: %v", err)
	}
	raw, _ := mr.Get(cli.Key(keys.DatasetKey("condos", "Condos.geojson")))
	if len(raw) >= len(body)/2 {
		t.Fatalf("expected compression, stored %d of %d bytes", len(raw), len(body))
	}
	got, ok, err := c.Get(ctx, "condos", "Condos.geojson")
	if err != nil || !ok || string(got) != string(body) {
		t.Fatalf("round trip failed ok=%v err=%v", ok, err)
	}

	if err := cli.Set(ctx, keys.DatasetKey("amphoe", "a.geojson"), []byte(`{"type":"FeatureCollection"}`), time.Minute); err != nil {
		t.Fatalf("Set plain: %v", err)
	}
	got, ok, err = c.Get(ctx, "amphoe", "a.geojson")
	if err != nil || !ok || string(got) != `{"type":"FeatureCollection"}` {
		t.Fatalf("plain entry = %q ok=%v err=%v", got, ok, err)
	}
}

func TestRedisCache_CorruptEntryIsAnError(t *testing.T) {
	cli, _ := newMini(t)
	c := NewRedis(cli, time.Minute)
	ctx := context.Background()

	bad := append(append([]byte{}, zstdMagic...), 0xff, 0x00, 0x13)
	if err := cli.Set(ctx, keys.DatasetKey("lines", "l.geojson"), bad, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, err := c.Get(ctx, "lines", "l.geojson"); err == nil || ok {
		t.Fatalf("corrupt entry should fail, ok=%v err=%v", ok, err)
	}
}
