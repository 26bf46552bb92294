package redisstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func newMini(t *testing.T, opts ...Option) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	rc, err := New(ctx, mr.Addr(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestNew_RequiresAddr(t *testing.T) {
	if _, err := New(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty address")
	}
}

func TestNew_UnreachableServer(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := New(ctx, addr, WithDialTimeout(200*time.Millisecond)); err == nil {
		t.Fatalf("expected ping error for a closed server")
	}
}

func TestSetGetDel_Namespaced(t *testing.T) {
	rc, mr := newMini(t, WithNamespace("bkk"))
	ctx := context.Background()

	if err := rc.Set(ctx, "ds:condos", []byte("fc"), 5*time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !mr.Exists("bkk:ds:condos") || mr.Exists("ds:condos") {
		t.Fatalf("key not namespaced: %v", mr.Keys())
	}
	if rc.Key("x") != "bkk:x" {
		t.Fatalf("Key = %q", rc.Key("x"))
	}

	v, ok, err := rc.Get(ctx, "ds:condos")
	if err != nil || !ok || string(v) != "fc" {
		t.Fatalf("Get = %q ok=%v err=%v", v, ok, err)
	}
	if _, ok, err := rc.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get missing ok=%v err=%v", ok, err)
	}

	if err := rc.Del(ctx, "ds:condos", "missing"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, ok, _ := rc.Get(ctx, "ds:condos"); ok {
		t.Fatalf("key should be gone after Del")
	}
	if err := rc.Del(ctx); err != nil {
		t.Fatalf("Del without keys: %v", err)
	}
}

func TestTTLAndExpiry(t *testing.T) {
	rc, mr := newMini(t)
	ctx := context.Background()

	if err := rc.Set(ctx, "ds:amphoe", []byte("v"), 2*time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if d, err := rc.TTL(ctx, "ds:amphoe"); err != nil || d <= 0 || d > 2*time.Second {
		t.Fatalf("TTL = %v err=%v", d, err)
	}

	mr.FastForward(3 * time.Second)

	if _, ok, err := rc.Get(ctx, "ds:amphoe"); err != nil || ok {
		t.Fatalf("expected expiry; ok=%v err=%v", ok, err)
	}
	if d, err := rc.TTL(ctx, "ds:amphoe"); err != nil || d != 0 {
		t.Fatalf("TTL of missing key = %v err=%v", d, err)
	}
}

func TestContextCanceled_IsRespected(t *testing.T) {
	rc, _ := newMini(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rc.Set(ctx, "k", []byte("v"), time.Second); err == nil {
		t.Fatalf("expected error on Set with canceled context")
	}
	if _, _, err := rc.Get(ctx, "k"); err == nil {
		t.Fatalf("expected error on Get with canceled context")
	}
	if err := rc.Del(ctx, "k"); err == nil {
		t.Fatalf("expected error on Del with canceled context")
	}
}

func TestMetrics_Incremented(t *testing.T) {
	rc, _ := newMini(t)
	ctx := context.Background()

	_ = rc.Set(ctx, "m1", []byte("x"), time.Minute)
	_, _, _ = rc.Get(ctx, "m1")
	_, _, _ = rc.Get(ctx, "m2")
	_ = rc.Del(ctx, "m1")

	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	for _, want := range []string{
		`redis_cache_ops_total{op="set",result="ok"}`,
		`redis_cache_ops_total{op="get",result="hit"}`,
		`redis_cache_ops_total{op="get",result="miss"}`,
		`redis_cache_op_duration_seconds_bucket{op="del"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %s; got:\n%s", want, body)
		}
	}
}
