package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := NewRedisCache("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	t.Cleanup(func() { rc.Close() })
	return rc, mr
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	rc, mr := newTestCache(t)
	ctx := context.Background()

	if err := rc.Set(ctx, "espn:summary:1", `{"ok":true}`, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !mr.Exists("hoopsdaily:espn:summary:1") {
		t.Error("key not namespaced")
	}

	got, err := rc.Get(ctx, "espn:summary:1")
	if err != nil || got != `{"ok":true}` {
		t.Errorf("Get = %q, %v", got, err)
	}

	if err := rc.Delete(ctx, "espn:summary:1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := rc.Get(ctx, "espn:summary:1"); !errors.Is(err, ErrMiss) {
		t.Errorf("err = %v, want ErrMiss", err)
	}
}

func TestRedisCache_TTLExpires(t *testing.T) {
	rc, mr := newTestCache(t)
	ctx := context.Background()

	if err := rc.Set(ctx, "k", "v", time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	mr.FastForward(2 * time.Second)

	if _, err := rc.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Errorf("err = %v, want ErrMiss after expiry", err)
	}
}

func TestRedisCache_HealthCheck(t *testing.T) {
	rc, mr := newTestCache(t)
	if err := rc.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	mr.Close()
	if err := rc.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck succeeded against a stopped server")
	}
}

func TestNewRedisCache_BadURL(t *testing.T) {
	if _, err := NewRedisCache("not-a-url"); err == nil {
		t.Error("expected error for malformed URL")
	}
}
