package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCacheHelper_WithoutClient(t *testing.T) {
	ctx := context.Background()
	var nilHelper *CacheHelper
	helpers := map[string]*CacheHelper{
		"nil helper": nilHelper,
		"nil client": NewCacheHelper(nil, "p:"),
	}

	for name, h := range helpers {
		t.Run(name, func(t *testing.T) {
			if h.Available() {
				t.Fatal("Available() = true")
			}
			if _, err := h.HashGet(ctx, "k", "f"); !errors.Is(err, ErrCacheNotAvailable) {
				t.Errorf("HashGet() error = %v", err)
			}
			if err := h.HashSetMany(ctx, "k", map[string]string{"f": "v"}, time.Minute); !errors.Is(err, ErrCacheNotAvailable) {
				t.Errorf("HashSetMany() error = %v", err)
			}
			if err := h.HealthCheck(ctx); !errors.Is(err, ErrCacheNotAvailable) {
				t.Errorf("HealthCheck() error = %v", err)
			}
		})
	}
}

func TestCacheHelper_Hashes(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	h := NewCacheHelper(client, LaunchCacheConfig.Prefix)

	if _, err := h.HashGet(ctx, "l1", "module"); !errors.Is(err, ErrCacheNotFound) {
		t.Fatalf("HashGet() on empty key error = %v", err)
	}

	if err := h.HashSetMany(ctx, "l1", map[string]string{"module": "grammar"}, time.Hour); err != nil {
		t.Fatalf("HashSetMany() error = %v", err)
	}
	SafeHashSetDefaults(ctx, h, "l1", map[string]string{"module": "reading", "launched_at": "now"}, LaunchCacheConfig)

	all, err := h.HashGetAll(ctx, "l1")
	if err != nil {
		t.Fatalf("HashGetAll() error = %v", err)
	}
	if all["module"] != "grammar" || all["launched_at"] != "now" {
		t.Errorf("hash = %v, defaults must not overwrite", all)
	}
	if ttl := mr.TTL("lms:launch:l1"); ttl != LaunchCacheConfig.TTL {
		t.Errorf("ttl = %v, want %v", ttl, LaunchCacheConfig.TTL)
	}
}
