package storage

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"taskhive/domain"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCacheStoreThenLoad(t *testing.T) {
	mr, client := newTestRedis(t)
	cache := NewCache(client, time.Minute)
	ctx := context.Background()

	category := "errands"
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	expected := []domain.Task{{ID: "t1", Title: "Buy milk", Priority: domain.PriorityHigh, Category: &category, CreatedAt: created}}

	if _, ok := cache.Load(ctx, "tasks:u1"); ok {
		t.Fatalf("expected miss on empty cache")
	}
	cache.StoreIfCurrent(ctx, "tasks:u1", 0, expected)

	got, ok := cache.Load(ctx, "tasks:u1")
	if !ok {
		t.Fatalf("expected hit")
	}
	if len(got) != 1 || got[0].ID != "t1" || got[0].Category == nil || *got[0].Category != category || !got[0].CreatedAt.Equal(created) {
		t.Fatalf("unexpected tasks: %#v", got)
	}
	if ttl := mr.TTL("tasks:u1"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}
}

func TestCacheInvalidate(t *testing.T) {
	mr, client := newTestRedis(t)
	cache := NewCache(client, time.Minute)
	ctx := context.Background()

	cache.StoreIfCurrent(ctx, "tasks:u1", 0, []domain.Task{{ID: "t1"}})
	if err := cache.Invalidate(ctx, "tasks:u1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("tasks:u1") {
		t.Fatalf("expected key to be removed")
	}
	if _, ok := cache.Load(ctx, "tasks:u1"); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestCacheDropsCorruptEntries(t *testing.T) {
	mr, client := newTestRedis(t)
	cache := NewCache(client, time.Minute)

	if err := mr.Set("tasks:u1", "not-json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, ok := cache.Load(context.Background(), "tasks:u1"); ok {
		t.Fatalf("expected miss for corrupt entry")
	}
	if mr.Exists("tasks:u1") {
		t.Fatalf("expected corrupt entry to be deleted")
	}
}

func TestCacheZeroTTLSkipsStore(t *testing.T) {
	mr, client := newTestRedis(t)
	cache := NewCache(client, 0)

	cache.StoreIfCurrent(context.Background(), "tasks:u1", 0, []domain.Task{{ID: "t1"}})
	if mr.Exists("tasks:u1") {
		t.Fatalf("expected nothing stored with zero TTL")
	}
}

func TestCacheRedisDownIsAMiss(t *testing.T) {
	mr, client := newTestRedis(t)
	cache := NewCache(client, time.Minute)
	mr.Close()

	if _, ok := cache.Load(context.Background(), "tasks:u1"); ok {
		t.Fatalf("expected miss when redis is unavailable")
	}
	cache.StoreIfCurrent(context.Background(), "tasks:u1", 0, []domain.Task{{ID: "t1"}})
}

func TestCacheWithoutClient(t *testing.T) {
	cache := NewCache(nil, time.Minute)
	ctx := context.Background()
	cache.StoreIfCurrent(ctx, "tasks:u1", 0, []domain.Task{{ID: "t1"}})
	if _, ok := cache.Load(ctx, "tasks:u1"); ok {
		t.Fatalf("expected miss without redis")
	}
	if err := cache.Invalidate(ctx, "tasks:u1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
}

func TestCacheSkipsStoreAfterInvalidate(t *testing.T) {
	mr, client := newTestRedis(t)
	cache := NewCache(client, time.Minute)
	ctx := context.Background()

	gen, err := cache.Generation(ctx, "tasks:u1")
	if err != nil || gen != 0 {
		t.Fatalf("unexpected initial generation %d %v", gen, err)
	}
	if err := cache.Invalidate(ctx, "tasks:u1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	cache.StoreIfCurrent(ctx, "tasks:u1", gen, []domain.Task{{ID: "stale"}})
	if mr.Exists("tasks:u1") {
		t.Fatalf("list read before the invalidation must not be stored")
	}

	gen, err = cache.Generation(ctx, "tasks:u1")
	if err != nil || gen != 1 {
		t.Fatalf("expected generation 1, got %d %v", gen, err)
	}
	cache.StoreIfCurrent(ctx, "tasks:u1", gen, []domain.Task{{ID: "fresh"}})
	got, ok := cache.Load(ctx, "tasks:u1")
	if !ok || len(got) != 1 || got[0].ID != "fresh" {
		t.Fatalf("expected fresh list, got %v %v", got, ok)
	}
}
