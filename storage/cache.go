package storage

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"taskhive/domain"
)

// Cache keeps each user's task list in Redis. Redis failures degrade to a
// miss; they never fail the caller.
type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a Redis-backed task list cache with the given TTL.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{redis: client, ttl: ttl}
}

// Load returns the cached list stored under key.
func (c *Cache) Load(ctx context.Context, key string) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the remote service without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	return tasks, true
}

// Generation returns the invalidation counter kept next to key.
func (c *Cache) Generation(ctx context.Context, key string) (uint64, error) {
	if c.redis == nil {
		return 0, nil
	}
	gen, err := c.redis.Get(ctx, generationKey(key)).Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

// StoreIfCurrent caches tasks under key unless the generation moved past gen.
// The check and the write run in one WATCH transaction so an Invalidate from
// another instance cannot slip in between. A zero TTL disables storing.
func (c *Cache) StoreIfCurrent(ctx context.Context, key string, gen uint64, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(tasks)
	if err != nil {
		return
	}
	genKey := generationKey(key)
	_ = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Uint64()
		if err != nil && err != redis.Nil {
			return err
		}
		if cur != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}, genKey)
}

// Invalidate drops the entry under key and bumps its generation.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if c.redis == nil {
		return nil
	}
	_, err := c.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, generationKey(key))
		p.Del(ctx, key)
		return nil
	})
	return err
}

var errStaleGeneration = errors.New("task cache generation changed")

func generationKey(key string) string { return key + ":gen" }
