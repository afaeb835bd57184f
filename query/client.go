// Package query holds the cached task list and routes writes through it.
//
// Reads are served from a per-user entry under the logical key "tasks".
// Writes go straight to the access layer; once a write has completed
// successfully the entry is dropped so the next read fetches fresh data.
// A failed write leaves the entry untouched.
//
// Every invalidation bumps the entry's generation. A read records the
// generation before asking the access layer and only stores its result if
// no write has invalidated the entry in the meantime, so a list fetched
// before a write can never be cached after it.
package query

import (
	"context"

	log "github.com/sirupsen/logrus"

	"taskhive/domain"
	"taskhive/session"
)

// TasksKey is the logical cache key for the task list.
const TasksKey = "tasks"

// Access is the task access layer.
type Access interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	CreateTask(ctx context.Context, title string, priority domain.Priority, category *string) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, patch domain.Patch) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) (bool, error)
}

// Cache stores task lists by key.
type Cache interface {
	Load(ctx context.Context, key string) ([]domain.Task, bool)
	// Generation returns the number of invalidations seen for key.
	Generation(ctx context.Context, key string) (uint64, error)
	// StoreIfCurrent stores tasks unless key was invalidated after gen was read.
	StoreIfCurrent(ctx context.Context, key string, gen uint64, tasks []domain.Task)
	// Invalidate drops the entry and bumps its generation.
	Invalidate(ctx context.Context, key string) error
}

// Client is the query cache and mutation layer.
type Client struct {
	access Access
	cache  Cache
	log    *log.Logger
}

// NewClient creates a Client. A nil cache selects an in-process MemoryCache.
func NewClient(access Access, cache Cache, logger *log.Logger) *Client {
	if access == nil {
		panic("query.NewClient: access is nil")
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Client{access: access, cache: cache, log: logger}
}

// CacheKey returns the cache entry for the session user. Anonymous callers have none.
func CacheKey(ctx context.Context) (string, bool) {
	userID, ok := session.UserID(ctx)
	if !ok {
		return "", false
	}
	return TasksKey + ":" + userID, true
}

// Tasks returns the cached task list, fetching it on a miss. Failed reads
// are not cached.
func (c *Client) Tasks(ctx context.Context) ([]domain.Task, error) {
	key, cacheable := CacheKey(ctx)
	var gen uint64
	if cacheable {
		if tasks, ok := c.cache.Load(ctx, key); ok {
			return tasks, nil
		}
		var err error
		if gen, err = c.cache.Generation(ctx, key); err != nil {
			c.log.WithError(err).WithField("key", key).Warn("read task cache generation failed")
			cacheable = false
		}
	}
	tasks, err := c.access.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	if cacheable {
		c.cache.StoreIfCurrent(ctx, key, gen, tasks)
	}
	return tasks, nil
}

// Create adds a task and invalidates the list once the write has completed.
func (c *Client) Create(ctx context.Context, title string, priority domain.Priority, category *string) (domain.Task, error) {
	task, err := c.access.CreateTask(ctx, title, priority, category)
	if err != nil {
		return domain.Task{}, err
	}
	c.invalidate(ctx)
	return task, nil
}

// Update applies a partial update and invalidates the list once it has completed.
func (c *Client) Update(ctx context.Context, id string, patch domain.Patch) (domain.Task, error) {
	task, err := c.access.UpdateTask(ctx, id, patch)
	if err != nil {
		return domain.Task{}, err
	}
	c.invalidate(ctx)
	return task, nil
}

// Delete removes a task and invalidates the list once it has completed.
func (c *Client) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := c.access.DeleteTask(ctx, id)
	if err != nil {
		return false, err
	}
	c.invalidate(ctx)
	return ok, nil
}

func (c *Client) invalidate(ctx context.Context) {
	key, ok := CacheKey(ctx)
	if !ok {
		return
	}
	if err := c.cache.Invalidate(ctx, key); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("invalidate task cache failed")
	}
}
