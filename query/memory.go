package query

import (
	"context"
	"sync"
	"time"

	"taskhive/domain"
)

// MemoryCache is an in-process Cache for single-instance deployments.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	gens    map[string]uint64
	now     func() time.Time
}

type memoryEntry struct {
	tasks     []domain.Task
	expiresAt time.Time
}

// NewMemoryCache creates a cache whose entries never expire.
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheTTL(0)
}

// NewMemoryCacheTTL creates a cache whose entries expire after ttl. Zero means no expiry.
func NewMemoryCacheTTL(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, entries: map[string]memoryEntry{}, gens: map[string]uint64{}, now: time.Now}
}

func (m *MemoryCache) Load(_ context.Context, key string) ([]domain.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}
	return append([]domain.Task{}, e.tasks...), true
}

func (m *MemoryCache) Generation(_ context.Context, key string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[key], nil
}

func (m *MemoryCache) StoreIfCurrent(_ context.Context, key string, gen uint64, tasks []domain.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gens[key] != gen {
		return
	}
	e := memoryEntry{tasks: append([]domain.Task{}, tasks...)}
	if m.ttl > 0 {
		e.expiresAt = m.now().Add(m.ttl)
	}
	m.entries[key] = e
}

func (m *MemoryCache) Invalidate(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	m.gens[key]++
	return nil
}
