package tasks

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"taskhive/storage"
)

// memBackend is an in-memory remote data service.
type memBackend struct {
	mu      sync.Mutex
	rows    map[string][]storage.TaskRecord
	seq     int
	base    time.Time
	calls   int
	failAll error
}

func newMemBackend() *memBackend {
	return &memBackend{
		rows: map[string][]storage.TaskRecord{},
		base: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memBackend) FetchTasks(ctx context.Context, userID string) ([]storage.TaskRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failAll != nil {
		return nil, m.failAll
	}
	rows := m.rows[userID]
	out := make([]storage.TaskRecord, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, rows[i])
	}
	return out, nil
}

func (m *memBackend) InsertTask(ctx context.Context, in storage.NewTask) (storage.TaskRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failAll != nil {
		return storage.TaskRecord{}, m.failAll
	}
	m.seq++
	rec := storage.TaskRecord{
		ID:        "t" + strconv.Itoa(m.seq),
		UserID:    in.UserID,
		Title:     in.Title,
		Priority:  in.Priority,
		Category:  in.Category,
		CreatedAt: m.base.Add(time.Duration(m.seq) * time.Second).Format(time.RFC3339Nano),
	}
	m.rows[in.UserID] = append(m.rows[in.UserID], rec)
	return rec, nil
}

func (m *memBackend) UpdateTask(ctx context.Context, userID, id string, ch storage.TaskChanges) (storage.TaskRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failAll != nil {
		return storage.TaskRecord{}, m.failAll
	}
	for i, rec := range m.rows[userID] {
		if rec.ID != id {
			continue
		}
		if ch.Title != nil {
			rec.Title = *ch.Title
		}
		if ch.Completed != nil {
			rec.Completed = *ch.Completed
		}
		if ch.Priority != nil {
			rec.Priority = *ch.Priority
		}
		if ch.Category != nil {
			if *ch.Category == "" {
				rec.Category = nil
			} else {
				c := *ch.Category
				rec.Category = &c
			}
		}
		m.rows[userID][i] = rec
		return rec, nil
	}
	return storage.TaskRecord{}, storage.ErrTaskNotFound
}

func (m *memBackend) DeleteTask(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failAll != nil {
		return m.failAll
	}
	rows := m.rows[userID]
	for i, rec := range rows {
		if rec.ID == id {
			m.rows[userID] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memBackend) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []storage.TaskEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, ev storage.TaskEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

var errServiceDown = errors.New("service unavailable")
