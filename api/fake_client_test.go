package api

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"taskhive/domain"
	"taskhive/session"
)

const testSecret = "test-secret"

// fakeClient is an in-memory TaskClient that enforces sessions like the access layer does.
type fakeClient struct {
	mu          sync.Mutex
	tasks       []domain.Task
	listErr     error
	writeErr    error
	seq         int
	listCalls   int
	createCalls int
	updates     []domain.Patch
	updateIDs   []string
	deletes     []string
}

func (f *fakeClient) Tasks(ctx context.Context) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	if _, ok := session.UserID(ctx); !ok {
		return []domain.Task{}, nil
	}
	return append([]domain.Task{}, f.tasks...), nil
}

func (f *fakeClient) Create(ctx context.Context, title string, priority domain.Priority, category *string) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if _, ok := session.UserID(ctx); !ok {
		return domain.Task{}, domain.ErrNotAuthenticated
	}
	if f.writeErr != nil {
		return domain.Task{}, f.writeErr
	}
	f.seq++
	t := domain.Task{
		ID:        "new" + strconv.Itoa(f.seq),
		Title:     title,
		Priority:  priority,
		Category:  category,
		CreatedAt: time.Date(2024, 6, 1, 0, 0, f.seq, 0, time.UTC),
	}
	f.tasks = append([]domain.Task{t}, f.tasks...)
	return t, nil
}

func (f *fakeClient) Update(ctx context.Context, id string, patch domain.Patch) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, patch)
	f.updateIDs = append(f.updateIDs, id)
	if _, ok := session.UserID(ctx); !ok {
		return domain.Task{}, domain.ErrNotAuthenticated
	}
	if f.writeErr != nil {
		return domain.Task{}, f.writeErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID != id {
			continue
		}
		if patch.Completed != nil {
			f.tasks[i].Completed = *patch.Completed
		}
		if patch.Title != nil {
			f.tasks[i].Title = *patch.Title
		}
		if patch.Priority != nil {
			f.tasks[i].Priority = *patch.Priority
		}
		if patch.Category.Set {
			f.tasks[i].Category = patch.Category.Value
		}
		return f.tasks[i], nil
	}
	return domain.Task{}, &domain.RemoteError{Op: "update task"}
}

func (f *fakeClient) Delete(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	if _, ok := session.UserID(ctx); !ok {
		return false, domain.ErrNotAuthenticated
	}
	if f.writeErr != nil {
		return false, f.writeErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i:i], f.tasks[i+1:]...)
			break
		}
	}
	return true, nil
}

func strPtr(s string) *string { return &s }

func seededTasks() []domain.Task {
	return []domain.Task{
		{ID: "t3", Title: "Plan sprint", Priority: domain.PriorityMedium, Category: strPtr("work")},
		{ID: "t2", Title: "Pay rent", Priority: domain.PriorityHigh, Completed: true, Category: strPtr("errands")},
		{ID: "t1", Title: "Call mom", Priority: domain.PriorityLow},
	}
}

func signToken(t *testing.T, sub string, ttl time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(ttl).Unix(),
		"iat": time.Now().Add(-time.Minute).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func testAuth() *Auth {
	return NewAuth(AuthConfig{SharedSecret: []byte(testSecret)})
}
