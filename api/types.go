package api

import (
	"context"

	"taskhive/domain"
)

// TaskClient is the cached query and mutation layer used by handlers.
type TaskClient interface {
	Tasks(ctx context.Context) ([]domain.Task, error)
	Create(ctx context.Context, title string, priority domain.Priority, category *string) (domain.Task, error)
	Update(ctx context.Context, id string, patch domain.Patch) (domain.Task, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Authenticator is implemented by types able to turn a session token into a user id.
type Authenticator interface {
	UserIDFromToken(token string) (string, error)
}

type errorResponse struct {
	Error string `json:"error"`
}

type tasksResponse struct {
	Tasks      []domain.Task `json:"tasks"`
	Categories []string      `json:"categories"`
	Total      int           `json:"total"`
}

type createTaskRequest struct {
	Title    string  `json:"title"`
	Priority string  `json:"priority"`
	Category *string `json:"category"`
}

type mutationResponse struct {
	Task    *domain.Task  `json:"task,omitempty"`
	Deleted bool          `json:"deleted,omitempty"`
	Tasks   []domain.Task `json:"tasks"`
}
