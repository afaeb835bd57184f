// Package tasks is the access layer between the application and the remote
// data service. It resolves the session user, converts remote records into
// domain tasks and reports every remote failure as a *domain.RemoteError.
package tasks

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"taskhive/domain"
	"taskhive/session"
	"taskhive/storage"
)

// Backend is the remote data service.
type Backend interface {
	FetchTasks(ctx context.Context, userID string) ([]storage.TaskRecord, error)
	InsertTask(ctx context.Context, in storage.NewTask) (storage.TaskRecord, error)
	UpdateTask(ctx context.Context, userID, id string, ch storage.TaskChanges) (storage.TaskRecord, error)
	DeleteTask(ctx context.Context, userID, id string) error
}

// Publisher receives change notifications after successful writes.
type Publisher interface {
	PublishEvent(ctx context.Context, ev storage.TaskEvent) error
}

// Service implements the task operations for the current session user.
type Service struct {
	backend Backend
	events  Publisher
	log     *log.Logger
	tracer  trace.Tracer
}

// New creates a Service. events may be nil.
func New(backend Backend, events Publisher, logger *log.Logger) *Service {
	if backend == nil {
		panic("tasks.New: backend is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Service{
		backend: backend,
		events:  events,
		log:     logger,
		tracer:  otel.Tracer("taskhive/tasks"),
	}
}

// ListTasks returns the user's tasks newest first. Without a session the
// list is empty since the remote service only exposes the caller's own rows.
func (s *Service) ListTasks(ctx context.Context) (tasks []domain.Task, err error) {
	ctx, span := s.tracer.Start(ctx, "tasks.list")
	defer func() { endSpan(span, err) }()

	userID, ok := session.UserID(ctx)
	if !ok {
		return []domain.Task{}, nil
	}
	span.SetAttributes(attribute.String("user.id", userID))

	recs, err := s.backend.FetchTasks(ctx, userID)
	if err != nil {
		return nil, s.remoteError("fetch tasks", userID, err)
	}
	tasks = make([]domain.Task, 0, len(recs))
	for _, rec := range recs {
		t, err := toTask(rec)
		if err != nil {
			return nil, s.remoteError("fetch tasks", userID, err)
		}
		tasks = append(tasks, t)
	}
	span.SetAttributes(attribute.Int("tasks.count", len(tasks)))
	return tasks, nil
}

// CreateTask stores a new task owned by the session user. An empty priority
// defaults to medium and a nil category is stored as absent.
func (s *Service) CreateTask(ctx context.Context, title string, priority domain.Priority, category *string) (task domain.Task, err error) {
	ctx, span := s.tracer.Start(ctx, "tasks.create")
	defer func() { endSpan(span, err) }()

	userID, ok := session.UserID(ctx)
	if !ok {
		return domain.Task{}, domain.ErrNotAuthenticated
	}
	if priority == "" {
		priority = domain.DefaultPriority
	}
	if !priority.Valid() {
		return domain.Task{}, &domain.ValidationError{Field: "priority", Msg: "unknown priority " + string(priority)}
	}

	rec, err := s.backend.InsertTask(ctx, storage.NewTask{
		UserID:   userID,
		Title:    title,
		Priority: string(priority),
		Category: domain.NormalizeCategoryPtr(category),
	})
	if err != nil {
		return domain.Task{}, s.remoteError("insert task", userID, err)
	}
	task, err = toTask(rec)
	if err != nil {
		return domain.Task{}, s.remoteError("insert task", userID, err)
	}
	span.SetAttributes(attribute.String("task.id", task.ID))
	s.publish(ctx, storage.EventTaskCreated, userID, task.ID)
	return task, nil
}

// UpdateTask applies the supplied fields and returns the full updated task.
func (s *Service) UpdateTask(ctx context.Context, id string, patch domain.Patch) (task domain.Task, err error) {
	ctx, span := s.tracer.Start(ctx, "tasks.update", trace.WithAttributes(attribute.String("task.id", id)))
	defer func() { endSpan(span, err) }()

	userID, ok := session.UserID(ctx)
	if !ok {
		return domain.Task{}, domain.ErrNotAuthenticated
	}
	ch, err := toChanges(patch)
	if err != nil {
		return domain.Task{}, err
	}

	rec, err := s.backend.UpdateTask(ctx, userID, id, ch)
	if err != nil {
		return domain.Task{}, s.remoteError("update task", userID, err)
	}
	task, err = toTask(rec)
	if err != nil {
		return domain.Task{}, s.remoteError("update task", userID, err)
	}
	s.publish(ctx, storage.EventTaskUpdated, userID, id)
	return task, nil
}

// DeleteTask removes the task and reports true on success.
func (s *Service) DeleteTask(ctx context.Context, id string) (deleted bool, err error) {
	ctx, span := s.tracer.Start(ctx, "tasks.delete", trace.WithAttributes(attribute.String("task.id", id)))
	defer func() { endSpan(span, err) }()

	userID, ok := session.UserID(ctx)
	if !ok {
		return false, domain.ErrNotAuthenticated
	}
	if err := s.backend.DeleteTask(ctx, userID, id); err != nil {
		return false, s.remoteError("delete task", userID, err)
	}
	s.publish(ctx, storage.EventTaskDeleted, userID, id)
	return true, nil
}

func (s *Service) remoteError(op, userID string, err error) error {
	s.log.WithError(err).WithFields(log.Fields{"op": op, "user_id": userID}).Error("error " + op)
	return &domain.RemoteError{Op: op, Err: err}
}

func (s *Service) publish(ctx context.Context, typ, userID, taskID string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, storage.NewTaskEvent(typ, userID, taskID)); err != nil {
		s.log.WithError(err).WithFields(log.Fields{"event": typ, "task_id": taskID}).Warn("publish task event failed")
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// toTask coerces a remote record into a domain task.
func toTask(rec storage.TaskRecord) (domain.Task, error) {
	created, err := parseCreatedAt(rec.CreatedAt)
	if err != nil {
		return domain.Task{}, err
	}
	p := domain.Priority(rec.Priority)
	if !p.Valid() {
		p = domain.DefaultPriority
	}
	return domain.Task{
		ID:        rec.ID,
		Title:     rec.Title,
		Completed: rec.Completed,
		CreatedAt: created,
		Priority:  p,
		Category:  domain.NormalizeCategoryPtr(rec.Category),
	}, nil
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
}

func parseCreatedAt(raw string) (time.Time, error) {
	for _, layout := range createdAtLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid created_at %q", raw)
}

func toChanges(p domain.Patch) (storage.TaskChanges, error) {
	ch := storage.TaskChanges{Title: p.Title, Completed: p.Completed}
	if p.Priority != nil {
		if !p.Priority.Valid() {
			return storage.TaskChanges{}, &domain.ValidationError{Field: "priority", Msg: "unknown priority " + string(*p.Priority)}
		}
		v := string(*p.Priority)
		ch.Priority = &v
	}
	if p.Category.Set {
		v := ""
		if c := domain.NormalizeCategoryPtr(p.Category.Value); c != nil {
			v = *c
		}
		ch.Category = &v
	}
	return ch, nil
}
