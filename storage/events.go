package storage

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

type queueAPI interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
}

// Task event types.
const (
	EventTaskCreated = "task-created"
	EventTaskUpdated = "task-updated"
	EventTaskDeleted = "task-deleted"
)

// TaskEvent notifies downstream consumers that a task changed.
type TaskEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	UserID    string `json:"userId"`
	TaskID    string `json:"taskId"`
	Timestamp int64  `json:"timestamp"`
}

// NewTaskEvent stamps an event with a fresh id and the current time.
func NewTaskEvent(typ, userID, taskID string) TaskEvent {
	return TaskEvent{
		ID:        uuid.NewString(),
		Type:      typ,
		UserID:    userID,
		TaskID:    taskID,
		Timestamp: time.Now().UnixNano(),
	}
}

// PublishEvent enqueues ev on the events queue. It is a no-op when no queue is configured.
func (s *Storage) PublishEvent(ctx context.Context, ev TaskEvent) error {
	if s.events == nil {
		return nil
	}
	data, err := sonic.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = s.events.EnqueueMessage(ctx, string(data), nil)
	return err
}
