package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// ErrTaskNotFound is returned when the addressed task does not exist in the caller's partition.
var ErrTaskNotFound = errors.New("task not found")

type tableAPI interface {
	NewListEntitiesPager(opts *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
	AddEntity(ctx context.Context, entity []byte, opts *aztables.AddEntityOptions) (aztables.AddEntityResponse, error)
	UpdateEntity(ctx context.Context, entity []byte, opts *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error)
	GetEntity(ctx context.Context, partitionKey, rowKey string, opts *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey, rowKey string, opts *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
}

// Storage is the remote data service: one table partition per user plus an
// optional queue receiving task change events.
type Storage struct {
	taskTable tableAPI
	events    queueAPI
	now       func() time.Time
}

// New creates a Storage instance from the given connection string. An empty
// eventsQueue disables event publication.
func New(connStr, tasksTable, eventsQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    30 * time.Second,
				RetryDelay:    500 * time.Millisecond,
				MaxRetryDelay: 5 * time.Second,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	s := &Storage{taskTable: svc.NewClient(tasksTable), now: time.Now}

	if eventsQueue != "" {
		queueClientOptions := azqueue.ClientOptions{
			ClientOptions: azcore.ClientOptions{
				Retry: policy.RetryOptions{
					MaxRetries:    5,
					TryTimeout:    time.Minute,
					RetryDelay:    time.Second,
					MaxRetryDelay: 30 * time.Second,
					StatusCodes:   []int{408, 429, 500, 502, 503, 504},
				},
			},
		}
		q, err := azqueue.NewQueueClientFromConnectionString(connStr, eventsQueue, &queueClientOptions)
		if err != nil {
			return nil, err
		}
		s.events = q
	}
	return s, nil
}

// FetchTasks returns every task in the user's partition, newest first.
func (s *Storage) FetchTasks(ctx context.Context, userID string) ([]TaskRecord, error) {
	filter := "PartitionKey eq '" + escapeFilterValue(userID) + "'"
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []TaskRecord{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			rec, err := decodeTaskEntity(raw)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, rec)
		}
	}
	sortNewestFirst(tasks)
	return tasks, nil
}

// GetTask reads a single task.
func (s *Storage) GetTask(ctx context.Context, userID, id string) (TaskRecord, error) {
	resp, err := s.taskTable.GetEntity(ctx, userID, id, nil)
	if err != nil {
		if isNotFound(err) {
			return TaskRecord{}, ErrTaskNotFound
		}
		return TaskRecord{}, err
	}
	return decodeTaskEntity(resp.Value)
}

// InsertTask stores a new task. The id and creation time are assigned here.
func (s *Storage) InsertTask(ctx context.Context, in NewTask) (TaskRecord, error) {
	ent := taskEntity{
		tableKeys:     tableKeys{PartitionKey: in.UserID, RowKey: uuid.NewString()},
		UserID:        in.UserID,
		Title:         in.Title,
		Priority:      in.Priority,
		CreatedAt:     s.now().UTC().Format(time.RFC3339Nano),
		CreatedAtType: EdmDateTime,
	}
	if in.Category != nil {
		ent.Category = *in.Category
	}
	payload, err := sonic.Marshal(ent)
	if err != nil {
		return TaskRecord{}, err
	}
	if _, err := s.taskTable.AddEntity(ctx, payload, nil); err != nil {
		return TaskRecord{}, err
	}
	return ent.record(), nil
}

// UpdateTask merges the supplied changes into an existing task and returns
// the stored result. Writes are unconditional, so the last writer wins.
func (s *Storage) UpdateTask(ctx context.Context, userID, id string, ch TaskChanges) (TaskRecord, error) {
	if !ch.empty() {
		upd := taskUpdate{
			tableKeys: tableKeys{PartitionKey: userID, RowKey: id},
			Title:     ch.Title,
			Completed: ch.Completed,
			Priority:  ch.Priority,
			Category:  ch.Category,
		}
		payload, err := sonic.Marshal(upd)
		if err != nil {
			return TaskRecord{}, err
		}
		et := azcore.ETagAny
		_, err = s.taskTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge})
		if err != nil {
			if isNotFound(err) {
				return TaskRecord{}, ErrTaskNotFound
			}
			return TaskRecord{}, err
		}
	}
	return s.GetTask(ctx, userID, id)
}

// DeleteTask removes a task. Deleting a task that is already gone succeeds.
func (s *Storage) DeleteTask(ctx context.Context, userID, id string) error {
	et := azcore.ETagAny
	_, err := s.taskTable.DeleteEntity(ctx, userID, id, &aztables.DeleteEntityOptions{IfMatch: &et})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func decodeTaskEntity(data []byte) (TaskRecord, error) {
	var ent taskEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return TaskRecord{}, fmt.Errorf("decode task entity: %w", err)
	}
	return ent.record(), nil
}

// sortNewestFirst orders by creation time descending. RFC3339Nano trims
// trailing zeros so values are compared parsed; unparseable ones sort last.
func sortNewestFirst(tasks []TaskRecord) {
	parsed := make(map[string]time.Time, len(tasks))
	for _, t := range tasks {
		if ts, err := time.Parse(time.RFC3339Nano, t.CreatedAt); err == nil {
			parsed[t.ID] = ts
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return parsed[tasks[i].ID].After(parsed[tasks[j].ID])
	})
}

func escapeFilterValue(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
