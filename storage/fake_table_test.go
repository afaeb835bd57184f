package storage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
)

// fakeTable is an in-memory stand-in for a single Azure table.
type fakeTable struct {
	mu       sync.Mutex
	rows     map[string]map[string]any
	order    []string
	filters  []string
	failList error
}

func newFakeTable() *fakeTable {
	return &fakeTable{rows: map[string]map[string]any{}}
}

func rowID(pk, rk string) string { return pk + "\x00" + rk }

func respErr(status int, code string) error {
	return &azcore.ResponseError{StatusCode: status, ErrorCode: code}
}

func (f *fakeTable) NewListEntitiesPager(opts *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse] {
	f.mu.Lock()
	filter := ""
	if opts != nil && opts.Filter != nil {
		filter = *opts.Filter
	}
	f.filters = append(f.filters, filter)
	pk := strings.TrimSuffix(strings.TrimPrefix(filter, "PartitionKey eq '"), "'")
	pk = strings.ReplaceAll(pk, "''", "'")
	var entities [][]byte
	for _, id := range f.order {
		row, ok := f.rows[id]
		if !ok || row["PartitionKey"] != pk {
			continue
		}
		data, _ := json.Marshal(row)
		entities = append(entities, data)
	}
	failList := f.failList
	f.mu.Unlock()

	// one entity per page so callers have to follow continuation
	return runtime.NewPager(runtime.PagingHandler[aztables.ListEntitiesResponse]{
		More: func(resp aztables.ListEntitiesResponse) bool {
			return resp.NextRowKey != nil
		},
		Fetcher: func(ctx context.Context, cur *aztables.ListEntitiesResponse) (aztables.ListEntitiesResponse, error) {
			if failList != nil {
				return aztables.ListEntitiesResponse{}, failList
			}
			idx := 0
			if cur != nil && cur.NextRowKey != nil {
				idx, _ = strconv.Atoi(*cur.NextRowKey)
			}
			resp := aztables.ListEntitiesResponse{}
			if idx < len(entities) {
				resp.Entities = [][]byte{entities[idx]}
			}
			if idx+1 < len(entities) {
				next := strconv.Itoa(idx + 1)
				resp.NextRowKey = &next
			}
			return resp, nil
		},
	})
}

func (f *fakeTable) AddEntity(ctx context.Context, entity []byte, opts *aztables.AddEntityOptions) (aztables.AddEntityResponse, error) {
	row := map[string]any{}
	if err := json.Unmarshal(entity, &row); err != nil {
		return aztables.AddEntityResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := rowID(row["PartitionKey"].(string), row["RowKey"].(string))
	if _, ok := f.rows[id]; ok {
		return aztables.AddEntityResponse{}, respErr(http.StatusConflict, "EntityAlreadyExists")
	}
	f.rows[id] = row
	f.order = append(f.order, id)
	return aztables.AddEntityResponse{Value: entity}, nil
}

func (f *fakeTable) UpdateEntity(ctx context.Context, entity []byte, opts *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error) {
	if opts == nil || opts.UpdateMode != aztables.UpdateModeMerge {
		return aztables.UpdateEntityResponse{}, errors.New("expected merge update")
	}
	patch := map[string]any{}
	if err := json.Unmarshal(entity, &patch); err != nil {
		return aztables.UpdateEntityResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[rowID(patch["PartitionKey"].(string), patch["RowKey"].(string))]
	if !ok {
		return aztables.UpdateEntityResponse{}, respErr(http.StatusNotFound, "ResourceNotFound")
	}
	for k, v := range patch {
		row[k] = v
	}
	return aztables.UpdateEntityResponse{}, nil
}

func (f *fakeTable) GetEntity(ctx context.Context, partitionKey, rowKey string, opts *aztables.GetEntityOptions) (aztables.GetEntityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[rowID(partitionKey, rowKey)]
	if !ok {
		return aztables.GetEntityResponse{}, respErr(http.StatusNotFound, "ResourceNotFound")
	}
	data, err := json.Marshal(row)
	if err != nil {
		return aztables.GetEntityResponse{}, err
	}
	return aztables.GetEntityResponse{Value: data}, nil
}

func (f *fakeTable) DeleteEntity(ctx context.Context, partitionKey, rowKey string, opts *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := rowID(partitionKey, rowKey)
	if _, ok := f.rows[id]; !ok {
		return aztables.DeleteEntityResponse{}, respErr(http.StatusNotFound, "ResourceNotFound")
	}
	delete(f.rows, id)
	return aztables.DeleteEntityResponse{}, nil
}
