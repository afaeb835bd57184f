package storage

// EdmDateTime is the OData type annotation for timestamp properties.
const EdmDateTime = "Edm.DateTime"

// TaskRecord is a task as the remote service returns it. CreatedAt keeps the
// service's string representation.
type TaskRecord struct {
	ID        string
	UserID    string
	Title     string
	Completed bool
	Priority  string
	Category  *string
	CreatedAt string
}

// NewTask is the insert payload.
type NewTask struct {
	UserID   string
	Title    string
	Priority string
	Category *string
}

// TaskChanges is a merge payload. A Category pointing at "" clears the category.
type TaskChanges struct {
	Title     *string
	Completed *bool
	Priority  *string
	Category  *string
}

func (c TaskChanges) empty() bool {
	return c.Title == nil && c.Completed == nil && c.Priority == nil && c.Category == nil
}

type tableKeys struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

type taskEntity struct {
	tableKeys
	UserID        string `json:"UserID"`
	Title         string `json:"Title"`
	Completed     bool   `json:"Completed"`
	Priority      string `json:"Priority"`
	Category      string `json:"Category"`
	CreatedAt     string `json:"CreatedAt"`
	CreatedAtType string `json:"CreatedAt@odata.type,omitempty"`
}

type taskUpdate struct {
	tableKeys
	Title     *string `json:"Title,omitempty"`
	Completed *bool   `json:"Completed,omitempty"`
	Priority  *string `json:"Priority,omitempty"`
	Category  *string `json:"Category,omitempty"`
}

func (e taskEntity) record() TaskRecord {
	rec := TaskRecord{
		ID:        e.RowKey,
		UserID:    e.UserID,
		Title:     e.Title,
		Completed: e.Completed,
		Priority:  e.Priority,
		CreatedAt: e.CreatedAt,
	}
	if rec.UserID == "" {
		rec.UserID = e.PartitionKey
	}
	if e.Category != "" {
		c := e.Category
		rec.Category = &c
	}
	return rec
}
