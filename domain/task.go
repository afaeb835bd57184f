package domain

import (
	"strings"
	"time"
)

// Priority is the urgency tier of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// DefaultPriority is applied when a task is created without one.
const DefaultPriority = PriorityMedium

// Valid reports whether p is one of the known tiers.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority maps user input onto a Priority. Blank input yields the default.
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultPriority, nil
	}
	p := Priority(s)
	if !p.Valid() {
		return "", &ValidationError{Field: "priority", Msg: "unknown priority " + s}
	}
	return p, nil
}

// Task is a single to-do item owned by one user.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	Priority  Priority  `json:"priority"`
	Category  *string   `json:"category"`
}

// HasCategory reports whether the task carries a category.
func (t Task) HasCategory() bool {
	return t.Category != nil && *t.Category != ""
}

// Patch carries a partial update. Nil fields are left untouched.
type Patch struct {
	Completed *bool          `json:"completed,omitempty"`
	Title     *string        `json:"title,omitempty"`
	Priority  *Priority      `json:"priority,omitempty"`
	Category  CategoryChange `json:"category"` // decode only
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Completed == nil && p.Title == nil && p.Priority == nil && !p.Category.Set
}

// CategoryChange distinguishes an omitted category from an explicit null.
type CategoryChange struct {
	Set   bool
	Value *string
}

// SetCategory returns a change that assigns c, or clears the category when c is nil.
func SetCategory(c *string) CategoryChange {
	return CategoryChange{Set: true, Value: NormalizeCategoryPtr(c)}
}

func (c *CategoryChange) UnmarshalJSON(b []byte) error {
	c.Set = true
	if string(b) == "null" {
		c.Value = nil
		return nil
	}
	s, err := unquote(b)
	if err != nil {
		return &ValidationError{Field: "category", Msg: "category must be a string or null"}
	}
	c.Value = NormalizeCategory(s)
	return nil
}

// NormalizeTitle trims the title and rejects blank input.
func NormalizeTitle(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &ValidationError{Field: "title", Msg: "Task cannot be empty"}
	}
	return s, nil
}

// NormalizeCategory trims s; empty input means no category.
func NormalizeCategory(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// NormalizeCategoryPtr is NormalizeCategory for optional input.
func NormalizeCategoryPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return NormalizeCategory(*s)
}
