package domain

import "strings"

// FilterAll disables the status and priority axes.
const FilterAll = "all"

// AnyCategory disables the category axis. Categories are free text, so the
// empty value is used rather than a word a user could pick as a category.
const AnyCategory = ""

// StatusFilter selects tasks by completion.
type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusActive    StatusFilter = "active"
	StatusCompleted StatusFilter = "completed"
)

// Filter is the conjunction of the status, priority and category selectors.
// Priority holds FilterAll and Category holds AnyCategory when unrestricted.
type Filter struct {
	Status   StatusFilter
	Priority string
	Category string
}

// NoFilter matches every task.
var NoFilter = Filter{Status: StatusAll, Priority: FilterAll, Category: AnyCategory}

// ParseFilter builds a Filter from raw selector values. Unknown status and
// priority values fall back to FilterAll; a blank category means any.
func ParseFilter(status, priority, category string) Filter {
	f := NoFilter
	switch StatusFilter(strings.ToLower(strings.TrimSpace(status))) {
	case StatusActive:
		f.Status = StatusActive
	case StatusCompleted:
		f.Status = StatusCompleted
	}
	if p := Priority(strings.ToLower(strings.TrimSpace(priority))); p.Valid() {
		f.Priority = string(p)
	}
	f.Category = strings.TrimSpace(category)
	return f
}

func (f Filter) normalized() Filter {
	if f.Status == "" {
		f.Status = StatusAll
	}
	if f.Priority == "" {
		f.Priority = FilterAll
	}
	return f
}

// Match reports whether t passes all three selectors.
func (f Filter) Match(t Task) bool {
	f = f.normalized()
	switch f.Status {
	case StatusActive:
		if t.Completed {
			return false
		}
	case StatusCompleted:
		if !t.Completed {
			return false
		}
	}
	if f.Priority != FilterAll && string(t.Priority) != f.Priority {
		return false
	}
	if f.Category != AnyCategory && (t.Category == nil || *t.Category != f.Category) {
		return false
	}
	return true
}

// Apply returns the tasks matching f in their original order.
func Apply(tasks []Task, f Filter) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Categories returns the distinct non-empty categories in order of first appearance.
func Categories(tasks []Task) []string {
	seen := make(map[string]struct{}, len(tasks))
	out := []string{}
	for _, t := range tasks {
		if !t.HasCategory() {
			continue
		}
		if _, ok := seen[*t.Category]; ok {
			continue
		}
		seen[*t.Category] = struct{}{}
		out = append(out, *t.Category)
	}
	return out
}
