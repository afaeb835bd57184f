package view

import "taskhive/domain"

// Badge is a small coloured label.
type Badge struct {
	Label string
	Class string
	Icon  string
}

// PriorityBadge renders a priority tier. Unknown tiers render as medium.
func PriorityBadge(p domain.Priority) Badge {
	switch p {
	case domain.PriorityHigh:
		return Badge{Label: "High", Class: "badge badge-high"}
	case domain.PriorityLow:
		return Badge{Label: "Low", Class: "badge badge-low"}
	default:
		return Badge{Label: "Medium", Class: "badge badge-medium"}
	}
}

// CategoryBadge renders a category, or nothing when the task has none.
func CategoryBadge(category *string) *Badge {
	if category == nil || *category == "" {
		return nil
	}
	return &Badge{Label: *category, Class: "badge badge-category", Icon: "tag"}
}
