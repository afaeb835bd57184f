package view

import (
	"net/url"

	"taskhive/domain"
)

// AppTitle is shown in the page header.
const AppTitle = "TaskHiveMind"

// Flash is a one-shot notification shown after a redirect.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// EditForm is the state of the edit dialog.
type EditForm struct {
	TaskID   string
	Title    string
	Priority domain.Priority
	Category string
}

// Option is one selectable filter value.
type Option struct {
	Value    string
	Label    string
	Selected bool
	URL      string
	Class    string
}

// Page is everything the task page renders.
type Page struct {
	SignedIn   bool
	Filter     domain.Filter
	Tasks      []domain.Task
	Total      int
	Categories []string
	Edit       *EditForm
	Flash      *Flash
	LoadError  bool
}

// Heading is the page header text.
func (p Page) Heading() string { return AppTitle }

// Query encodes the current filters for links and redirects.
func (p Page) Query() string { return FilterQuery(p.Filter) }

// StatusOptions lists the status selector values.
func (p Page) StatusOptions() []Option {
	opts := []Option{
		{Value: string(domain.StatusAll), Label: "All"},
		{Value: string(domain.StatusActive), Label: "Active"},
		{Value: string(domain.StatusCompleted), Label: "Completed"},
	}
	for i := range opts {
		f := p.Filter
		f.Status = domain.StatusFilter(opts[i].Value)
		opts[i].Selected = p.Filter.Status == f.Status
		opts[i].URL = FilterURL(f)
	}
	return opts
}

// PriorityOptions lists the priority selector values.
func (p Page) PriorityOptions() []Option {
	values := []string{domain.FilterAll, string(domain.PriorityHigh), string(domain.PriorityMedium), string(domain.PriorityLow)}
	opts := make([]Option, 0, len(values))
	for _, v := range values {
		f := p.Filter
		f.Priority = v
		opt := Option{Value: v, Label: "All", Selected: p.Filter.Priority == v, URL: FilterURL(f)}
		if v != domain.FilterAll {
			b := PriorityBadge(domain.Priority(v))
			opt.Label, opt.Class = b.Label, b.Class
		}
		opts = append(opts, opt)
	}
	return opts
}

// CategoryOptions lists "All" followed by the categories present in the list.
func (p Page) CategoryOptions() []Option {
	opts := make([]Option, 0, len(p.Categories)+1)
	f := p.Filter
	f.Category = domain.AnyCategory
	opts = append(opts, Option{Value: domain.AnyCategory, Label: "All", Selected: p.Filter.Category == domain.AnyCategory, URL: FilterURL(f)})
	for _, c := range p.Categories {
		f.Category = c
		opts = append(opts, Option{Value: c, Label: c, Selected: p.Filter.Category == c, URL: FilterURL(f), Class: "badge-category"})
	}
	return opts
}

// EditURL opens the edit dialog for a task while keeping the filters.
func (p Page) EditURL(id string) string {
	v := filterValues(p.Filter)
	v.Set("edit", id)
	return "/?" + v.Encode()
}

// CancelURL closes the edit dialog while keeping the filters.
func (p Page) CancelURL() string { return FilterURL(p.Filter) }

// PriorityLevels lists the priorities offered by the add and edit forms.
func (p Page) PriorityLevels() []Option {
	return []Option{
		{Value: string(domain.PriorityLow), Label: "Low"},
		{Value: string(domain.PriorityMedium), Label: "Medium"},
		{Value: string(domain.PriorityHigh), Label: "High"},
	}
}

// FilterQuery encodes f as a query string, omitting unrestricted axes.
func FilterQuery(f domain.Filter) string {
	return filterValues(f).Encode()
}

func filterValues(f domain.Filter) url.Values {
	v := url.Values{}
	if f.Status != "" && f.Status != domain.StatusAll {
		v.Set("status", string(f.Status))
	}
	if f.Priority != "" && f.Priority != domain.FilterAll {
		v.Set("priority", f.Priority)
	}
	if f.Category != domain.AnyCategory {
		v.Set("category", f.Category)
	}
	return v
}

// FilterURL is the page location showing f.
func FilterURL(f domain.Filter) string {
	q := FilterQuery(f)
	if q == "" {
		return "/"
	}
	return "/?" + q
}
