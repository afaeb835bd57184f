package api

import (
	"strings"

	"github.com/labstack/echo/v4"

	"taskhive/domain"
	"taskhive/view"
)

// PageState is the page's UI state: the active filters and the task open in
// the edit dialog. It is rebuilt from every request.
type PageState struct {
	Filter domain.Filter
	EditID string
}

func pageStateFromQuery(c echo.Context) PageState {
	return PageState{
		Filter: domain.ParseFilter(c.QueryParam("status"), c.QueryParam("priority"), c.QueryParam("category")),
		EditID: strings.TrimSpace(c.QueryParam("edit")),
	}
}

// pageStateFromForm reads the filters carried as hidden fields by every form on the page.
func pageStateFromForm(c echo.Context) PageState {
	return PageState{
		Filter: domain.ParseFilter(c.FormValue("filter_status"), c.FormValue("filter_priority"), c.FormValue("filter_category")),
	}
}

// reconcile drops a category selection that no longer exists in the list.
func (s PageState) reconcile(categories []string) PageState {
	if s.Filter.Category == domain.AnyCategory {
		return s
	}
	for _, c := range categories {
		if c == s.Filter.Category {
			return s
		}
	}
	s.Filter.Category = domain.AnyCategory
	return s
}

// RedirectURL is the page location for this state, without the edit dialog.
func (s PageState) RedirectURL() string {
	return view.FilterURL(s.Filter)
}
