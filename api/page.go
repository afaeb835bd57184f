package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskhive/domain"
	"taskhive/session"
	"taskhive/view"
)

const (
	msgTaskAdded       = "Task added successfully"
	msgTaskDeleted     = "Task deleted successfully"
	msgAddFailed       = "Failed to add task"
	msgUpdateFailed    = "Failed to update task"
	msgDeleteFailed    = "Failed to delete task"
	msgEmptyTask       = "Task cannot be empty"
	msgEmptyTaskName   = "Task name cannot be empty"
	msgInvalidPriority = "Please choose a valid priority"
)

func getPage(client TaskClient, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newRequestMetrics(c, logger)
		defer func() { metrics.Log(c.Response().Status, err) }()

		ctx := c.Request().Context()
		state := pageStateFromQuery(c)
		_, signedIn := session.UserID(ctx)
		page := view.Page{SignedIn: signedIn, Flash: popFlash(c), Filter: state.Filter}

		fetchStart := time.Now()
		tasks, fetchErr := client.Tasks(ctx)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("fetch")
			page.LoadError = true
			return c.Render(http.StatusBadGateway, view.PageTemplate, page)
		}

		page.Categories = domain.Categories(tasks)
		state = state.reconcile(page.Categories)
		page.Filter = state.Filter
		page.Tasks = domain.Apply(tasks, state.Filter)
		page.Total = len(tasks)
		page.Edit = editForm(tasks, state.EditID)
		metrics.SetTasksReturned(len(page.Tasks))

		renderStart := time.Now()
		err = c.Render(http.StatusOK, view.PageTemplate, page)
		metrics.ObserveRender(time.Since(renderStart))
		return err
	}
}

func editForm(tasks []domain.Task, id string) *view.EditForm {
	if id == "" {
		return nil
	}
	for _, t := range tasks {
		if t.ID != id {
			continue
		}
		form := &view.EditForm{TaskID: t.ID, Title: t.Title, Priority: t.Priority}
		if t.Category != nil {
			form.Category = *t.Category
		}
		return form
	}
	return nil
}

func postCreateTask(client TaskClient, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newRequestMetrics(c, logger)
		defer func() { metrics.Log(c.Response().Status, err) }()

		state := pageStateFromForm(c)
		title, vErr := domain.NormalizeTitle(c.FormValue("title"))
		if vErr != nil {
			metrics.SetErrorStage("validate")
			return redirectWithFlash(c, state, view.FlashError, msgEmptyTask)
		}
		priority, vErr := domain.ParsePriority(c.FormValue("priority"))
		if vErr != nil {
			metrics.SetErrorStage("validate")
			return redirectWithFlash(c, state, view.FlashError, msgInvalidPriority)
		}
		category := domain.NormalizeCategory(c.FormValue("category"))

		ctx := c.Request().Context()
		mutateStart := time.Now()
		_, mErr := client.Create(ctx, title, priority, category)
		metrics.ObserveMutation(time.Since(mutateStart))
		if mErr != nil {
			metrics.SetErrorStage("mutate")
			return redirectWithFlash(c, state, view.FlashError, failureMessage(msgAddFailed, mErr))
		}
		refresh(c, client, metrics)
		return redirectWithFlash(c, state, view.FlashSuccess, msgTaskAdded)
	}
}

func postToggleTask(client TaskClient, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newRequestMetrics(c, logger)
		defer func() { metrics.Log(c.Response().Status, err) }()

		state := pageStateFromForm(c)
		completed := c.FormValue("completed") != "true"

		mutateStart := time.Now()
		_, mErr := client.Update(c.Request().Context(), c.Param("id"), domain.Patch{Completed: &completed})
		metrics.ObserveMutation(time.Since(mutateStart))
		if mErr != nil {
			metrics.SetErrorStage("mutate")
			return redirectWithFlash(c, state, view.FlashError, failureMessage(msgUpdateFailed, mErr))
		}
		refresh(c, client, metrics)
		return c.Redirect(http.StatusSeeOther, state.RedirectURL())
	}
}

func postEditTask(client TaskClient, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newRequestMetrics(c, logger)
		defer func() { metrics.Log(c.Response().Status, err) }()

		state := pageStateFromForm(c)
		id := c.Param("id")
		title, vErr := domain.NormalizeTitle(c.FormValue("title"))
		if vErr != nil {
			metrics.SetErrorStage("validate")
			state.EditID = id
			return redirectWithFlash(c, state, view.FlashError, msgEmptyTaskName)
		}
		priority, vErr := domain.ParsePriority(c.FormValue("priority"))
		if vErr != nil {
			metrics.SetErrorStage("validate")
			state.EditID = id
			return redirectWithFlash(c, state, view.FlashError, msgInvalidPriority)
		}
		category := c.FormValue("category")
		patch := domain.Patch{
			Title:    &title,
			Priority: &priority,
			Category: domain.SetCategory(&category),
		}

		mutateStart := time.Now()
		_, mErr := client.Update(c.Request().Context(), id, patch)
		metrics.ObserveMutation(time.Since(mutateStart))
		if mErr != nil {
			metrics.SetErrorStage("mutate")
			return redirectWithFlash(c, state, view.FlashError, failureMessage(msgUpdateFailed, mErr))
		}
		refresh(c, client, metrics)
		return c.Redirect(http.StatusSeeOther, state.RedirectURL())
	}
}

func postDeleteTask(client TaskClient, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newRequestMetrics(c, logger)
		defer func() { metrics.Log(c.Response().Status, err) }()

		state := pageStateFromForm(c)
		mutateStart := time.Now()
		_, mErr := client.Delete(c.Request().Context(), c.Param("id"))
		metrics.ObserveMutation(time.Since(mutateStart))
		if mErr != nil {
			metrics.SetErrorStage("mutate")
			return redirectWithFlash(c, state, view.FlashError, failureMessage(msgDeleteFailed, mErr))
		}
		refresh(c, client, metrics)
		return redirectWithFlash(c, state, view.FlashSuccess, msgTaskDeleted)
	}
}

func postLogout() echo.HandlerFunc {
	return func(c echo.Context) error {
		clearSessionCookie(c)
		return c.Redirect(http.StatusSeeOther, "/")
	}
}

// refresh re-reads the list once a write has completed so the page that
// follows the redirect is rendered from fresh data. A failed refresh is left
// to the next page load to report.
func refresh(c echo.Context, client TaskClient, metrics *requestMetrics) {
	fetchStart := time.Now()
	_, err := client.Tasks(c.Request().Context())
	metrics.ObserveFetch(time.Since(fetchStart))
	if err != nil {
		metrics.SetErrorStage("refetch")
	}
}

func redirectWithFlash(c echo.Context, state PageState, kind, message string) error {
	setFlash(c, kind, message)
	target := state.RedirectURL()
	if state.EditID != "" {
		target = editRedirectURL(state)
	}
	return c.Redirect(http.StatusSeeOther, target)
}

func editRedirectURL(state PageState) string {
	return view.Page{Filter: state.Filter}.EditURL(state.EditID)
}

func failureMessage(base string, err error) string {
	if domain.IsAuth(err) {
		return base + ": " + err.Error()
	}
	return base
}
