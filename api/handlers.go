package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskhive/domain"
)

const maxBodySize = 64 << 10

// Register wires up the page and JSON routes on the provided Echo instance.
// The caller installs a view.Renderer on e.
func Register(e *echo.Echo, client TaskClient, auth Authenticator, logger *log.Logger) {
	sess := SessionMiddleware(auth, logger, false)
	e.GET("/", getPage(client, logger), sess)
	e.POST("/tasks", postCreateTask(client, logger), sess)
	e.POST("/tasks/:id", postEditTask(client, logger), sess)
	e.POST("/tasks/:id/toggle", postToggleTask(client, logger), sess)
	e.POST("/tasks/:id/delete", postDeleteTask(client, logger), sess)
	e.POST("/logout", postLogout())

	g := e.Group("/api", SessionMiddleware(auth, logger, true))
	g.GET("/tasks", listTasks(client, logger))
	g.POST("/tasks", createTask(client, logger))
	g.PATCH("/tasks/:id", updateTask(client, logger))
	g.DELETE("/tasks/:id", deleteTask(client, logger))

	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func listTasks(client TaskClient, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newRequestMetrics(c, logger)
		defer func() { metrics.Log(c.Response().Status, err) }()

		filter := domain.ParseFilter(c.QueryParam("status"), c.QueryParam("priority"), c.QueryParam("category"))

		fetchStart := time.Now()
		tasks, fetchErr := client.Tasks(c.Request().Context())
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("fetch")
			return writeError(c, fetchErr)
		}
		filtered := domain.Apply(tasks, filter)
		metrics.SetTasksReturned(len(filtered))
		return c.JSON(http.StatusOK, tasksResponse{
			Tasks:      filtered,
			Categories: domain.Categories(tasks),
			Total:      len(tasks),
		})
	}
}

func createTask(client TaskClient, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newRequestMetrics(c, logger)
		defer func() { metrics.Log(c.Response().Status, err) }()

		var req createTaskRequest
		if err := decodeBody(c, &req); err != nil {
			metrics.SetErrorStage("decode")
			return writeError(c, err)
		}
		title, vErr := domain.NormalizeTitle(req.Title)
		if vErr != nil {
			metrics.SetErrorStage("validate")
			return writeError(c, vErr)
		}
		priority, vErr := domain.ParsePriority(req.Priority)
		if vErr != nil {
			metrics.SetErrorStage("validate")
			return writeError(c, vErr)
		}

		ctx := c.Request().Context()
		mutateStart := time.Now()
		task, mErr := client.Create(ctx, title, priority, domain.NormalizeCategoryPtr(req.Category))
		metrics.ObserveMutation(time.Since(mutateStart))
		if mErr != nil {
			metrics.SetErrorStage("mutate")
			return writeError(c, mErr)
		}
		return respondWithRefetch(c, client, metrics, http.StatusCreated, mutationResponse{Task: &task})
	}
}

func updateTask(client TaskClient, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newRequestMetrics(c, logger)
		defer func() { metrics.Log(c.Response().Status, err) }()

		var patch domain.Patch
		if err := decodeBody(c, &patch); err != nil {
			metrics.SetErrorStage("decode")
			return writeError(c, err)
		}
		if vErr := validatePatch(&patch); vErr != nil {
			metrics.SetErrorStage("validate")
			return writeError(c, vErr)
		}

		mutateStart := time.Now()
		task, mErr := client.Update(c.Request().Context(), c.Param("id"), patch)
		metrics.ObserveMutation(time.Since(mutateStart))
		if mErr != nil {
			metrics.SetErrorStage("mutate")
			return writeError(c, mErr)
		}
		return respondWithRefetch(c, client, metrics, http.StatusOK, mutationResponse{Task: &task})
	}
}

func deleteTask(client TaskClient, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newRequestMetrics(c, logger)
		defer func() { metrics.Log(c.Response().Status, err) }()

		mutateStart := time.Now()
		deleted, mErr := client.Delete(c.Request().Context(), c.Param("id"))
		metrics.ObserveMutation(time.Since(mutateStart))
		if mErr != nil {
			metrics.SetErrorStage("mutate")
			return writeError(c, mErr)
		}
		return respondWithRefetch(c, client, metrics, http.StatusOK, mutationResponse{Deleted: deleted})
	}
}

// respondWithRefetch re-reads the list after a completed write so the
// response reflects the invalidated cache.
func respondWithRefetch(c echo.Context, client TaskClient, metrics *requestMetrics, status int, resp mutationResponse) error {
	fetchStart := time.Now()
	tasks, err := client.Tasks(c.Request().Context())
	metrics.ObserveFetch(time.Since(fetchStart))
	if err != nil {
		metrics.SetErrorStage("refetch")
		return writeError(c, err)
	}
	resp.Tasks = tasks
	metrics.SetTasksReturned(len(tasks))
	return c.JSON(status, resp)
}

// validatePatch normalises the user-editable fields of an update.
func validatePatch(p *domain.Patch) error {
	if p.Empty() {
		return &domain.ValidationError{Field: "patch", Msg: "no fields to update"}
	}
	if p.Title != nil {
		title, err := domain.NormalizeTitle(*p.Title)
		if err != nil {
			return &domain.ValidationError{Field: "title", Msg: "Task name cannot be empty"}
		}
		p.Title = &title
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return &domain.ValidationError{Field: "priority", Msg: "unknown priority " + string(*p.Priority)}
	}
	return nil
}

func decodeBody(c echo.Context, v any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			return ve
		}
		return &domain.ValidationError{Field: "body", Msg: "invalid body"}
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case domain.IsAuth(err):
		return http.StatusUnauthorized
	case domain.IsRemote(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		c.Logger().Error(err)
	}
	return c.JSON(status, errorResponse{Error: err.Error()})
}
