package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskhive/session"
)

// SessionMiddleware resolves the caller's identity and binds it to the request
// context. Requests without credentials continue anonymously. With strict set,
// invalid credentials are rejected with 401; otherwise the stale session
// cookie is cleared and the request continues anonymously.
func SessionMiddleware(auth Authenticator, logger *log.Logger, strict bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()
			token, err := tokenFromRequest(req)
			userID := ""
			if err == nil && token != "" {
				userID, err = auth.UserIDFromToken(token)
			}
			c.Set(authDurationKey, time.Since(start))
			if err != nil {
				logger.WithError(err).WithField("path", req.URL.Path).Debug("session rejected")
				if strict {
					return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
				}
				clearSessionCookie(c)
			}
			if userID != "" {
				c.SetRequest(req.WithContext(session.WithUser(req.Context(), userID)))
			}
			return next(c)
		}
	}
}

func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
