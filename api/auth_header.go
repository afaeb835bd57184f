package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// SessionCookie holds the access token for browser sessions.
const SessionCookie = "access_token"

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
)

const bearerPrefix = "Bearer "

func bearerTokenFromString(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errMissingAuthorization
	}
	if len(raw) <= len(bearerPrefix) || !strings.HasPrefix(raw, bearerPrefix) {
		return "", errBadAuthorization
	}
	token := raw[len(bearerPrefix):]
	if !looksLikeJWT(token) {
		return "", errBadAuthorization
	}
	return token, nil
}

func looksLikeJWT(token string) bool {
	return strings.Count(token, ".") == 2
}

// tokenFromRequest returns the bearer token from the Authorization header,
// falling back to the session cookie. An empty token with a nil error means
// the request carries no credentials.
func tokenFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get(echo.HeaderAuthorization); h != "" {
		return bearerTokenFromString(h)
	}
	ck, err := r.Cookie(SessionCookie)
	if err != nil || ck.Value == "" {
		return "", nil
	}
	if !looksLikeJWT(ck.Value) {
		return "", errBadAuthorization
	}
	return ck.Value, nil
}
