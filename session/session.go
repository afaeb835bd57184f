// Package session carries the authenticated user through a request context.
package session

import "context"

type userKey struct{}

// WithUser returns a copy of ctx bound to userID. An empty id leaves ctx anonymous.
func WithUser(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID returns the current user, if any.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}
