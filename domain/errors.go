package domain

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned by writes attempted without a session.
var ErrNotAuthenticated = &AuthError{Msg: "User not authenticated"}

// AuthError reports a missing or invalid session.
type AuthError struct {
	Msg string
}

func (e *AuthError) Error() string { return e.Msg }

// RemoteError wraps a failure reported by the remote data service.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	if e.Err == nil {
		return e.Op + ": remote error"
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// ValidationError reports user input rejected before any remote call.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Msg }

// IsAuth reports whether err is or wraps an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsRemote reports whether err is or wraps a RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
