package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired matches an AuthError caused by an invalid or expired credential.
	ErrSessionExpired = errors.New("session expired")
	// ErrNotAuthenticated is returned when an operation needs a session and there is none.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrEmptyBody rejects a message whose body is blank after trimming.
	ErrEmptyBody = &ValidationError{Field: "body", Reason: "empty"}
)

// AuthError reports rejected credentials, a duplicate registration, or an
// expired session. Expired sessions force the client to sign out.
type AuthError struct {
	Op      string
	Message string
	Expired bool
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: authentication failed", e.Op)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Is lets errors.Is(err, ErrSessionExpired) match expired-session errors.
func (e *AuthError) Is(target error) bool {
	return target == ErrSessionExpired && e.Expired
}

// TransportError reports a failure to reach the remote service or to make
// sense of its answer. It is transient: callers keep their last good state.
type TransportError struct {
	Op     string
	Status int // HTTP status, 0 when no response was received
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError rejects input locally before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsTransient reports whether err is a transport failure worth retrying on the
// next natural cycle.
func IsTransient(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
