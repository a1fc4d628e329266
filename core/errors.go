package core

import "errors"

// Protocol errors surfaced to clients as structured error events with a
// stable machine-readable code.
var (
	// ErrSessionNotFound means the session id has no persisted state.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired means the session exists but is terminal (or has
	// no pending suspension) and cannot be resumed.
	ErrSessionExpired = errors.New("session expired")

	// ErrBadRequest means the request shape was invalid.
	ErrBadRequest = errors.New("bad request")
)

// ErrorCode maps an error to its wire code. Unrecognized errors map to
// "internal_error"; their detail is logged server-side, not leaked.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	default:
		return "internal_error"
	}
}
