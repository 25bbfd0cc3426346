package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork covers transport-level failures (connection refused, DNS,
	// reset). Callers treat it as "offline", not as a server fault.
	ErrNetwork = errors.New("network error")

	// ErrTimeout marks a request that exceeded the fixed request timeout.
	// Requests are never retried here; retry policy belongs to the caller.
	ErrTimeout = errors.New("request timed out")
)

// ServerError reports a non-2xx response that is neither a not-found nor an
// auth failure. Body carries the server's best-effort JSON or plain-text
// explanation.
type ServerError struct {
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server error: status %d", e.Status)
	}
	return fmt.Sprintf("server error: status %d: %s", e.Status, e.Body)
}
