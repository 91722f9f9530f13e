package apiclient

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned after a 401; the client has already run its
// unauthorized hook by the time the caller sees it.
var ErrUnauthorized = errors.New("unauthorized")

type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Status)
}

// NetworkError wraps transport failures: refused connections, timeouts,
// cancelled requests.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network failure: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func StatusOf(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status, true
	}
	return 0, false
}
