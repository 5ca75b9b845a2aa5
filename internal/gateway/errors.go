package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionExpired matches any error produced by a failed credential
// refresh. By the time it is returned the session has been cleared.
var ErrSessionExpired = errors.New("session expired")

// HTTPError is a non-2xx backend response.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// RefreshError wraps the failure of the refresh call that tried to recover
// a 401. The wrapped error is usually an *HTTPError for /auth/refresh/.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return "session expired: refresh failed: " + e.Err.Error()
}

func (e *RefreshError) Unwrap() error { return e.Err }

func (e *RefreshError) Is(target error) bool { return target == ErrSessionExpired }

// IsStatus reports whether err carries a backend response with the given
// status code.
func IsStatus(err error, code int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == code
}
