package api

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrAuth marks a 401 from the server. It is the only error the refresh
// middleware acts on.
var ErrAuth = errors.New("authentication failed")

// ErrNetwork marks a transport-level failure: the server was never reached
// or the response never arrived.
var ErrNetwork = errors.New("network failure")

// APIError is any other non-2xx response.
type APIError struct {
	Status int
	Body   []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Body)
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not an
// *APIError. The session façade maps statuses to user-facing messages.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
