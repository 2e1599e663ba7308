package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the server answered 404.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates the server kept answering 429 after every retry.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %s: HTTP %d", e.URL, e.StatusCode)
}
