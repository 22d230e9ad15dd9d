package tracker

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested item, or the parent/feature a query
// depends on, does not exist in the remote service.
var ErrNotFound = errors.New("work item not found")

// ErrNoMatchingItems indicates a bulk operation resolved zero items to
// update. No remote mutations were performed.
var ErrNoMatchingItems = errors.New("no matching work items")

// RemoteError is a non-success response from the remote service. The body is
// preserved so callers can surface the service's own diagnostics.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote service returned %d: %s", e.StatusCode, e.Body)
}

// ParseError indicates a response body that was not in the expected shape.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s response: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
