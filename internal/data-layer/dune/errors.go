package dune

import (
	"errors"
	"fmt"
)

var (
	// ErrNoExecutionID is returned when the execute call did not yield an execution id.
	ErrNoExecutionID = errors.New("dune: no execution id in response")

	// ErrQueryFailed is returned when the execution ends in a failed, cancelled or expired state.
	ErrQueryFailed = errors.New("dune: query execution failed")

	// ErrTimeout is returned when the execution is still pending after the last status check.
	ErrTimeout = errors.New("dune: query execution timed out")

	// ErrNoRows is returned when a completed execution has an empty result set.
	ErrNoRows = errors.New("dune: query returned no rows")

	// ErrNoValue is returned when no column of the first row holds a usable number.
	ErrNoValue = errors.New("dune: no numeric value in row")
)

// APIError is a non-2xx answer from the Dune API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("dune: http %d", e.StatusCode)
	}
	return fmt.Sprintf("dune: http %d: %s", e.StatusCode, e.Message)
}
