package backend

import "fmt"

// TimeoutError means an attempt exceeded its per-attempt deadline. The
// attempt was canceled, never silently dropped.
type TimeoutError struct {
	Attempt int
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("attempt %d timed out: %v", e.Attempt, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ConnectionError means an attempt failed below HTTP: refused, reset, or
// an otherwise failed connection.
type ConnectionError struct {
	Attempt int
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("attempt %d connection failed: %v", e.Attempt, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// RetryExhaustedError means every attempt drew a retryable status; the
// final status is preserved for the caller.
type RetryExhaustedError struct {
	Status   int
	Attempts int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts (status %d)", e.Attempts, e.Status)
}

// APIError is a non-retryable backend response. The executor hands these
// back unmodified; the client attaches the decoded message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend error (status %d)", e.Status)
	}
	return fmt.Sprintf("backend error (status %d): %s", e.Status, e.Message)
}
