package client

import (
	"fmt"
	"time"
)

// TransportError represents a non-2xx HTTP response from the recognition service.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("recognition service error (status %d): %s", e.StatusCode, e.Body)
}

// ProtocolError represents a response body that could not be parsed as the
// expected JSON envelope.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed recognition service response: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// RemoteJobError represents an envelope-level failure: the HTTP call succeeded
// but the service answered result=ERROR, or reported the job itself as failed.
type RemoteJobError struct {
	Message string
}

func (e *RemoteJobError) Error() string {
	return fmt.Sprintf("recognition job error: %s", e.Message)
}

// NotFoundError is returned when the status endpoint does not know the job
// yet. Freshly submitted jobs may not be visible to the status endpoint for a
// short window, so the poller treats this as transient and retries; it is
// never surfaced to callers of PollUntilComplete.
type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("recognition job %s not found", e.JobID)
}

// TimeoutError is returned when the poll attempt budget is exhausted without
// the job reaching a terminal status.
type TimeoutError struct {
	Attempts int
	Budget   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("text recognition timed out after %d attempts (%v budget)", e.Attempts, e.Budget)
}
