package delivery

import (
	"errors"
	"fmt"
)

// Sentinel errors for delivery operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, delivery.ErrRejected) {
//	    // do not retry; leave the batch queued and tell the operator
//	}
var (
	// ErrTransient indicates a failure worth retrying: connection refused,
	// timeout, or a 5xx response. The database being down is delay, not
	// data loss.
	ErrTransient = errors.New("delivery: transient failure")

	// ErrRejected indicates the database refused the batch outright (4xx:
	// malformed data, bad credentials). Retrying an invalid batch would
	// loop forever, so it is surfaced to the operator instead; the queue
	// entries stay pending until the operator intervenes.
	ErrRejected = errors.New("delivery: batch rejected")
)

// StatusError reports a non-2xx response from the database write endpoint.
//
// Unwrap classifies the status: 5xx unwraps to ErrTransient, everything
// else to ErrRejected, so errors.Is works on either sentinel while the
// exact status stays available for skip_statuses matching.
type StatusError struct {
	// StatusCode is the HTTP response status.
	StatusCode int

	// Body is the response body (truncated), usually the database's
	// explanation of what it disliked about the batch.
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("database returned HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode >= 500 {
		return ErrTransient
	}
	return ErrRejected
}
