package booking

import (
	"errors"
	"fmt"

	"github.com/iliyamo/workspace-reservation/internal/model"
)

// The error taxonomy of the booking engine splits rejections into three
// categories that handlers translate into distinct HTTP responses:
// validation failures (malformed input, never retried), conflicts (the
// window or resource is taken, the client may ask for alternatives),
// and state-guard violations (an operation illegal in the booking's
// current lifecycle state).  None of these are transient; automatic
// retry is reserved for the storage layer.

// Validation errors.
var (
	// ErrInvalidTimeRange is returned when start is not strictly
	// before end.
	ErrInvalidTimeRange = errors.New("start time must be before end time")

	// ErrStartInPast is returned when the requested start lies more
	// than the allowed tolerance in the past.
	ErrStartInPast = errors.New("start time is in the past")

	// ErrEmptyReason is returned when cancelling without a reason.
	ErrEmptyReason = errors.New("cancellation reason is required")

	// ErrEmptyMeetingName is returned when creating a booking without
	// a meeting name.
	ErrEmptyMeetingName = errors.New("meeting name is required")
)

// Conflict errors.
var (
	// ErrResourceUnavailable is returned when the resource is blocked
	// or under maintenance.
	ErrResourceUnavailable = errors.New("resource is unavailable")

	// ErrTimeConflict is returned when the requested window overlaps
	// an existing non-cancelled booking.
	ErrTimeConflict = errors.New("time window conflicts with an existing booking")
)

// Authorization and lookup errors.
var (
	// ErrNotFound is returned when the booking or resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotOwner is returned when a caller operates on a booking they
	// do not own.
	ErrNotOwner = errors.New("caller does not own this booking")
)

// InvalidTransitionError is the typed rejection raised by state-machine
// guard violations: checking in outside the allowed window, checking out
// without a check-in, cancelling a completed booking, and so on.  The
// Reason field carries a human-readable explanation; callers must not
// retry, this is a business-rule rejection rather than a transient
// failure.
type InvalidTransitionError struct {
	From   model.SessionStatus
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	if e.From != "" {
		return fmt.Sprintf("invalid transition from %s: %s", e.From, e.Reason)
	}
	return "invalid transition: " + e.Reason
}

// invalidTransition builds an InvalidTransitionError for the given state.
func invalidTransition(from model.SessionStatus, reason string) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, Reason: reason}
}
