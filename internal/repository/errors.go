// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking service and handlers to distinguish between different failure
// scenarios. For example, ErrTimeConflict indicates that a reservation
// lost the race for a time window, while ErrStateConflict signals that
// a guarded status update found the row in a different state than the
// caller last observed.
package repository

import "errors"

// ErrResourceNotFound is returned when a resource ID matches no row.
var ErrResourceNotFound = errors.New("resource not found")

// ErrBookingNotFound is returned when a booking ID matches no row.
var ErrBookingNotFound = errors.New("booking not found")

// ErrCheckInNotFound is returned when a booking has no check-in record.
var ErrCheckInNotFound = errors.New("check-in record not found")

// ErrUserNotFound is returned when a user lookup matches no row.
var ErrUserNotFound = errors.New("user not found")

// ErrTimeConflict is returned by CreateIfAvailable when another
// non-cancelled booking overlaps the requested window on the same
// resource. The overlap check and the insert run inside one transaction
// that holds the resource row lock, so the result is authoritative,
// not advisory. Handlers should translate this into an HTTP 409.
var ErrTimeConflict = errors.New("time window already booked")

// ErrStateConflict is returned when a guarded UPDATE affected no rows
// because the row's status (or a one-shot flag) no longer matched the
// value the caller expected. Callers should treat it as losing a race
// to a concurrent writer, not as a transient failure to retry.
var ErrStateConflict = errors.New("state changed concurrently")

// ErrEmailExists is returned when registering with an email that is
// already taken.
var ErrEmailExists = errors.New("email already exists")
