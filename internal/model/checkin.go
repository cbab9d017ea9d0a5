package model

import "time"

// CheckInRecord tracks the actual usage of a booking.  It is created
// lazily on the first check-in (a booking still in RESERVED has no
// record) and updated once on check-out.  ActualDuration is derived from
// the two timestamps when check-out happens, whether or not the checkout
// was forced by the scheduler.
//
// Fields:
//  ID             – primary key identifier.
//  BookingID      – booking this record belongs to (one-to-one).
//  CheckInTime    – when the user checked in (nullable until set).
//  CheckOutTime   – when the user checked out (nullable until set).
//  IsCheckedIn    – true once CheckInTime is set.
//  IsCheckedOut   – true once CheckOutTime is set.
//  ActualDuration – CheckOutTime − CheckInTime, zero until check-out.
type CheckInRecord struct {
	ID             uint64        // checkins.id
	BookingID      uint64        // checkins.booking_id
	CheckInTime    *time.Time    // checkins.check_in_time (nullable)
	CheckOutTime   *time.Time    // checkins.check_out_time (nullable)
	IsCheckedIn    bool          // checkins.is_checked_in
	IsCheckedOut   bool          // checkins.is_checked_out
	ActualDuration time.Duration // derived from checkins.actual_duration_secs
}
