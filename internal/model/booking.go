package model

import "time"

// SessionStatus is the lifecycle state of a booking.  Transitions are
// enforced by the booking service: RESERVED is the initial state, moving
// to CHECKED_IN on check-in and COMPLETED on check-out.  CANCELLED,
// NO_SHOW and COMPLETED are terminal.  NO_SHOW is applied only by the
// reminder scheduler when a reserved window elapses without a check-in.
type SessionStatus string

const (
	StatusReserved  SessionStatus = "RESERVED"
	StatusCheckedIn SessionStatus = "CHECKED_IN"
	StatusCompleted SessionStatus = "COMPLETED"
	StatusCancelled SessionStatus = "CANCELLED"
	StatusNoShow    SessionStatus = "NO_SHOW"
)

// ReminderFlag names the three one-shot reminder flags carried on a
// booking.  Each flag may be set exactly once and gates the matching
// notification so it is never sent twice.
type ReminderFlag string

const (
	ReminderEntry   ReminderFlag = "entry"
	ReminderExit    ReminderFlag = "exit"
	ReminderOverdue ReminderFlag = "overdue"
)

// Booking is the central entity of the service: a reservation of one
// resource for a contiguous time window.  StartTime and EndTime are
// always UTC; conversion to the office display zone happens only at the
// presentation boundary.  Bookings are never physically deleted —
// cancellation is a status change.
//
// Fields:
//  ID                  – primary key identifier.
//  ResourceID          – resource being reserved.
//  ResourceType        – denormalized type of the resource at booking time.
//  UserID              – owning user; only the owner may cancel or check in.
//  MeetingName         – purpose shown in listings and notifications.
//  ParticipantCount    – optional headcount for rooms.
//  StartTime           – window start, UTC.
//  EndTime             – window end, UTC; always after StartTime.
//  SessionStatus       – lifecycle state, see SessionStatus.
//  EntryReminderSent   – one-shot flag for the entry reminder.
//  ExitReminderSent    – one-shot flag for the exit reminder.
//  OverdueReminderSent – one-shot flag for the overdue reminder.
//  CancellationReason  – reason supplied on cancel (nullable).
//  CancelledAt         – when the booking was cancelled (nullable).
//  CreatedAt           – creation timestamp.
//  UpdatedAt           – last update timestamp.
type Booking struct {
	ID                  uint64        // bookings.id
	ResourceID          uint64        // bookings.resource_id
	ResourceType        ResourceType  // bookings.resource_type
	UserID              uint64        // bookings.user_id
	MeetingName         string        // bookings.meeting_name
	ParticipantCount    *uint32       // bookings.participant_count (nullable)
	StartTime           time.Time     // bookings.start_time (UTC)
	EndTime             time.Time     // bookings.end_time (UTC)
	SessionStatus       SessionStatus // bookings.session_status
	EntryReminderSent   bool          // bookings.entry_reminder_sent
	ExitReminderSent    bool          // bookings.exit_reminder_sent
	OverdueReminderSent bool          // bookings.overdue_reminder_sent
	CancellationReason  *string       // bookings.cancellation_reason (nullable)
	CancelledAt         *time.Time    // bookings.cancelled_at (nullable)
	CreatedAt           time.Time     // bookings.created_at
	UpdatedAt           time.Time     // bookings.updated_at
}

// Occupies reports whether the booking still claims its time window for
// availability purposes.  Only cancellation frees the window; a NO_SHOW
// keeps occupying the slot it wasted.
func (b *Booking) Occupies() bool {
	return b.SessionStatus != StatusCancelled
}

// Overlaps applies the strict half-open overlap test between the
// booking's window and [start, end).
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}
