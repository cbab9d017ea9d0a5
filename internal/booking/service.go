// Package booking implements the core of the reservation system: the
// availability engine that decides whether a window is free, and the
// lifecycle state machine that moves a booking through
// RESERVED → CHECKED_IN → COMPLETED (or CANCELLED / NO_SHOW).
//
// The service is written against small consumer-side interfaces so the
// temporal logic can be tested with in-memory stores and a fake clock;
// the production implementations live in internal/repository.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/workspace-reservation/internal/model"
	"github.com/iliyamo/workspace-reservation/internal/repository"
	"github.com/iliyamo/workspace-reservation/internal/timeutil"
)

// Timing rules of the lifecycle, shared with the reminder scheduler.
const (
	// PastStartTolerance is how far in the past a new booking's start
	// may lie before it is rejected.
	PastStartTolerance = 5 * time.Minute

	// CheckInEarlyWindow is how long before the start a user may check
	// in.  The same lead time drives the entry reminder.
	CheckInEarlyWindow = 15 * time.Minute

	// ExitReminderLead is how long before the end the exit reminder
	// fires for a checked-in booking.
	ExitReminderLead = 10 * time.Minute
)

// Store is the persistence surface the state machine needs.  The SQL
// implementation must make CreateIfAvailable, UpdateStatusFrom, Cancel
// and SetReminderFlag atomic with respect to concurrent writers; the
// service relies on their guarded-write semantics rather than on its own
// reads.
type Store interface {
	CreateIfAvailable(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	ListOverlapping(ctx context.Context, resourceID uint64, start, end time.Time, excludeID uint64) ([]*model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]*model.Booking, error)
	ListByStatus(ctx context.Context, status model.SessionStatus) ([]*model.Booking, error)
	UpdateStatusFrom(ctx context.Context, id uint64, from, to model.SessionStatus) error
	Cancel(ctx context.Context, id uint64, reason string, at time.Time) error
	SetReminderFlag(ctx context.Context, id uint64, flag model.ReminderFlag) (bool, error)
}

// CheckInStore persists the one-to-one usage records attached to
// bookings once a check-in happens.
type CheckInStore interface {
	Create(ctx context.Context, rec *model.CheckInRecord) error
	GetByBookingID(ctx context.Context, bookingID uint64) (*model.CheckInRecord, error)
	Complete(ctx context.Context, bookingID uint64, at time.Time) (*model.CheckInRecord, error)
}

// ResourceDirectory exposes read-only resource lookups.  The engine
// consults it per request and never mutates it.
type ResourceDirectory interface {
	GetByID(ctx context.Context, id uint64) (*model.Resource, error)
}

// Notifier accepts fire-and-forget messages.  Implementations own
// delivery; the engine never inspects the outcome, and a failed
// notification never rolls back the transition that triggered it.
type Notifier interface {
	Send(ctx context.Context, userID uint64, title, body, kind string)
}

// Service wires the availability engine and the lifecycle state machine
// together.  The clock is injected so time-window guards can be tested
// deterministically.
type Service struct {
	store     Store
	checkins  CheckInStore
	resources ResourceDirectory
	notifier  Notifier
	now       func() time.Time
}

// NewService constructs a Service.  notifier may be nil, in which case
// no notifications are dispatched.  now may be nil to use time.Now.
func NewService(store Store, checkins CheckInStore, resources ResourceDirectory, notifier Notifier, now func() time.Time) *Service {
	if store == nil || checkins == nil || resources == nil {
		panic("nil store passed to booking.NewService")
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:     store,
		checkins:  checkins,
		resources: resources,
		notifier:  notifier,
		now:       now,
	}
}

// CreateRequest carries the parameters of a new reservation.  Times may
// arrive in any zone; the service canonicalizes them to UTC before any
// comparison or storage.
type CreateRequest struct {
	ResourceID       uint64
	UserID           uint64
	MeetingName      string
	ParticipantCount *uint32
	StartTime        time.Time
	EndTime          time.Time
}

// Create validates a reservation request and commits it atomically.
// Guards, in order: start < end, start no more than PastStartTolerance
// in the past, resource exists and is bookable, window free.  The final
// availability decision is made inside the store's transaction, so two
// concurrent requests for the same window cannot both succeed even
// though both may pass the advisory check here.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.Booking, error) {
	start := timeutil.ToUTC(req.StartTime)
	end := timeutil.ToUTC(req.EndTime)
	now := s.now().UTC()

	if !start.Before(end) {
		return nil, ErrInvalidTimeRange
	}
	if start.Before(now.Add(-PastStartTolerance)) {
		return nil, ErrStartInPast
	}
	if strings.TrimSpace(req.MeetingName) == "" {
		return nil, ErrEmptyMeetingName
	}

	res, err := s.resources.GetByID(ctx, req.ResourceID)
	if err != nil {
		if errors.Is(err, repository.ErrResourceNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !res.Bookable() {
		return nil, ErrResourceUnavailable
	}

	// Advisory pre-check so most conflicts are caught before opening a
	// transaction; the store re-checks under the resource lock.
	free, err := s.CheckAvailability(ctx, req.ResourceID, start, end, 0)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, ErrTimeConflict
	}

	b := &model.Booking{
		ResourceID:       req.ResourceID,
		ResourceType:     res.Type,
		UserID:           req.UserID,
		MeetingName:      strings.TrimSpace(req.MeetingName),
		ParticipantCount: req.ParticipantCount,
		StartTime:        start,
		EndTime:          end,
		SessionStatus:    model.StatusReserved,
	}
	if err := s.store.CreateIfAvailable(ctx, b); err != nil {
		switch {
		case errors.Is(err, repository.ErrTimeConflict):
			return nil, ErrTimeConflict
		case errors.Is(err, repository.ErrResourceNotFound):
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.notify(ctx, b.UserID, "Booking confirmed",
		fmt.Sprintf("%s is reserved for %q from %s to %s.",
			res.Name, b.MeetingName,
			timeutil.FormatDisplay(b.StartTime), timeutil.FormatDisplay(b.EndTime)),
		"booking_confirmed")
	return b, nil
}

// Cancel marks a booking cancelled on behalf of its owner.  A non-empty
// reason is required, only RESERVED and CHECKED_IN bookings may be
// cancelled, and cancellation frees the window for future availability
// checks.
func (s *Service) Cancel(ctx context.Context, bookingID, callerID uint64, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrEmptyReason
	}
	b, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.UserID != callerID {
		return ErrNotOwner
	}
	if b.SessionStatus != model.StatusReserved && b.SessionStatus != model.StatusCheckedIn {
		return invalidTransition(b.SessionStatus, "only reserved or checked-in bookings can be cancelled")
	}
	if err := s.store.Cancel(ctx, bookingID, reason, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return invalidTransition(b.SessionStatus, "booking state changed concurrently")
		}
		return err
	}
	s.notify(ctx, b.UserID, "Booking cancelled",
		fmt.Sprintf("Your booking %q on %s was cancelled: %s.",
			b.MeetingName, timeutil.FormatDisplay(b.StartTime), reason),
		"booking_cancelled")
	return nil
}

// CheckIn transitions a RESERVED booking to CHECKED_IN.  It is legal
// only for the owner and only while now lies within
// [start − CheckInEarlyWindow, end].  On success the check-in record is
// created with the current instant.
func (s *Service) CheckIn(ctx context.Context, bookingID, callerID uint64) (*model.CheckInRecord, error) {
	b, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != callerID {
		return nil, ErrNotOwner
	}
	if b.SessionStatus != model.StatusReserved {
		return nil, invalidTransition(b.SessionStatus, "only reserved bookings can be checked in")
	}
	now := s.now().UTC()
	if now.Before(b.StartTime.Add(-CheckInEarlyWindow)) {
		return nil, invalidTransition(b.SessionStatus,
			fmt.Sprintf("check-in opens %d minutes before start", int(CheckInEarlyWindow.Minutes())))
	}
	if now.After(b.EndTime) {
		return nil, invalidTransition(b.SessionStatus, "booking window has already ended")
	}
	if err := s.store.UpdateStatusFrom(ctx, b.ID, model.StatusReserved, model.StatusCheckedIn); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, invalidTransition(b.SessionStatus, "booking state changed concurrently")
		}
		return nil, err
	}
	rec := &model.CheckInRecord{
		BookingID:   b.ID,
		CheckInTime: &now,
		IsCheckedIn: true,
	}
	if err := s.checkins.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.notify(ctx, b.UserID, "Checked in",
		fmt.Sprintf("You are checked in for %q until %s.",
			b.MeetingName, timeutil.FormatDisplay(b.EndTime)),
		"checked_in")
	return rec, nil
}

// CheckOut transitions a CHECKED_IN booking to COMPLETED, recording the
// check-out instant and the actual duration of use.  It requires an
// existing check-in record that has not already been checked out.
func (s *Service) CheckOut(ctx context.Context, bookingID, callerID uint64) (*model.CheckInRecord, error) {
	b, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != callerID {
		return nil, ErrNotOwner
	}
	if b.SessionStatus != model.StatusCheckedIn {
		return nil, invalidTransition(b.SessionStatus, "booking is not checked in")
	}
	rec, err := s.checkins.GetByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrCheckInNotFound) {
			return nil, invalidTransition(b.SessionStatus, "no check-in record exists")
		}
		return nil, err
	}
	if rec.IsCheckedOut {
		return nil, invalidTransition(b.SessionStatus, "already checked out")
	}
	now := s.now().UTC()
	if err := s.store.UpdateStatusFrom(ctx, b.ID, model.StatusCheckedIn, model.StatusCompleted); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, invalidTransition(b.SessionStatus, "booking state changed concurrently")
		}
		return nil, err
	}
	rec, err = s.checkins.Complete(ctx, bookingID, now)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, b.UserID, "Checked out",
		fmt.Sprintf("You used %q for %s.", b.MeetingName, rec.ActualDuration.Round(time.Second)),
		"checked_out")
	return rec, nil
}

// Get returns a booking visible to the caller.  Non-owners receive
// ErrNotOwner to avoid leaking other users' reservations.
func (s *Service) Get(ctx context.Context, bookingID, callerID uint64) (*model.Booking, error) {
	b, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != callerID {
		return nil, ErrNotOwner
	}
	return b, nil
}

// ListByUser returns all bookings owned by a user.  A non-nil date
// restricts the result to bookings whose window touches that calendar
// day in the display zone.
func (s *Service) ListByUser(ctx context.Context, userID uint64, date *time.Time) ([]*model.Booking, error) {
	all, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if date == nil {
		return all, nil
	}
	dayStart, dayEnd := timeutil.DayBoundsUTC(*date)
	out := make([]*model.Booking, 0, len(all))
	for _, b := range all {
		if b.Overlaps(dayStart, dayEnd) {
			out = append(out, b)
		}
	}
	return out, nil
}

// BookingsByStatus lists bookings in a lifecycle state.  Used by the
// reminder scheduler's scans.
func (s *Service) BookingsByStatus(ctx context.Context, status model.SessionStatus) ([]*model.Booking, error) {
	return s.store.ListByStatus(ctx, status)
}

// MarkNoShow is the scheduler-only transition applied when a reserved
// window elapsed without a check-in.  A state conflict means a user
// action won the race, which is fine; it is reported so the scheduler
// can log it.
func (s *Service) MarkNoShow(ctx context.Context, b *model.Booking) error {
	if err := s.store.UpdateStatusFrom(ctx, b.ID, model.StatusReserved, model.StatusNoShow); err != nil {
		return err
	}
	s.notify(ctx, b.UserID, "Marked as no-show",
		fmt.Sprintf("Your booking %q ended at %s without a check-in and was marked as a no-show.",
			b.MeetingName, timeutil.FormatDisplay(b.EndTime)),
		"no_show")
	return nil
}

// ForceCheckOut is the scheduler-only checkout applied to an overdue
// checked-in booking.  It performs the same COMPLETED transition a user
// checkout would, on the user's behalf.
func (s *Service) ForceCheckOut(ctx context.Context, b *model.Booking) error {
	if err := s.store.UpdateStatusFrom(ctx, b.ID, model.StatusCheckedIn, model.StatusCompleted); err != nil {
		return err
	}
	now := s.now().UTC()
	if _, err := s.checkins.Complete(ctx, b.ID, now); err != nil &&
		!errors.Is(err, repository.ErrStateConflict) && !errors.Is(err, repository.ErrCheckInNotFound) {
		return err
	}
	s.notify(ctx, b.UserID, "Checked out automatically",
		fmt.Sprintf("Your booking %q ran past its end time and was checked out automatically.", b.MeetingName),
		"forced_checkout")
	return nil
}

// SendReminder claims one of the one-shot reminder flags and, only when
// this call performed the claim, dispatches the matching notification.
// The flag is persisted before the dispatch attempt, so repeated cycles
// and restarts cannot produce duplicate reminders.
func (s *Service) SendReminder(ctx context.Context, b *model.Booking, flag model.ReminderFlag) error {
	claimed, err := s.store.SetReminderFlag(ctx, b.ID, flag)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}
	switch flag {
	case model.ReminderEntry:
		s.notify(ctx, b.UserID, "Your booking starts soon",
			fmt.Sprintf("%q starts at %s. Check in within %d minutes of the start or the booking becomes a no-show.",
				b.MeetingName, timeutil.FormatDisplay(b.StartTime), int(CheckInEarlyWindow.Minutes())),
			"entry_reminder")
	case model.ReminderExit:
		s.notify(ctx, b.UserID, "Your booking ends soon",
			fmt.Sprintf("%q ends at %s. Please check out on time.",
				b.MeetingName, timeutil.FormatDisplay(b.EndTime)),
			"exit_reminder")
	case model.ReminderOverdue:
		s.notify(ctx, b.UserID, "Your booking is overdue",
			fmt.Sprintf("%q ended at %s and you are still checked in. Please check out.",
				b.MeetingName, timeutil.FormatDisplay(b.EndTime)),
			"overdue_reminder")
	}
	return nil
}

func (s *Service) getBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// notify dispatches fire-and-forget.  Dispatch problems are the
// notifier's to log; a nil notifier disables dispatch entirely.
func (s *Service) notify(ctx context.Context, userID uint64, title, body, kind string) {
	if s.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("booking: notifier panic for user %d kind %s: %v", userID, kind, r)
		}
	}()
	s.notifier.Send(ctx, userID, title, body, kind)
}
