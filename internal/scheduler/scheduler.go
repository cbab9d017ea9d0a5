// Package scheduler runs the recurring background cycle that advances
// booking state as time passes and fires the one-shot reminders.  It is
// a polling design: every interval it rescans bookings by status and
// processes each one as an independent unit of work, so one booking's
// failure never aborts the rest of the cycle.
package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/workspace-reservation/internal/booking"
	"github.com/iliyamo/workspace-reservation/internal/model"
)

// DefaultInterval is the cadence between cycles.
const DefaultInterval = time.Minute

// ReminderScheduler drives the booking lifecycle forward in the
// background.  Cycles are serialized: the ticker loop runs one cycle to
// completion before the next fires.  The clock is injected so tests can
// simulate elapsed time without real waits.
type ReminderScheduler struct {
	svc      *booking.Service
	interval time.Duration
	now      func() time.Time
}

// New constructs a ReminderScheduler.  A non-positive interval falls
// back to DefaultInterval; a nil clock falls back to time.Now.
func New(svc *booking.Service, interval time.Duration, now func() time.Time) *ReminderScheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if now == nil {
		now = time.Now
	}
	return &ReminderScheduler{svc: svc, interval: interval, now: now}
}

// Start blocks, running one cycle per interval until the context is
// cancelled.  A partial cycle abandoned at shutdown is safe: every
// per-booking step is its own atomic unit and the one-shot flags make
// re-running idempotent.
func (s *ReminderScheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logrus.WithField("interval", s.interval.String()).Info("reminder scheduler started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("reminder scheduler stopped")
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle performs one full scan.  Order matters for the first two
// phases: overdue checkouts and no-show marking run before the reminder
// scans so a booking already past its window is never reminded about in
// the same cycle.
func (s *ReminderScheduler) RunCycle(ctx context.Context) {
	now := s.now().UTC()
	s.forceCheckoutOverdue(ctx, now)
	s.markNoShows(ctx, now)
	s.sendEntryReminders(ctx, now)
	s.sendExitReminders(ctx, now)
	s.sendOverdueReminders(ctx, now)
}

// forceCheckoutOverdue completes checked-in bookings whose window has
// elapsed and whose overdue reminder already fired in an earlier cycle.
// The reminder-first sequencing gives the user one cycle to check out
// themselves before the scheduler does it for them.
func (s *ReminderScheduler) forceCheckoutOverdue(ctx context.Context, now time.Time) {
	checkedIn, err := s.svc.BookingsByStatus(ctx, model.StatusCheckedIn)
	if err != nil {
		logrus.WithError(err).Error("scheduler: listing checked-in bookings failed")
		return
	}
	for _, b := range checkedIn {
		if ctx.Err() != nil {
			return
		}
		if !now.After(b.EndTime) || !b.OverdueReminderSent {
			continue
		}
		if err := s.svc.ForceCheckOut(ctx, b); err != nil {
			logrus.WithError(err).WithField("booking_id", b.ID).Warn("scheduler: forced checkout failed")
			continue
		}
		logrus.WithField("booking_id", b.ID).Info("scheduler: forced checkout of overdue booking")
	}
}

// markNoShows transitions reserved bookings whose end has passed without
// a check-in.  Losing the guarded update to a concurrent user action is
// logged and skipped, not retried.
func (s *ReminderScheduler) markNoShows(ctx context.Context, now time.Time) {
	reserved, err := s.svc.BookingsByStatus(ctx, model.StatusReserved)
	if err != nil {
		logrus.WithError(err).Error("scheduler: listing reserved bookings failed")
		return
	}
	for _, b := range reserved {
		if ctx.Err() != nil {
			return
		}
		if now.Before(b.EndTime) {
			continue
		}
		if err := s.svc.MarkNoShow(ctx, b); err != nil {
			logrus.WithError(err).WithField("booking_id", b.ID).Warn("scheduler: no-show marking failed")
			continue
		}
		logrus.WithField("booking_id", b.ID).Info("scheduler: booking marked as no-show")
	}
}

// sendEntryReminders covers reserved bookings inside the check-in
// window: start − 15m ≤ now < end, flag unset.
func (s *ReminderScheduler) sendEntryReminders(ctx context.Context, now time.Time) {
	reserved, err := s.svc.BookingsByStatus(ctx, model.StatusReserved)
	if err != nil {
		logrus.WithError(err).Error("scheduler: listing reserved bookings failed")
		return
	}
	for _, b := range reserved {
		if ctx.Err() != nil {
			return
		}
		if b.EntryReminderSent {
			continue
		}
		if now.Before(b.StartTime.Add(-booking.CheckInEarlyWindow)) || !now.Before(b.EndTime) {
			continue
		}
		if err := s.svc.SendReminder(ctx, b, model.ReminderEntry); err != nil {
			logrus.WithError(err).WithField("booking_id", b.ID).Warn("scheduler: entry reminder failed")
		}
	}
}

// sendExitReminders covers checked-in bookings approaching their end:
// end − 10m ≤ now ≤ end, flag unset.
func (s *ReminderScheduler) sendExitReminders(ctx context.Context, now time.Time) {
	checkedIn, err := s.svc.BookingsByStatus(ctx, model.StatusCheckedIn)
	if err != nil {
		logrus.WithError(err).Error("scheduler: listing checked-in bookings failed")
		return
	}
	for _, b := range checkedIn {
		if ctx.Err() != nil {
			return
		}
		if b.ExitReminderSent {
			continue
		}
		if now.Before(b.EndTime.Add(-booking.ExitReminderLead)) || now.After(b.EndTime) {
			continue
		}
		if err := s.svc.SendReminder(ctx, b, model.ReminderExit); err != nil {
			logrus.WithError(err).WithField("booking_id", b.ID).Warn("scheduler: exit reminder failed")
		}
	}
}

// sendOverdueReminders covers checked-in bookings past their end.  The
// flag set here also arms the forced checkout that a later cycle
// performs if the user still never checks out.
func (s *ReminderScheduler) sendOverdueReminders(ctx context.Context, now time.Time) {
	checkedIn, err := s.svc.BookingsByStatus(ctx, model.StatusCheckedIn)
	if err != nil {
		logrus.WithError(err).Error("scheduler: listing checked-in bookings failed")
		return
	}
	for _, b := range checkedIn {
		if ctx.Err() != nil {
			return
		}
		if b.OverdueReminderSent || !now.After(b.EndTime) {
			continue
		}
		if err := s.svc.SendReminder(ctx, b, model.ReminderOverdue); err != nil {
			logrus.WithError(err).WithField("booking_id", b.ID).Warn("scheduler: overdue reminder failed")
		}
	}
}
