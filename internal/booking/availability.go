package booking

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/workspace-reservation/internal/model"
	"github.com/iliyamo/workspace-reservation/internal/repository"
	"github.com/iliyamo/workspace-reservation/internal/timeutil"
)

// SlotStep is the granularity at which alternative windows are proposed.
const SlotStep = 30 * time.Minute

// Slot is a candidate free window on a resource.  Start and End are UTC
// instants carrying the exact duration the caller asked for.
type Slot struct {
	Start time.Time
	End   time.Time
}

// CheckAvailability reports whether a resource is free for the half-open
// interval [start, end).  A resource is available iff it is bookable
// (not blocked, not under maintenance) and no booking with a status
// other than CANCELLED overlaps the window; a NO_SHOW keeps occupying
// its slot.  excludeBookingID, when non-zero, lets an update ignore the
// booking being modified.
//
// This read is advisory and has no side effects: creation re-checks the
// window inside the store transaction, so callers must expect a create
// to fail with ErrTimeConflict even after a positive answer here.
func (s *Service) CheckAvailability(ctx context.Context, resourceID uint64, start, end time.Time, excludeBookingID uint64) (bool, error) {
	res, err := s.resources.GetByID(ctx, resourceID)
	if err != nil {
		if errors.Is(err, repository.ErrResourceNotFound) {
			return false, ErrNotFound
		}
		return false, err
	}
	if !res.Bookable() {
		return false, nil
	}
	overlapping, err := s.store.ListOverlapping(ctx, resourceID,
		timeutil.ToUTC(start), timeutil.ToUTC(end), excludeBookingID)
	if err != nil {
		return false, err
	}
	return len(overlapping) == 0, nil
}

// FindAlternativeSlots proposes free windows on the given resource and
// date that preserve the duration of the rejected request.  Candidates
// step through the working day (09:00–19:00 in the display zone) at
// SlotStep granularity; a candidate is emitted iff it fits inside the
// working window and overlaps no non-cancelled booking.  The result is
// ordered ascending by start time and may be empty.
//
// This is a linear scan over the day's bookings, which is fine at the
// expected per-resource load; the bookings slice is small.
func (s *Service) FindAlternativeSlots(ctx context.Context, resourceID uint64, date time.Time, desiredStart, desiredEnd time.Time) ([]Slot, error) {
	duration := desiredEnd.Sub(desiredStart)
	if duration <= 0 {
		return nil, ErrInvalidTimeRange
	}
	if _, err := s.resources.GetByID(ctx, resourceID); err != nil {
		if errors.Is(err, repository.ErrResourceNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	dayStart, dayEnd := timeutil.WorkingWindowUTC(date)
	existing, err := s.store.ListOverlapping(ctx, resourceID, dayStart, dayEnd, 0)
	if err != nil {
		return nil, err
	}

	slots := []Slot{}
	for t := dayStart; !t.Add(duration).After(dayEnd); t = t.Add(SlotStep) {
		if overlapsAny(existing, t, t.Add(duration)) {
			continue
		}
		slots = append(slots, Slot{Start: t, End: t.Add(duration)})
	}
	return slots, nil
}

// overlapsAny applies the strict overlap predicate against every
// occupying booking in the slice.
func overlapsAny(bookings []*model.Booking, start, end time.Time) bool {
	for _, b := range bookings {
		if b.Occupies() && b.Overlaps(start, end) {
			return true
		}
	}
	return false
}
