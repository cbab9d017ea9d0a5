package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/workspace-reservation/internal/booking"
	"github.com/iliyamo/workspace-reservation/internal/model"
	"github.com/iliyamo/workspace-reservation/internal/repository"
)

// fakeStore implements the engine's store interfaces in memory with the
// same guarded-write behavior as the SQL layer.
type fakeStore struct {
	mu       sync.Mutex
	nextID   uint64
	bookings map[uint64]*model.Booking
	records  map[uint64]*model.CheckInRecord

	// failStatusUpdate makes UpdateStatusFrom fail for that booking ID,
	// simulating a storage error on a single row mid-cycle.
	failStatusUpdate uint64
}

var errStorageDown = errors.New("storage unavailable")

func newFakeStore() *fakeStore {
	return &fakeStore{
		bookings: map[uint64]*model.Booking{},
		records:  map[uint64]*model.CheckInRecord{},
	}
}

func (f *fakeStore) add(b *model.Booking) *model.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	b.ID = f.nextID
	cp := *b
	f.bookings[b.ID] = &cp
	return b
}

func (f *fakeStore) get(id uint64) model.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.bookings[id]
}

func (f *fakeStore) CreateIfAvailable(_ context.Context, b *model.Booking) error {
	f.add(b)
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) ListOverlapping(_ context.Context, resourceID uint64, start, end time.Time, excludeID uint64) ([]*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Booking
	for _, b := range f.bookings {
		if b.ResourceID == resourceID && b.ID != excludeID && b.Occupies() && b.Overlaps(start, end) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) ListByUser(_ context.Context, userID uint64) ([]*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Booking
	for _, b := range f.bookings {
		if b.UserID == userID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) ListByStatus(_ context.Context, status model.SessionStatus) ([]*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Booking
	for _, b := range f.bookings {
		if b.SessionStatus == status {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateStatusFrom(_ context.Context, id uint64, from, to model.SessionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStatusUpdate != 0 && id == f.failStatusUpdate {
		return errStorageDown
	}
	b, ok := f.bookings[id]
	if !ok || b.SessionStatus != from {
		return repository.ErrStateConflict
	}
	b.SessionStatus = to
	return nil
}

func (f *fakeStore) Cancel(_ context.Context, id uint64, reason string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || (b.SessionStatus != model.StatusReserved && b.SessionStatus != model.StatusCheckedIn) {
		return repository.ErrStateConflict
	}
	b.SessionStatus = model.StatusCancelled
	b.CancellationReason = &reason
	b.CancelledAt = &at
	return nil
}

func (f *fakeStore) SetReminderFlag(_ context.Context, id uint64, flag model.ReminderFlag) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return false, repository.ErrBookingNotFound
	}
	switch flag {
	case model.ReminderEntry:
		if b.EntryReminderSent {
			return false, nil
		}
		b.EntryReminderSent = true
	case model.ReminderExit:
		if b.ExitReminderSent {
			return false, nil
		}
		b.ExitReminderSent = true
	case model.ReminderOverdue:
		if b.OverdueReminderSent {
			return false, nil
		}
		b.OverdueReminderSent = true
	}
	return true, nil
}

func (f *fakeStore) Create(_ context.Context, rec *model.CheckInRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	rec.ID = f.nextID
	cp := *rec
	f.records[rec.BookingID] = &cp
	return nil
}

func (f *fakeStore) GetByBookingID(_ context.Context, bookingID uint64) (*model.CheckInRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[bookingID]
	if !ok {
		return nil, repository.ErrCheckInNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeStore) Complete(_ context.Context, bookingID uint64, at time.Time) (*model.CheckInRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[bookingID]
	if !ok {
		return nil, repository.ErrCheckInNotFound
	}
	if rec.IsCheckedOut {
		return nil, repository.ErrStateConflict
	}
	t := at
	rec.CheckOutTime = &t
	rec.IsCheckedOut = true
	if rec.CheckInTime != nil {
		rec.ActualDuration = at.Sub(*rec.CheckInTime)
	}
	cp := *rec
	return &cp, nil
}

type fakeDirectory struct{}

func (fakeDirectory) GetByID(_ context.Context, id uint64) (*model.Resource, error) {
	return &model.Resource{ID: id, Name: "Room A", Type: model.ResourceTypeRoom}, nil
}

type countingNotifier struct {
	mu    sync.Mutex
	kinds map[string]int
}

func (n *countingNotifier) Send(_ context.Context, _ uint64, _, _, kind string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.kinds == nil {
		n.kinds = map[string]int{}
	}
	n.kinds[kind]++
}

func (n *countingNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.kinds[kind]
}

// harness bundles a scheduler over the fake store with a mutable clock.
type harness struct {
	store    *fakeStore
	notifier *countingNotifier
	sched    *ReminderScheduler
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:    newFakeStore(),
		notifier: &countingNotifier{},
		now:      time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return h.now }
	svc := booking.NewService(h.store, h.store, fakeDirectory{}, h.notifier, clock)
	h.sched = New(svc, DefaultInterval, clock)
	return h
}

func (h *harness) reserved(start, end time.Time) *model.Booking {
	return h.store.add(&model.Booking{
		ResourceID:    1,
		ResourceType:  model.ResourceTypeRoom,
		UserID:        100,
		MeetingName:   "standup",
		StartTime:     start,
		EndTime:       end,
		SessionStatus: model.StatusReserved,
	})
}

func (h *harness) checkedIn(start, end time.Time) *model.Booking {
	b := h.store.add(&model.Booking{
		ResourceID:    1,
		ResourceType:  model.ResourceTypeRoom,
		UserID:        100,
		MeetingName:   "standup",
		StartTime:     start,
		EndTime:       end,
		SessionStatus: model.StatusCheckedIn,
	})
	in := start
	_ = h.store.Create(context.Background(), &model.CheckInRecord{
		BookingID:   b.ID,
		CheckInTime: &in,
		IsCheckedIn: true,
	})
	return b
}

func (h *harness) at(hh, mm int) time.Time {
	return time.Date(2025, 3, 10, hh, mm, 0, 0, time.UTC)
}

func TestNoShowMarkedOnlyAfterWindowEnds(t *testing.T) {
	h := newHarness(t)
	b := h.reserved(h.at(10, 0), h.at(11, 0))
	ctx := context.Background()

	// During the window nothing happens.
	h.now = h.at(10, 30)
	h.sched.RunCycle(ctx)
	assert.Equal(t, model.StatusReserved, h.store.get(b.ID).SessionStatus)

	// Once the end passes the booking becomes a no-show, exactly once.
	h.now = h.at(11, 1)
	h.sched.RunCycle(ctx)
	assert.Equal(t, model.StatusNoShow, h.store.get(b.ID).SessionStatus)
	assert.Equal(t, 1, h.notifier.count("no_show"))

	h.sched.RunCycle(ctx)
	assert.Equal(t, 1, h.notifier.count("no_show"))
}

func TestEntryReminderOneShot(t *testing.T) {
	h := newHarness(t)
	b := h.reserved(h.at(10, 0), h.at(11, 0))
	ctx := context.Background()

	// Before the check-in window opens no reminder fires.
	h.now = h.at(9, 40)
	h.sched.RunCycle(ctx)
	assert.Equal(t, 0, h.notifier.count("entry_reminder"))

	// Inside the window it fires once; repeated cycles stay quiet.
	h.now = h.at(9, 50)
	for i := 0; i < 3; i++ {
		h.sched.RunCycle(ctx)
	}
	assert.Equal(t, 1, h.notifier.count("entry_reminder"))
	assert.True(t, h.store.get(b.ID).EntryReminderSent)
}

func TestExitReminderForCheckedInBooking(t *testing.T) {
	h := newHarness(t)
	b := h.checkedIn(h.at(10, 0), h.at(11, 0))
	ctx := context.Background()

	// More than the lead time before the end: nothing.
	h.now = h.at(10, 45)
	h.sched.RunCycle(ctx)
	assert.Equal(t, 0, h.notifier.count("exit_reminder"))

	// Inside the lead window it fires once.
	h.now = h.at(10, 52)
	h.sched.RunCycle(ctx)
	h.sched.RunCycle(ctx)
	assert.Equal(t, 1, h.notifier.count("exit_reminder"))
	assert.True(t, h.store.get(b.ID).ExitReminderSent)

	// A reserved booking never gets an exit reminder.
	h.reserved(h.at(10, 0), h.at(11, 0))
	h.sched.RunCycle(ctx)
	assert.Equal(t, 1, h.notifier.count("exit_reminder"))
}

func TestOverdueReminderPrecedesForcedCheckout(t *testing.T) {
	h := newHarness(t)
	b := h.checkedIn(h.at(10, 0), h.at(11, 0))
	ctx := context.Background()

	// First cycle past the end: the overdue reminder fires but the
	// booking stays checked in, leaving the user a chance to check out.
	h.now = h.at(11, 5)
	h.sched.RunCycle(ctx)
	assert.Equal(t, 1, h.notifier.count("overdue_reminder"))
	assert.Equal(t, model.StatusCheckedIn, h.store.get(b.ID).SessionStatus)
	assert.True(t, h.store.get(b.ID).OverdueReminderSent)

	// The next cycle performs the forced checkout.
	h.now = h.at(11, 6)
	h.sched.RunCycle(ctx)
	got := h.store.get(b.ID)
	assert.Equal(t, model.StatusCompleted, got.SessionStatus)
	assert.Equal(t, 1, h.notifier.count("forced_checkout"))

	rec, err := h.store.GetByBookingID(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, rec.IsCheckedOut)
	assert.Equal(t, 66*time.Minute, rec.ActualDuration)

	// Further cycles leave the completed booking alone.
	h.sched.RunCycle(ctx)
	assert.Equal(t, 1, h.notifier.count("overdue_reminder"))
	assert.Equal(t, 1, h.notifier.count("forced_checkout"))
}

func TestCycleIsolatesBookings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// A mixed population advances independently within one cycle.
	noShow := h.reserved(h.at(8, 0), h.at(9, 0))
	upcoming := h.reserved(h.at(9, 10), h.at(10, 0))
	ending := h.checkedIn(h.at(8, 30), h.at(9, 5))

	h.now = h.at(9, 1)
	h.sched.RunCycle(ctx)

	assert.Equal(t, model.StatusNoShow, h.store.get(noShow.ID).SessionStatus)
	assert.True(t, h.store.get(upcoming.ID).EntryReminderSent)
	assert.True(t, h.store.get(ending.ID).ExitReminderSent)
	assert.Equal(t, model.StatusCheckedIn, h.store.get(ending.ID).SessionStatus)
}

func TestCycleSurvivesFailingBooking(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Two elapsed reservations; the store rejects every status update
	// for the first one.
	poisoned := h.reserved(h.at(8, 0), h.at(8, 30))
	healthy := h.reserved(h.at(8, 30), h.at(9, 0))
	h.store.failStatusUpdate = poisoned.ID

	h.now = h.at(9, 1)
	h.sched.RunCycle(ctx)

	// The failure stays contained: the healthy booking is still marked
	// and announced, the failing one is left untouched and unannounced.
	assert.Equal(t, model.StatusNoShow, h.store.get(healthy.ID).SessionStatus)
	assert.Equal(t, 1, h.notifier.count("no_show"))
	assert.Equal(t, model.StatusReserved, h.store.get(poisoned.ID).SessionStatus)

	// Once the store recovers the skipped booking is caught up.
	h.store.failStatusUpdate = 0
	h.sched.RunCycle(ctx)
	assert.Equal(t, model.StatusNoShow, h.store.get(poisoned.ID).SessionStatus)
	assert.Equal(t, 2, h.notifier.count("no_show"))
}

func TestStartStopsOnContextCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.sched.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}
