package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/workspace-reservation/internal/model"
	"github.com/iliyamo/workspace-reservation/internal/repository"
	"github.com/iliyamo/workspace-reservation/internal/timeutil"
)

// memStore is an in-memory Store + CheckInStore with the same guarded
// write semantics as the SQL repositories.
type memStore struct {
	mu       sync.Mutex
	nextID   uint64
	bookings map[uint64]*model.Booking
	records  map[uint64]*model.CheckInRecord
}

func newMemStore() *memStore {
	return &memStore{
		bookings: map[uint64]*model.Booking{},
		records:  map[uint64]*model.CheckInRecord{},
	}
}

func (m *memStore) CreateIfAvailable(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.bookings {
		if other.ResourceID != b.ResourceID || !other.Occupies() {
			continue
		}
		if other.Overlaps(b.StartTime, b.EndTime) {
			return repository.ErrTimeConflict
		}
	}
	m.nextID++
	b.ID = m.nextID
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) ListOverlapping(_ context.Context, resourceID uint64, start, end time.Time, excludeID uint64) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.ResourceID != resourceID || b.ID == excludeID || !b.Occupies() {
			continue
		}
		if b.Overlaps(start, end) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) ListByUser(_ context.Context, userID uint64) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.UserID == userID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) ListByStatus(_ context.Context, status model.SessionStatus) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.SessionStatus == status {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) UpdateStatusFrom(_ context.Context, id uint64, from, to model.SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.SessionStatus != from {
		return repository.ErrStateConflict
	}
	b.SessionStatus = to
	return nil
}

func (m *memStore) Cancel(_ context.Context, id uint64, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || (b.SessionStatus != model.StatusReserved && b.SessionStatus != model.StatusCheckedIn) {
		return repository.ErrStateConflict
	}
	b.SessionStatus = model.StatusCancelled
	b.CancellationReason = &reason
	b.CancelledAt = &at
	return nil
}

func (m *memStore) SetReminderFlag(_ context.Context, id uint64, flag model.ReminderFlag) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
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

func (m *memStore) Create(_ context.Context, rec *model.CheckInRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[rec.BookingID]; exists {
		return repository.ErrStateConflict
	}
	m.nextID++
	rec.ID = m.nextID
	cp := *rec
	m.records[rec.BookingID] = &cp
	return nil
}

func (m *memStore) GetByBookingID(_ context.Context, bookingID uint64) (*model.CheckInRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[bookingID]
	if !ok {
		return nil, repository.ErrCheckInNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memStore) Complete(_ context.Context, bookingID uint64, at time.Time) (*model.CheckInRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[bookingID]
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

// memDirectory is an in-memory ResourceDirectory.
type memDirectory struct {
	mu        sync.Mutex
	resources map[uint64]*model.Resource
}

func newMemDirectory() *memDirectory {
	return &memDirectory{resources: map[uint64]*model.Resource{}}
}

func (d *memDirectory) GetByID(_ context.Context, id uint64) (*model.Resource, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	res, ok := d.resources[id]
	if !ok {
		return nil, repository.ErrResourceNotFound
	}
	cp := *res
	return &cp, nil
}

func (d *memDirectory) add(res *model.Resource) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resources[res.ID] = res
}

// recordingNotifier captures dispatched notifications by kind.
type recordingNotifier struct {
	mu    sync.Mutex
	kinds []string
}

func (n *recordingNotifier) Send(_ context.Context, _ uint64, _, _, kind string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
}

func (n *recordingNotifier) sent(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, k := range n.kinds {
		if k == kind {
			count++
		}
	}
	return count
}

// fixture bundles a service over in-memory stores with a mutable clock.
type fixture struct {
	svc      *Service
	store    *memStore
	dir      *memDirectory
	notifier *recordingNotifier
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    newMemStore(),
		dir:      newMemDirectory(),
		notifier: &recordingNotifier{},
		now:      time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.store, f.store, f.dir, f.notifier, func() time.Time { return f.now })
	f.dir.add(&model.Resource{ID: 1, Name: "Room A", Type: model.ResourceTypeRoom, Capacity: 8})
	f.dir.add(&model.Resource{ID: 2, Name: "Desk 7", Type: model.ResourceTypeDesk})
	return f
}

func (f *fixture) at(h, m int) time.Time {
	return time.Date(2025, 3, 10, h, m, 0, 0, time.UTC)
}

func (f *fixture) mustCreate(t *testing.T, resourceID, userID uint64, start, end time.Time) *model.Booking {
	t.Helper()
	b, err := f.svc.Create(context.Background(), CreateRequest{
		ResourceID:  resourceID,
		UserID:      userID,
		MeetingName: "standup",
		StartTime:   start,
		EndTime:     end,
	})
	require.NoError(t, err)
	return b
}

func TestCreateRejectsOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mustCreate(t, 1, 100, f.at(10, 0), f.at(11, 0))

	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		wantErr error
	}{
		{"straddles start", f.at(9, 30), f.at(10, 30), ErrTimeConflict},
		{"inside", f.at(10, 15), f.at(10, 45), ErrTimeConflict},
		{"straddles end", f.at(10, 30), f.at(11, 30), ErrTimeConflict},
		{"covers", f.at(9, 0), f.at(12, 0), ErrTimeConflict},
		{"touches end", f.at(11, 0), f.at(12, 0), nil},
		{"touches start", f.at(9, 0), f.at(10, 0), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, CreateRequest{
				ResourceID:  1,
				UserID:      200,
				MeetingName: "sync",
				StartTime:   tt.start,
				EndTime:     tt.end,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateSameWindowDifferentResources(t *testing.T) {
	f := newFixture(t)
	f.mustCreate(t, 1, 100, f.at(10, 0), f.at(11, 0))
	f.mustCreate(t, 2, 100, f.at(10, 0), f.at(11, 0))
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.dir.add(&model.Resource{ID: 3, Name: "Room B", Type: model.ResourceTypeRoom, UnderMaintenance: true})
	f.dir.add(&model.Resource{ID: 4, Name: "Room C", Type: model.ResourceTypeRoom, Blocked: true})

	tests := []struct {
		name    string
		req     CreateRequest
		wantErr error
	}{
		{
			name: "end before start",
			req: CreateRequest{ResourceID: 1, UserID: 1, MeetingName: "x",
				StartTime: f.at(11, 0), EndTime: f.at(10, 0)},
			wantErr: ErrInvalidTimeRange,
		},
		{
			name: "zero length",
			req: CreateRequest{ResourceID: 1, UserID: 1, MeetingName: "x",
				StartTime: f.at(10, 0), EndTime: f.at(10, 0)},
			wantErr: ErrInvalidTimeRange,
		},
		{
			name: "start too far in the past",
			req: CreateRequest{ResourceID: 1, UserID: 1, MeetingName: "x",
				StartTime: f.now.Add(-PastStartTolerance - time.Minute), EndTime: f.at(10, 0)},
			wantErr: ErrStartInPast,
		},
		{
			name: "blank meeting name",
			req: CreateRequest{ResourceID: 1, UserID: 1, MeetingName: "   ",
				StartTime: f.at(10, 0), EndTime: f.at(11, 0)},
			wantErr: ErrEmptyMeetingName,
		},
		{
			name: "unknown resource",
			req: CreateRequest{ResourceID: 99, UserID: 1, MeetingName: "x",
				StartTime: f.at(10, 0), EndTime: f.at(11, 0)},
			wantErr: ErrNotFound,
		},
		{
			name: "resource under maintenance",
			req: CreateRequest{ResourceID: 3, UserID: 1, MeetingName: "x",
				StartTime: f.at(10, 0), EndTime: f.at(11, 0)},
			wantErr: ErrResourceUnavailable,
		},
		{
			name: "resource blocked",
			req: CreateRequest{ResourceID: 4, UserID: 1, MeetingName: "x",
				StartTime: f.at(10, 0), EndTime: f.at(11, 0)},
			wantErr: ErrResourceUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateWithinPastTolerance(t *testing.T) {
	f := newFixture(t)
	b := f.mustCreate(t, 1, 100, f.now.Add(-PastStartTolerance+time.Minute), f.at(10, 0))
	assert.Equal(t, model.StatusReserved, b.SessionStatus)
	assert.Equal(t, 1, f.notifier.sent("booking_confirmed"))
}

func TestCancelFreesWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.mustCreate(t, 1, 100, f.at(10, 0), f.at(11, 0))

	// The occupied window rejects a second request.
	_, err := f.svc.Create(ctx, CreateRequest{
		ResourceID: 1, UserID: 200, MeetingName: "sync",
		StartTime: f.at(10, 0), EndTime: f.at(11, 0),
	})
	require.ErrorIs(t, err, ErrTimeConflict)

	require.NoError(t, f.svc.Cancel(ctx, b.ID, 100, "meeting moved"))
	assert.Equal(t, 1, f.notifier.sent("booking_cancelled"))

	stored, err := f.store.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, stored.SessionStatus)
	require.NotNil(t, stored.CancellationReason)
	assert.Equal(t, "meeting moved", *stored.CancellationReason)
	assert.NotNil(t, stored.CancelledAt)

	// The window is free again.
	f.mustCreate(t, 1, 200, f.at(10, 0), f.at(11, 0))
}

func TestCancelGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.mustCreate(t, 1, 100, f.at(10, 0), f.at(11, 0))

	assert.ErrorIs(t, f.svc.Cancel(ctx, b.ID, 100, "  "), ErrEmptyReason)
	assert.ErrorIs(t, f.svc.Cancel(ctx, b.ID, 999, "not mine"), ErrNotOwner)
	assert.ErrorIs(t, f.svc.Cancel(ctx, 12345, 100, "ghost"), ErrNotFound)

	// Cancelling twice hits the state guard.
	require.NoError(t, f.svc.Cancel(ctx, b.ID, 100, "moved"))
	var transition *InvalidTransitionError
	err := f.svc.Cancel(ctx, b.ID, 100, "again")
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, model.StatusCancelled, transition.From)
}

func TestCancelCheckedInBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.mustCreate(t, 1, 100, f.at(10, 0), f.at(11, 0))

	f.now = f.at(10, 0)
	_, err := f.svc.CheckIn(ctx, b.ID, 100)
	require.NoError(t, err)

	assert.NoError(t, f.svc.Cancel(ctx, b.ID, 100, "leaving early"))
}

func TestCheckInWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		nowAt  time.Time
		wantOK bool
	}{
		{"one minute inside the early window", f.at(9, 46), true},
		{"exactly at start", f.at(10, 0), true},
		{"mid window", f.at(10, 30), true},
		{"exactly at end", f.at(11, 0), true},
		{"too early", f.at(9, 44), false},
		{"after end", f.at(11, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := f.mustCreate(t, 1, 100, f.at(10, 0), f.at(11, 0))
			defer func() {
				f.now = f.at(6, 0)
				require.NoError(t, f.svc.Cancel(ctx, b.ID, 100, "cleanup"))
			}()

			f.now = tt.nowAt
			rec, err := f.svc.CheckIn(ctx, b.ID, 100)
			if tt.wantOK {
				require.NoError(t, err)
				assert.True(t, rec.IsCheckedIn)
				require.NotNil(t, rec.CheckInTime)
				assert.Equal(t, tt.nowAt, *rec.CheckInTime)
			} else {
				var transition *InvalidTransitionError
				require.ErrorAs(t, err, &transition)
			}
		})
	}
}

func TestCheckInGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.mustCreate(t, 1, 100, f.at(10, 0), f.at(11, 0))
	f.now = f.at(10, 0)

	_, err := f.svc.CheckIn(ctx, b.ID, 999)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = f.svc.CheckIn(ctx, b.ID, 100)
	require.NoError(t, err)

	// Second check-in is a state violation.
	var transition *InvalidTransitionError
	_, err = f.svc.CheckIn(ctx, b.ID, 100)
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, model.StatusCheckedIn, transition.From)
}

func TestCheckOutRecordsDuration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.mustCreate(t, 1, 100, f.at(10, 0), f.at(11, 0))

	f.now = f.at(10, 0)
	_, err := f.svc.CheckIn(ctx, b.ID, 100)
	require.NoError(t, err)

	f.now = f.at(10, 45)
	rec, err := f.svc.CheckOut(ctx, b.ID, 100)
	require.NoError(t, err)
	assert.True(t, rec.IsCheckedOut)
	assert.Equal(t, 45*time.Minute, rec.ActualDuration)

	stored, err := f.store.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, stored.SessionStatus)
	assert.Equal(t, 1, f.notifier.sent("checked_out"))

	// Double check-out is rejected.
	var transition *InvalidTransitionError
	_, err = f.svc.CheckOut(ctx, b.ID, 100)
	require.ErrorAs(t, err, &transition)
}

func TestCheckOutWithoutCheckIn(t *testing.T) {
	f := newFixture(t)
	b := f.mustCreate(t, 1, 100, f.at(10, 0), f.at(11, 0))

	var transition *InvalidTransitionError
	_, err := f.svc.CheckOut(context.Background(), b.ID, 100)
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, model.StatusReserved, transition.From)
}

func TestGetEnforcesOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.mustCreate(t, 1, 100, f.at(10, 0), f.at(11, 0))

	got, err := f.svc.Get(ctx, b.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = f.svc.Get(ctx, b.ID, 999)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = f.svc.Get(ctx, 424242, 100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListByUserDayFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	monday := f.mustCreate(t, 1, 100, f.at(10, 0), f.at(11, 0))
	// 19:00 UTC is already past local midnight, so for the caller this
	// booking belongs to the next calendar day.
	lateNight := f.mustCreate(t, 1, 100, f.at(19, 0), f.at(20, 0))
	tuesday := f.mustCreate(t, 2, 100,
		time.Date(2025, 3, 11, 5, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 11, 6, 0, 0, 0, time.UTC))
	f.mustCreate(t, 2, 200, f.at(12, 0), f.at(13, 0)) // other owner

	all, err := f.svc.ListByUser(ctx, 100, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	ids := func(bs []*model.Booking) []uint64 {
		var out []uint64
		for _, b := range bs {
			out = append(out, b.ID)
		}
		return out
	}

	day10 := time.Date(2025, 3, 10, 0, 0, 0, 0, timeutil.DisplayZone)
	got, err := f.svc.ListByUser(ctx, 100, &day10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{monday.ID}, ids(got))

	day11 := time.Date(2025, 3, 11, 0, 0, 0, 0, timeutil.DisplayZone)
	got, err = f.svc.ListByUser(ctx, 100, &day11)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{lateNight.ID, tuesday.ID}, ids(got))
}

func TestSendReminderIsOneShot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.mustCreate(t, 1, 100, f.at(10, 0), f.at(11, 0))

	for i := 0; i < 3; i++ {
		require.NoError(t, f.svc.SendReminder(ctx, b, model.ReminderEntry))
	}
	assert.Equal(t, 1, f.notifier.sent("entry_reminder"))

	// The other flags are independent.
	require.NoError(t, f.svc.SendReminder(ctx, b, model.ReminderExit))
	require.NoError(t, f.svc.SendReminder(ctx, b, model.ReminderExit))
	assert.Equal(t, 1, f.notifier.sent("exit_reminder"))
}

func TestNilNotifierIsSafe(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.store, f.store, f.dir, nil, func() time.Time { return f.now })
	_, err := svc.Create(context.Background(), CreateRequest{
		ResourceID: 1, UserID: 100, MeetingName: "quiet",
		StartTime: f.at(10, 0), EndTime: f.at(11, 0),
	})
	require.NoError(t, err)
}
