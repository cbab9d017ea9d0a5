package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/workspace-reservation/internal/model"
)

// BookingRepo provides data access to the bookings table.  It owns the
// only write paths for reservations: the transactional create that
// enforces interval exclusivity, and the guarded status updates used by
// the lifecycle transitions and the reminder scheduler.  All timestamp
// columns are stored in UTC; callers must pass UTC instants.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, resource_id, resource_type, user_id, meeting_name,
	participant_count, start_time, end_time, session_status,
	entry_reminder_sent, exit_reminder_sent, overdue_reminder_sent,
	cancellation_reason, cancelled_at, created_at, updated_at`

// scanBooking reads one bookings row from the given scanner into a model
// struct, converting nullable columns to pointers.
func scanBooking(row interface{ Scan(...interface{}) error }) (*model.Booking, error) {
	var (
		b            model.Booking
		participants sql.NullInt64
		reason       sql.NullString
		cancelledAt  sql.NullTime
	)
	err := row.Scan(
		&b.ID, &b.ResourceID, &b.ResourceType, &b.UserID, &b.MeetingName,
		&participants, &b.StartTime, &b.EndTime, &b.SessionStatus,
		&b.EntryReminderSent, &b.ExitReminderSent, &b.OverdueReminderSent,
		&reason, &cancelledAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if participants.Valid {
		n := uint32(participants.Int64)
		b.ParticipantCount = &n
	}
	if reason.Valid {
		s := reason.String
		b.CancellationReason = &s
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time.UTC()
		b.CancelledAt = &t
	}
	b.StartTime = b.StartTime.UTC()
	b.EndTime = b.EndTime.UTC()
	return &b, nil
}

// CreateIfAvailable inserts a new booking only if its window is free.
// It runs in a single transaction that first locks the resource row
// (SELECT ... FOR UPDATE) so that two concurrent requests for the same
// resource serialize here, then re-checks the overlap predicate and
// inserts.  Returns ErrResourceNotFound when the resource row is missing
// and ErrTimeConflict when a non-cancelled booking overlaps
// [StartTime, EndTime).  On success the generated ID and timestamps are
// populated on the provided struct.
func (r *BookingRepo) CreateIfAvailable(ctx context.Context, b *model.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Per-resource serialization point: the row lock is held until
	// commit, so the overlap check below cannot race another create on
	// the same resource.
	var resourceID uint64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM resources WHERE id = ? FOR UPDATE`, b.ResourceID,
	).Scan(&resourceID)
	if err == sql.ErrNoRows {
		return ErrResourceNotFound
	}
	if err != nil {
		return err
	}

	var overlapping int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings
		 WHERE resource_id = ? AND session_status <> 'CANCELLED'
		   AND start_time < ? AND end_time > ?`,
		b.ResourceID,
		b.EndTime.UTC().Format("2006-01-02 15:04:05"),
		b.StartTime.UTC().Format("2006-01-02 15:04:05"),
	).Scan(&overlapping)
	if err != nil {
		return err
	}
	if overlapping > 0 {
		return ErrTimeConflict
	}

	var participants interface{}
	if b.ParticipantCount != nil {
		participants = *b.ParticipantCount
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (resource_id, resource_type, user_id, meeting_name,
		   participant_count, start_time, end_time, session_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ResourceID, b.ResourceType, b.UserID, b.MeetingName, participants,
		b.StartTime.UTC().Format("2006-01-02 15:04:05"),
		b.EndTime.UTC().Format("2006-01-02 15:04:05"),
		b.SessionStatus,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	// Query back the full row to populate timestamps and defaults.
	stored, err := r.getByIDTx(ctx, tx, b.ID)
	if err != nil {
		return err
	}
	*b = *stored

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (r *BookingRepo) getByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// GetByID fetches a booking by primary key.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// ListOverlapping returns the non-cancelled bookings on a resource that
// overlap the half-open interval [start, end).  excludeID, when non-zero,
// omits the booking being modified so update checks do not collide with
// themselves.  This is the advisory availability read; the authoritative
// check happens again inside CreateIfAvailable.
func (r *BookingRepo) ListOverlapping(ctx context.Context, resourceID uint64, start, end time.Time, excludeID uint64) ([]*model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE resource_id = ? AND session_status <> 'CANCELLED'
		   AND start_time < ? AND end_time > ? AND id <> ?
		 ORDER BY start_time`,
		resourceID,
		end.UTC().Format("2006-01-02 15:04:05"),
		start.UTC().Format("2006-01-02 15:04:05"),
		excludeID,
	)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// ListByUser returns all bookings owned by a user, most recent first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]*model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY start_time DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// ListByStatus returns all bookings in the given lifecycle state ordered
// by start time.  The session_status index keeps the scheduler's scans
// cheap even as the table grows.
func (r *BookingRepo) ListByStatus(ctx context.Context, status model.SessionStatus) ([]*model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE session_status = ? ORDER BY start_time`,
		status,
	)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// UpdateStatusFrom transitions a booking from one status to another with
// an optimistic guard: the UPDATE only matches while the row is still in
// the expected state.  Zero affected rows means a concurrent writer got
// there first and ErrStateConflict is returned; the two concurrent
// check-ins problem reduces to exactly this check.
func (r *BookingRepo) UpdateStatusFrom(ctx context.Context, id uint64, from, to model.SessionStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET session_status = ?, updated_at = UTC_TIMESTAMP()
		 WHERE id = ? AND session_status = ?`,
		to, id, from,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStateConflict
	}
	return nil
}

// Cancel marks a booking cancelled, recording the reason and timestamp.
// The guard admits only RESERVED and CHECKED_IN bookings; anything else
// returns ErrStateConflict.  Cancelled rows stop occupying their window
// in every availability query.
func (r *BookingRepo) Cancel(ctx context.Context, id uint64, reason string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings
		 SET session_status = 'CANCELLED', cancellation_reason = ?, cancelled_at = ?,
		     updated_at = UTC_TIMESTAMP()
		 WHERE id = ? AND session_status IN ('RESERVED', 'CHECKED_IN')`,
		reason, at.UTC().Format("2006-01-02 15:04:05"), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStateConflict
	}
	return nil
}

// SetReminderFlag atomically claims one of the one-shot reminder flags.
// It reports true when this call performed the 0→1 transition and false
// when the flag was already set, which is how each reminder fires at
// most once across scheduler cycles and restarts.
func (r *BookingRepo) SetReminderFlag(ctx context.Context, id uint64, flag model.ReminderFlag) (bool, error) {
	var column string
	switch flag {
	case model.ReminderEntry:
		column = "entry_reminder_sent"
	case model.ReminderExit:
		column = "exit_reminder_sent"
	case model.ReminderOverdue:
		column = "overdue_reminder_sent"
	default:
		return false, ErrStateConflict
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET `+column+` = 1, updated_at = UTC_TIMESTAMP()
		 WHERE id = ? AND `+column+` = 0`,
		id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// collectBookings drains a result set into a slice, closing the rows.
func collectBookings(rows *sql.Rows) ([]*model.Booking, error) {
	defer rows.Close()
	var out []*model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
