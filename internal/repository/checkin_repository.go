package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/workspace-reservation/internal/model"
)

// CheckInRepo provides data access to the checkins table.  Each booking
// has at most one check-in record, created on first check-in and
// completed once on check-out.  The booking_id column carries a unique
// constraint so a duplicate create fails at the database.
type CheckInRepo struct {
	db *sql.DB
}

// NewCheckInRepo returns a new CheckInRepo bound to the given database.
func NewCheckInRepo(db *sql.DB) *CheckInRepo { return &CheckInRepo{db: db} }

// Create inserts the check-in record for a booking.  CheckInTime must be
// set; the generated ID is populated on the provided struct.
func (r *CheckInRepo) Create(ctx context.Context, rec *model.CheckInRecord) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO checkins (booking_id, check_in_time, is_checked_in)
		 VALUES (?, ?, 1)`,
		rec.BookingID, rec.CheckInTime.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	return nil
}

// GetByBookingID fetches the check-in record for a booking.  Returns
// ErrCheckInNotFound when the booking never checked in.
func (r *CheckInRepo) GetByBookingID(ctx context.Context, bookingID uint64) (*model.CheckInRecord, error) {
	var (
		rec      model.CheckInRecord
		inTime   sql.NullTime
		outTime  sql.NullTime
		duration sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, booking_id, check_in_time, check_out_time,
		        is_checked_in, is_checked_out, actual_duration_secs
		 FROM checkins WHERE booking_id = ?`,
		bookingID,
	).Scan(&rec.ID, &rec.BookingID, &inTime, &outTime,
		&rec.IsCheckedIn, &rec.IsCheckedOut, &duration)
	if err == sql.ErrNoRows {
		return nil, ErrCheckInNotFound
	}
	if err != nil {
		return nil, err
	}
	if inTime.Valid {
		t := inTime.Time.UTC()
		rec.CheckInTime = &t
	}
	if outTime.Valid {
		t := outTime.Time.UTC()
		rec.CheckOutTime = &t
	}
	if duration.Valid {
		rec.ActualDuration = time.Duration(duration.Int64) * time.Second
	}
	return &rec, nil
}

// Complete records the check-out, deriving the actual duration from the
// stored check-in time.  The guard on is_checked_out makes a double
// check-out return ErrStateConflict instead of silently rewriting the
// record.  The updated record is returned.
func (r *CheckInRepo) Complete(ctx context.Context, bookingID uint64, at time.Time) (*model.CheckInRecord, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE checkins
		 SET check_out_time = ?, is_checked_out = 1,
		     actual_duration_secs = TIMESTAMPDIFF(SECOND, check_in_time, ?)
		 WHERE booking_id = ? AND is_checked_out = 0`,
		at.UTC().Format("2006-01-02 15:04:05"),
		at.UTC().Format("2006-01-02 15:04:05"),
		bookingID,
	)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrStateConflict
	}
	return r.GetByBookingID(ctx, bookingID)
}
