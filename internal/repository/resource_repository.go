package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/workspace-reservation/internal/model"
)

// ResourceRepo provides data access to the resources table.  The booking
// engine only reads resources; writes come from the directory
// administration endpoints.
type ResourceRepo struct {
	db *sql.DB
}

// NewResourceRepo returns a new ResourceRepo bound to the given database.
func NewResourceRepo(db *sql.DB) *ResourceRepo { return &ResourceRepo{db: db} }

const resourceColumns = `id, name, type, capacity, location,
	under_maintenance, blocked, block_reason, blocked_from, blocked_until,
	created_at, updated_at`

func scanResource(row interface{ Scan(...interface{}) error }) (*model.Resource, error) {
	var (
		res     model.Resource
		reason  sql.NullString
		from    sql.NullTime
		until   sql.NullTime
	)
	err := row.Scan(
		&res.ID, &res.Name, &res.Type, &res.Capacity, &res.Location,
		&res.UnderMaintenance, &res.Blocked, &reason, &from, &until,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if reason.Valid {
		s := reason.String
		res.BlockReason = &s
	}
	if from.Valid {
		t := from.Time.UTC()
		res.BlockedFrom = &t
	}
	if until.Valid {
		t := until.Time.UTC()
		res.BlockedUntil = &t
	}
	return &res, nil
}

// Create inserts a new resource and populates its generated ID.
func (r *ResourceRepo) Create(ctx context.Context, res *model.Resource) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO resources (name, type, capacity, location) VALUES (?, ?, ?, ?)`,
		res.Name, res.Type, res.Capacity, res.Location,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// GetByID fetches a resource by primary key.
func (r *ResourceRepo) GetByID(ctx context.Context, id uint64) (*model.Resource, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id)
	res, err := scanResource(row)
	if err == sql.ErrNoRows {
		return nil, ErrResourceNotFound
	}
	return res, err
}

// List returns all resources, optionally filtered by type.  Pass an
// empty string to list every resource.
func (r *ResourceRepo) List(ctx context.Context, resourceType model.ResourceType) ([]*model.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources`
	args := []interface{}{}
	if resourceType != "" {
		query += ` WHERE type = ?`
		args = append(args, resourceType)
	}
	query += ` ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SetMaintenance toggles the under_maintenance flag.
func (r *ResourceRepo) SetMaintenance(ctx context.Context, id uint64, under bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE resources SET under_maintenance = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		under, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrResourceNotFound
	}
	return nil
}

// SetBlocked blocks or unblocks a resource.  When blocking, an optional
// reason and window may be recorded; unblocking clears all three.
func (r *ResourceRepo) SetBlocked(ctx context.Context, id uint64, blocked bool, reason *string, from, until *time.Time) error {
	var reasonArg, fromArg, untilArg interface{}
	if blocked {
		if reason != nil {
			reasonArg = *reason
		}
		if from != nil {
			fromArg = from.UTC().Format("2006-01-02 15:04:05")
		}
		if until != nil {
			untilArg = until.UTC().Format("2006-01-02 15:04:05")
		}
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE resources
		 SET blocked = ?, block_reason = ?, blocked_from = ?, blocked_until = ?,
		     updated_at = UTC_TIMESTAMP()
		 WHERE id = ?`,
		blocked, reasonArg, fromArg, untilArg, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrResourceNotFound
	}
	return nil
}
