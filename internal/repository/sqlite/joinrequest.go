package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/coursemate/internal/apperror"
	"github.com/sakif/coursemate/internal/model"
	"github.com/sakif/coursemate/internal/repository"
)

// JoinRequestDB implements repository.JoinRequestRepository.
type JoinRequestDB struct {
	conn *sql.DB
}

var _ repository.JoinRequestRepository = (*JoinRequestDB)(nil)

// Create inserts a new join request. Status defaults to pending; callers
// cannot set it at creation time (the service enforces that, this just
// applies the default when the field is empty).
func (db *JoinRequestDB) Create(ctx context.Context, r *model.JoinRequest) error {
	now := time.Now()
	r.ID = xid.New().String()
	r.CreatedAt = now
	r.UpdatedAt = now
	if r.Status == "" {
		r.Status = model.JoinRequestPending
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO join_requests (id, department_name, course_number, status, user_id, user_email, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.DepartmentName, r.CourseNumber, r.Status,
		nullable(r.UserID), r.UserEmail, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting join request: %w", err)
	}
	return nil
}

// GetByID retrieves a join request. Returns apperror.ErrNotFound when absent.
func (db *JoinRequestDB) GetByID(ctx context.Context, id string) (*model.JoinRequest, error) {
	var (
		r      model.JoinRequest
		userNS sql.NullString
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, department_name, course_number, status, user_id, user_email, created_at, updated_at
		 FROM join_requests WHERE id = ?`,
		id,
	).Scan(&r.ID, &r.DepartmentName, &r.CourseNumber, &r.Status, &userNS, &r.UserEmail,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("join request", id)
		}
		return nil, fmt.Errorf("sqlite: getting join request %s: %w", id, err)
	}

	r.UserID = userNS.String
	return &r, nil
}

// List returns join requests newest first, optionally narrowed by status.
func (db *JoinRequestDB) List(ctx context.Context, filter repository.JoinRequestFilter) ([]model.JoinRequest, error) {
	query := `SELECT id, department_name, course_number, status, user_id, user_email, created_at, updated_at
	          FROM join_requests`
	args := []any{}

	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing join requests: %w", err)
	}
	defer rows.Close()

	requests := []model.JoinRequest{}
	for rows.Next() {
		var (
			r      model.JoinRequest
			userNS sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.DepartmentName, &r.CourseNumber, &r.Status, &userNS,
			&r.UserEmail, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning join request row: %w", err)
		}
		r.UserID = userNS.String
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating join request rows: %w", err)
	}

	return requests, nil
}

// Update overwrites the mutable fields of a join request — in practice the
// status, when an admin approves or rejects it.
func (db *JoinRequestDB) Update(ctx context.Context, r *model.JoinRequest) error {
	r.UpdatedAt = time.Now()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE join_requests
		 SET department_name = ?, course_number = ?, status = ?, user_id = ?, user_email = ?, updated_at = ?
		 WHERE id = ?`,
		r.DepartmentName, r.CourseNumber, r.Status, nullable(r.UserID), r.UserEmail,
		r.UpdatedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating join request %s: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("join request", r.ID)
	}
	return nil
}

// Delete removes a join request.
func (db *JoinRequestDB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM join_requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting join request %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("join request", id)
	}
	return nil
}
