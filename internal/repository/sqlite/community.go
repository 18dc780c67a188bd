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

// CommunityDB implements repository.CommunityRepository.
type CommunityDB struct {
	conn *sql.DB
}

var _ repository.CommunityRepository = (*CommunityDB)(nil)

// Create inserts a new community. The ID is generated here with xid —
// 20 chars, URL-safe, sortable by creation time.
func (db *CommunityDB) Create(ctx context.Context, c *model.Community) error {
	now := time.Now()
	c.ID = xid.New().String()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.QRCode == "" {
		c.QRCode = model.DefaultQRCode
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO communities (id, code, name, number, qr_code, type, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Code, c.Name, c.Number, c.QRCode, c.Type, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting community %q: %w", c.Code, err)
	}
	return nil
}

// GetByID retrieves a community. Returns apperror.ErrNotFound when absent.
func (db *CommunityDB) GetByID(ctx context.Context, id string) (*model.Community, error) {
	var c model.Community

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, code, name, number, qr_code, type, created_at, updated_at
		 FROM communities WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.Code, &c.Name, &c.Number, &c.QRCode, &c.Type, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("community", id)
		}
		return nil, fmt.Errorf("sqlite: getting community %s: %w", id, err)
	}

	return &c, nil
}

// List returns communities ordered by (type, code), the order the frontend
// renders its group directory in. filter.Type narrows to one community type.
func (db *CommunityDB) List(ctx context.Context, filter repository.CommunityFilter) ([]model.Community, error) {
	query := `SELECT id, code, name, number, qr_code, type, created_at, updated_at
	          FROM communities`
	args := []any{}

	if filter.Type != "" {
		query += ` WHERE type = ?`
		args = append(args, filter.Type)
	}
	query += ` ORDER BY type, code`

	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing communities: %w", err)
	}
	defer rows.Close()

	communities := []model.Community{}
	for rows.Next() {
		var c model.Community
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Number, &c.QRCode, &c.Type,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning community row: %w", err)
		}
		communities = append(communities, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating community rows: %w", err)
	}

	return communities, nil
}

// Update overwrites all mutable fields of a community.
func (db *CommunityDB) Update(ctx context.Context, c *model.Community) error {
	c.UpdatedAt = time.Now()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE communities SET code = ?, name = ?, number = ?, qr_code = ?, type = ?, updated_at = ?
		 WHERE id = ?`,
		c.Code, c.Name, c.Number, c.QRCode, c.Type, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating community %s: %w", c.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("community", c.ID)
	}
	return nil
}

// Delete removes a community.
func (db *CommunityDB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM communities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting community %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("community", id)
	}
	return nil
}
