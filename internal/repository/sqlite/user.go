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

// UserDB implements repository.UserRepository.
type UserDB struct {
	conn *sql.DB
}

var _ repository.UserRepository = (*UserDB)(nil)

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, email, first_name, last_name, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	return &u, nil
}

// GetByExternalID finds the user whose profile carries the given external id.
// The user and profile rows come back together — the sync flow always
// touches both.
func (db *UserDB) GetByExternalID(ctx context.Context, externalID string) (*model.User, *model.Profile, error) {
	var (
		u          model.User
		p          model.Profile
		externalNS sql.NullString
		avatarNS   sql.NullString
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT u.id, u.username, u.email, u.first_name, u.last_name, u.created_at, u.updated_at,
		        p.user_id, p.external_id, p.avatar_url
		 FROM profiles p
		 JOIN users u ON u.id = p.user_id
		 WHERE p.external_id = ?`,
		externalID,
	).Scan(
		&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt,
		&p.UserID, &externalNS, &avatarNS,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, apperror.NotFound("profile", externalID)
		}
		return nil, nil, fmt.Errorf("sqlite: getting user by external id %s: %w", externalID, err)
	}

	p.ExternalID = externalNS.String
	p.AvatarURL = avatarNS.String
	return &u, &p, nil
}

// UsernameExists reports whether any user already holds the given username.
// The username allocator probes candidates through this; the UNIQUE
// constraint still backstops the race between the probe and the insert.
func (db *UserDB) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username = ?`, username,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking username %q: %w", username, err)
	}
	return count > 0, nil
}

// CreateWithProfile inserts a user and its linked profile in one
// transaction.
//
// WHY A TRANSACTION?
// Without it, a failed profile insert would strand a user row with no
// profile — and since the profile carries the external id, that user could
// never be found by a later sync. Rolling back the pair keeps the store
// consistent: either both rows exist or neither does.
//
// A UNIQUE violation on username or external_id returns apperror.ErrConflict
// so the caller can retry its lookup-then-create sequence.
func (db *UserDB) CreateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	profile.UserID = user.ID

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning create transaction: %w", err)
	}
	// Rollback is a no-op after Commit — safe to always defer.
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, username, email, first_name, last_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.FirstName, user.LastName,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username)
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	// Empty external id is stored as NULL so the UNIQUE constraint ignores
	// it (SQLite treats NULLs as distinct).
	_, err = tx.ExecContext(ctx,
		`INSERT INTO profiles (user_id, external_id, avatar_url)
		 VALUES (?, ?, ?)`,
		profile.UserID, nullable(profile.ExternalID), nullable(profile.AvatarURL),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("profile", profile.ExternalID)
		}
		return fmt.Errorf("sqlite: inserting profile for user %s: %w", user.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing user create: %w", err)
	}
	return nil
}

// UpdateSync overwrites the fields a returning sync refreshes: the user's
// email and names, and the profile's avatar. Username and external id never
// change here.
func (db *UserDB) UpdateSync(ctx context.Context, user *model.User, profile *model.Profile) error {
	user.UpdatedAt = time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning sync transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET email = ?, first_name = ?, last_name = ?, updated_at = ?
		 WHERE id = ?`,
		user.Email, user.FirstName, user.LastName, user.UpdatedAt, user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", user.ID)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE profiles SET avatar_url = ? WHERE user_id = ?`,
		nullable(profile.AvatarURL), user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating profile for user %s: %w", user.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing sync update: %w", err)
	}
	return nil
}

// Delete removes a user. The profile goes with it via ON DELETE CASCADE;
// join requests keep their rows with user_id nulled (ON DELETE SET NULL).
func (db *UserDB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// GetProfileByUserID returns the profile owned by the given user.
// Used by tests and the cascade checks; the sync flow reads via
// GetByExternalID.
func (db *UserDB) GetProfileByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	var (
		p          model.Profile
		externalNS sql.NullString
		avatarNS   sql.NullString
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id, external_id, avatar_url FROM profiles WHERE user_id = ?`,
		userID,
	).Scan(&p.UserID, &externalNS, &avatarNS)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("profile", userID)
		}
		return nil, fmt.Errorf("sqlite: getting profile for user %s: %w", userID, err)
	}

	p.ExternalID = externalNS.String
	p.AvatarURL = avatarNS.String
	return &p, nil
}

// nullable maps "" to NULL for columns where empty means absent.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
