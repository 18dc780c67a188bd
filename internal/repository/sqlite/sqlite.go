// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. Perfect for:
// - Single-server deployments (which is most apps, honestly)
// - Development and testing (use ":memory:" for in-memory DB)
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed, works everywhere Go works.
//
// CONSISTENCY MODEL:
// Request handling is stateless and fully parallel, so the UNIQUE constraints
// declared in migrate() are the real backstop for the two check-then-act
// races in the sync flow: two first-time syncs of the same external identity,
// or two syncs deriving the same candidate username. The losing insert comes
// back as apperror.ErrConflict and the service retries once.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	// Blank import: the sqlite package's init() registers itself with
	// database/sql as a driver named "sqlite". After this import,
	// sql.Open("sqlite", ...) knows how to talk to SQLite.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool. Each repository interface is
// implemented by a small accessor type (Users, Communities, JoinRequests)
// sharing this pool, so one *DB wires the whole storage layer.
type DB struct {
	conn *sql.DB
}

// Users returns the user/profile repository backed by this pool.
func (db *DB) Users() *UserDB {
	return &UserDB{conn: db.conn}
}

// Communities returns the community repository backed by this pool.
func (db *DB) Communities() *CommunityDB {
	return &CommunityDB{conn: db.conn}
}

// JoinRequests returns the join-request repository backed by this pool.
func (db *DB) JoinRequests() *JoinRequestDB {
	return &JoinRequestDB{conn: db.conn}
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/coursemate.db" → file-based database (persistent)
//   - ":memory:"           → in-memory database (great for tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Ping forces an immediate connection so a bad path or permissions
	// issue surfaces here instead of on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads WHILE a write is happening —
	// default SQLite locks the whole file during writes, which a web
	// server can't live with.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite (for backwards
	// compatibility). We need them ON: deleting a user must cascade to its
	// profile and null out its join requests.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool. Wherever you call New(),
// immediately defer Close() — it flushes the WAL and releases the file lock.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it idempotent.
//
// The UNIQUE constraints on users.username and profiles.external_id are load
// bearing — see the package comment.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			username   TEXT NOT NULL UNIQUE,
			email      TEXT NOT NULL DEFAULT '',
			first_name TEXT NOT NULL DEFAULT '',
			last_name  TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// external_id is nullable: bypass-path users may have none. SQLite's
	// UNIQUE treats NULLs as distinct, so any number of id-less profiles
	// can coexist while non-empty ids stay unique.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			user_id     TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			external_id TEXT UNIQUE,
			avatar_url  TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_profiles_external_id ON profiles(external_id);
	`)
	if err != nil {
		return fmt.Errorf("creating profiles table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS communities (
			id         TEXT PRIMARY KEY,
			code       TEXT NOT NULL,
			name       TEXT NOT NULL,
			number     TEXT NOT NULL DEFAULT '',
			qr_code    TEXT NOT NULL DEFAULT '/placeholder.svg?height=300&width=300',
			type       TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_communities_type ON communities(type);
	`)
	if err != nil {
		return fmt.Errorf("creating communities table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS join_requests (
			id              TEXT PRIMARY KEY,
			department_name TEXT NOT NULL,
			course_number   TEXT NOT NULL,
			status          TEXT NOT NULL DEFAULT 'pending',
			user_id         TEXT REFERENCES users(id) ON DELETE SET NULL,
			user_email      TEXT NOT NULL DEFAULT '',
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_join_requests_status ON join_requests(status);
		CREATE INDEX IF NOT EXISTS idx_join_requests_created_at ON join_requests(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating join_requests table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE-constraint failure.
// modernc.org/sqlite doesn't export a typed error for this, so we match the
// constant message SQLite itself produces.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
