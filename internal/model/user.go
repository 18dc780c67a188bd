// Package model defines the data structures used throughout the application.
package model

import "time"

// User is the local account record. Users never register directly — a row is
// created the first time an external identity syncs into this backend, and
// the mutable fields are overwritten on every sync after that.
//
// WHY A GENERATED Username?
// The frontend displays a username but the identity providers only give us
// an email. We derive the username from the email's local part ("alice" from
// "alice@usc.edu") and suffix an integer when it's taken. The UNIQUE
// constraint on username in the DB is the real guarantee; the allocator in
// the service layer just picks a candidate.
type User struct {
	ID        string    `json:"id"         db:"id"`
	Username  string    `json:"username"   db:"username"`   // unique, derived from email
	Email     string    `json:"email"      db:"email"`      // overwritten from latest claims
	FirstName string    `json:"first_name" db:"first_name"` // first token of the provider's full name
	LastName  string    `json:"last_name"  db:"last_name"`  // remaining tokens, space-joined
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Profile links a User to its external identity. It is created in the same
// transaction as the User and owned by it — deleting the user cascades here.
//
// ExternalID holds whatever stable id the provider asserted: the Google
// "sub" claim on the direct flow, or the Supabase user id on the delegated
// and bypass flows. Those are two distinct namespaces sharing one column;
// the UNIQUE constraint applies across both. ExternalID can be empty when a
// user was created through the bypass path without an id.
type Profile struct {
	UserID     string `json:"user_id"     db:"user_id"`
	ExternalID string `json:"external_id" db:"external_id"` // unique when present, "" allowed
	AvatarURL  string `json:"avatar_url"  db:"avatar_url"`
}
