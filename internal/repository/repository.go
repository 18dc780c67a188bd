// Package repository declares the storage interfaces the service layer
// programs against. The sqlite subpackage is the only implementation;
// services never import it directly, which is what lets tests substitute
// in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/coursemate/internal/model"
)

// ListOptions carries pagination for list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// CommunityFilter narrows community listings.
type CommunityFilter struct {
	ListOptions
	Type string // course | major | life, "" for all
}

// JoinRequestFilter narrows join-request listings.
type JoinRequestFilter struct {
	ListOptions
	Status string // pending | approved | rejected, "" for all
}

// UserRepository is the identity store.
//
// The user+profile pair is treated as one unit: CreateWithProfile and
// UpdateSync each run in a single transaction, so a failure partway through
// never leaves an orphan user. A UNIQUE-constraint violation (username or
// external id raced by a concurrent sync) surfaces as apperror.ErrConflict;
// absence surfaces as apperror.ErrNotFound — lookups never return nil
// without an error.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByExternalID finds the user owning the profile with this external
	// id. Returns both records since syncs update the pair together.
	GetByExternalID(ctx context.Context, externalID string) (*model.User, *model.Profile, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	// CreateWithProfile inserts the user and its linked profile atomically,
	// filling ID and timestamps in place.
	CreateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error
	// UpdateSync persists the mutable sync fields: user email/names and the
	// profile avatar.
	UpdateSync(ctx context.Context, user *model.User, profile *model.Profile) error
	Delete(ctx context.Context, id string) error
}

type CommunityRepository interface {
	Create(ctx context.Context, community *model.Community) error
	GetByID(ctx context.Context, id string) (*model.Community, error)
	List(ctx context.Context, filter CommunityFilter) ([]model.Community, error)
	Update(ctx context.Context, community *model.Community) error
	Delete(ctx context.Context, id string) error
}

type JoinRequestRepository interface {
	Create(ctx context.Context, request *model.JoinRequest) error
	GetByID(ctx context.Context, id string) (*model.JoinRequest, error)
	List(ctx context.Context, filter JoinRequestFilter) ([]model.JoinRequest, error)
	Update(ctx context.Context, request *model.JoinRequest) error
	Delete(ctx context.Context, id string) error
}
