// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes to the database
//
// Services take repository interfaces, not concrete sqlite types — tests
// substitute in-memory fakes and the services never notice.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/coursemate/internal/apperror"
	"github.com/sakif/coursemate/internal/auth"
	"github.com/sakif/coursemate/internal/model"
	"github.com/sakif/coursemate/internal/repository"
)

// maxUsernameAttempts bounds the allocation loop. In practice the loop ends
// after one or two probes; the cap only exists so a pathological store can't
// spin forever.
const maxUsernameAttempts = 10000

// SyncService reconciles external identity claims onto local user records.
//
// This is the one place in the system with real branching logic. Every login
// path — the direct Google exchange, the Supabase session exchange, and the
// raw-claims bypass — funnels its normalized Claims through Sync, which
// either refreshes the existing local user or mints a new one with a unique
// username.
type SyncService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewSyncService creates a SyncService.
func NewSyncService(users repository.UserRepository, logger *slog.Logger) *SyncService {
	return &SyncService{users: users, logger: logger}
}

// Sync finds or creates the local user for the given claims.
//
// Algorithm:
//  1. Reject claims without an email — a local user cannot exist without one.
//  2. When the claims carry an external id, look the profile up by it.
//     Found → overwrite the user's email/names and the profile's avatar
//     from the claims (last write wins) and return the user.
//  3. Not found (or no external id at all) → allocate a username from the
//     email's local part and create the user+profile pair atomically.
//
// CONCURRENCY:
// Steps 2–3 are a check-then-act race: two concurrent first-time syncs of
// the same identity can both reach the create. The store's UNIQUE
// constraints decide the winner; the loser gets ErrConflict, and we retry
// the whole lookup-then-create sequence once — on the retry the lookup
// finds the winner's row and takes the update path. A conflict surviving
// the retry is surfaced to the caller.
func (s *SyncService) Sync(ctx context.Context, claims *auth.Claims) (*model.User, error) {
	if claims == nil {
		return nil, fmt.Errorf("service/sync: claims must not be nil")
	}
	if claims.Email == "" {
		return nil, apperror.InvalidClaims("cannot sync a user without an email")
	}

	user, err := s.syncOnce(ctx, claims)
	if err != nil && errors.Is(err, apperror.ErrConflict) {
		s.logger.Warn("sync lost a create race, retrying",
			slog.String("externalID", claims.ExternalID),
		)
		user, err = s.syncOnce(ctx, claims)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// syncOnce runs one lookup-then-create pass.
func (s *SyncService) syncOnce(ctx context.Context, claims *auth.Claims) (*model.User, error) {
	if claims.ExternalID != "" {
		user, profile, err := s.users.GetByExternalID(ctx, claims.ExternalID)
		switch {
		case err == nil:
			return s.refresh(ctx, user, profile, claims)
		case !errors.Is(err, apperror.ErrNotFound):
			return nil, fmt.Errorf("service/sync: looking up external id: %w", err)
		}
		// not found — fall through to create
	}

	username, err := s.allocateUsername(ctx, claims.Email)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:  username,
		Email:     claims.Email,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
	}
	profile := &model.Profile{
		ExternalID: claims.ExternalID,
		AvatarURL:  claims.AvatarURL,
	}

	if err := s.users.CreateWithProfile(ctx, user, profile); err != nil {
		return nil, fmt.Errorf("service/sync: creating user %q: %w", username, err)
	}

	s.logger.Info("created user from first sync",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
		slog.String("externalID", claims.ExternalID),
	)
	return user, nil
}

// refresh overwrites the returning user's mutable fields from the latest
// claims. Username and external id are fixed at creation; everything else
// follows the provider.
func (s *SyncService) refresh(ctx context.Context, user *model.User, profile *model.Profile, claims *auth.Claims) (*model.User, error) {
	user.Email = claims.Email
	user.FirstName = claims.FirstName
	user.LastName = claims.LastName
	profile.AvatarURL = claims.AvatarURL

	if err := s.users.UpdateSync(ctx, user, profile); err != nil {
		return nil, fmt.Errorf("service/sync: updating user %s: %w", user.ID, err)
	}

	s.logger.Info("refreshed user from sync",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// allocateUsername derives a unique username from an email address.
//
// The candidate is the email's local part ("alice" from "alice@x.edu").
// While taken, an incrementing suffix is appended: alice, alice1, alice2, …
// Deterministic — no randomness, so colliding users get the smallest free
// suffix. Every candidate is re-checked against the store; the UNIQUE
// constraint on username still backstops the window between this check and
// the insert.
func (s *SyncService) allocateUsername(ctx context.Context, email string) (string, error) {
	base := email
	if at := strings.Index(email, "@"); at > 0 {
		base = email[:at]
	}

	candidate := base
	for i := 1; i <= maxUsernameAttempts; i++ {
		taken, err := s.users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("service/sync: probing username %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}

	return "", &apperror.AppError{
		Err:     apperror.ErrConflict,
		Kind:    apperror.KindUsernameExhausted,
		Message: fmt.Sprintf("no free username found for %q", base),
	}
}

// GetUserByID returns the user for the given internal ID. Used by the /api/me
// handler after the middleware validates the access token.
func (s *SyncService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/sync: user ID must not be empty")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/sync: fetching user %s: %w", id, err)
	}
	return user, nil
}
