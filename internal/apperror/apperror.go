// Package apperror defines the application's error taxonomy.
//
// Every failure the API can surface has a sentinel error here. Services wrap
// them with context via fmt.Errorf("...: %w", ...), and the HTTP layer maps
// them to status codes with errors.Is — no layer in between needs to know
// about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrExchange covers failures talking to an identity provider: the
	// Google token or userinfo endpoints, or the Supabase admin session
	// exchange. The Kind on the wrapping AppError says which step failed.
	ErrExchange = errors.New("exchange failed")
)

// Error kinds surfaced in the "error" field of API error responses.
// Handlers fall back to the sentinel's generic kind when Kind is empty.
const (
	KindMissingCode           = "missing_authorization_code"
	KindTokenExchangeFailed   = "token_exchange_failed"
	KindUserInfoFetchFailed   = "user_info_fetch_failed"
	KindSessionExchangeFailed = "session_exchange_failed"
	KindMissingIdentity       = "missing_identity"
	KindInvalidClaims         = "invalid_claims"
	KindUsernameExhausted     = "username_allocation_exhausted"
)

// AppError carries a machine-readable kind alongside the human message.
type AppError struct {
	Err     error  // sentinel this error wraps (drives the HTTP status)
	Kind    string // optional machine-readable kind for the response body
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized returns an AppError for missing or unparsable credentials.
// HTTP handlers map this to 401 Unauthorized.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// InvalidClaims marks identity claims that cannot produce a local user —
// in practice, claims with no email.
func InvalidClaims(message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Kind:    KindInvalidClaims,
		Message: message,
	}
}

// Exchange marks a failed call to an identity provider. The kind records
// which step failed (token exchange, userinfo fetch, session exchange,
// missing identity).
func Exchange(kind, message string) *AppError {
	return &AppError{
		Err:     ErrExchange,
		Kind:    kind,
		Message: message,
	}
}
