package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/coursemate/internal/apperror"
	"github.com/sakif/coursemate/internal/model"
	"github.com/sakif/coursemate/internal/repository"
)

// JoinRequestInput is the payload for creating a join request. user_id and
// user_email are optional because unauthenticated visitors may file
// requests; when the caller IS authenticated the session identity wins over
// whatever the body says.
type JoinRequestInput struct {
	DepartmentName string `json:"department_name" validate:"required,max=256"`
	CourseNumber   string `json:"course_number" validate:"required,max=64"`
	UserID         string `json:"user_id" validate:"omitempty,max=64"`
	UserEmail      string `json:"user_email" validate:"omitempty,email"`
}

// JoinRequestStatusInput updates the moderation status of a request.
type JoinRequestStatusInput struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected"`
}

// JoinRequestService manages community join requests.
type JoinRequestService struct {
	requests repository.JoinRequestRepository
	users    repository.UserRepository
	validate *validator.Validate
	logger   *slog.Logger
}

// NewJoinRequestService creates a JoinRequestService.
func NewJoinRequestService(requests repository.JoinRequestRepository, users repository.UserRepository, logger *slog.Logger) *JoinRequestService {
	return &JoinRequestService{
		requests: requests,
		users:    users,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// Create files a new join request in the pending state.
//
// authenticatedUserID comes from the session middleware and may be empty.
// When present it overrides any user_id in the body. A body user_id that
// doesn't resolve to a real user is dropped silently — the request is still
// recorded, just anonymously — so a stale client session can't block a
// legitimate request.
func (s *JoinRequestService) Create(ctx context.Context, input JoinRequestInput, authenticatedUserID string) (*model.JoinRequest, error) {
	if err := s.checkStruct(input); err != nil {
		return nil, err
	}

	userID := input.UserID
	if authenticatedUserID != "" {
		userID = authenticatedUserID
	}
	email := input.UserEmail
	if userID != "" {
		user, err := s.users.GetByID(ctx, userID)
		switch {
		case err == nil:
			email = user.Email
		case errors.Is(err, apperror.ErrNotFound):
			userID = ""
		default:
			return nil, fmt.Errorf("service/joinrequest: resolving user %s: %w", userID, err)
		}
	}

	request := &model.JoinRequest{
		DepartmentName: input.DepartmentName,
		CourseNumber:   input.CourseNumber,
		Status:         model.JoinRequestPending,
		UserID:         userID,
		UserEmail:      email,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("service/joinrequest: creating: %w", err)
	}

	s.logger.Info("created join request",
		slog.String("requestID", request.ID),
		slog.String("department", request.DepartmentName),
		slog.Bool("anonymous", request.UserID == ""),
	)
	return request, nil
}

// Get returns a single join request by ID.
func (s *JoinRequestService) Get(ctx context.Context, id string) (*model.JoinRequest, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "join request ID must not be empty")
	}

	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/joinrequest: fetching %s: %w", id, err)
	}
	return request, nil
}

// List returns join requests newest first, optionally filtered by status.
func (s *JoinRequestService) List(ctx context.Context, filter repository.JoinRequestFilter) ([]model.JoinRequest, error) {
	if filter.Status != "" {
		switch filter.Status {
		case model.JoinRequestPending, model.JoinRequestApproved, model.JoinRequestRejected:
		default:
			return nil, apperror.ValidationFailed("status", fmt.Sprintf("unknown status %q", filter.Status))
		}
	}

	requests, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service/joinrequest: listing: %w", err)
	}
	return requests, nil
}

// UpdateStatus moves a request through the moderation workflow.
func (s *JoinRequestService) UpdateStatus(ctx context.Context, id string, input JoinRequestStatusInput) (*model.JoinRequest, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "join request ID must not be empty")
	}
	if err := s.checkStruct(input); err != nil {
		return nil, err
	}

	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/joinrequest: fetching %s: %w", id, err)
	}

	request.Status = input.Status
	if err := s.requests.Update(ctx, request); err != nil {
		return nil, fmt.Errorf("service/joinrequest: updating %s: %w", id, err)
	}

	s.logger.Info("updated join request status",
		slog.String("requestID", id),
		slog.String("status", request.Status),
	)
	return request, nil
}

// Delete removes a join request.
func (s *JoinRequestService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperror.ValidationFailed("id", "join request ID must not be empty")
	}

	if err := s.requests.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/joinrequest: deleting %s: %w", id, err)
	}

	s.logger.Info("deleted join request", slog.String("requestID", id))
	return nil
}

func (s *JoinRequestService) checkStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return apperror.ValidationFailed(first.Field(), fmt.Sprintf("failed %q validation", first.Tag()))
	}
	return apperror.ValidationFailed("", err.Error())
}
