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

// CommunityInput is the payload for creating or updating a community.
// Validation tags mirror what the frontend form enforces; the service is the
// authoritative check.
type CommunityInput struct {
	Code   string `json:"code" validate:"required,max=64"`
	Name   string `json:"name" validate:"required,max=256"`
	Number string `json:"number" validate:"max=64"`
	QRCode string `json:"qrCode" validate:"max=512"`
	Type   string `json:"type" validate:"required,oneof=course major life"`
}

// CommunityService manages course, major, and life communities.
type CommunityService struct {
	communities repository.CommunityRepository
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewCommunityService creates a CommunityService.
func NewCommunityService(communities repository.CommunityRepository, logger *slog.Logger) *CommunityService {
	return &CommunityService{
		communities: communities,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger,
	}
}

// Create validates the input and stores a new community. An empty qrCode
// falls back to the placeholder image at the storage layer.
func (s *CommunityService) Create(ctx context.Context, input CommunityInput) (*model.Community, error) {
	if err := s.checkInput(input); err != nil {
		return nil, err
	}

	community := &model.Community{
		Code:   input.Code,
		Name:   input.Name,
		Number: input.Number,
		QRCode: input.QRCode,
		Type:   input.Type,
	}
	if err := s.communities.Create(ctx, community); err != nil {
		return nil, fmt.Errorf("service/community: creating: %w", err)
	}

	s.logger.Info("created community",
		slog.String("communityID", community.ID),
		slog.String("code", community.Code),
		slog.String("type", community.Type),
	)
	return community, nil
}

// Get returns a single community by ID.
func (s *CommunityService) Get(ctx context.Context, id string) (*model.Community, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "community ID must not be empty")
	}

	community, err := s.communities.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/community: fetching %s: %w", id, err)
	}
	return community, nil
}

// List returns communities, optionally filtered by type. An unknown type is
// a validation error rather than an empty result so typos surface loudly.
func (s *CommunityService) List(ctx context.Context, filter repository.CommunityFilter) ([]model.Community, error) {
	if filter.Type != "" {
		switch filter.Type {
		case model.CommunityTypeCourse, model.CommunityTypeMajor, model.CommunityTypeLife:
		default:
			return nil, apperror.ValidationFailed("type", fmt.Sprintf("unknown community type %q", filter.Type))
		}
	}

	communities, err := s.communities.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service/community: listing: %w", err)
	}
	return communities, nil
}

// Update replaces the mutable fields of an existing community.
func (s *CommunityService) Update(ctx context.Context, id string, input CommunityInput) (*model.Community, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "community ID must not be empty")
	}
	if err := s.checkInput(input); err != nil {
		return nil, err
	}

	community, err := s.communities.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/community: fetching %s: %w", id, err)
	}

	community.Code = input.Code
	community.Name = input.Name
	community.Number = input.Number
	community.QRCode = input.QRCode
	if community.QRCode == "" {
		community.QRCode = model.DefaultQRCode
	}
	community.Type = input.Type

	if err := s.communities.Update(ctx, community); err != nil {
		return nil, fmt.Errorf("service/community: updating %s: %w", id, err)
	}

	s.logger.Info("updated community", slog.String("communityID", id))
	return community, nil
}

// Delete removes a community.
func (s *CommunityService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperror.ValidationFailed("id", "community ID must not be empty")
	}

	if err := s.communities.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/community: deleting %s: %w", id, err)
	}

	s.logger.Info("deleted community", slog.String("communityID", id))
	return nil
}

// checkInput runs struct validation and converts the first failure into our
// error taxonomy so the handler can map it to a 400.
func (s *CommunityService) checkInput(input CommunityInput) error {
	err := s.validate.Struct(input)
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
