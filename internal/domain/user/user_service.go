package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
)

var _ UserService = (*ServiceUserImpl)(nil)

// UserService defines the business logic contract for user operations.
//
//revive:disable-next-line:exported
type UserService interface {
	GetUserProfile(ctx context.Context, userID uuid.UUID) (*common.UserProfile, error)
	// UpdateUserProfile applies params and returns the stored profile.
	UpdateUserProfile(ctx context.Context, userID uuid.UUID, params common.UpdateProfileParams) (*common.UserProfile, error)
	CompleteOnboarding(ctx context.Context, userID uuid.UUID) (*common.UserProfile, error)
}

// ServiceUserImpl provides the implementation for UserService.
type ServiceUserImpl struct {
	logger *slog.Logger
	repo   UserRepo
}

// NewUserService creates a new user service instance.
func NewUserService(repo UserRepo, logger *slog.Logger) *ServiceUserImpl {
	return &ServiceUserImpl{
		logger: logger,
		repo:   repo,
	}
}

// GetUserProfile retrieves a user's profile by ID.
func (s *ServiceUserImpl) GetUserProfile(ctx context.Context, userID uuid.UUID) (*common.UserProfile, error) {
	l := s.logger.With(slog.String("method", "GetUserProfile"), slog.String("userID", userID.String()))
	l.DebugContext(ctx, "Fetching user profile")

	profile, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch user profile", slog.Any("error", err))
		return nil, fmt.Errorf("error fetching user profile: %w", err)
	}

	return profile, nil
}

// UpdateUserProfile updates a user's profile.
func (s *ServiceUserImpl) UpdateUserProfile(ctx context.Context, userID uuid.UUID, params common.UpdateProfileParams) (*common.UserProfile, error) {
	l := s.logger.With(slog.String("method", "UpdateUserProfile"), slog.String("userID", userID.String()))
	l.DebugContext(ctx, "Updating user profile")

	if err := s.repo.UpdateProfile(ctx, userID, params); err != nil {
		l.ErrorContext(ctx, "Failed to update user profile", slog.Any("error", err))
		return nil, fmt.Errorf("error updating user profile: %w", err)
	}

	l.InfoContext(ctx, "User profile updated successfully")
	return s.GetUserProfile(ctx, userID)
}

// CompleteOnboarding records that the user finished the setup wizard.
func (s *ServiceUserImpl) CompleteOnboarding(ctx context.Context, userID uuid.UUID) (*common.UserProfile, error) {
	l := s.logger.With(slog.String("method", "CompleteOnboarding"), slog.String("userID", userID.String()))

	if err := s.repo.CompleteOnboarding(ctx, userID); err != nil {
		l.ErrorContext(ctx, "Failed to complete onboarding", slog.Any("error", err))
		return nil, fmt.Errorf("error completing onboarding: %w", err)
	}

	l.InfoContext(ctx, "Onboarding completed")
	return s.GetUserProfile(ctx, userID)
}
