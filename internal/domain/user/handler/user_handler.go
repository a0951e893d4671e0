package handler

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
	"github.com/FACorreiaa/budget-tracker/internal/domain/user"
	v1 "github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1"
	"github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1/budgetv1connect"
	"github.com/FACorreiaa/budget-tracker/pkg/interceptors"
)

var _ budgetv1connect.UserServiceHandler = (*UserHandler)(nil)

// UserHandler implements the UserService Connect handlers.
type UserHandler struct {
	service user.UserService
}

// NewUserHandler constructs a new handler.
func NewUserHandler(svc user.UserService) *UserHandler {
	return &UserHandler{
		service: svc,
	}
}

// GetProfile returns the authenticated user's budget profile.
func (h *UserHandler) GetProfile(
	ctx context.Context,
	_ *connect.Request[v1.GetProfileRequest],
) (*connect.Response[v1.ProfileResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := h.service.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(toProfileResponse(profile)), nil
}

// UpdateProfile changes display name, currency or monthly income.
func (h *UserHandler) UpdateProfile(
	ctx context.Context,
	req *connect.Request[v1.UpdateProfileRequest],
) (*connect.Response[v1.ProfileResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.Msg.Validate(); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	params := common.UpdateProfileParams{
		DisplayName: req.Msg.DisplayName,
		Currency:    req.Msg.Currency,
	}
	if req.Msg.MonthlyIncome != nil {
		income, err := v1.ParseAmount(*req.Msg.MonthlyIncome)
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		params.MonthlyIncome = &income
	}

	profile, err := h.service.UpdateUserProfile(ctx, userID, params)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(toProfileResponse(profile)), nil
}

// CompleteOnboarding marks the setup wizard as done.
func (h *UserHandler) CompleteOnboarding(
	ctx context.Context,
	_ *connect.Request[v1.CompleteOnboardingRequest],
) (*connect.Response[v1.ProfileResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := h.service.CompleteOnboarding(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(toProfileResponse(profile)), nil
}

func authenticatedUser(ctx context.Context) (uuid.UUID, error) {
	userIDStr, ok := interceptors.GetUserIDFromContext(ctx)
	if !ok || userIDStr == "" {
		return uuid.Nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid user id: %w", err))
	}
	return userID, nil
}

func toConnectError(err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

func toProfileResponse(p *common.UserProfile) *v1.ProfileResponse {
	if p == nil {
		return &v1.ProfileResponse{}
	}

	u := &v1.User{
		ID:        p.ID.String(),
		Email:     p.Email,
		Username:  p.Username,
		CreatedAt: v1.FormatTime(p.CreatedAt),
		UpdatedAt: v1.FormatTime(p.UpdatedAt),
	}
	if p.DisplayName != nil {
		u.DisplayName = *p.DisplayName
	}

	return &v1.ProfileResponse{
		User: u,
		Profile: &v1.BudgetProfile{
			Currency:            p.Currency,
			MonthlyIncome:       p.MonthlyIncome.StringFixed(2),
			OnboardingCompleted: p.OnboardingCompleted,
		},
	}
}
