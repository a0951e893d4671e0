package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/FACorreiaa/budget-tracker/internal/domain/auth/repository"
	"github.com/FACorreiaa/budget-tracker/internal/domain/auth/service"
	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
	v1 "github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1"
	"github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1/budgetv1connect"
	"github.com/FACorreiaa/budget-tracker/pkg/interceptors"
)

var _ budgetv1connect.AuthServiceHandler = (*AuthHandler)(nil)

// AuthHandler implements the AuthService Connect handlers.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs a new handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{
		service: svc,
	}
}

// Register handles user registration RPCs.
func (h *AuthHandler) Register(
	ctx context.Context,
	req *connect.Request[v1.RegisterRequest],
) (*connect.Response[v1.AuthResponse], error) {
	if err := req.Msg.Validate(); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	displayName := req.Msg.DisplayName
	if displayName == "" {
		displayName = req.Msg.Username
	}

	result, err := h.service.RegisterUser(ctx, service.RegisterParams{
		Email:       req.Msg.Email,
		Username:    req.Msg.Username,
		Password:    req.Msg.Password,
		DisplayName: displayName,
		Metadata:    metadataFromRequest(req),
	})
	if err != nil {
		return nil, h.toConnectError(err)
	}

	return connect.NewResponse(toAuthResponse(result.User, result.Tokens)), nil
}

// Login authenticates a user.
func (h *AuthHandler) Login(
	ctx context.Context,
	req *connect.Request[v1.LoginRequest],
) (*connect.Response[v1.AuthResponse], error) {
	if err := req.Msg.Validate(); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	result, err := h.service.Login(ctx, service.LoginParams{
		Email:    req.Msg.Email,
		Password: req.Msg.Password,
		Metadata: metadataFromRequest(req),
	})
	if err != nil {
		return nil, h.toConnectError(err)
	}

	return connect.NewResponse(toAuthResponse(result.User, result.Tokens)), nil
}

// RefreshToken issues new access/refresh tokens.
func (h *AuthHandler) RefreshToken(
	ctx context.Context,
	req *connect.Request[v1.RefreshTokenRequest],
) (*connect.Response[v1.AuthResponse], error) {
	if err := req.Msg.Validate(); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	tokens, err := h.service.RefreshTokens(ctx, service.RefreshTokenParams{
		RefreshToken: req.Msg.RefreshToken,
		Metadata:     metadataFromRequest(req),
	})
	if err != nil {
		return nil, h.toConnectError(err)
	}

	return connect.NewResponse(toAuthResponse(nil, tokens)), nil
}

// Logout deletes the refresh token session.
func (h *AuthHandler) Logout(
	ctx context.Context,
	req *connect.Request[v1.LogoutRequest],
) (*connect.Response[v1.LogoutResponse], error) {
	if err := req.Msg.Validate(); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	if err := h.service.Logout(ctx, req.Msg.RefreshToken); err != nil {
		return nil, h.toConnectError(err)
	}

	return connect.NewResponse(&v1.LogoutResponse{}), nil
}

// GetMe returns the current authenticated user's information.
func (h *AuthHandler) GetMe(
	ctx context.Context,
	_ *connect.Request[v1.GetMeRequest],
) (*connect.Response[v1.GetMeResponse], error) {
	userIDStr, ok := interceptors.GetUserIDFromContext(ctx)
	if !ok || userIDStr == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid user id: %w", err))
	}

	user, err := h.service.GetUser(ctx, userID)
	if err != nil {
		return nil, h.toConnectError(err)
	}

	return connect.NewResponse(&v1.GetMeResponse{User: toUser(user)}), nil
}

func toUser(u *repository.User) *v1.User {
	return &v1.User{
		ID:          u.ID.String(),
		Email:       u.Email,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		CreatedAt:   v1.FormatTime(u.CreatedAt),
		UpdatedAt:   v1.FormatTime(u.UpdatedAt),
	}
}

func toAuthResponse(user *repository.User, tokens *service.TokenPair) *v1.AuthResponse {
	resp := &v1.AuthResponse{}
	if user != nil {
		resp.User = toUser(user)
	}
	if tokens != nil {
		resp.Tokens = &v1.AuthTokens{
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			ExpiresIn:    int64(time.Until(tokens.ExpiresAt).Seconds()),
		}
	}
	return resp
}

func metadataFromRequest[T any](req *connect.Request[T]) service.SessionMetadata {
	return service.SessionMetadata{
		UserAgent: req.Header().Get("User-Agent"),
		ClientIP:  req.Peer().Addr,
	}
}

func (h *AuthHandler) toConnectError(err error) error {
	switch {
	case errors.Is(err, common.ErrUserAlreadyExists):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, common.ErrInvalidCredentials):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrSessionNotFound):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, common.ErrUserNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, service.ErrAccountInactive):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, service.ErrPasswordTooShort),
		errors.Is(err, service.ErrPasswordNoDigit),
		errors.Is(err, service.ErrPasswordNoLowercase),
		errors.Is(err, service.ErrPasswordNoUppercase),
		errors.Is(err, service.ErrPasswordNoSpecial):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
