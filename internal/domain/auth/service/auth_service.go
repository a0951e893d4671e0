// Package service implements account registration, login and refresh-token
// rotation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/budget-tracker/internal/domain/auth/repository"
	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
)

const minPasswordLength = 8

var (
	ErrAccountInactive     = errors.New("account is inactive")
	ErrPasswordTooShort    = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	ErrPasswordNoDigit     = errors.New("password must contain a digit")
	ErrPasswordNoLowercase = errors.New("password must contain a lowercase letter")
	ErrPasswordNoUppercase = errors.New("password must contain an uppercase letter")
	ErrPasswordNoSpecial   = errors.New("password must contain a special character")
)

// SessionMetadata describes the client a refresh token was issued to.
type SessionMetadata struct {
	UserAgent string
	ClientIP  string
}

type RegisterParams struct {
	Email       string
	Username    string
	Password    string
	DisplayName string
	Metadata    SessionMetadata
}

type LoginParams struct {
	Email    string
	Password string
	Metadata SessionMetadata
}

type RefreshTokenParams struct {
	RefreshToken string
	Metadata     SessionMetadata
}

// RegisterResult is returned by RegisterUser and Login.
type RegisterResult struct {
	User   *repository.User
	Tokens *TokenPair
}

type AuthService struct {
	repo   repository.AuthRepository
	tokens TokenManager
	logger *slog.Logger
}

func NewAuthService(repo repository.AuthRepository, tokens TokenManager, logger *slog.Logger) *AuthService {
	return &AuthService{repo: repo, tokens: tokens, logger: logger}
}

// RegisterUser creates an account and signs it in.
func (s *AuthService) RegisterUser(ctx context.Context, p RegisterParams) (*RegisterResult, error) {
	l := s.logger.With(slog.String("method", "RegisterUser"))

	if err := ValidatePassword(p.Password); err != nil {
		return nil, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(p.Email))
	user, err := s.repo.CreateUser(ctx, email, strings.TrimSpace(p.Username), string(hashed), strings.TrimSpace(p.DisplayName))
	if err != nil {
		return nil, err
	}

	tokens, err := s.issueSession(ctx, user, p.Metadata)
	if err != nil {
		return nil, err
	}

	l.InfoContext(ctx, "user registered", slog.String("user_id", user.ID.String()))
	return &RegisterResult{User: user, Tokens: tokens}, nil
}

// Login checks the password and opens a new refresh-token session.
func (s *AuthService) Login(ctx context.Context, p LoginParams) (*RegisterResult, error) {
	l := s.logger.With(slog.String("method", "Login"))

	user, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(p.Email))
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(p.Password)); err != nil {
		l.WarnContext(ctx, "invalid password", slog.String("user_id", user.ID.String()))
		return nil, common.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		l.WarnContext(ctx, "failed to update last login", slog.Any("error", err))
	}

	tokens, err := s.issueSession(ctx, user, p.Metadata)
	if err != nil {
		return nil, err
	}

	l.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID.String()))
	return &RegisterResult{User: user, Tokens: tokens}, nil
}

// RefreshTokens exchanges a refresh token for a new pair. The old refresh
// token stops working.
func (s *AuthService) RefreshTokens(ctx context.Context, p RefreshTokenParams) (*TokenPair, error) {
	oldHash := HashToken(p.RefreshToken)
	session, err := s.repo.GetUserSessionByToken(ctx, oldHash)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	tokens, err := s.tokens.GenerateTokens(user.ID.String(), user.Email, user.Username, user.Role)
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(s.tokens.RefreshTTL())
	if err := s.repo.RotateUserSession(ctx, oldHash, HashToken(tokens.RefreshToken), expiresAt); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "tokens refreshed",
		slog.String("method", "RefreshTokens"),
		slog.String("user_id", user.ID.String()))
	return tokens, nil
}

// Logout ends the session of one refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.repo.DeleteUserSession(ctx, HashToken(refreshToken)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *AuthService) GetUser(ctx context.Context, userID uuid.UUID) (*repository.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// PurgeExpiredSessions removes refresh tokens past their expiry.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) {
	n, err := s.repo.DeleteExpiredSessions(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to purge expired sessions", slog.Any("error", err))
		return
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired sessions purged", slog.Int64("count", n))
	}
}

func (s *AuthService) issueSession(ctx context.Context, user *repository.User, md SessionMetadata) (*TokenPair, error) {
	tokens, err := s.tokens.GenerateTokens(user.ID.String(), user.Email, user.Username, user.Role)
	if err != nil {
		return nil, err
	}
	clientIP := md.ClientIP
	if clientIP == "" {
		clientIP = "unknown"
	}
	expiresAt := time.Now().Add(s.tokens.RefreshTTL())
	if _, err := s.repo.CreateUserSession(ctx, user.ID, HashToken(tokens.RefreshToken), md.UserAgent, clientIP, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return tokens, nil
}

// ValidatePassword enforces the password policy.
func ValidatePassword(pw string) error {
	if len(pw) < minPasswordLength {
		return ErrPasswordTooShort
	}
	var digit, lower, upper, special bool
	for _, r := range pw {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	switch {
	case !digit:
		return ErrPasswordNoDigit
	case !lower:
		return ErrPasswordNoLowercase
	case !upper:
		return ErrPasswordNoUppercase
	case !special:
		return ErrPasswordNoSpecial
	}
	return nil
}
