// Package servicetest provides in-memory fakes for exercising the auth
// service and handler without a database.
package servicetest

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/budget-tracker/internal/domain/auth/repository"
	"github.com/FACorreiaa/budget-tracker/internal/domain/auth/service"
	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
)

// FakeRepo is an in-memory AuthRepository. Users are keyed by lower-case
// email and sessions by token hash.
type FakeRepo struct {
	mu       sync.Mutex
	Users    map[string]*repository.User
	Sessions map[string]*repository.UserSession
}

var _ repository.AuthRepository = (*FakeRepo)(nil)

func NewFakeRepo() *FakeRepo {
	return &FakeRepo{
		Users:    make(map[string]*repository.User),
		Sessions: make(map[string]*repository.UserSession),
	}
}

func (r *FakeRepo) CreateUser(_ context.Context, email, username, hashedPassword, displayName string) (*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(email)
	if _, ok := r.Users[key]; ok {
		return nil, common.ErrUserAlreadyExists
	}
	now := time.Now()
	u := &repository.User{
		ID:             uuid.New(),
		Email:          email,
		Username:       username,
		HashedPassword: hashedPassword,
		DisplayName:    displayName,
		Role:           "member",
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.Users[key] = u
	return u, nil
}

func (r *FakeRepo) GetUserByEmail(_ context.Context, email string) (*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.Users[strings.ToLower(email)]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	return u, nil
}

func (r *FakeRepo) GetUserByID(_ context.Context, userID uuid.UUID) (*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.Users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, common.ErrUserNotFound
}

func (r *FakeRepo) UpdateLastLogin(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, u := range r.Users {
		if u.ID == userID {
			u.LastLoginAt = &now
		}
	}
	return nil
}

func (r *FakeRepo) CreateUserSession(_ context.Context, userID uuid.UUID, hashedRefreshToken, userAgent, clientIP string, expiresAt time.Time) (*repository.UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &repository.UserSession{
		ID:                 uuid.New(),
		UserID:             userID,
		HashedRefreshToken: hashedRefreshToken,
		UserAgent:          &userAgent,
		ClientIP:           &clientIP,
		ExpiresAt:          expiresAt,
		CreatedAt:          time.Now(),
	}
	r.Sessions[hashedRefreshToken] = s
	return s, nil
}

func (r *FakeRepo) GetUserSessionByToken(_ context.Context, hashedToken string) (*repository.UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.Sessions[hashedToken]
	if !ok || !s.ExpiresAt.After(time.Now()) {
		return nil, common.ErrSessionNotFound
	}
	return s, nil
}

func (r *FakeRepo) RotateUserSession(_ context.Context, oldHashedToken, newHashedToken string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.Sessions[oldHashedToken]
	if !ok || !s.ExpiresAt.After(time.Now()) {
		return common.ErrSessionNotFound
	}
	delete(r.Sessions, oldHashedToken)
	s.HashedRefreshToken = newHashedToken
	s.ExpiresAt = expiresAt
	r.Sessions[newHashedToken] = s
	return nil
}

func (r *FakeRepo) DeleteUserSession(_ context.Context, hashedToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Sessions, hashedToken)
	return nil
}

func (r *FakeRepo) DeleteAllUserSessions(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, s := range r.Sessions {
		if s.UserID == userID {
			delete(r.Sessions, k)
		}
	}
	return nil
}

func (r *FakeRepo) DeleteExpiredSessions(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	now := time.Now()
	for k, s := range r.Sessions {
		if !s.ExpiresAt.After(now) {
			delete(r.Sessions, k)
			n++
		}
	}
	return n, nil
}

// FakeTokens returns whatever GenerateFunc returns, or fixed tokens.
type FakeTokens struct {
	GenerateFunc func(userID, email, username, role string) (*service.TokenPair, error)
	TTL          time.Duration
}

func (f *FakeTokens) GenerateTokens(userID, email, username, role string) (*service.TokenPair, error) {
	if f.GenerateFunc != nil {
		return f.GenerateFunc(userID, email, username, role)
	}
	return &service.TokenPair{
		AccessToken:  "access-" + userID,
		RefreshToken: "refresh-" + uuid.NewString(),
		ExpiresAt:    time.Now().Add(time.Hour),
		TokenType:    "Bearer",
	}, nil
}

func (f *FakeTokens) RefreshTTL() time.Duration {
	if f.TTL == 0 {
		return 24 * time.Hour
	}
	return f.TTL
}

// NewTestAuthService wires an AuthService to fresh fakes.
func NewTestAuthService() (*service.AuthService, *FakeRepo, *FakeTokens) {
	repo := NewFakeRepo()
	tokens := &FakeTokens{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return service.NewAuthService(repo, tokens, logger), repo, tokens
}

// MustHash bcrypt-hashes pw at the minimum cost.
func MustHash(t *testing.T, pw string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(b)
}

// AddUser stores a user directly in the fake repository.
func AddUser(repo *FakeRepo, t *testing.T, email string, active bool, hashedPassword string) *repository.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), email, strings.Split(email, "@")[0], hashedPassword, "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	u.IsActive = active
	return u
}
