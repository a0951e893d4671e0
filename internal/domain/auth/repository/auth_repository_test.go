package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
)

var userColumns = []string{
	"id", "email", "username", "password_hash", "display_name", "role",
	"is_active", "email_verified_at", "created_at", "updated_at", "last_login_at",
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("expectations: %v", err)
		}
		mock.Close()
	})
	return mock
}

func TestPostgresAuthRepository_CreateUser(t *testing.T) {
	mock := newMock(t)

	returnedID := uuid.New()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(createUserQuery)).
		WithArgs(pgxmock.AnyArg(), "repo@example.com", "repo", "hashed", "Repo User", "member", true, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(returnedID, now, now))

	repo := NewPostgresAuthRepository(mock)
	user, err := repo.CreateUser(context.Background(), "repo@example.com", "repo", "hashed", "Repo User")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID != returnedID {
		t.Fatalf("expected id %s, got %s", returnedID, user.ID)
	}
	if user.Role != "member" || !user.IsActive {
		t.Fatalf("defaults not applied: %+v", user)
	}
}

func TestPostgresAuthRepository_CreateUser_Duplicate(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(createUserQuery)).
		WithArgs(pgxmock.AnyArg(), "dup@example.com", "", "hashed", "", "member", true, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	repo := NewPostgresAuthRepository(mock)
	_, err := repo.CreateUser(context.Background(), "dup@example.com", "", "hashed", "")
	if !errors.Is(err, common.ErrUserAlreadyExists) {
		t.Fatalf("expected ErrUserAlreadyExists, got %v", err)
	}
}

func TestPostgresAuthRepository_GetUserByEmail(t *testing.T) {
	mock := newMock(t)

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(getUserByEmailQuery)).
		WithArgs("Ada@Example.com").
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow(id, "ada@example.com", "ada", "hash", "Ada", "member", true, nil, now, now, nil))

	repo := NewPostgresAuthRepository(mock)
	user, err := repo.GetUserByEmail(context.Background(), "Ada@Example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if user.ID != id || user.Username != "ada" || user.HashedPassword != "hash" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestPostgresAuthRepository_GetUserByEmail_NotFound(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(getUserByEmailQuery)).
		WithArgs("missing@example.com").
		WillReturnRows(pgxmock.NewRows(userColumns))

	repo := NewPostgresAuthRepository(mock)
	_, err := repo.GetUserByEmail(context.Background(), "missing@example.com")
	if !errors.Is(err, common.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestPostgresAuthRepository_GetUserSessionByToken_NotFound(t *testing.T) {
	mock := newMock(t)

	rows := pgxmock.NewRows([]string{"id", "user_id", "hashed_refresh_token", "user_agent", "client_ip", "expires_at", "created_at"})
	mock.ExpectQuery(regexp.QuoteMeta(getUserSessionQuery)).
		WithArgs("missing", pgxmock.AnyArg()).
		WillReturnRows(rows)

	repo := NewPostgresAuthRepository(mock)
	_, err := repo.GetUserSessionByToken(context.Background(), "missing")
	if !errors.Is(err, common.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestPostgresAuthRepository_CreateUserSession(t *testing.T) {
	mock := newMock(t)

	sessionID := uuid.New()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(createSessionQuery)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "hash", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).
			AddRow(sessionID, now))

	repo := NewPostgresAuthRepository(mock)
	session, err := repo.CreateUserSession(context.Background(), uuid.New(), "hash", "ua", "ip", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("CreateUserSession: %v", err)
	}
	if session.ID != sessionID {
		t.Fatalf("unexpected session id %s", session.ID)
	}
	if session.UserAgent == nil || *session.UserAgent != "ua" {
		t.Fatalf("user agent not stored")
	}
}

func TestPostgresAuthRepository_RotateUserSession(t *testing.T) {
	mock := newMock(t)
	expires := time.Now().Add(time.Hour)

	mock.ExpectExec(regexp.QuoteMeta(rotateSessionQuery)).
		WithArgs("old", "new", expires).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(rotateSessionQuery)).
		WithArgs("old", "newer", expires).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewPostgresAuthRepository(mock)
	if err := repo.RotateUserSession(context.Background(), "old", "new", expires); err != nil {
		t.Fatalf("RotateUserSession: %v", err)
	}
	if err := repo.RotateUserSession(context.Background(), "old", "newer", expires); !errors.Is(err, common.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on reuse, got %v", err)
	}
}

func TestPostgresAuthRepository_DeleteExpiredSessions(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(deleteExpiredSessionsQuery)).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	repo := NewPostgresAuthRepository(mock)
	n, err := repo.DeleteExpiredSessions(context.Background())
	if err != nil {
		t.Fatalf("DeleteExpiredSessions: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 deleted, got %d", n)
	}
}
