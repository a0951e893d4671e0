package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
)

// PgxPool abstracts the subset of pgxpool.Pool used by the repository to allow mocking in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ PgxPool = (*pgxpool.Pool)(nil)

const uniqueViolation = "23505"

const (
	createUserQuery = `
		INSERT INTO users (id, email, username, password_hash, display_name, role, is_active, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	selectUserColumns = `
		SELECT id, email, COALESCE(username, '') AS username, password_hash,
		       COALESCE(display_name, '') AS display_name, role,
		       is_active, email_verified_at, created_at, updated_at, last_login_at
		FROM users
	`

	getUserByEmailQuery = selectUserColumns + `WHERE lower(email) = lower($1)`
	getUserByIDQuery    = selectUserColumns + `WHERE id = $1`

	updateLastLoginQuery = `UPDATE users SET last_login_at = $1 WHERE id = $2`

	createSessionQuery = `
		INSERT INTO user_sessions (id, user_id, hashed_refresh_token, user_agent, client_ip, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	getUserSessionQuery = `
		SELECT id, user_id, hashed_refresh_token, user_agent, client_ip, expires_at, created_at
		FROM user_sessions
		WHERE hashed_refresh_token = $1 AND expires_at > $2
	`

	rotateSessionQuery = `
		UPDATE user_sessions SET hashed_refresh_token = $2, expires_at = $3
		WHERE hashed_refresh_token = $1 AND expires_at > NOW()
	`

	deleteSessionQuery         = `DELETE FROM user_sessions WHERE hashed_refresh_token = $1`
	deleteAllUserSessionsQuery = `DELETE FROM user_sessions WHERE user_id = $1`
	deleteExpiredSessionsQuery = `DELETE FROM user_sessions WHERE expires_at <= NOW()`
)

// PostgresAuthRepository handles database operations for authentication
type PostgresAuthRepository struct {
	pgpool PgxPool
}

func NewPostgresAuthRepository(pgpool PgxPool) *PostgresAuthRepository {
	return &PostgresAuthRepository{pgpool: pgpool}
}

type userInsertRow struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type userSessionInsertRow struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}

// CreateUser creates a new member account. A taken email or username yields
// common.ErrUserAlreadyExists.
func (r *PostgresAuthRepository) CreateUser(ctx context.Context, email, username, hashedPassword, displayName string) (*User, error) {
	now := time.Now()
	user := &User{
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

	rows, err := r.pgpool.Query(
		ctx, createUserQuery,
		user.ID, user.Email, user.Username, user.HashedPassword, user.DisplayName,
		user.Role, user.IsActive, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return nil, insertUserError(err)
	}

	dbRow, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[userInsertRow])
	if err != nil {
		return nil, insertUserError(err)
	}

	user.ID = dbRow.ID
	user.CreatedAt = dbRow.CreatedAt
	user.UpdatedAt = dbRow.UpdatedAt
	return user, nil
}

func insertUserError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return common.ErrUserAlreadyExists
	}
	return fmt.Errorf("failed to insert user: %w", err)
}

// GetUserByEmail looks the email up case-insensitively.
func (r *PostgresAuthRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.getUser(ctx, getUserByEmailQuery, email)
}

func (r *PostgresAuthRepository) GetUserByID(ctx context.Context, userID uuid.UUID) (*User, error) {
	return r.getUser(ctx, getUserByIDQuery, userID)
}

func (r *PostgresAuthRepository) getUser(ctx context.Context, query string, arg any) (*User, error) {
	rows, err := r.pgpool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	user, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[User])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

func (r *PostgresAuthRepository) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pgpool.Exec(ctx, updateLastLoginQuery, time.Now(), userID)
	return err
}

// CreateUserSession stores a refresh token hash.
func (r *PostgresAuthRepository) CreateUserSession(ctx context.Context, userID uuid.UUID, hashedRefreshToken, userAgent, clientIP string, expiresAt time.Time) (*UserSession, error) {
	session := &UserSession{
		ID:                 uuid.New(),
		UserID:             userID,
		HashedRefreshToken: hashedRefreshToken,
		UserAgent:          &userAgent,
		ClientIP:           &clientIP,
		ExpiresAt:          expiresAt,
		CreatedAt:          time.Now(),
	}

	rows, err := r.pgpool.Query(
		ctx, createSessionQuery,
		session.ID, session.UserID, session.HashedRefreshToken,
		session.UserAgent, session.ClientIP, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	dbRow, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[userSessionInsertRow])
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	session.ID = dbRow.ID
	session.CreatedAt = dbRow.CreatedAt
	return session, nil
}

// GetUserSessionByToken returns the unexpired session for a token hash.
func (r *PostgresAuthRepository) GetUserSessionByToken(ctx context.Context, hashedToken string) (*UserSession, error) {
	rows, err := r.pgpool.Query(ctx, getUserSessionQuery, hashedToken, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	session, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[UserSession])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	return &session, nil
}

// RotateUserSession fails with common.ErrSessionNotFound when the old token
// was already rotated or expired, so a refresh token works once.
func (r *PostgresAuthRepository) RotateUserSession(ctx context.Context, oldHashedToken, newHashedToken string, expiresAt time.Time) error {
	tag, err := r.pgpool.Exec(ctx, rotateSessionQuery, oldHashedToken, newHashedToken, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to rotate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrSessionNotFound
	}
	return nil
}

func (r *PostgresAuthRepository) DeleteUserSession(ctx context.Context, hashedToken string) error {
	_, err := r.pgpool.Exec(ctx, deleteSessionQuery, hashedToken)
	return err
}

func (r *PostgresAuthRepository) DeleteAllUserSessions(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pgpool.Exec(ctx, deleteAllUserSessionsQuery, userID)
	return err
}

// DeleteExpiredSessions purges dead refresh tokens and reports how many went.
func (r *PostgresAuthRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := r.pgpool.Exec(ctx, deleteExpiredSessionsQuery)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
