package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
)

var _ UserRepo = (*PostgresUserRepo)(nil)

// UserRepo defines the contract for user profile persistence.
//
//revive:disable-next-line:exported
type UserRepo interface {
	// GetUserByID retrieves a user's budget profile by their unique ID.
	// Returns common.ErrNotFound if the user doesn't exist or is inactive.
	GetUserByID(ctx context.Context, userID uuid.UUID) (*common.UserProfile, error)

	// UpdateProfile updates the non-nil fields of params.
	// Returns common.ErrNotFound if the user doesn't exist.
	UpdateProfile(ctx context.Context, userID uuid.UUID, params common.UpdateProfileParams) error

	// CompleteOnboarding marks the onboarding wizard as finished.
	CompleteOnboarding(ctx context.Context, userID uuid.UUID) error
}

// PgxPool is the subset of pgxpool.Pool the repository needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var _ PgxPool = (*pgxpool.Pool)(nil)

const (
	getUserProfileQuery = `
		SELECT id, email, COALESCE(username, '') AS username, display_name,
		       currency, monthly_income, onboarding_completed, is_active,
		       last_login_at, created_at, updated_at
		FROM users WHERE id = $1 AND is_active = TRUE
	`

	completeOnboardingQuery = `
		UPDATE users
		SET onboarding_completed = TRUE, updated_at = $1
		WHERE id = $2 AND is_active = TRUE
	`
)

type PostgresUserRepo struct {
	logger *slog.Logger
	pgpool PgxPool
}

func NewPostgresUserRepo(pool PgxPool, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		pgpool: pool,
	}
}

func (r *PostgresUserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*common.UserProfile, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetUserByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx, getUserProfileQuery, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	profile, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[common.UserProfile])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return nil, fmt.Errorf("user not found: %w", common.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB scan failed")
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	span.SetStatus(codes.Ok, "Profile fetched")
	return profile, nil
}

func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, params common.UpdateProfileParams) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdateProfile", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "UpdateProfile"), slog.String("userID", userID.String()))

	var setClauses []string
	var args []any
	argID := 1

	if params.DisplayName != nil {
		setClauses = append(setClauses, fmt.Sprintf("display_name = NULLIF($%d, '')", argID))
		args = append(args, strings.TrimSpace(*params.DisplayName))
		argID++
		span.SetAttributes(attribute.Bool("update.display_name", true))
	}
	if params.Currency != nil {
		setClauses = append(setClauses, fmt.Sprintf("currency = $%d", argID))
		args = append(args, strings.ToUpper(*params.Currency))
		argID++
		span.SetAttributes(attribute.Bool("update.currency", true))
	}
	if params.MonthlyIncome != nil {
		setClauses = append(setClauses, fmt.Sprintf("monthly_income = $%d", argID))
		args = append(args, *params.MonthlyIncome)
		argID++
		span.SetAttributes(attribute.Bool("update.monthly_income", true))
	}

	if len(setClauses) == 0 {
		l.DebugContext(ctx, "UpdateProfile called with no fields to update")
		span.SetStatus(codes.Ok, "No update fields provided")
		return nil
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argID))
	args = append(args, time.Now())
	argID++

	args = append(args, userID)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d AND is_active = TRUE",
		strings.Join(setClauses, ", "),
		argID,
	)

	tag, err := r.pgpool.Exec(ctx, query, args...)
	if err != nil {
		l.ErrorContext(ctx, "Failed to execute update profile query", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error updating profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "User not found")
		return fmt.Errorf("user not found for update: %w", common.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Profile updated")
	return nil
}

func (r *PostgresUserRepo) CompleteOnboarding(ctx context.Context, userID uuid.UUID) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "CompleteOnboarding", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, completeOnboardingQuery, time.Now(), userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error completing onboarding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "User not found")
		return fmt.Errorf("user not found: %w", common.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Onboarding completed")
	return nil
}
