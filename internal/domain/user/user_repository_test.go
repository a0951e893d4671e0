package user

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
)

var profileColumns = []string{
	"id", "email", "username", "display_name", "currency", "monthly_income",
	"onboarding_completed", "is_active", "last_login_at", "created_at", "updated_at",
}

func newRepoMock(t *testing.T) (*PostgresUserRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return NewPostgresUserRepo(mock, slog.New(slog.NewTextHandler(io.Discard, nil))), mock
}

func TestPostgresUserRepo_GetUserByID(t *testing.T) {
	repo, mock := newRepoMock(t)
	userID := uuid.New()
	now := time.Now()
	display := "Asha"

	mock.ExpectQuery(regexp.QuoteMeta(getUserProfileQuery)).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(profileColumns).AddRow(
			userID, "asha@example.com", "asha", &display, "INR", decimal.RequireFromString("85000"),
			false, true, (*time.Time)(nil), now, now,
		))

	profile, err := repo.GetUserByID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", profile.Email)
	assert.Equal(t, "INR", profile.Currency)
	require.NotNil(t, profile.DisplayName)
	assert.Equal(t, "Asha", *profile.DisplayName)
	assert.True(t, profile.MonthlyIncome.Equal(decimal.NewFromInt(85000)))
}

func TestPostgresUserRepo_GetUserByID_NotFound(t *testing.T) {
	repo, mock := newRepoMock(t)
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(getUserProfileQuery)).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(profileColumns))

	_, err := repo.GetUserByID(context.Background(), userID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPostgresUserRepo_UpdateProfile(t *testing.T) {
	repo, mock := newRepoMock(t)
	userID := uuid.New()
	currency := "usd"
	income := decimal.RequireFromString("1200")

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET currency = $1, monthly_income = $2, updated_at = $3 WHERE id = $4 AND is_active = TRUE")).
		WithArgs("USD", income, pgxmock.AnyArg(), userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.UpdateProfile(context.Background(), userID, common.UpdateProfileParams{
		Currency:      &currency,
		MonthlyIncome: &income,
	})
	require.NoError(t, err)
}

func TestPostgresUserRepo_UpdateProfile_NoFields(t *testing.T) {
	repo, _ := newRepoMock(t)
	require.NoError(t, repo.UpdateProfile(context.Background(), uuid.New(), common.UpdateProfileParams{}))
}

func TestPostgresUserRepo_CompleteOnboarding_NotFound(t *testing.T) {
	repo, mock := newRepoMock(t)
	userID := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(completeOnboardingQuery)).
		WithArgs(pgxmock.AnyArg(), userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.CompleteOnboarding(context.Background(), userID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
