package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
)

var columns = []string{
	"id", "user_id", "amount", "category", "date", "description", "type",
	"payment_method", "upi_id", "transaction_ref", "import_job_id", "created_at", "updated_at",
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

func TestPostgresExpenseRepository_Create(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	e := &Expense{
		UserID:      uuid.New(),
		Amount:      decimal.RequireFromString("12.50"),
		Category:    common.CategoryGroceries,
		Date:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Description: "WALMART",
		Type:        common.TypeExpense,
	}

	mock.ExpectQuery(regexp.QuoteMeta(createExpenseQuery)).
		WithArgs(pgxmock.AnyArg(), e.UserID, e.Amount, e.Category, e.Date, e.Description, e.Type,
			e.PaymentMethod, e.UPIID, e.TransactionRef).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	if err := NewPostgresExpenseRepository(mock).Create(context.Background(), e); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.ID == uuid.Nil || !e.CreatedAt.Equal(now) {
		t.Fatalf("expected id and timestamps to be set, got %+v", e)
	}
}

func TestPostgresExpenseRepository_Get_NotFound(t *testing.T) {
	mock := newMock(t)
	userID, id := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(getExpenseQuery)).
		WithArgs(userID, id).
		WillReturnRows(pgxmock.NewRows(columns))

	_, err := NewPostgresExpenseRepository(mock).Get(context.Background(), userID, id)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresExpenseRepository_List(t *testing.T) {
	mock := newMock(t)
	userID := uuid.New()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM expenses WHERE user_id = $1 AND date >= $2 AND category = $3")).
		WithArgs(userID, start, "Transport").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY date DESC, created_at DESC LIMIT $4 OFFSET $5")).
		WithArgs(userID, start, "Transport", 2, 4).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow(uuid.New(), userID, decimal.NewFromInt(15), "Transport", start, "UBER TRIP", "expense",
				(*string)(nil), (*string)(nil), (*string)(nil), (*uuid.UUID)(nil), now, now))

	out, total, err := NewPostgresExpenseRepository(mock).List(context.Background(), userID, ListFilter{
		StartDate: &start,
		Category:  "Transport",
		Limit:     2,
		Offset:    4,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 7 || len(out) != 1 || out[0].Description != "UBER TRIP" {
		t.Fatalf("unexpected page: total=%d rows=%d", total, len(out))
	}
}

func TestPostgresExpenseRepository_Delete_NotFound(t *testing.T) {
	mock := newMock(t)
	userID, id := uuid.New(), uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(deleteExpenseQuery)).
		WithArgs(userID, id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := NewPostgresExpenseRepository(mock).Delete(context.Background(), userID, id)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresExpenseRepository_SetCategory(t *testing.T) {
	mock := newMock(t)
	userID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectExec(regexp.QuoteMeta(setCategoryQuery)).
		WithArgs(userID, ids, "Groceries").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	repo := NewPostgresExpenseRepository(mock)
	n, err := repo.SetCategory(context.Background(), userID, ids, "Groceries")
	if err != nil || n != 2 {
		t.Fatalf("SetCategory = %d, %v", n, err)
	}

	n, err = repo.SetCategory(context.Background(), userID, nil, "Groceries")
	if err != nil || n != 0 {
		t.Fatalf("empty SetCategory = %d, %v", n, err)
	}
}
