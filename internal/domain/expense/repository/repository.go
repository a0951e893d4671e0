// Package repository stores user expenses.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense is one stored transaction. Amount is never negative; Type tells
// expense from income.
type Expense struct {
	ID             uuid.UUID       `db:"id"`
	UserID         uuid.UUID       `db:"user_id"`
	Amount         decimal.Decimal `db:"amount"`
	Category       string          `db:"category"`
	Date           time.Time       `db:"date"`
	Description    string          `db:"description"`
	Type           string          `db:"type"`
	PaymentMethod  *string         `db:"payment_method"`
	UPIID          *string         `db:"upi_id"`
	TransactionRef *string         `db:"transaction_ref"`
	ImportJobID    *uuid.UUID      `db:"import_job_id"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// ListFilter narrows ListExpenses. Zero values mean no constraint; Limit 0
// returns every match.
type ListFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Category  string
	Limit     int
	Offset    int
}

// MerchantCandidate is the part of an expense needed to match it by merchant.
type MerchantCandidate struct {
	ID          uuid.UUID `db:"id"`
	Description string    `db:"description"`
	Category    string    `db:"category"`
}

// ExpenseRepository defines data access for expenses.
type ExpenseRepository interface {
	Create(ctx context.Context, e *Expense) error
	// Get returns common.ErrNotFound for another user's expense.
	Get(ctx context.Context, userID, id uuid.UUID) (*Expense, error)
	// List returns one page, newest first, and the number of matches.
	List(ctx context.Context, userID uuid.UUID, f ListFilter) ([]*Expense, int, error)
	Update(ctx context.Context, e *Expense) error
	Delete(ctx context.Context, userID, id uuid.UUID) error

	ListMerchantCandidates(ctx context.Context, userID uuid.UUID) ([]MerchantCandidate, error)
	// SetCategory recategorizes ids in one statement and reports how many changed.
	SetCategory(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, category string) (int, error)
}
