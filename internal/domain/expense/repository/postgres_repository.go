package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

var (
	_ PgxPool           = (*pgxpool.Pool)(nil)
	_ ExpenseRepository = (*PostgresExpenseRepository)(nil)
)

const (
	expenseColumns = `id, user_id, amount, category, date, description, type,
		payment_method, upi_id, transaction_ref, import_job_id, created_at, updated_at`

	createExpenseQuery = `
		INSERT INTO expenses (id, user_id, amount, category, date, description, type,
			payment_method, upi_id, transaction_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	getExpenseQuery = `SELECT ` + expenseColumns + ` FROM expenses WHERE user_id = $1 AND id = $2`

	updateExpenseQuery = `
		UPDATE expenses SET
			amount = $3, category = $4, date = $5, description = $6, type = $7,
			payment_method = $8, updated_at = NOW()
		WHERE user_id = $1 AND id = $2
		RETURNING updated_at
	`

	deleteExpenseQuery = `DELETE FROM expenses WHERE user_id = $1 AND id = $2`

	merchantCandidatesQuery = `
		SELECT id, description, category
		FROM expenses
		WHERE user_id = $1 AND type = 'expense'
	`

	setCategoryQuery = `
		UPDATE expenses SET category = $3, updated_at = NOW()
		WHERE user_id = $1 AND id = ANY($2) AND category <> $3
	`
)

// PostgresExpenseRepository implements ExpenseRepository using PostgreSQL
type PostgresExpenseRepository struct {
	pool PgxPool
}

func NewPostgresExpenseRepository(pool PgxPool) *PostgresExpenseRepository {
	return &PostgresExpenseRepository{pool: pool}
}

// Create inserts e, assigning an id when it has none.
func (r *PostgresExpenseRepository) Create(ctx context.Context, e *Expense) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, createExpenseQuery,
		e.ID, e.UserID, e.Amount, e.Category, e.Date, e.Description, e.Type,
		e.PaymentMethod, e.UPIID, e.TransactionRef,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

func (r *PostgresExpenseRepository) Get(ctx context.Context, userID, id uuid.UUID) (*Expense, error) {
	rows, err := r.pool.Query(ctx, getExpenseQuery, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	e, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[Expense])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

func (r *PostgresExpenseRepository) List(ctx context.Context, userID uuid.UUID, f ListFilter) ([]*Expense, int, error) {
	where, args := listConditions(userID, f)

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM expenses WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count expenses: %w", err)
	}

	query := "SELECT " + expenseColumns + " FROM expenses WHERE " + where + " ORDER BY date DESC, created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	} else if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list expenses: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[Expense])
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan expenses: %w", err)
	}
	return out, total, nil
}

func listConditions(userID uuid.UUID, f ListFilter) (string, []any) {
	clauses := []string{"user_id = $1"}
	args := []any{userID}
	if f.StartDate != nil {
		args = append(args, *f.StartDate)
		clauses = append(clauses, fmt.Sprintf("date >= $%d", len(args)))
	}
	if f.EndDate != nil {
		args = append(args, *f.EndDate)
		clauses = append(clauses, fmt.Sprintf("date <= $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		clauses = append(clauses, fmt.Sprintf("category = $%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

// Update writes every mutable column of e.
func (r *PostgresExpenseRepository) Update(ctx context.Context, e *Expense) error {
	err := r.pool.QueryRow(ctx, updateExpenseQuery,
		e.UserID, e.ID, e.Amount, e.Category, e.Date, e.Description, e.Type, e.PaymentMethod,
	).Scan(&e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("expense %s: %w", e.ID, common.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	return nil
}

func (r *PostgresExpenseRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, deleteExpenseQuery, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("expense %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *PostgresExpenseRepository) ListMerchantCandidates(ctx context.Context, userID uuid.UUID) ([]MerchantCandidate, error) {
	rows, err := r.pool.Query(ctx, merchantCandidatesQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[MerchantCandidate])
	if err != nil {
		return nil, fmt.Errorf("failed to scan expenses: %w", err)
	}
	return out, nil
}

func (r *PostgresExpenseRepository) SetCategory(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, category string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, setCategoryQuery, userID, ids, category)
	if err != nil {
		return 0, fmt.Errorf("failed to recategorize expenses: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
