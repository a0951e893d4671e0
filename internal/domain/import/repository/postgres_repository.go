package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
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
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ PgxPool = (*pgxpool.Pool)(nil)

const (
	getRuleQuery = `
		SELECT user_id, merchant_name, category, confidence, created_at, updated_at
		FROM merchant_rules
		WHERE user_id = $1 AND merchant_name = $2
	`

	// Confirming the same category bumps the counter; a different category
	// replaces the rule and starts counting again.
	upsertRuleQuery = `
		INSERT INTO merchant_rules (user_id, merchant_name, category, confidence)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id, merchant_name) DO UPDATE SET
			confidence = CASE
				WHEN merchant_rules.category = EXCLUDED.category THEN merchant_rules.confidence + 1
				ELSE 1
			END,
			category = EXCLUDED.category,
			updated_at = NOW()
		RETURNING user_id, merchant_name, category, confidence, created_at, updated_at
	`

	listRulesQuery = `
		SELECT user_id, merchant_name, category, confidence, created_at, updated_at
		FROM merchant_rules
		WHERE user_id = $1
		ORDER BY confidence DESC, updated_at DESC
	`

	deleteRuleQuery = `DELETE FROM merchant_rules WHERE user_id = $1 AND merchant_name = $2`

	listLabeledQuery = `
		SELECT description, category
		FROM expenses
		WHERE user_id = $1 AND type = 'expense' AND category <> 'Uncategorized'
		ORDER BY date DESC
		LIMIT $2
	`

	createJobQuery = `
		INSERT INTO import_jobs (id, user_id, filename, file_type, status, rows_total, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	clearExpensesQuery = `DELETE FROM expenses WHERE user_id = $1`

	insertExpenseQuery = `
		INSERT INTO expenses (
			id, user_id, amount, category, date, description, type,
			payment_method, upi_id, transaction_ref, external_id, import_job_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, external_id) DO NOTHING
	`

	finishJobQuery = `
		UPDATE import_jobs SET
			status = $2, rows_imported = $3, rows_skipped = $4,
			error_message = $5, finished_at = NOW()
		WHERE id = $1
	`

	failedJobQuery = `
		INSERT INTO import_jobs (id, user_id, filename, file_type, status, rows_total, error_message, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`

	listJobsQuery = `
		SELECT id, user_id, filename, file_type, status, rows_total, rows_imported, rows_skipped,
		       error_message, started_at, finished_at
		FROM import_jobs
		WHERE user_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`
)

// PostgresImportRepository implements ImportRepository using PostgreSQL
type PostgresImportRepository struct {
	pool PgxPool
}

// NewPostgresImportRepository creates a new PostgreSQL-backed import repository
func NewPostgresImportRepository(pool PgxPool) *PostgresImportRepository {
	return &PostgresImportRepository{pool: pool}
}

// GetRule returns the learned rule for a normalized merchant name, or
// common.ErrNotFound.
func (r *PostgresImportRepository) GetRule(ctx context.Context, userID uuid.UUID, merchantName string) (*MerchantRule, error) {
	rows, err := r.pool.Query(ctx, getRuleQuery, userID, merchantName)
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant rule: %w", err)
	}

	rule, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[MerchantRule])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant rule: %w", err)
	}
	return &rule, nil
}

// UpsertRule records that the user filed merchantName under category.
func (r *PostgresImportRepository) UpsertRule(ctx context.Context, userID uuid.UUID, merchantName, category string) (*MerchantRule, error) {
	return upsertRule(ctx, r.pool, userID, merchantName, category)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func upsertRule(ctx context.Context, q querier, userID uuid.UUID, merchantName, category string) (*MerchantRule, error) {
	rows, err := q.Query(ctx, upsertRuleQuery, userID, merchantName, category)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert merchant rule: %w", err)
	}
	rule, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[MerchantRule])
	if err != nil {
		return nil, fmt.Errorf("failed to upsert merchant rule: %w", err)
	}
	return &rule, nil
}

// ListRules returns the user's rules, strongest first.
func (r *PostgresImportRepository) ListRules(ctx context.Context, userID uuid.UUID) ([]*MerchantRule, error) {
	rows, err := r.pool.Query(ctx, listRulesQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list merchant rules: %w", err)
	}
	rules, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[MerchantRule])
	if err != nil {
		return nil, fmt.Errorf("failed to scan merchant rules: %w", err)
	}
	return rules, nil
}

// DeleteRule removes a rule; a missing rule is common.ErrNotFound.
func (r *PostgresImportRepository) DeleteRule(ctx context.Context, userID uuid.UUID, merchantName string) error {
	tag, err := r.pool.Exec(ctx, deleteRuleQuery, userID, merchantName)
	if err != nil {
		return fmt.Errorf("failed to delete merchant rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

// ListLabeledDescriptions returns recent categorized expenses.
func (r *PostgresImportRepository) ListLabeledDescriptions(ctx context.Context, userID uuid.UUID, limit int) ([]LabeledDescription, error) {
	rows, err := r.pool.Query(ctx, listLabeledQuery, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list labeled descriptions: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[LabeledDescription])
	if err != nil {
		return nil, fmt.Errorf("failed to scan labeled descriptions: %w", err)
	}
	return out, nil
}

// CommitImport writes a whole import in one transaction: the job record, the
// optional wipe of previous expenses, every expense (rows whose external id is
// already stored are skipped), and the learned merchant rules.
func (r *PostgresImportRepository) CommitImport(ctx context.Context, batch *ImportBatch) (*CommitResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin import transaction: %w", err)
	}

	res, err := commitImport(ctx, tx, batch)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return nil, fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}
	return res, nil
}

func commitImport(ctx context.Context, tx pgx.Tx, batch *ImportBatch) (*CommitResult, error) {
	res := &CommitResult{JobID: uuid.New()}

	_, err := tx.Exec(ctx, createJobQuery,
		res.JobID, batch.UserID, batch.Filename, batch.FileType,
		JobStatusProcessing, len(batch.Expenses), time.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create import job: %w", err)
	}

	if batch.ClearPrevious {
		tag, err := tx.Exec(ctx, clearExpensesQuery, batch.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to clear previous expenses: %w", err)
		}
		res.Cleared = int(tag.RowsAffected())
	}

	for i := range batch.Expenses {
		e := &batch.Expenses[i]
		tag, err := tx.Exec(ctx, insertExpenseQuery,
			uuid.New(), batch.UserID, e.Amount, e.Category, e.Date, e.Description, e.Type,
			nullable(e.PaymentMethod), nullable(e.UPIID), nullable(e.TransactionRef),
			e.ExternalID, res.JobID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert expense %d: %w", i, err)
		}
		if tag.RowsAffected() == 0 {
			res.Skipped++
			continue
		}
		res.Inserted++
	}

	for _, u := range batch.Rules {
		rule, err := upsertRule(ctx, tx, batch.UserID, u.MerchantName, u.Category)
		if err != nil {
			return nil, err
		}
		res.Rules = append(res.Rules, *rule)
	}

	_, err = tx.Exec(ctx, finishJobQuery, res.JobID, JobStatusCompleted, res.Inserted, res.Skipped, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to finish import job: %w", err)
	}
	return res, nil
}

// RecordFailedImport stores a failed job outside any import transaction.
func (r *PostgresImportRepository) RecordFailedImport(ctx context.Context, job *ImportJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.StartedAt.IsZero() {
		job.StartedAt = time.Now()
	}
	_, err := r.pool.Exec(ctx, failedJobQuery,
		job.ID, job.UserID, job.Filename, job.FileType, JobStatusFailed,
		job.RowsTotal, job.ErrorMessage, job.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record failed import: %w", err)
	}
	return nil
}

// ListImportJobs returns the user's most recent jobs.
func (r *PostgresImportRepository) ListImportJobs(ctx context.Context, userID uuid.UUID, limit int) ([]*ImportJob, error) {
	rows, err := r.pool.Query(ctx, listJobsQuery, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import jobs: %w", err)
	}
	jobs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[ImportJob])
	if err != nil {
		return nil, fmt.Errorf("failed to scan import jobs: %w", err)
	}
	return jobs, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// AssignExternalIDs fills ExternalID for every row. Identical rows inside one
// file (same date, description and amount) get distinct ids through an
// occurrence ordinal, so re-importing the same file skips every row while two
// genuine identical purchases on one day are both kept.
func AssignExternalIDs(rows []ExpenseRow) {
	seen := make(map[string]int, len(rows))
	for i := range rows {
		key := externalKey(&rows[i])
		rows[i].ExternalID = generateExternalID(key, seen[key])
		seen[key]++
	}
}

func externalKey(e *ExpenseRow) string {
	return fmt.Sprintf("%s|%s|%s|%s", e.Date.Format(time.DateOnly), e.Description, e.Type, e.Amount.StringFixed(2))
}

// generateExternalID creates a unique identifier for deduplication
func generateExternalID(key string, ordinal int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", key, ordinal)))
	return hex.EncodeToString(hash[:16]) // First 16 bytes for reasonable length
}
