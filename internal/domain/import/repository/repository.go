// Package repository provides data access for import-related entities:
// imported expenses, learned merchant rules and import jobs.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Import job statuses.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// MerchantRule is a learned merchant to category preference. Confidence counts
// how many times in a row the user confirmed the category.
type MerchantRule struct {
	UserID       uuid.UUID `db:"user_id"`
	MerchantName string    `db:"merchant_name"`
	Category     string    `db:"category"`
	Confidence   int       `db:"confidence"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// ImportJob is the audit record of one committed statement import.
type ImportJob struct {
	ID           uuid.UUID  `db:"id"`
	UserID       uuid.UUID  `db:"user_id"`
	Filename     string     `db:"filename"`
	FileType     string     `db:"file_type"`
	Status       string     `db:"status"`
	RowsTotal    int        `db:"rows_total"`
	RowsImported int        `db:"rows_imported"`
	RowsSkipped  int        `db:"rows_skipped"`
	ErrorMessage *string    `db:"error_message"`
	StartedAt    time.Time  `db:"started_at"`
	FinishedAt   *time.Time `db:"finished_at"`
}

// ExpenseRow is one transaction ready to be written. Amount is the absolute
// value; Type tells expense from income.
type ExpenseRow struct {
	Date           time.Time
	Description    string
	Amount         decimal.Decimal
	Category       string
	Type           string
	PaymentMethod  string
	UPIID          string
	TransactionRef string
	ExternalID     string
}

// RuleUpdate records a category the user chose for a merchant.
type RuleUpdate struct {
	MerchantName string
	Category     string
}

// ImportBatch is everything one import commits atomically.
type ImportBatch struct {
	UserID        uuid.UUID
	Filename      string
	FileType      string
	ClearPrevious bool
	Expenses      []ExpenseRow
	Rules         []RuleUpdate
}

// CommitResult reports what CommitImport wrote.
type CommitResult struct {
	JobID    uuid.UUID
	Inserted int
	Skipped  int // rows already stored under the same external id
	Cleared  int // rows deleted by ClearPrevious
	Rules    []MerchantRule
}

// LabeledDescription is a categorized expense used to train the classifier.
type LabeledDescription struct {
	Description string `db:"description"`
	Category    string `db:"category"`
}

// ImportRepository defines data access operations for imports
type ImportRepository interface {
	// Merchant rules
	GetRule(ctx context.Context, userID uuid.UUID, merchantName string) (*MerchantRule, error)
	UpsertRule(ctx context.Context, userID uuid.UUID, merchantName, category string) (*MerchantRule, error)
	ListRules(ctx context.Context, userID uuid.UUID) ([]*MerchantRule, error)
	DeleteRule(ctx context.Context, userID uuid.UUID, merchantName string) error

	// Classifier training data
	ListLabeledDescriptions(ctx context.Context, userID uuid.UUID, limit int) ([]LabeledDescription, error)

	// Import jobs
	CommitImport(ctx context.Context, batch *ImportBatch) (*CommitResult, error)
	RecordFailedImport(ctx context.Context, job *ImportJob) error
	ListImportJobs(ctx context.Context, userID uuid.UUID, limit int) ([]*ImportJob, error)
}
