// Package session keeps extracted statements between the upload, date-range
// and import calls. Sessions live in memory, are scoped to one user and expire
// after a period of inactivity.
package session

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
)

// ExtractedTransaction is a statement row together with its category suggestion.
// Overrides chosen during clarification are applied to copies, never in place.
type ExtractedTransaction struct {
	Date              time.Time
	Description       string
	Amount            decimal.Decimal // negative for expenses
	Type              string
	SuggestedCategory string
	Confidence        common.Confidence
	Reasoning         string
	Alternatives      []string
	Source            string // classifier stage that produced the suggestion
	PaymentMethod     string
	UPIID             string
	TransactionRef    string
}

// UploadSession is one user's in-flight import.
type UploadSession struct {
	ID            string
	UserID        uuid.UUID
	Filename      string
	FileType      string
	ClearPrevious bool
	Transactions  []ExtractedTransaction
	Filtered      []ExtractedTransaction
	RangeSelected bool
	RangeStart    time.Time
	RangeEnd      time.Time
	CreatedAt     time.Time
	LastAccess    time.Time
}

// Selected returns the transactions an import should consume: the filtered
// set once a range was chosen, otherwise everything extracted.
func (s *UploadSession) Selected() []ExtractedTransaction {
	if s.RangeSelected {
		return s.Filtered
	}
	return s.Transactions
}

func (s *UploadSession) clone() *UploadSession {
	c := *s
	c.Transactions = slices.Clone(s.Transactions)
	c.Filtered = slices.Clone(s.Filtered)
	return &c
}
