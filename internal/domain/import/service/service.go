// Package service provides the import orchestration logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/classifier"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/extractor"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/normalizer"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/repository"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/session"
)

const (
	previewSize          = 5
	defaultJobsListLimit = 20
	maxJobsListLimit     = 100
)

// Upload outcomes reported to Metrics.
const (
	OutcomeExtracted        = "extracted"
	OutcomePasswordRequired = "password_required"
	OutcomeWrongPassword    = "wrong_password"
	OutcomeUnsupported      = "unsupported"
	OutcomeParseFailed      = "parse_failed"
)

// UploadRequest is one upload attempt.
type UploadRequest struct {
	Filename      string
	Data          []byte
	Password      string
	ClearPrevious bool
}

// SuggestedRange is a preset the client can offer for the date filter.
type SuggestedRange struct {
	Label string
	Start time.Time
	End   time.Time
	Days  int
}

// DateRange summarizes the dates covered by an upload.
type DateRange struct {
	MinDate   time.Time
	MaxDate   time.Time
	TotalDays int
	Suggested []SuggestedRange
}

// UploadResult is returned by UploadStatement. When Status is
// password_required only FileType and Message are set.
type UploadResult struct {
	Status           extractor.Status
	SessionID        string
	FileType         extractor.FileType
	TransactionCount int
	DateRange        *DateRange
	Preview          []session.ExtractedTransaction
	Message          string
}

// AmbiguousItem is one merchant group the user should confirm.
type AmbiguousItem struct {
	Index              int
	Description        string
	Amount             decimal.Decimal
	Date               time.Time
	Confidence         common.Confidence
	Reasoning          string
	Alternatives       []string
	SuggestedCategory  string
	TransactionCount   int
	NormalizedMerchant string
}

// RangeResult is returned by SelectDateRange.
type RangeResult struct {
	NeedsClarification bool
	FilteredCount      int
	AmbiguousCount     int
	ClearCount         int
	AmbiguousItems     []AmbiguousItem
	Message            string
}

// LearnedRule reports a merchant rule written during an import.
type LearnedRule struct {
	MerchantName string
	Category     string
	Confidence   int
}

// ImportResult contains the result of an import operation
type ImportResult struct {
	JobID    uuid.UUID
	Imported int
	Skipped  int
	Total    int
	Message  string
	Learned  []LearnedRule
}

// BatchClassifier suggests categories for many transactions at once and keeps
// the input order.
type BatchClassifier interface {
	ClassifyBatch(ctx context.Context, userID uuid.UUID, inputs []classifier.Input) []classifier.Suggestion
}

// ModelInvalidator drops cached per-user models after new labels are stored.
type ModelInvalidator interface {
	Invalidate(userID uuid.UUID)
}

// Metrics receives import events.
type Metrics interface {
	UploadProcessed(outcome string)
	TransactionClassified(source string, confidence common.Confidence)
	ImportCommitted(imported, skipped int)
	ActiveSessions(n int)
}

type noopMetrics struct{}

func (noopMetrics) UploadProcessed(string) {}
func (noopMetrics) TransactionClassified(string, common.Confidence) {}
func (noopMetrics) ImportCommitted(int, int) {}
func (noopMetrics) ActiveSessions(int) {}

// Deps wires an ImportService. Learner and Metrics are optional.
type Deps struct {
	Repo       repository.ImportRepository
	Extractor  *extractor.Extractor
	Classifier BatchClassifier
	Sessions   *session.Store
	Learner    ModelInvalidator
	Metrics    Metrics
	Logger     *slog.Logger
}

// ImportService orchestrates the upload, date range and import phases.
type ImportService struct {
	repo       repository.ImportRepository
	extractor  *extractor.Extractor
	classifier BatchClassifier
	sessions   *session.Store
	learner    ModelInvalidator
	metrics    Metrics
	logger     *slog.Logger
}

// NewImportService creates a new import service
func NewImportService(d Deps) *ImportService {
	if d.Metrics == nil {
		d.Metrics = noopMetrics{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &ImportService{
		repo:       d.Repo,
		extractor:  d.Extractor,
		classifier: d.Classifier,
		sessions:   d.Sessions,
		learner:    d.Learner,
		metrics:    d.Metrics,
		logger:     d.Logger,
	}
}

// UploadStatement extracts and classifies a statement and opens an upload
// session for it.
func (s *ImportService) UploadStatement(ctx context.Context, userID uuid.UUID, req UploadRequest) (*UploadResult, error) {
	l := s.logger.With(
		slog.String("method", "UploadStatement"),
		slog.String("user_id", userID.String()),
		slog.String("filename", req.Filename),
	)

	res, err := s.extractor.Extract(ctx, extractor.Input{
		Filename: req.Filename,
		Data:     req.Data,
		Password: req.Password,
	})
	if err != nil {
		s.metrics.UploadProcessed(uploadOutcome(err))
		l.WarnContext(ctx, "statement extraction failed", slog.Any("error", err))
		return nil, err
	}
	if res.Status == extractor.StatusPasswordRequired {
		s.metrics.UploadProcessed(OutcomePasswordRequired)
		return &UploadResult{
			Status:   extractor.StatusPasswordRequired,
			FileType: res.FileType,
			Message:  "This PDF is password protected. Please enter the password.",
		}, nil
	}

	txns := s.classify(ctx, userID, res.Transactions)

	id := s.sessions.Create(userID, &session.UploadSession{
		Filename:      req.Filename,
		FileType:      string(res.FileType),
		ClearPrevious: req.ClearPrevious,
		Transactions:  txns,
	})
	s.metrics.UploadProcessed(OutcomeExtracted)
	s.metrics.ActiveSessions(s.sessions.Len())

	l.InfoContext(ctx, "upload session created",
		slog.String("session_id", id),
		slog.Int("transactions", len(txns)))

	return &UploadResult{
		Status:           extractor.StatusExtracted,
		SessionID:        id,
		FileType:         res.FileType,
		TransactionCount: len(txns),
		DateRange:        BuildDateRange(txns),
		Preview:          slices.Clone(txns[:min(previewSize, len(txns))]),
		Message:          fmt.Sprintf("Extracted %d transactions from %s", len(txns), req.Filename),
	}, nil
}

func (s *ImportService) classify(ctx context.Context, userID uuid.UUID, rows []extractor.Transaction) []session.ExtractedTransaction {
	inputs := make([]classifier.Input, len(rows))
	for i, r := range rows {
		inputs[i] = classifier.Input{Description: r.Description, Amount: r.Amount, Type: r.Type}
	}
	suggestions := s.classifier.ClassifyBatch(ctx, userID, inputs)

	out := make([]session.ExtractedTransaction, len(rows))
	for i, r := range rows {
		sg := classifier.Fallback("")
		if i < len(suggestions) {
			sg = suggestions[i]
		}
		s.metrics.TransactionClassified(sg.Source, sg.Confidence)
		out[i] = session.ExtractedTransaction{
			Date:              r.Date,
			Description:       r.Description,
			Amount:            r.Amount,
			Type:              r.Type,
			SuggestedCategory: sg.Category,
			Confidence:        sg.Confidence,
			Reasoning:         sg.Reasoning,
			Alternatives:      sg.Alternatives,
			Source:            sg.Source,
			PaymentMethod:     r.Payment.Method,
			UPIID:             r.Payment.UPIID,
			TransactionRef:    r.Payment.TransactionRef,
		}
	}
	return out
}

func uploadOutcome(err error) string {
	switch {
	case errors.Is(err, common.ErrWrongPassword):
		return OutcomeWrongPassword
	case errors.Is(err, common.ErrUnsupportedFileType):
		return OutcomeUnsupported
	default:
		return OutcomeParseFailed
	}
}

// BuildDateRange summarizes transaction dates and proposes ranges counted
// back from the latest transaction.
func BuildDateRange(txns []session.ExtractedTransaction) *DateRange {
	if len(txns) == 0 {
		return &DateRange{}
	}
	minDate, maxDate := dateOnly(txns[0].Date), dateOnly(txns[0].Date)
	for _, t := range txns[1:] {
		d := dateOnly(t.Date)
		if d.Before(minDate) {
			minDate = d
		}
		if d.After(maxDate) {
			maxDate = d
		}
	}
	totalDays := int(maxDate.Sub(minDate).Hours() / 24)

	dr := &DateRange{
		MinDate:   minDate,
		MaxDate:   maxDate,
		TotalDays: totalDays,
		Suggested: []SuggestedRange{{
			Label: "All Transactions",
			Start: minDate,
			End:   maxDate,
			Days:  totalDays,
		}},
	}

	presets := []struct {
		label string
		days  int
	}{
		{"Last 1 Month", 30},
		{"Last 3 Months", 90},
		{"Last 6 Months", 180},
		{"Last 1 Year", 365},
	}
	for _, p := range presets {
		start := maxDate.AddDate(0, 0, -p.days)
		if start.Before(minDate) {
			continue
		}
		// A year preset only helps on statements longer than six months.
		if p.days == 365 && totalDays <= 180 {
			continue
		}
		count := 0
		for _, t := range txns {
			if !dateOnly(t.Date).Before(start) {
				count++
			}
		}
		dr.Suggested = append(dr.Suggested, SuggestedRange{
			Label: fmt.Sprintf("%s (%d transactions)", p.label, count),
			Start: start,
			End:   maxDate,
			Days:  p.days,
		})
	}
	return dr
}

// SelectDateRange filters the session to [start, end] by calendar date and
// groups the transactions that are not confidently categorized by merchant.
// Calling it again with other bounds replaces the previous selection.
func (s *ImportService) SelectDateRange(ctx context.Context, userID uuid.UUID, sessionID string, start, end time.Time) (*RangeResult, error) {
	l := s.logger.With(
		slog.String("method", "SelectDateRange"),
		slog.String("user_id", userID.String()),
		slog.String("session_id", sessionID),
	)

	start, end = dateOnly(start), dateOnly(end)
	if start.After(end) {
		return nil, common.ErrInvalidDateRange
	}

	sess, err := s.sessions.Get(userID, sessionID)
	if err != nil {
		return nil, err
	}

	filtered := make([]session.ExtractedTransaction, 0, len(sess.Transactions))
	for _, t := range sess.Transactions {
		d := dateOnly(t.Date)
		if !d.Before(start) && !d.After(end) {
			filtered = append(filtered, t)
		}
	}

	sess.Filtered = filtered
	sess.RangeSelected = true
	sess.RangeStart = start
	sess.RangeEnd = end
	if err := s.sessions.Update(sess); err != nil {
		return nil, err
	}

	items, ambiguousRows := GroupAmbiguous(filtered)
	res := &RangeResult{
		NeedsClarification: len(items) > 0,
		FilteredCount:      len(filtered),
		AmbiguousCount:     len(items),
		ClearCount:         len(filtered) - ambiguousRows,
		AmbiguousItems:     items,
		Message:            "All transactions are ready to import",
	}
	if res.NeedsClarification {
		res.Message = fmt.Sprintf("Found %d transaction(s) that need clarification", len(items))
	}

	l.InfoContext(ctx, "date range selected",
		slog.Int("filtered", res.FilteredCount),
		slog.Int("ambiguous_groups", res.AmbiguousCount))
	return res, nil
}

// GroupAmbiguous returns one item per normalized merchant among the
// transactions without a high-confidence suggestion, in order of first
// appearance, and the number of transactions the items cover. The first
// member of a group supplies the suggestion.
func GroupAmbiguous(txns []session.ExtractedTransaction) ([]AmbiguousItem, int) {
	var (
		items   []AmbiguousItem
		byKey   = make(map[string]int)
		members int
	)
	for i, t := range txns {
		if t.Confidence == common.ConfidenceHigh {
			continue
		}
		members++
		key := groupKey(t.Description)
		if pos, ok := byKey[key]; ok {
			items[pos].TransactionCount++
			continue
		}
		byKey[key] = len(items)
		items = append(items, AmbiguousItem{
			Index:              i,
			Description:        t.Description,
			Amount:             t.Amount,
			Date:               t.Date,
			Confidence:         t.Confidence,
			Reasoning:          t.Reasoning,
			Alternatives:       t.Alternatives,
			SuggestedCategory:  t.SuggestedCategory,
			TransactionCount:   1,
			NormalizedMerchant: key,
		})
	}
	for i := range items {
		if n := items[i].TransactionCount; n > 1 {
			items[i].Reasoning = fmt.Sprintf("%s (%d similar transactions)", items[i].Reasoning, n)
		}
	}
	return items, members
}

// groupKey is the key that ties a transaction to its clarification group.
// Descriptions with nothing left after merchant normalization, such as bare
// reference numbers, group by their literal text instead.
func groupKey(description string) string {
	if m := normalizer.NormalizeMerchant(description); m != "" {
		return m
	}
	return strings.ToLower(strings.TrimSpace(description))
}

// ImportTransactions commits the selected transactions. clarifications maps
// a position in the selected set to a category; a valid category applies to
// every transaction of the same merchant and is learned as a merchant rule.
// The session is consumed by the first call; a failed commit gives it back.
func (s *ImportService) ImportTransactions(ctx context.Context, userID uuid.UUID, sessionID string, clarifications map[int]string) (*ImportResult, error) {
	l := s.logger.With(
		slog.String("method", "ImportTransactions"),
		slog.String("user_id", userID.String()),
		slog.String("session_id", sessionID),
	)

	sess, err := s.sessions.Claim(userID, sessionID)
	if err != nil {
		return nil, err
	}

	txns := sess.Selected()
	for idx := range clarifications {
		if idx < 0 || idx >= len(txns) {
			s.sessions.Release(userID, sessionID)
			return nil, fmt.Errorf("%w: index %d, %d transactions selected", common.ErrInvalidClarification, idx, len(txns))
		}
	}

	if len(txns) == 0 {
		s.finish(userID, sessionID)
		return &ImportResult{Message: "No transactions in the selected date range"}, nil
	}

	batch := buildBatch(userID, sess, txns, clarifications)
	res, err := s.repo.CommitImport(ctx, batch)
	if err != nil {
		s.sessions.Release(userID, sessionID)
		s.recordFailure(ctx, l, batch, err)
		return nil, fmt.Errorf("failed to import transactions: %w", err)
	}

	s.finish(userID, sessionID)
	if s.learner != nil {
		s.learner.Invalidate(userID)
	}
	s.metrics.ImportCommitted(res.Inserted, res.Skipped)

	out := &ImportResult{
		JobID:    res.JobID,
		Imported: res.Inserted,
		Skipped:  res.Skipped,
		Total:    len(txns),
		Message:  "Bank statement imported successfully",
	}
	if res.Skipped > 0 {
		out.Message = fmt.Sprintf("Imported %d of %d transactions, %d already existed", res.Inserted, len(txns), res.Skipped)
	}
	for _, r := range res.Rules {
		out.Learned = append(out.Learned, LearnedRule{
			MerchantName: r.MerchantName,
			Category:     r.Category,
			Confidence:   r.Confidence,
		})
	}

	l.InfoContext(ctx, "statement imported",
		slog.String("job_id", res.JobID.String()),
		slog.Int("imported", res.Inserted),
		slog.Int("skipped", res.Skipped),
		slog.Int("cleared", res.Cleared),
		slog.Int("learned", len(out.Learned)))
	return out, nil
}

func (s *ImportService) finish(userID uuid.UUID, sessionID string) {
	if err := s.sessions.Delete(userID, sessionID); err != nil {
		s.logger.Warn("failed to drop upload session", slog.String("session_id", sessionID), slog.Any("error", err))
	}
	s.metrics.ActiveSessions(s.sessions.Len())
}

func (s *ImportService) recordFailure(ctx context.Context, l *slog.Logger, batch *repository.ImportBatch, cause error) {
	l.ErrorContext(ctx, "import failed", slog.Any("error", cause))
	msg := cause.Error()
	job := &repository.ImportJob{
		UserID:       batch.UserID,
		Filename:     batch.Filename,
		FileType:     batch.FileType,
		RowsTotal:    len(batch.Expenses),
		ErrorMessage: &msg,
	}
	// The request context may be the reason the commit failed.
	if err := s.repo.RecordFailedImport(context.WithoutCancel(ctx), job); err != nil {
		l.WarnContext(ctx, "failed to record failed import", slog.Any("error", err))
	}
}

// buildBatch resolves the final category of every transaction and the rules
// to learn.
func buildBatch(userID uuid.UUID, sess *session.UploadSession, txns []session.ExtractedTransaction, clarifications map[int]string) *repository.ImportBatch {
	indices := make([]int, 0, len(clarifications))
	for idx := range clarifications {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	overrides := make(map[int]string, len(clarifications))
	byGroup := make(map[string]string)
	learned := make(map[string]string)
	var merchants []string
	for _, idx := range indices {
		category, ok := common.CanonicalCategory(clarifications[idx])
		if !ok {
			overrides[idx] = common.CategoryUncategorized
			continue
		}
		overrides[idx] = category
		byGroup[groupKey(txns[idx].Description)] = category

		merchant := normalizer.NormalizeMerchant(txns[idx].Description)
		if merchant == "" || category == common.CategoryUncategorized {
			continue
		}
		if _, seen := learned[merchant]; !seen {
			merchants = append(merchants, merchant)
		}
		learned[merchant] = category
	}

	batch := &repository.ImportBatch{
		UserID:        userID,
		Filename:      sess.Filename,
		FileType:      sess.FileType,
		ClearPrevious: sess.ClearPrevious,
		Expenses:      make([]repository.ExpenseRow, len(txns)),
	}
	for i, t := range txns {
		category := t.SuggestedCategory
		if c, ok := overrides[i]; ok {
			category = c
		} else if c, ok := byGroup[groupKey(t.Description)]; ok {
			category = c
		}
		if category == "" {
			category = common.CategoryUncategorized
		}
		batch.Expenses[i] = repository.ExpenseRow{
			Date:           t.Date,
			Description:    t.Description,
			Amount:         t.Amount.Abs(),
			Category:       category,
			Type:           t.Type,
			PaymentMethod:  t.PaymentMethod,
			UPIID:          t.UPIID,
			TransactionRef: t.TransactionRef,
		}
	}
	repository.AssignExternalIDs(batch.Expenses)

	for _, m := range merchants {
		batch.Rules = append(batch.Rules, repository.RuleUpdate{MerchantName: m, Category: learned[m]})
	}
	return batch
}

// CancelUpload discards the session.
func (s *ImportService) CancelUpload(ctx context.Context, userID uuid.UUID, sessionID string) error {
	if err := s.sessions.Delete(userID, sessionID); err != nil {
		return err
	}
	s.metrics.ActiveSessions(s.sessions.Len())
	s.logger.InfoContext(ctx, "upload cancelled",
		slog.String("method", "CancelUpload"),
		slog.String("session_id", sessionID))
	return nil
}

// ListImportJobs returns the user's most recent import jobs.
func (s *ImportService) ListImportJobs(ctx context.Context, userID uuid.UUID, limit int) ([]*repository.ImportJob, error) {
	if limit <= 0 {
		limit = defaultJobsListLimit
	}
	limit = min(limit, maxJobsListLimit)

	jobs, err := s.repo.ListImportJobs(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import jobs: %w", err)
	}
	return jobs, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
