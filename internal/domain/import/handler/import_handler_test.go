package handler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/classifier"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/extractor"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/budget-tracker/internal/domain/import/service"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/session"
	v1 "github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1"
	"github.com/FACorreiaa/budget-tracker/pkg/interceptors"
)

const statementCSV = `Date,Description,Amount
2024-01-05,Walmart Groceries,-50.00
2024-01-10,Walmart Groceries,-30.00
2024-01-15,Uber Trip,-12.00
`

type memRepo struct {
	mu    sync.Mutex
	jobs  []*repository.ImportJob
	saved []repository.ExpenseRow
}

func (r *memRepo) GetRule(context.Context, uuid.UUID, string) (*repository.MerchantRule, error) {
	return nil, common.ErrNotFound
}

func (r *memRepo) UpsertRule(_ context.Context, userID uuid.UUID, merchant, category string) (*repository.MerchantRule, error) {
	return &repository.MerchantRule{UserID: userID, MerchantName: merchant, Category: category, Confidence: 1}, nil
}

func (r *memRepo) ListRules(context.Context, uuid.UUID) ([]*repository.MerchantRule, error) {
	return nil, nil
}

func (r *memRepo) DeleteRule(context.Context, uuid.UUID, string) error { return nil }

func (r *memRepo) ListLabeledDescriptions(context.Context, uuid.UUID, int) ([]repository.LabeledDescription, error) {
	return nil, nil
}

func (r *memRepo) CommitImport(_ context.Context, batch *repository.ImportBatch) (*repository.CommitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, batch.Expenses...)
	res := &repository.CommitResult{JobID: uuid.New(), Inserted: len(batch.Expenses)}
	for _, u := range batch.Rules {
		res.Rules = append(res.Rules, repository.MerchantRule{MerchantName: u.MerchantName, Category: u.Category, Confidence: 1})
	}
	r.jobs = append(r.jobs, &repository.ImportJob{
		ID:           res.JobID,
		UserID:       batch.UserID,
		Filename:     batch.Filename,
		FileType:     batch.FileType,
		Status:       repository.JobStatusCompleted,
		RowsTotal:    len(batch.Expenses),
		RowsImported: len(batch.Expenses),
	})
	return res, nil
}

func (r *memRepo) RecordFailedImport(context.Context, *repository.ImportJob) error { return nil }

func (r *memRepo) ListImportJobs(_ context.Context, _ uuid.UUID, limit int) ([]*repository.ImportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[:min(limit, len(r.jobs))], nil
}

// walmartIsUnclear leaves Walmart ambiguous and files everything else under Transport.
type walmartIsUnclear struct{}

func (walmartIsUnclear) ClassifyBatch(_ context.Context, _ uuid.UUID, inputs []classifier.Input) []classifier.Suggestion {
	out := make([]classifier.Suggestion, len(inputs))
	for i, in := range inputs {
		out[i] = classifier.Suggestion{Category: common.CategoryTransport, Confidence: common.ConfidenceHigh}
		if in.Description == "Walmart Groceries" {
			out[i] = classifier.Suggestion{
				Category:     common.CategoryOther,
				Confidence:   common.ConfidenceLow,
				Reasoning:    "Unclear merchant",
				Alternatives: []string{common.CategoryGroceries},
			}
		}
	}
	return out
}

type lockedPDF struct{}

func (lockedPDF) ExtractText(_ context.Context, _ []byte, password string) (string, error) {
	if password != "secret" {
		return "", extractor.ErrEncrypted
	}
	return "", nil
}

func newTestHandler(t *testing.T) (*ImportHandler, *memRepo) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := &memRepo{}
	svc := importservice.NewImportService(importservice.Deps{
		Repo:       repo,
		Extractor:  extractor.New(lockedPDF{}, logger),
		Classifier: walmartIsUnclear{},
		Sessions:   session.NewStore(session.DefaultTTL, logger),
		Logger:     logger,
	})
	return NewImportHandler(svc, 1<<20), repo
}

func authed(userID uuid.UUID) context.Context {
	return interceptors.WithUserID(context.Background(), userID.String())
}

func TestImportHandler_FullFlow(t *testing.T) {
	h, repo := newTestHandler(t)
	ctx := authed(uuid.New())

	up, err := h.UploadStatement(ctx, connect.NewRequest(&v1.UploadStatementRequest{
		Filename: "statement.csv",
		Content:  []byte(statementCSV),
	}))
	require.NoError(t, err)
	assert.Equal(t, v1.UploadStatusExtracted, up.Msg.Status)
	assert.Equal(t, "csv", up.Msg.FileType)
	assert.Equal(t, 3, up.Msg.TransactionCount)
	require.NotNil(t, up.Msg.DateRange)
	assert.Equal(t, "2024-01-05", up.Msg.DateRange.MinDate)
	assert.Equal(t, "2024-01-15", up.Msg.DateRange.MaxDate)
	require.Len(t, up.Msg.Preview, 3)
	assert.Equal(t, "-50.00", up.Msg.Preview[0].Amount)

	rng, err := h.SelectDateRange(ctx, connect.NewRequest(&v1.SelectDateRangeRequest{
		SessionID: up.Msg.SessionID,
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
	}))
	require.NoError(t, err)
	assert.True(t, rng.Msg.NeedsClarification)
	assert.Equal(t, 3, rng.Msg.FilteredCount)
	require.Len(t, rng.Msg.AmbiguousItems, 1)
	item := rng.Msg.AmbiguousItems[0]
	assert.Equal(t, 0, item.Index)
	assert.Equal(t, 2, item.TransactionCount)
	assert.Equal(t, "2024-01-05", item.Date)

	imp, err := h.ImportTransactions(ctx, connect.NewRequest(&v1.ImportTransactionsRequest{
		SessionID:      up.Msg.SessionID,
		Clarifications: map[int]string{0: common.CategoryGroceries},
	}))
	require.NoError(t, err)
	assert.Equal(t, 3, imp.Msg.Imported)
	assert.Equal(t, 3, imp.Msg.Total)
	assert.NotEmpty(t, imp.Msg.JobID)
	require.Len(t, imp.Msg.Learned, 1)
	assert.Equal(t, common.CategoryGroceries, imp.Msg.Learned[0].Category)
	assert.Equal(t, common.CategoryGroceries, repo.saved[1].Category)

	_, err = h.ImportTransactions(ctx, connect.NewRequest(&v1.ImportTransactionsRequest{SessionID: up.Msg.SessionID}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	jobs, err := h.ListImportJobs(ctx, connect.NewRequest(&v1.ListImportJobsRequest{Limit: 10}))
	require.NoError(t, err)
	require.Len(t, jobs.Msg.Jobs, 1)
	assert.Equal(t, "statement.csv", jobs.Msg.Jobs[0].Filename)
	assert.Empty(t, jobs.Msg.Jobs[0].FinishedAt)
}

func TestImportHandler_PasswordProtectedPDF(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := authed(uuid.New())
	pdf := []byte("%PDF-1.7\n/Encrypt 5 0 R\n")

	resp, err := h.UploadStatement(ctx, connect.NewRequest(&v1.UploadStatementRequest{
		Filename: "statement.pdf",
		Content:  pdf,
	}))
	require.NoError(t, err)
	assert.Equal(t, v1.UploadStatusPasswordRequired, resp.Msg.Status)
	assert.Empty(t, resp.Msg.SessionID)

	_, err = h.UploadStatement(ctx, connect.NewRequest(&v1.UploadStatementRequest{
		Filename: "statement.pdf",
		Content:  pdf,
		Password: "wrong",
	}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
}

func TestImportHandler_Rejections(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := authed(uuid.New())

	_, err := h.UploadStatement(context.Background(), connect.NewRequest(&v1.UploadStatementRequest{
		Filename: "statement.csv",
		Content:  []byte(statementCSV),
	}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	_, err = h.UploadStatement(ctx, connect.NewRequest(&v1.UploadStatementRequest{
		Filename: "notes.txt",
		Content:  []byte("hello"),
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = h.UploadStatement(ctx, connect.NewRequest(&v1.UploadStatementRequest{
		Filename: "big.csv",
		Content:  make([]byte, 2<<20),
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = h.SelectDateRange(ctx, connect.NewRequest(&v1.SelectDateRangeRequest{
		SessionID: "missing",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
	}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = h.SelectDateRange(ctx, connect.NewRequest(&v1.SelectDateRangeRequest{
		SessionID: "missing",
		StartDate: "01/01/2024",
		EndDate:   "2024-01-31",
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = h.CancelUpload(ctx, connect.NewRequest(&v1.CancelUploadRequest{SessionID: "missing"}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestImportHandler_InvalidClarification(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := authed(uuid.New())

	up, err := h.UploadStatement(ctx, connect.NewRequest(&v1.UploadStatementRequest{
		Filename: "statement.csv",
		Content:  []byte(statementCSV),
	}))
	require.NoError(t, err)

	_, err = h.ImportTransactions(ctx, connect.NewRequest(&v1.ImportTransactionsRequest{
		SessionID:      up.Msg.SessionID,
		Clarifications: map[int]string{7: common.CategoryGroceries},
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	// The session survives a rejected clarification.
	_, err = h.CancelUpload(ctx, connect.NewRequest(&v1.CancelUploadRequest{SessionID: up.Msg.SessionID}))
	assert.NoError(t, err)
}

func TestNewImportHandler_ClampsLimit(t *testing.T) {
	assert.Equal(t, v1.MaxUploadBytes, NewImportHandler(nil, 0).maxUploadBytes)
	assert.Equal(t, v1.MaxUploadBytes, NewImportHandler(nil, 1<<30).maxUploadBytes)
	assert.Equal(t, 512, NewImportHandler(nil, 512).maxUploadBytes)
}
