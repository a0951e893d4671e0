// Package handler implements the ImportService Connect RPC handlers.
package handler

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/budget-tracker/internal/domain/import/service"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/session"
	v1 "github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1"
	"github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1/budgetv1connect"
	"github.com/FACorreiaa/budget-tracker/pkg/interceptors"
)

var _ budgetv1connect.ImportServiceHandler = (*ImportHandler)(nil)

// ImportHandler implements the ImportService Connect handlers.
type ImportHandler struct {
	importSvc      *importservice.ImportService
	maxUploadBytes int
}

// NewImportHandler constructs a new handler. maxUploadBytes <= 0 keeps the
// protocol limit.
func NewImportHandler(importSvc *importservice.ImportService, maxUploadBytes int) *ImportHandler {
	if maxUploadBytes <= 0 || maxUploadBytes > v1.MaxUploadBytes {
		maxUploadBytes = v1.MaxUploadBytes
	}
	return &ImportHandler{
		importSvc:      importSvc,
		maxUploadBytes: maxUploadBytes,
	}
}

// UploadStatement extracts and classifies a statement and opens an upload
// session. An encrypted PDF without password is answered with status
// password_required, not an error.
func (h *ImportHandler) UploadStatement(
	ctx context.Context,
	req *connect.Request[v1.UploadStatementRequest],
) (*connect.Response[v1.UploadStatementResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	if len(req.Msg.Content) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("content is required"))
	}
	if len(req.Msg.Content) > h.maxUploadBytes {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("statement is %d bytes, the limit is %d", len(req.Msg.Content), h.maxUploadBytes))
	}

	res, err := h.importSvc.UploadStatement(ctx, userID, importservice.UploadRequest{
		Filename:      req.Msg.Filename,
		Data:          req.Msg.Content,
		Password:      req.Msg.Password,
		ClearPrevious: req.Msg.ClearPrevious,
	})
	if err != nil {
		return nil, toConnectError(err)
	}

	out := &v1.UploadStatementResponse{
		Status:           string(res.Status),
		SessionID:        res.SessionID,
		FileType:         string(res.FileType),
		TransactionCount: res.TransactionCount,
		Message:          res.Message,
	}
	if res.DateRange != nil {
		out.DateRange = toDateRange(res.DateRange)
	}
	for i := range res.Preview {
		out.Preview = append(out.Preview, toTransaction(&res.Preview[i]))
	}
	return connect.NewResponse(out), nil
}

// SelectDateRange narrows the session to a date window and returns the
// merchant groups that need the user's confirmation.
func (h *ImportHandler) SelectDateRange(
	ctx context.Context,
	req *connect.Request[v1.SelectDateRangeRequest],
) (*connect.Response[v1.SelectDateRangeResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	start, err := v1.ParseDate(req.Msg.StartDate)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	end, err := v1.ParseDate(req.Msg.EndDate)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	res, err := h.importSvc.SelectDateRange(ctx, userID, req.Msg.SessionID, start, end)
	if err != nil {
		return nil, toConnectError(err)
	}

	out := &v1.SelectDateRangeResponse{
		NeedsClarification: res.NeedsClarification,
		FilteredCount:      res.FilteredCount,
		AmbiguousCount:     res.AmbiguousCount,
		ClearCount:         res.ClearCount,
		AmbiguousItems:     make([]*v1.AmbiguousItem, 0, len(res.AmbiguousItems)),
		Message:            res.Message,
	}
	for _, it := range res.AmbiguousItems {
		out.AmbiguousItems = append(out.AmbiguousItems, &v1.AmbiguousItem{
			Index:              it.Index,
			Description:        it.Description,
			Amount:             it.Amount.StringFixed(2),
			Date:               v1.FormatDate(it.Date),
			SuggestedCategory:  it.SuggestedCategory,
			Confidence:         string(it.Confidence),
			Reasoning:          it.Reasoning,
			Alternatives:       it.Alternatives,
			TransactionCount:   it.TransactionCount,
			NormalizedMerchant: it.NormalizedMerchant,
		})
	}
	return connect.NewResponse(out), nil
}

// ImportTransactions commits the selected transactions. It succeeds at most
// once per session.
func (h *ImportHandler) ImportTransactions(
	ctx context.Context,
	req *connect.Request[v1.ImportTransactionsRequest],
) (*connect.Response[v1.ImportTransactionsResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}

	res, err := h.importSvc.ImportTransactions(ctx, userID, req.Msg.SessionID, req.Msg.Clarifications)
	if err != nil {
		return nil, toConnectError(err)
	}

	out := &v1.ImportTransactionsResponse{
		Imported: res.Imported,
		Skipped:  res.Skipped,
		Total:    res.Total,
		Message:  res.Message,
	}
	if res.JobID != uuid.Nil {
		out.JobID = res.JobID.String()
	}
	for _, r := range res.Learned {
		out.Learned = append(out.Learned, &v1.LearnedRule{
			MerchantName: r.MerchantName,
			Category:     r.Category,
			Confidence:   r.Confidence,
		})
	}
	return connect.NewResponse(out), nil
}

func (h *ImportHandler) CancelUpload(
	ctx context.Context,
	req *connect.Request[v1.CancelUploadRequest],
) (*connect.Response[v1.CancelUploadResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.importSvc.CancelUpload(ctx, userID, req.Msg.SessionID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&v1.CancelUploadResponse{}), nil
}

func (h *ImportHandler) ListImportJobs(
	ctx context.Context,
	req *connect.Request[v1.ListImportJobsRequest],
) (*connect.Response[v1.ListImportJobsResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	jobs, err := h.importSvc.ListImportJobs(ctx, userID, req.Msg.Limit)
	if err != nil {
		return nil, toConnectError(err)
	}
	out := &v1.ListImportJobsResponse{Jobs: make([]*v1.ImportJob, 0, len(jobs))}
	for _, j := range jobs {
		out.Jobs = append(out.Jobs, toImportJob(j))
	}
	return connect.NewResponse(out), nil
}

func authenticatedUser(ctx context.Context) (uuid.UUID, error) {
	userIDStr, ok := interceptors.GetUserIDFromContext(ctx)
	if !ok || userIDStr == "" {
		return uuid.Nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, connect.NewError(connect.CodeInternal, errors.New("invalid user ID in context"))
	}
	return userID, nil
}

// toConnectError maps import failures to codes the client can act on. A wrong
// password is FailedPrecondition so the client asks again instead of
// restarting.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, common.ErrWrongPassword):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, common.ErrUploadNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, common.ErrUnsupportedFileType),
		errors.Is(err, common.ErrParseFailure),
		errors.Is(err, common.ErrInvalidDateRange),
		errors.Is(err, common.ErrInvalidClarification):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func toTransaction(t *session.ExtractedTransaction) *v1.Transaction {
	return &v1.Transaction{
		Date:              v1.FormatDate(t.Date),
		Description:       t.Description,
		Amount:            t.Amount.StringFixed(2),
		Type:              t.Type,
		SuggestedCategory: t.SuggestedCategory,
		Confidence:        string(t.Confidence),
		Reasoning:         t.Reasoning,
		Alternatives:      t.Alternatives,
		PaymentMethod:     t.PaymentMethod,
	}
}

func toDateRange(dr *importservice.DateRange) *v1.DateRange {
	out := &v1.DateRange{
		MinDate:         v1.FormatDate(dr.MinDate),
		MaxDate:         v1.FormatDate(dr.MaxDate),
		TotalDays:       dr.TotalDays,
		SuggestedRanges: make([]*v1.SuggestedRange, 0, len(dr.Suggested)),
	}
	for _, s := range dr.Suggested {
		out.SuggestedRanges = append(out.SuggestedRanges, &v1.SuggestedRange{
			Label:     s.Label,
			StartDate: v1.FormatDate(s.Start),
			EndDate:   v1.FormatDate(s.End),
			Days:      s.Days,
		})
	}
	return out
}

func toImportJob(j *repository.ImportJob) *v1.ImportJob {
	out := &v1.ImportJob{
		ID:           j.ID.String(),
		Filename:     j.Filename,
		FileType:     j.FileType,
		Status:       j.Status,
		RowsTotal:    j.RowsTotal,
		RowsImported: j.RowsImported,
		RowsSkipped:  j.RowsSkipped,
		StartedAt:    v1.FormatTime(j.StartedAt),
	}
	if j.ErrorMessage != nil {
		out.ErrorMessage = *j.ErrorMessage
	}
	if j.FinishedAt != nil {
		out.FinishedAt = v1.FormatTime(*j.FinishedAt)
	}
	return out
}
