package budgetv1connect

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1"
)

// ImportServiceClient is a client for the budget.v1.ImportService service.
type ImportServiceClient interface {
	UploadStatement(context.Context, *connect.Request[v1.UploadStatementRequest]) (*connect.Response[v1.UploadStatementResponse], error)
	SelectDateRange(context.Context, *connect.Request[v1.SelectDateRangeRequest]) (*connect.Response[v1.SelectDateRangeResponse], error)
	ImportTransactions(context.Context, *connect.Request[v1.ImportTransactionsRequest]) (*connect.Response[v1.ImportTransactionsResponse], error)
	CancelUpload(context.Context, *connect.Request[v1.CancelUploadRequest]) (*connect.Response[v1.CancelUploadResponse], error)
	ListImportJobs(context.Context, *connect.Request[v1.ListImportJobsRequest]) (*connect.Response[v1.ListImportJobsResponse], error)
}

// NewImportServiceClient constructs a client for the budget.v1.ImportService service.
// baseURL is the server root, for example https://api.example.com.
func NewImportServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ImportServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &importServiceClient{
		uploadStatement: connect.NewClient[v1.UploadStatementRequest, v1.UploadStatementResponse](
			httpClient,
			baseURL+v1.ImportServiceUploadStatementProcedure,
			opts...,
		),
		selectDateRange: connect.NewClient[v1.SelectDateRangeRequest, v1.SelectDateRangeResponse](
			httpClient,
			baseURL+v1.ImportServiceSelectDateRangeProcedure,
			opts...,
		),
		importTransactions: connect.NewClient[v1.ImportTransactionsRequest, v1.ImportTransactionsResponse](
			httpClient,
			baseURL+v1.ImportServiceImportTransactionsProcedure,
			opts...,
		),
		cancelUpload: connect.NewClient[v1.CancelUploadRequest, v1.CancelUploadResponse](
			httpClient,
			baseURL+v1.ImportServiceCancelUploadProcedure,
			opts...,
		),
		listImportJobs: connect.NewClient[v1.ListImportJobsRequest, v1.ListImportJobsResponse](
			httpClient,
			baseURL+v1.ImportServiceListImportJobsProcedure,
			opts...,
		),
	}
}

type importServiceClient struct {
	uploadStatement    *connect.Client[v1.UploadStatementRequest, v1.UploadStatementResponse]
	selectDateRange    *connect.Client[v1.SelectDateRangeRequest, v1.SelectDateRangeResponse]
	importTransactions *connect.Client[v1.ImportTransactionsRequest, v1.ImportTransactionsResponse]
	cancelUpload       *connect.Client[v1.CancelUploadRequest, v1.CancelUploadResponse]
	listImportJobs     *connect.Client[v1.ListImportJobsRequest, v1.ListImportJobsResponse]
}

func (c *importServiceClient) UploadStatement(ctx context.Context, req *connect.Request[v1.UploadStatementRequest]) (*connect.Response[v1.UploadStatementResponse], error) {
	return c.uploadStatement.CallUnary(ctx, req)
}

func (c *importServiceClient) SelectDateRange(ctx context.Context, req *connect.Request[v1.SelectDateRangeRequest]) (*connect.Response[v1.SelectDateRangeResponse], error) {
	return c.selectDateRange.CallUnary(ctx, req)
}

func (c *importServiceClient) ImportTransactions(ctx context.Context, req *connect.Request[v1.ImportTransactionsRequest]) (*connect.Response[v1.ImportTransactionsResponse], error) {
	return c.importTransactions.CallUnary(ctx, req)
}

func (c *importServiceClient) CancelUpload(ctx context.Context, req *connect.Request[v1.CancelUploadRequest]) (*connect.Response[v1.CancelUploadResponse], error) {
	return c.cancelUpload.CallUnary(ctx, req)
}

func (c *importServiceClient) ListImportJobs(ctx context.Context, req *connect.Request[v1.ListImportJobsRequest]) (*connect.Response[v1.ListImportJobsResponse], error) {
	return c.listImportJobs.CallUnary(ctx, req)
}

// ImportServiceHandler turns bank statements into expenses in three calls: upload, date range and import.
type ImportServiceHandler interface {
	UploadStatement(context.Context, *connect.Request[v1.UploadStatementRequest]) (*connect.Response[v1.UploadStatementResponse], error)
	SelectDateRange(context.Context, *connect.Request[v1.SelectDateRangeRequest]) (*connect.Response[v1.SelectDateRangeResponse], error)
	ImportTransactions(context.Context, *connect.Request[v1.ImportTransactionsRequest]) (*connect.Response[v1.ImportTransactionsResponse], error)
	CancelUpload(context.Context, *connect.Request[v1.CancelUploadRequest]) (*connect.Response[v1.CancelUploadResponse], error)
	ListImportJobs(context.Context, *connect.Request[v1.ListImportJobsRequest]) (*connect.Response[v1.ListImportJobsResponse], error)
}

// NewImportServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewImportServiceHandler(svc ImportServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	uploadStatementHandler := connect.NewUnaryHandler(
		v1.ImportServiceUploadStatementProcedure,
		svc.UploadStatement,
		opts...,
	)
	selectDateRangeHandler := connect.NewUnaryHandler(
		v1.ImportServiceSelectDateRangeProcedure,
		svc.SelectDateRange,
		opts...,
	)
	importTransactionsHandler := connect.NewUnaryHandler(
		v1.ImportServiceImportTransactionsProcedure,
		svc.ImportTransactions,
		opts...,
	)
	cancelUploadHandler := connect.NewUnaryHandler(
		v1.ImportServiceCancelUploadProcedure,
		svc.CancelUpload,
		opts...,
	)
	listImportJobsHandler := connect.NewUnaryHandler(
		v1.ImportServiceListImportJobsProcedure,
		svc.ListImportJobs,
		opts...,
	)
	return "/" + v1.ImportServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case v1.ImportServiceUploadStatementProcedure:
			uploadStatementHandler.ServeHTTP(w, r)
		case v1.ImportServiceSelectDateRangeProcedure:
			selectDateRangeHandler.ServeHTTP(w, r)
		case v1.ImportServiceImportTransactionsProcedure:
			importTransactionsHandler.ServeHTTP(w, r)
		case v1.ImportServiceCancelUploadProcedure:
			cancelUploadHandler.ServeHTTP(w, r)
		case v1.ImportServiceListImportJobsProcedure:
			listImportJobsHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// UnimplementedImportServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedImportServiceHandler struct{}

func (UnimplementedImportServiceHandler) UploadStatement(context.Context, *connect.Request[v1.UploadStatementRequest]) (*connect.Response[v1.UploadStatementResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.ImportService.UploadStatement is not implemented"))
}

func (UnimplementedImportServiceHandler) SelectDateRange(context.Context, *connect.Request[v1.SelectDateRangeRequest]) (*connect.Response[v1.SelectDateRangeResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.ImportService.SelectDateRange is not implemented"))
}

func (UnimplementedImportServiceHandler) ImportTransactions(context.Context, *connect.Request[v1.ImportTransactionsRequest]) (*connect.Response[v1.ImportTransactionsResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.ImportService.ImportTransactions is not implemented"))
}

func (UnimplementedImportServiceHandler) CancelUpload(context.Context, *connect.Request[v1.CancelUploadRequest]) (*connect.Response[v1.CancelUploadResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.ImportService.CancelUpload is not implemented"))
}

func (UnimplementedImportServiceHandler) ListImportJobs(context.Context, *connect.Request[v1.ListImportJobsRequest]) (*connect.Response[v1.ListImportJobsResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.ImportService.ListImportJobs is not implemented"))
}
