package client

import (
	"context"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1"
)

// ImportAPI is the import surface without connect envelopes. The upload
// wizard drives it.
type ImportAPI struct {
	c *Client
}

// ImportAPI returns the import calls of c.
func (c *Client) ImportAPI() *ImportAPI { return &ImportAPI{c: c} }

func (a *ImportAPI) UploadStatement(ctx context.Context, req *v1.UploadStatementRequest) (*v1.UploadStatementResponse, error) {
	resp, err := a.c.Import.UploadStatement(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (a *ImportAPI) SelectDateRange(ctx context.Context, req *v1.SelectDateRangeRequest) (*v1.SelectDateRangeResponse, error) {
	resp, err := a.c.Import.SelectDateRange(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (a *ImportAPI) ImportTransactions(ctx context.Context, req *v1.ImportTransactionsRequest) (*v1.ImportTransactionsResponse, error) {
	resp, err := a.c.Import.ImportTransactions(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (a *ImportAPI) CancelUpload(ctx context.Context, sessionID string) error {
	_, err := a.c.Import.CancelUpload(ctx, connect.NewRequest(&v1.CancelUploadRequest{SessionID: sessionID}))
	return err
}

func (a *ImportAPI) ListImportJobs(ctx context.Context, limit int) ([]*v1.ImportJob, error) {
	resp, err := a.c.Import.ListImportJobs(ctx, connect.NewRequest(&v1.ListImportJobsRequest{Limit: limit}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Jobs, nil
}
