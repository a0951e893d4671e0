package interceptors_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	v1 "github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1"
	"github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1/budgetv1connect"
	"github.com/FACorreiaa/budget-tracker/pkg/interceptors"
)

var testSecret = []byte("test-secret")

type stubImport struct {
	budgetv1connect.UnimplementedImportServiceHandler
}

func (stubImport) ListImportJobs(ctx context.Context, _ *connect.Request[v1.ListImportJobsRequest]) (*connect.Response[v1.ListImportJobsResponse], error) {
	userID, _ := interceptors.GetUserIDFromContext(ctx)
	return connect.NewResponse(&v1.ListImportJobsResponse{Jobs: []*v1.ImportJob{{ID: userID}}}), nil
}

func (stubImport) CancelUpload(context.Context, *connect.Request[v1.CancelUploadRequest]) (*connect.Response[v1.CancelUploadResponse], error) {
	return connect.NewResponse(&v1.CancelUploadResponse{}), nil
}

func (stubImport) SelectDateRange(context.Context, *connect.Request[v1.SelectDateRangeRequest]) (*connect.Response[v1.SelectDateRangeResponse], error) {
	panic("boom")
}

func newServer(t *testing.T, ics ...connect.Interceptor) budgetv1connect.ImportServiceClient {
	t.Helper()
	path, handler := budgetv1connect.NewImportServiceHandler(stubImport{}, connect.WithInterceptors(ics...))
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return budgetv1connect.NewImportServiceClient(srv.Client(), srv.URL)
}

func signToken(t *testing.T, tokenType string, ttl time.Duration) string {
	t.Helper()
	claims := interceptors.Claims{
		Email:     "ada@example.com",
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "3f1c0d5e-8a47-4a9b-9a53-2b8f0e6f7c11",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return s
}

func withBearer[T any](msg *T, token string) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if token != "" {
		req.Header().Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAuthInterceptor(t *testing.T) {
	client := newServer(t, interceptors.NewAuthInterceptor(testSecret, v1.ImportServiceCancelUploadProcedure))
	ctx := context.Background()

	t.Run("missing token", func(t *testing.T) {
		_, err := client.ListImportJobs(ctx, withBearer(&v1.ListImportJobsRequest{}, ""))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("valid token", func(t *testing.T) {
		resp, err := client.ListImportJobs(ctx, withBearer(&v1.ListImportJobsRequest{}, signToken(t, interceptors.TokenTypeAccess, time.Hour)))
		require.NoError(t, err)
		require.Len(t, resp.Msg.Jobs, 1)
		assert.Equal(t, "3f1c0d5e-8a47-4a9b-9a53-2b8f0e6f7c11", resp.Msg.Jobs[0].ID)
	})

	t.Run("expired token", func(t *testing.T) {
		_, err := client.ListImportJobs(ctx, withBearer(&v1.ListImportJobsRequest{}, signToken(t, interceptors.TokenTypeAccess, -time.Minute)))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("wrong token type", func(t *testing.T) {
		_, err := client.ListImportJobs(ctx, withBearer(&v1.ListImportJobsRequest{}, signToken(t, "refresh", time.Hour)))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("public procedure", func(t *testing.T) {
		_, err := client.CancelUpload(ctx, withBearer(&v1.CancelUploadRequest{SessionID: "s"}, ""))
		require.NoError(t, err)
	})
}

func TestValidationInterceptor(t *testing.T) {
	client := newServer(t, interceptors.NewValidationInterceptor())

	_, err := client.ListImportJobs(context.Background(), connect.NewRequest(&v1.ListImportJobsRequest{Limit: -1}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = client.CancelUpload(context.Background(), connect.NewRequest(&v1.CancelUploadRequest{}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestRecoveryInterceptor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := newServer(t, interceptors.NewRecoveryInterceptor(logger))

	_, err := client.SelectDateRange(context.Background(), connect.NewRequest(&v1.SelectDateRangeRequest{}))
	assert.Equal(t, connect.CodeInternal, connect.CodeOf(err))
}

func TestRateLimitInterceptor(t *testing.T) {
	client := newServer(t, interceptors.NewRateLimitInterceptor(rate.NewLimiter(rate.Every(time.Hour), 1)))
	ctx := context.Background()

	_, err := client.CancelUpload(ctx, connect.NewRequest(&v1.CancelUploadRequest{SessionID: "s"}))
	require.NoError(t, err)
	_, err = client.CancelUpload(ctx, connect.NewRequest(&v1.CancelUploadRequest{SessionID: "s"}))
	assert.Equal(t, connect.CodeResourceExhausted, connect.CodeOf(err))
}

func TestRequestIDInterceptor(t *testing.T) {
	client := newServer(t, interceptors.NewRequestIDInterceptor("X-Request-ID"))
	ctx := context.Background()

	req := connect.NewRequest(&v1.CancelUploadRequest{SessionID: "s"})
	req.Header().Set("X-Request-ID", "req-42")
	resp, err := client.CancelUpload(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "req-42", resp.Header().Get("X-Request-ID"))

	resp, err = client.CancelUpload(ctx, connect.NewRequest(&v1.CancelUploadRequest{SessionID: "s"}))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header().Get("X-Request-ID"))

	_, err = client.ImportTransactions(ctx, connect.NewRequest(&v1.ImportTransactionsRequest{SessionID: "s"}))
	var cerr *connect.Error
	require.True(t, errors.As(err, &cerr))
	assert.NotEmpty(t, cerr.Meta().Get("X-Request-ID"))
}
