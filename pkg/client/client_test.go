package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1"
	"github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1/budgetv1connect"
)

// fakeAuth issues "access-N"/"refresh-N" pairs and accepts only the latest
// refresh token.
type fakeAuth struct {
	budgetv1connect.UnimplementedAuthServiceHandler

	mu        sync.Mutex
	gen       int
	refreshes atomic.Int32
	revoked   bool
	down      bool
}

func (f *fakeAuth) issue() *v1.AuthResponse {
	f.gen++
	return &v1.AuthResponse{
		User: &v1.User{ID: "u1", Email: "ana@example.com"},
		Tokens: &v1.AuthTokens{
			AccessToken:  accessToken(f.gen),
			RefreshToken: refreshToken(f.gen),
			ExpiresIn:    3600,
		},
	}
}

func accessToken(n int) string  { return "access-" + string(rune('0'+n)) }
func refreshToken(n int) string { return "refresh-" + string(rune('0'+n)) }

func (f *fakeAuth) current() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return accessToken(f.gen)
}

func (f *fakeAuth) Login(_ context.Context, req *connect.Request[v1.LoginRequest]) (*connect.Response[v1.AuthResponse], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.Msg.Password != "Secret123!" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("invalid email or password"))
	}
	return connect.NewResponse(f.issue()), nil
}

func (f *fakeAuth) RefreshToken(_ context.Context, req *connect.Request[v1.RefreshTokenRequest]) (*connect.Response[v1.AuthResponse], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes.Add(1)
	if f.down {
		return nil, connect.NewError(connect.CodeUnavailable, errors.New("auth backend unavailable"))
	}
	if f.revoked || req.Msg.RefreshToken != refreshToken(f.gen) {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("session not found or expired"))
	}
	return connect.NewResponse(f.issue()), nil
}

func (f *fakeAuth) Logout(context.Context, *connect.Request[v1.LogoutRequest]) (*connect.Response[v1.LogoutResponse], error) {
	return connect.NewResponse(&v1.LogoutResponse{}), nil
}

// fakeImport accepts only the access token fakeAuth issued last.
type fakeImport struct {
	budgetv1connect.UnimplementedImportServiceHandler
	auth  *fakeAuth
	calls atomic.Int32
}

func (f *fakeImport) CancelUpload(_ context.Context, req *connect.Request[v1.CancelUploadRequest]) (*connect.Response[v1.CancelUploadResponse], error) {
	f.calls.Add(1)
	if req.Header().Get("Authorization") != "Bearer "+f.auth.current() {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("invalid or expired token"))
	}
	if req.Msg.SessionID != "s1" {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("upload session expired or not found"))
	}
	return connect.NewResponse(&v1.CancelUploadResponse{}), nil
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeAuth, *fakeImport) {
	t.Helper()
	auth := &fakeAuth{}
	imp := &fakeImport{auth: auth}

	mux := http.NewServeMux()
	mux.Handle(budgetv1connect.NewAuthServiceHandler(auth))
	mux.Handle(budgetv1connect.NewImportServiceHandler(imp))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, auth, imp
}

func TestClient_LoginStoresTokens(t *testing.T) {
	srv, _, _ := newTestServer(t)
	var saved []Tokens
	c := New(srv.URL, WithTokenProvider(NewTokenProvider(Tokens{}, func(tk Tokens) { saved = append(saved, tk) })))

	user, err := c.Login(context.Background(), "ana@example.com", "Secret123!")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, Tokens{AccessToken: "access-1", RefreshToken: "refresh-1"}, c.Tokens().Tokens())
	require.Len(t, saved, 1)

	_, err = c.Login(context.Background(), "ana@example.com", "wrong")
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestClient_RefreshesOnUnauthenticated(t *testing.T) {
	srv, auth, imp := newTestServer(t)
	c := New(srv.URL)
	ctx := context.Background()

	_, err := c.Login(ctx, "ana@example.com", "Secret123!")
	require.NoError(t, err)

	// Another device rotates the session; our access token is now stale.
	auth.mu.Lock()
	stale := auth.issue()
	auth.mu.Unlock()
	c.Tokens().Set(Tokens{AccessToken: "access-1", RefreshToken: stale.Tokens.RefreshToken})

	require.NoError(t, c.ImportAPI().CancelUpload(ctx, "s1"))
	assert.Equal(t, int32(1), auth.refreshes.Load())
	assert.Equal(t, int32(2), imp.calls.Load())
	assert.Equal(t, "access-3", c.Tokens().AccessToken())

	// A valid token needs no refresh.
	require.NoError(t, c.ImportAPI().CancelUpload(ctx, "s1"))
	assert.Equal(t, int32(1), auth.refreshes.Load())
}

func TestClient_OtherErrorsAreNotRetried(t *testing.T) {
	srv, auth, imp := newTestServer(t)
	c := New(srv.URL)
	ctx := context.Background()
	_, err := c.Login(ctx, "ana@example.com", "Secret123!")
	require.NoError(t, err)

	err = c.ImportAPI().CancelUpload(ctx, "gone")
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	assert.Equal(t, int32(0), auth.refreshes.Load())
	assert.Equal(t, int32(1), imp.calls.Load())
}

func TestClient_FailedRefreshClearsSession(t *testing.T) {
	srv, auth, _ := newTestServer(t)
	c := New(srv.URL)
	ctx := context.Background()
	_, err := c.Login(ctx, "ana@example.com", "Secret123!")
	require.NoError(t, err)

	auth.mu.Lock()
	auth.issue()
	auth.revoked = true
	auth.mu.Unlock()

	err = c.ImportAPI().CancelUpload(ctx, "s1")
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	assert.Equal(t, Tokens{}, c.Tokens().Tokens())
}

func TestClient_RefreshOutageKeepsSession(t *testing.T) {
	srv, auth, _ := newTestServer(t)
	c := New(srv.URL)
	ctx := context.Background()
	_, err := c.Login(ctx, "ana@example.com", "Secret123!")
	require.NoError(t, err)
	before := c.Tokens().Tokens()

	auth.mu.Lock()
	auth.issue()
	auth.down = true
	auth.mu.Unlock()

	err = c.ImportAPI().CancelUpload(ctx, "s1")
	assert.Equal(t, connect.CodeUnavailable, connect.CodeOf(err))
	assert.Equal(t, before, c.Tokens().Tokens())

	// The kept refresh token is tried again on the next call.
	err = c.ImportAPI().CancelUpload(ctx, "s1")
	assert.Equal(t, connect.CodeUnavailable, connect.CodeOf(err))
	assert.Equal(t, int32(2), auth.refreshes.Load())
	assert.Equal(t, before, c.Tokens().Tokens())
}

func TestClient_NoSessionSkipsRefresh(t *testing.T) {
	srv, auth, _ := newTestServer(t)
	c := New(srv.URL)

	err := c.ImportAPI().CancelUpload(context.Background(), "s1")
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	assert.Equal(t, int32(0), auth.refreshes.Load())
}

func TestClient_Logout(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := New(srv.URL)
	ctx := context.Background()
	_, err := c.Login(ctx, "ana@example.com", "Secret123!")
	require.NoError(t, err)

	require.NoError(t, c.Logout(ctx))
	assert.Empty(t, c.Tokens().AccessToken())
	require.NoError(t, c.Logout(ctx))
}

func TestTokenProvider_RefreshOnce(t *testing.T) {
	var calls atomic.Int32
	p := NewTokenProvider(Tokens{AccessToken: "old", RefreshToken: "r"}, nil)
	p.setRefreshFunc(func(context.Context, string) (Tokens, error) {
		calls.Add(1)
		return Tokens{AccessToken: "new", RefreshToken: "r2"}, nil
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := p.Refresh(context.Background(), "old")
			assert.NoError(t, err)
			assert.Equal(t, "new", tok)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}
