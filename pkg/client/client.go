// Package client is a Go client for the budget API. It keeps the session
// tokens in a TokenProvider and refreshes them when the server answers
// Unauthenticated.
package client

import (
	"context"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1"
	"github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1/budgetv1connect"
)

// DefaultTimeout bounds one HTTP exchange. Statement uploads are classified
// synchronously, so it is generous.
const DefaultTimeout = 2 * time.Minute

// Client bundles the four service clients behind one token provider.
type Client struct {
	Auth    budgetv1connect.AuthServiceClient
	User    budgetv1connect.UserServiceClient
	Import  budgetv1connect.ImportServiceClient
	Expense budgetv1connect.ExpenseServiceClient

	tokens *TokenProvider
}

type options struct {
	httpClient connect.HTTPClient
	tokens     *TokenProvider
	clientOpts []connect.ClientOption
}

// Option configures New.
type Option func(*options)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c connect.HTTPClient) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTokenProvider shares a provider, for example one restored from disk.
func WithTokenProvider(p *TokenProvider) Option {
	return func(o *options) { o.tokens = p }
}

// WithClientOptions appends connect options to every service client.
func WithClientOptions(opts ...connect.ClientOption) Option {
	return func(o *options) { o.clientOpts = append(o.clientOpts, opts...) }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if o.tokens == nil {
		o.tokens = NewTokenProvider(Tokens{}, nil)
	}

	// The refresh call goes around the auth interceptor so a rejected
	// refresh token cannot recurse.
	bare := budgetv1connect.NewAuthServiceClient(o.httpClient, baseURL, o.clientOpts...)
	o.tokens.setRefreshFunc(func(ctx context.Context, refreshToken string) (Tokens, error) {
		resp, err := bare.RefreshToken(ctx, connect.NewRequest(&v1.RefreshTokenRequest{RefreshToken: refreshToken}))
		if err != nil {
			return Tokens{}, err
		}
		return tokensFrom(resp.Msg)
	})

	clientOpts := append([]connect.ClientOption{
		connect.WithInterceptors(&authInterceptor{tokens: o.tokens}),
	}, o.clientOpts...)

	return &Client{
		Auth:    budgetv1connect.NewAuthServiceClient(o.httpClient, baseURL, clientOpts...),
		User:    budgetv1connect.NewUserServiceClient(o.httpClient, baseURL, clientOpts...),
		Import:  budgetv1connect.NewImportServiceClient(o.httpClient, baseURL, clientOpts...),
		Expense: budgetv1connect.NewExpenseServiceClient(o.httpClient, baseURL, clientOpts...),
		tokens:  o.tokens,
	}
}

// Tokens returns the provider holding the session.
func (c *Client) Tokens() *TokenProvider { return c.tokens }

// Login signs in and stores the returned tokens.
func (c *Client) Login(ctx context.Context, email, password string) (*v1.User, error) {
	resp, err := c.Auth.Login(ctx, connect.NewRequest(&v1.LoginRequest{Email: email, Password: password}))
	if err != nil {
		return nil, err
	}
	return c.storeSession(resp.Msg)
}

// Register creates an account and stores the returned tokens.
func (c *Client) Register(ctx context.Context, req *v1.RegisterRequest) (*v1.User, error) {
	resp, err := c.Auth.Register(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return c.storeSession(resp.Msg)
}

// Logout ends the server session and forgets the tokens. The local tokens
// are dropped even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	refresh := c.tokens.Tokens().RefreshToken
	c.tokens.Clear()
	if refresh == "" {
		return nil
	}
	_, err := c.Auth.Logout(ctx, connect.NewRequest(&v1.LogoutRequest{RefreshToken: refresh}))
	return err
}

func (c *Client) storeSession(msg *v1.AuthResponse) (*v1.User, error) {
	t, err := tokensFrom(msg)
	if err != nil {
		return nil, err
	}
	c.tokens.Set(t)
	return msg.User, nil
}

func tokensFrom(msg *v1.AuthResponse) (Tokens, error) {
	if msg == nil || msg.Tokens == nil || msg.Tokens.AccessToken == "" {
		return Tokens{}, errors.New("server returned no tokens")
	}
	return Tokens{AccessToken: msg.Tokens.AccessToken, RefreshToken: msg.Tokens.RefreshToken}, nil
}
