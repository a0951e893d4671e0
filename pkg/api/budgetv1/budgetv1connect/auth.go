package budgetv1connect

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1"
)

// AuthServiceClient is a client for the budget.v1.AuthService service.
type AuthServiceClient interface {
	Register(context.Context, *connect.Request[v1.RegisterRequest]) (*connect.Response[v1.AuthResponse], error)
	Login(context.Context, *connect.Request[v1.LoginRequest]) (*connect.Response[v1.AuthResponse], error)
	RefreshToken(context.Context, *connect.Request[v1.RefreshTokenRequest]) (*connect.Response[v1.AuthResponse], error)
	Logout(context.Context, *connect.Request[v1.LogoutRequest]) (*connect.Response[v1.LogoutResponse], error)
	GetMe(context.Context, *connect.Request[v1.GetMeRequest]) (*connect.Response[v1.GetMeResponse], error)
}

// NewAuthServiceClient constructs a client for the budget.v1.AuthService service.
// baseURL is the server root, for example https://api.example.com.
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) AuthServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &authServiceClient{
		register: connect.NewClient[v1.RegisterRequest, v1.AuthResponse](
			httpClient,
			baseURL+v1.AuthServiceRegisterProcedure,
			opts...,
		),
		login: connect.NewClient[v1.LoginRequest, v1.AuthResponse](
			httpClient,
			baseURL+v1.AuthServiceLoginProcedure,
			opts...,
		),
		refreshToken: connect.NewClient[v1.RefreshTokenRequest, v1.AuthResponse](
			httpClient,
			baseURL+v1.AuthServiceRefreshTokenProcedure,
			opts...,
		),
		logout: connect.NewClient[v1.LogoutRequest, v1.LogoutResponse](
			httpClient,
			baseURL+v1.AuthServiceLogoutProcedure,
			opts...,
		),
		getMe: connect.NewClient[v1.GetMeRequest, v1.GetMeResponse](
			httpClient,
			baseURL+v1.AuthServiceGetMeProcedure,
			opts...,
		),
	}
}

type authServiceClient struct {
	register     *connect.Client[v1.RegisterRequest, v1.AuthResponse]
	login        *connect.Client[v1.LoginRequest, v1.AuthResponse]
	refreshToken *connect.Client[v1.RefreshTokenRequest, v1.AuthResponse]
	logout       *connect.Client[v1.LogoutRequest, v1.LogoutResponse]
	getMe        *connect.Client[v1.GetMeRequest, v1.GetMeResponse]
}

func (c *authServiceClient) Register(ctx context.Context, req *connect.Request[v1.RegisterRequest]) (*connect.Response[v1.AuthResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *authServiceClient) Login(ctx context.Context, req *connect.Request[v1.LoginRequest]) (*connect.Response[v1.AuthResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *authServiceClient) RefreshToken(ctx context.Context, req *connect.Request[v1.RefreshTokenRequest]) (*connect.Response[v1.AuthResponse], error) {
	return c.refreshToken.CallUnary(ctx, req)
}

func (c *authServiceClient) Logout(ctx context.Context, req *connect.Request[v1.LogoutRequest]) (*connect.Response[v1.LogoutResponse], error) {
	return c.logout.CallUnary(ctx, req)
}

func (c *authServiceClient) GetMe(ctx context.Context, req *connect.Request[v1.GetMeRequest]) (*connect.Response[v1.GetMeResponse], error) {
	return c.getMe.CallUnary(ctx, req)
}

// AuthServiceHandler registers users and issues access and refresh tokens.
type AuthServiceHandler interface {
	Register(context.Context, *connect.Request[v1.RegisterRequest]) (*connect.Response[v1.AuthResponse], error)
	Login(context.Context, *connect.Request[v1.LoginRequest]) (*connect.Response[v1.AuthResponse], error)
	RefreshToken(context.Context, *connect.Request[v1.RefreshTokenRequest]) (*connect.Response[v1.AuthResponse], error)
	Logout(context.Context, *connect.Request[v1.LogoutRequest]) (*connect.Response[v1.LogoutResponse], error)
	GetMe(context.Context, *connect.Request[v1.GetMeRequest]) (*connect.Response[v1.GetMeResponse], error)
}

// NewAuthServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	registerHandler := connect.NewUnaryHandler(
		v1.AuthServiceRegisterProcedure,
		svc.Register,
		opts...,
	)
	loginHandler := connect.NewUnaryHandler(
		v1.AuthServiceLoginProcedure,
		svc.Login,
		opts...,
	)
	refreshTokenHandler := connect.NewUnaryHandler(
		v1.AuthServiceRefreshTokenProcedure,
		svc.RefreshToken,
		opts...,
	)
	logoutHandler := connect.NewUnaryHandler(
		v1.AuthServiceLogoutProcedure,
		svc.Logout,
		opts...,
	)
	getMeHandler := connect.NewUnaryHandler(
		v1.AuthServiceGetMeProcedure,
		svc.GetMe,
		opts...,
	)
	return "/" + v1.AuthServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case v1.AuthServiceRegisterProcedure:
			registerHandler.ServeHTTP(w, r)
		case v1.AuthServiceLoginProcedure:
			loginHandler.ServeHTTP(w, r)
		case v1.AuthServiceRefreshTokenProcedure:
			refreshTokenHandler.ServeHTTP(w, r)
		case v1.AuthServiceLogoutProcedure:
			logoutHandler.ServeHTTP(w, r)
		case v1.AuthServiceGetMeProcedure:
			getMeHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// UnimplementedAuthServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedAuthServiceHandler struct{}

func (UnimplementedAuthServiceHandler) Register(context.Context, *connect.Request[v1.RegisterRequest]) (*connect.Response[v1.AuthResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.AuthService.Register is not implemented"))
}

func (UnimplementedAuthServiceHandler) Login(context.Context, *connect.Request[v1.LoginRequest]) (*connect.Response[v1.AuthResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.AuthService.Login is not implemented"))
}

func (UnimplementedAuthServiceHandler) RefreshToken(context.Context, *connect.Request[v1.RefreshTokenRequest]) (*connect.Response[v1.AuthResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.AuthService.RefreshToken is not implemented"))
}

func (UnimplementedAuthServiceHandler) Logout(context.Context, *connect.Request[v1.LogoutRequest]) (*connect.Response[v1.LogoutResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.AuthService.Logout is not implemented"))
}

func (UnimplementedAuthServiceHandler) GetMe(context.Context, *connect.Request[v1.GetMeRequest]) (*connect.Response[v1.GetMeResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.AuthService.GetMe is not implemented"))
}
