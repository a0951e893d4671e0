package budgetv1connect

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1"
)

// UserServiceClient is a client for the budget.v1.UserService service.
type UserServiceClient interface {
	GetProfile(context.Context, *connect.Request[v1.GetProfileRequest]) (*connect.Response[v1.ProfileResponse], error)
	UpdateProfile(context.Context, *connect.Request[v1.UpdateProfileRequest]) (*connect.Response[v1.ProfileResponse], error)
	CompleteOnboarding(context.Context, *connect.Request[v1.CompleteOnboardingRequest]) (*connect.Response[v1.ProfileResponse], error)
}

// NewUserServiceClient constructs a client for the budget.v1.UserService service.
// baseURL is the server root, for example https://api.example.com.
func NewUserServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) UserServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &userServiceClient{
		getProfile: connect.NewClient[v1.GetProfileRequest, v1.ProfileResponse](
			httpClient,
			baseURL+v1.UserServiceGetProfileProcedure,
			opts...,
		),
		updateProfile: connect.NewClient[v1.UpdateProfileRequest, v1.ProfileResponse](
			httpClient,
			baseURL+v1.UserServiceUpdateProfileProcedure,
			opts...,
		),
		completeOnboarding: connect.NewClient[v1.CompleteOnboardingRequest, v1.ProfileResponse](
			httpClient,
			baseURL+v1.UserServiceCompleteOnboardingProcedure,
			opts...,
		),
	}
}

type userServiceClient struct {
	getProfile         *connect.Client[v1.GetProfileRequest, v1.ProfileResponse]
	updateProfile      *connect.Client[v1.UpdateProfileRequest, v1.ProfileResponse]
	completeOnboarding *connect.Client[v1.CompleteOnboardingRequest, v1.ProfileResponse]
}

func (c *userServiceClient) GetProfile(ctx context.Context, req *connect.Request[v1.GetProfileRequest]) (*connect.Response[v1.ProfileResponse], error) {
	return c.getProfile.CallUnary(ctx, req)
}

func (c *userServiceClient) UpdateProfile(ctx context.Context, req *connect.Request[v1.UpdateProfileRequest]) (*connect.Response[v1.ProfileResponse], error) {
	return c.updateProfile.CallUnary(ctx, req)
}

func (c *userServiceClient) CompleteOnboarding(ctx context.Context, req *connect.Request[v1.CompleteOnboardingRequest]) (*connect.Response[v1.ProfileResponse], error) {
	return c.completeOnboarding.CallUnary(ctx, req)
}

// UserServiceHandler manages the budget profile of the signed-in user.
type UserServiceHandler interface {
	GetProfile(context.Context, *connect.Request[v1.GetProfileRequest]) (*connect.Response[v1.ProfileResponse], error)
	UpdateProfile(context.Context, *connect.Request[v1.UpdateProfileRequest]) (*connect.Response[v1.ProfileResponse], error)
	CompleteOnboarding(context.Context, *connect.Request[v1.CompleteOnboardingRequest]) (*connect.Response[v1.ProfileResponse], error)
}

// NewUserServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewUserServiceHandler(svc UserServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	getProfileHandler := connect.NewUnaryHandler(
		v1.UserServiceGetProfileProcedure,
		svc.GetProfile,
		opts...,
	)
	updateProfileHandler := connect.NewUnaryHandler(
		v1.UserServiceUpdateProfileProcedure,
		svc.UpdateProfile,
		opts...,
	)
	completeOnboardingHandler := connect.NewUnaryHandler(
		v1.UserServiceCompleteOnboardingProcedure,
		svc.CompleteOnboarding,
		opts...,
	)
	return "/" + v1.UserServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case v1.UserServiceGetProfileProcedure:
			getProfileHandler.ServeHTTP(w, r)
		case v1.UserServiceUpdateProfileProcedure:
			updateProfileHandler.ServeHTTP(w, r)
		case v1.UserServiceCompleteOnboardingProcedure:
			completeOnboardingHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// UnimplementedUserServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedUserServiceHandler struct{}

func (UnimplementedUserServiceHandler) GetProfile(context.Context, *connect.Request[v1.GetProfileRequest]) (*connect.Response[v1.ProfileResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.UserService.GetProfile is not implemented"))
}

func (UnimplementedUserServiceHandler) UpdateProfile(context.Context, *connect.Request[v1.UpdateProfileRequest]) (*connect.Response[v1.ProfileResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.UserService.UpdateProfile is not implemented"))
}

func (UnimplementedUserServiceHandler) CompleteOnboarding(context.Context, *connect.Request[v1.CompleteOnboardingRequest]) (*connect.Response[v1.ProfileResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("budget.v1.UserService.CompleteOnboarding is not implemented"))
}
