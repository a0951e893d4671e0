package client

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1"
)

// authInterceptor adds the bearer token to outgoing calls and, on
// Unauthenticated, refreshes once and retries.
type authInterceptor struct {
	tokens *TokenProvider
}

var _ connect.Interceptor = (*authInterceptor)(nil)

// Calls that must not trigger a refresh.
var noRefresh = map[string]bool{
	v1.AuthServiceLoginProcedure:        true,
	v1.AuthServiceRegisterProcedure:     true,
	v1.AuthServiceRefreshTokenProcedure: true,
	v1.AuthServiceLogoutProcedure:       true,
}

func (i *authInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if !req.Spec().IsClient {
			return next(ctx, req)
		}

		token := i.tokens.AccessToken()
		setBearer(req, token)
		resp, err := next(ctx, req)
		if err == nil || noRefresh[req.Spec().Procedure] || connect.CodeOf(err) != connect.CodeUnauthenticated {
			return resp, err
		}

		fresh, refreshErr := i.tokens.Refresh(ctx, token)
		if refreshErr != nil {
			if errors.Is(refreshErr, ErrNoRefreshToken) {
				return nil, err
			}
			// Only a rejected refresh token ends the session. A server that
			// is down or timing out keeps the tokens for the next attempt.
			if connect.CodeOf(refreshErr) != connect.CodeUnauthenticated {
				return nil, refreshErr
			}
			i.tokens.Clear()
			return nil, connect.NewError(connect.CodeUnauthenticated,
				errors.Join(errors.New("session expired, please log in again"), refreshErr))
		}
		setBearer(req, fresh)
		return next(ctx, req)
	}
}

func (i *authInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return func(ctx context.Context, spec connect.Spec) connect.StreamingClientConn {
		conn := next(ctx, spec)
		if token := i.tokens.AccessToken(); token != "" {
			conn.RequestHeader().Set("Authorization", "Bearer "+token)
		}
		return conn
	}
}

func (i *authInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

func setBearer(req connect.AnyRequest, token string) {
	if token == "" {
		req.Header().Del("Authorization")
		return
	}
	req.Header().Set("Authorization", "Bearer "+token)
}
