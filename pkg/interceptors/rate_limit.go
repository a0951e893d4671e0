package interceptors

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"golang.org/x/time/rate"
)

var errRateLimited = errors.New("rate limit exceeded, retry later")

// RateLimitInterceptor applies one token bucket to every incoming RPC.
type RateLimitInterceptor struct {
	limiter *rate.Limiter
}

func NewRateLimitInterceptor(limiter *rate.Limiter) *RateLimitInterceptor {
	return &RateLimitInterceptor{limiter: limiter}
}

func (i *RateLimitInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if !req.Spec().IsClient && !i.limiter.Allow() {
			return nil, connect.NewError(connect.CodeResourceExhausted, errRateLimited)
		}
		return next(ctx, req)
	}
}

func (i *RateLimitInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *RateLimitInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		if !i.limiter.Allow() {
			return connect.NewError(connect.CodeResourceExhausted, errRateLimited)
		}
		return next(ctx, conn)
	}
}
