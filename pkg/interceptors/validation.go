package interceptors

import (
	"context"

	"connectrpc.com/connect"
)

// Validator is implemented by request messages that can check themselves.
type Validator interface {
	Validate() error
}

// ValidationInterceptor rejects requests whose Validate method fails with
// CodeInvalidArgument before they reach the handler.
type ValidationInterceptor struct{}

func NewValidationInterceptor() *ValidationInterceptor { return &ValidationInterceptor{} }

func (i *ValidationInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if v, ok := req.Any().(Validator); ok && !req.Spec().IsClient {
			if err := v.Validate(); err != nil {
				return nil, connect.NewError(connect.CodeInvalidArgument, err)
			}
		}
		return next(ctx, req)
	}
}

func (i *ValidationInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *ValidationInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}
