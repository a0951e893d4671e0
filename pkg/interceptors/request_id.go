package interceptors

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"github.com/google/uuid"
)

// RequestIDInterceptor propagates the caller's request id or assigns a new one
// and echoes it in the response header.
type RequestIDInterceptor struct {
	header string
}

func NewRequestIDInterceptor(header string) *RequestIDInterceptor {
	if header == "" {
		header = "X-Request-ID"
	}
	return &RequestIDInterceptor{header: header}
}

func (i *RequestIDInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}
		id := req.Header().Get(i.header)
		if id == "" {
			id = uuid.NewString()
		}
		ctx = context.WithValue(ctx, requestIDKey, id)

		resp, err := next(ctx, req)
		if resp != nil {
			resp.Header().Set(i.header, id)
		}
		var cerr *connect.Error
		if err != nil && errors.As(err, &cerr) {
			cerr.Meta().Set(i.header, id)
		}
		return resp, err
	}
}

func (i *RequestIDInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *RequestIDInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		id := conn.RequestHeader().Get(i.header)
		if id == "" {
			id = uuid.NewString()
		}
		conn.ResponseHeader().Set(i.header, id)
		return next(context.WithValue(ctx, requestIDKey, id), conn)
	}
}
