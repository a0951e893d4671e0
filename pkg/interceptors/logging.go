package interceptors

import (
	"context"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor logs one line per RPC with its duration and code.
type LoggingInterceptor struct {
	logger *slog.Logger
}

func NewLoggingInterceptor(logger *slog.Logger) *LoggingInterceptor {
	return &LoggingInterceptor{logger: logger}
}

func (i *LoggingInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		i.log(ctx, req.Spec().Procedure, req.Peer().Addr, start, err)
		return resp, err
	}
}

func (i *LoggingInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *LoggingInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		start := time.Now()
		err := next(ctx, conn)
		i.log(ctx, conn.Spec().Procedure, conn.Peer().Addr, start, err)
		return err
	}
}

func (i *LoggingInterceptor) log(ctx context.Context, procedure, peer string, start time.Time, err error) {
	attrs := []slog.Attr{
		slog.String("procedure", procedure),
		slog.String("peer", peer),
		slog.Duration("duration", time.Since(start)),
		slog.String("request_id", GetRequestIDFromContext(ctx)),
	}
	if userID, ok := GetUserIDFromContext(ctx); ok {
		attrs = append(attrs, slog.String("user_id", userID))
	}
	if err == nil {
		i.logger.LogAttrs(ctx, slog.LevelInfo, "rpc completed", attrs...)
		return
	}

	code := connect.CodeOf(err)
	attrs = append(attrs, slog.String("code", code.String()), slog.Any("error", err))
	level := slog.LevelWarn
	switch code {
	case connect.CodeInternal, connect.CodeUnknown, connect.CodeDataLoss, connect.CodeUnavailable:
		level = slog.LevelError
	}
	i.logger.LogAttrs(ctx, level, "rpc failed", attrs...)
}
