package interceptors

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingInterceptor opens a server span per RPC. It runs after the request
// id interceptor so the id can be put on the span.
type TracingInterceptor struct {
	tracer trace.Tracer
}

func NewTracingInterceptor(tracer trace.Tracer) *TracingInterceptor {
	if tracer == nil {
		tracer = otel.Tracer("budget/interceptors")
	}
	return &TracingInterceptor{tracer: tracer}
}

func (i *TracingInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}
		ctx, span := i.start(ctx, req.Spec(), req.Peer().Protocol)
		resp, err := next(ctx, req)
		finish(span, err)
		return resp, err
	}
}

func (i *TracingInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *TracingInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		ctx, span := i.start(ctx, conn.Spec(), conn.Peer().Protocol)
		err := next(ctx, conn)
		finish(span, err)
		return err
	}
}

func (i *TracingInterceptor) start(ctx context.Context, spec connect.Spec, protocol string) (context.Context, trace.Span) {
	service, method := splitProcedure(spec.Procedure)
	attrs := []attribute.KeyValue{
		attribute.String("rpc.system", "connect_rpc"),
		attribute.String("rpc.service", service),
		attribute.String("rpc.method", method),
		attribute.String("rpc.connect_rpc.protocol", protocol),
	}
	if id := GetRequestIDFromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String("request.id", id))
	}
	return i.tracer.Start(ctx, spec.Procedure,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...))
}

// finish ends span. Client mistakes such as a bad date range are recorded
// with their code but do not mark the span as failed.
func finish(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	code := connect.CodeOf(err)
	span.SetAttributes(attribute.String("rpc.connect_rpc.error_code", code.String()))
	switch code {
	case connect.CodeInvalidArgument, connect.CodeNotFound, connect.CodeFailedPrecondition,
		connect.CodeUnauthenticated, connect.CodePermissionDenied, connect.CodeAlreadyExists:
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// splitProcedure turns "/budget.v1.ImportService/UploadStatement" into its
// service and method.
func splitProcedure(procedure string) (string, string) {
	procedure = strings.TrimPrefix(procedure, "/")
	service, method, ok := strings.Cut(procedure, "/")
	if !ok {
		return procedure, ""
	}
	return service, method
}
