// Package otel turns gateway events into OpenTelemetry spans.
package otel

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hanpama/fedgraph/internal/eventbus"
	"github.com/hanpama/fedgraph/internal/events"
	"github.com/hanpama/fedgraph/internal/reqid"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := Register(tp.Tracer("fedgraph"))
	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

// Register subscribes span-producing handlers to the global bus. Spans are
// correlated by the request id of the publishing context.
func Register(tracer trace.Tracer) (unsubscribe func()) {
	s := &subscriber{tracer: tracer}
	return s.register()
}

type subscriber struct {
	tracer      trace.Tracer
	httpSpans   sync.Map // rid -> trace.Span
	gqlSpans    sync.Map // rid -> trace.Span
	sourceSpans sync.Map // sourceKey -> trace.Span
}

type sourceKey struct {
	rid    string
	source string
}

// parent returns ctx carrying the innermost open span of the request.
func (s *subscriber) parent(ctx context.Context, rid string) context.Context {
	if v, ok := s.gqlSpans.Load(rid); ok {
		return trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	if v, ok := s.httpSpans.Load(rid); ok {
		return trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	return ctx
}

func (s *subscriber) register() func() {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "http.request")
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				attribute.String("http.target", e.Request.URL.Path),
				attribute.String("request.id", rid),
			)
			s.httpSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.httpSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(
				semconv.HTTPStatusCodeKey.Int(e.Status),
				attribute.Int("graphql.batch_size", e.Batch),
			)
			span.End()
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(s.parent(ctx, rid), "graphql.operation")
			span.SetAttributes(
				attribute.String("graphql.operation.name", e.OperationName),
				attribute.String("graphql.operation.type", e.OperationType),
			)
			s.gqlSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.gqlSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(
				attribute.Int("graphql.error_count", len(e.Errors)),
				attribute.Bool("graphql.partial", e.Partial),
			)
			span.End()
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.Split) {
			rid, _ := reqid.FromContext(ctx)
			span := trace.SpanFromContext(s.parent(ctx, rid))
			span.AddEvent("split", trace.WithAttributes(attribute.StringSlice("fedgraph.sources", e.Sources)))
			if e.Err != nil {
				span.RecordError(e.Err)
			}
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.SourceFetchStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(s.parent(ctx, rid), "source.fetch")
			span.SetAttributes(
				attribute.String("fedgraph.source", e.Source),
				attribute.String("graphql.document", e.Query),
			)
			s.sourceSpans.Store(sourceKey{rid, e.Source}, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.SourceFetchFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.sourceSpans.LoadAndDelete(sourceKey{rid, e.Source})
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(attribute.Int("fedgraph.response_bytes", e.Bytes))
			if e.Err != nil {
				span.RecordError(e.Err)
				if !errors.Is(e.Err, context.Canceled) {
					span.SetStatus(codes.Error, e.Err.Error())
				}
			}
			span.End()
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.MergeFinish) {
			rid, _ := reqid.FromContext(ctx)
			span := trace.SpanFromContext(s.parent(ctx, rid))
			span.AddEvent("merge", trace.WithAttributes(
				attribute.Int("fedgraph.sources", e.Sources),
				attribute.Int("fedgraph.response_bytes", e.Bytes),
				attribute.Int64("fedgraph.merge_ns", e.Duration.Nanoseconds()),
			))
			if e.Err != nil {
				span.RecordError(e.Err)
			}
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
