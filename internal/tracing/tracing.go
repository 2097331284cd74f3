// Package tracing sets up OpenTelemetry spans for pipeline stages and HTTP
// requests. Finished spans go to a Jaeger collector when one is configured
// and to the structured log otherwise.
package tracing

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// ServiceName tags every span resource.
const ServiceName = "bloomsbot"

// Instrumentation is the tracer name used by the pipeline and server.
const Instrumentation = "github.com/abhisek/bloomsbot"

// Config selects where spans go.
type Config struct {
	Enabled bool `mapstructure:"enabled"`

	// JaegerEndpoint is a collector URL such as
	// http://localhost:14268/api/traces. Empty logs spans instead.
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// New returns a tracer provider and its shutdown func. When disabled the
// provider is a no-op and shutdown does nothing.
func New(cfg Config, logger *zap.Logger) (trace.TracerProvider, func(context.Context) error, error) {
	if !cfg.Enabled {
		return noop.NewTracerProvider(), func(context.Context) error { return nil }, nil
	}

	var exporter sdktrace.SpanExporter = NewLogExporter(logger)
	if cfg.JaegerEndpoint != "" {
		je, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerEndpoint)))
		if err != nil {
			return nil, nil, fmt.Errorf("jaeger exporter: %w", err)
		}
		exporter = je
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", ServiceName),
		)),
	)
	return tp, tp.Shutdown, nil
}

// Tracer returns the named tracer of tp, falling back to a no-op tracer
// when tp is nil.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return tp.Tracer(Instrumentation)
}

// GinMiddleware opens a server span per request, continuing any trace
// carried in W3C traceparent headers.
func GinMiddleware(tp trace.TracerProvider) gin.HandlerFunc {
	tracer := Tracer(tp)
	prop := propagation.TraceContext{}
	return func(c *gin.Context) {
		ctx := prop.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", c.Request.Method, route),
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
	}
}

// LogExporter writes finished spans as debug log lines.
type LogExporter struct {
	logger *zap.Logger
}

func NewLogExporter(logger *zap.Logger) *LogExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogExporter{logger: logger.Named("trace")}
}

func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		fields := []zap.Field{
			zap.String("span", s.Name()),
			zap.String("trace_id", s.SpanContext().TraceID().String()),
			zap.String("span_id", s.SpanContext().SpanID().String()),
			zap.Duration("duration", s.EndTime().Sub(s.StartTime())),
			zap.String("status", s.Status().Code.String()),
		}
		if p := s.Parent(); p.IsValid() {
			fields = append(fields, zap.String("parent_id", p.SpanID().String()))
		}
		if d := s.Status().Description; d != "" {
			fields = append(fields, zap.String("error", d))
		}
		for _, kv := range s.Attributes() {
			fields = append(fields, zap.String(string(kv.Key), kv.Value.Emit()))
		}
		e.logger.Debug("span", fields...)
	}
	return ctx.Err()
}

func (e *LogExporter) Shutdown(ctx context.Context) error {
	_ = e.logger.Sync()
	return ctx.Err()
}
