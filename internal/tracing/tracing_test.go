package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogExporter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(NewLogExporter(zap.New(core))))

	ctx, parent := Tracer(tp).Start(context.Background(), "pipeline")
	_, child := Tracer(tp).Start(ctx, "classify")
	child.SetAttributes(attribute.Int("questions", 3))
	child.SetStatus(codes.Error, "provider down")
	child.End()
	parent.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	entries := logs.FilterMessage("span").All()
	require.Len(t, entries, 2)
	fields := entries[0].ContextMap()
	assert.Equal(t, "classify", fields["span"])
	assert.Equal(t, "3", fields["questions"])
	assert.Equal(t, "provider down", fields["error"])
	assert.Equal(t, "Error", fields["status"])
	assert.NotEmpty(t, fields["parent_id"])
	assert.NotContains(t, entries[1].ContextMap(), "parent_id")
}

func TestNew_Disabled(t *testing.T) {
	tp, shutdown, err := New(Config{}, nil)
	require.NoError(t, err)
	_, span := Tracer(tp).Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, shutdown(context.Background()))
}

func TestNew_Enabled(t *testing.T) {
	tp, shutdown, err := New(Config{Enabled: true}, zap.NewNop())
	require.NoError(t, err)
	_, span := Tracer(tp).Start(context.Background(), "stage")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, shutdown(context.Background()))
}

func TestNew_Jaeger(t *testing.T) {
	var hits atomic.Int32
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer collector.Close()

	tp, shutdown, err := New(Config{Enabled: true, JaegerEndpoint: collector.URL + "/api/traces"}, zap.NewNop())
	require.NoError(t, err)
	_, span := Tracer(tp).Start(context.Background(), "stage")
	span.End()
	require.NoError(t, shutdown(context.Background()))
	assert.Positive(t, hits.Load(), "shutdown flushes spans to the collector")
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	r := gin.New()
	r.Use(GinMiddleware(tp))
	r.GET("/api/papers/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req := httptest.NewRequest(http.MethodGet, "/api/papers/abc", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	r.ServeHTTP(httptest.NewRecorder(), req)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/papers/:id", spans[0].Name())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext().TraceID().String())
	assert.Contains(t, spans[0].Attributes(), attribute.Int("http.status_code", http.StatusNotFound))
}
