package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

// recordSpans swaps in an SDK tracer backed by a span recorder.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	setTracer(tp.Tracer("test"), true)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		setTracer(noop.NewTracerProvider().Tracer(instrumentationName), false)
	})
	return rec
}

func attrMap(kvs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "dittobox", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Init(ctx, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(ctx))
	assert.False(t, IsEnabled())
	assert.NotNil(t, Tracer())
}

func TestNoopHelpers(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "noop")
	defer span.End()

	assert.NotPanics(t, func() {
		RecordError(ctx, errors.New("boom"))
		RecordError(ctx, nil)
		SetAttributes(ctx, Size(10))
	})
	assert.Empty(t, TraceID(ctx))
	assert.Empty(t, SpanID(ctx))
}

func TestStartCommandSpan(t *testing.T) {
	rec := recordSpans(t)

	ctx, span := StartCommandSpan(context.Background(), "GET", "alice", "a.txt")
	assert.NotEmpty(t, TraceID(ctx))
	assert.NotEmpty(t, SpanID(ctx))
	SetAttributes(ctx, Bytes(42))
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "box.GET", ended[0].Name())

	attrs := attrMap(ended[0].Attributes())
	assert.Equal(t, "GET", attrs[AttrCommand].AsString())
	assert.Equal(t, "alice", attrs[AttrIdentity].AsString())
	assert.Equal(t, "a.txt", attrs[AttrFilename].AsString())
	assert.Equal(t, int64(42), attrs[AttrBytes].AsInt64())
}

func TestStartCommandSpanWithoutFilename(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartCommandSpan(context.Background(), "LIST", "alice", "")
	span.End()

	require.Len(t, rec.Ended(), 1)
	_, ok := attrMap(rec.Ended()[0].Attributes())[AttrFilename]
	assert.False(t, ok)
}

func TestStartHandshakeSpan(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartHandshakeSpan(context.Background(), "sess-1", "127.0.0.1:5000")
	span.End()

	require.Len(t, rec.Ended(), 1)
	s := rec.Ended()[0]
	assert.Equal(t, SpanHandshake, s.Name())
	attrs := attrMap(s.Attributes())
	assert.Equal(t, "sess-1", attrs[AttrSessionID].AsString())
	assert.Equal(t, "127.0.0.1:5000", attrs[AttrClientAddr].AsString())
}

func TestRecordErrorMarksSpan(t *testing.T) {
	rec := recordSpans(t)

	ctx, span := StartSpan(context.Background(), "failing")
	RecordError(ctx, errors.New("disk full"))
	span.End()

	require.Len(t, rec.Ended(), 1)
	s := rec.Ended()[0]
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Equal(t, "disk full", s.Status().Description)
	require.Len(t, s.Events(), 1)
	assert.Equal(t, "exception", s.Events()[0].Name)
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0).Description())
	assert.Contains(t, samplerFor(0.5).Description(), "TraceIDRatioBased")
}

func TestInitProfilingDisabled(t *testing.T) {
	stop, err := InitProfiling(DefaultProfilingConfig())
	require.NoError(t, err)
	assert.NoError(t, stop())
	assert.False(t, IsProfilingEnabled())
}

func TestParseProfileType(t *testing.T) {
	for name := range profileTypes {
		_, err := parseProfileType(name)
		assert.NoError(t, err, name)
	}

	pt, err := parseProfileType(" CPU ")
	require.NoError(t, err)
	assert.Equal(t, profileTypes["cpu"], pt)

	_, err = parseProfileType("heap")
	assert.Error(t, err)
}

func TestInitProfilingInvalidType(t *testing.T) {
	cfg := DefaultProfilingConfig()
	cfg.Enabled = true
	cfg.ProfileTypes = []string{"bogus"}

	_, err := InitProfiling(cfg)
	assert.Error(t, err)
	assert.False(t, IsProfilingEnabled())
}
