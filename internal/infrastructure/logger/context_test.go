package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func contextFields(entry observer.LoggedEntry) map[string]any {
	return entry.ContextMap()
}

func TestFromContext_Default(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	assert.Equal(t, zap.NewNop().Core().Enabled(zapcore.ErrorLevel), l.Core().Enabled(zapcore.ErrorLevel))
}

func TestWithRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	ctx, l := WithRequestID(context.Background(), zap.New(core), "req-1")
	l.Info("first")
	FromContext(ctx).Info("second")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	require.Equal(t, 2, logs.Len())
	for _, entry := range logs.All() {
		assert.Equal(t, "req-1", contextFields(entry)["request_id"])
	}
}

func TestWithAuditID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := WithContext(context.Background(), zap.New(core))

	ctx = WithAuditID(ctx, "audit-7")
	L(ctx).Info("Audit report generated")

	assert.Equal(t, "audit-7", GetAuditID(ctx))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "audit-7", contextFields(logs.All()[0])["audit_id"])
}

func TestL_AddsTraceContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)
	ctx = WithContext(ctx, zap.New(core))

	L(ctx).Info("traced")

	fields := contextFields(logs.All()[0])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
}

func TestWithTraceContext_NoSpan(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	WithTraceContext(context.Background(), base).Info("untraced")

	_, ok := contextFields(logs.All()[0])["trace_id"]
	assert.False(t, ok)
}
