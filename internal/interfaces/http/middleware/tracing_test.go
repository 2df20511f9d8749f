package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foodaudit/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func tracedEngine(t *testing.T, status int) (*gin.Engine, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	r := gin.New()
	r.Use(
		logger.GinMiddleware(zap.NewNop()),
		Tracing(TracingConfig{ServiceName: "audit-test", Enabled: true, Options: []otelgin.Option{otelgin.WithTracerProvider(tp)}}),
		SpanEnricher(),
	)
	r.GET("/api/v1/audits/:id/report", func(c *gin.Context) { c.Status(status) })
	r.POST("/api/v1/schemas/:id/thresholds/invalidate", func(c *gin.Context) { c.Status(status) })
	return r, recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]string {
	out := make(map[attribute.Key]string)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value.Emit()
	}
	return out
}

func TestTracing_EnrichesAuditSpan(t *testing.T) {
	r, recorder := tracedEngine(t, http.StatusOK)
	id := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audits/"+id.String()+"/report", nil)
	req.Header.Set(logger.RequestIDHeader, "req-7")
	r.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	attrs := spanAttrs(spans[0])
	assert.Equal(t, id.String(), attrs["audit_id"])
	assert.Equal(t, "req-7", attrs["request_id"])
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestTracing_SchemaRouteAndServerError(t *testing.T) {
	r, recorder := tracedEngine(t, http.StatusInternalServerError)
	id := uuid.New()

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/schemas/"+id.String()+"/thresholds/invalidate", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	attrs := spanAttrs(spans[0])
	assert.Equal(t, id.String(), attrs["schema_id"])
	assert.Empty(t, attrs["audit_id"])
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestTracing_Disabled(t *testing.T) {
	w := httptest.NewRecorder()
	okEngine(Tracing(TracingConfig{Enabled: false}), SpanEnricher()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
