// Package middleware provides HTTP middleware for the audit API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/foodaudit/backend/internal/infrastructure/logger"
	"github.com/foodaudit/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength bounds the request ID recorded on spans
const MaxRequestIDLength = 128

// TracingConfig holds configuration for the tracing middleware
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// Options are passed through to otelgin, tests use them to inject a provider
	Options []otelgin.Option
}

// Tracing returns the otelgin server-span middleware, or a pass-through when
// tracing is disabled
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return otelgin.Middleware(cfg.ServiceName, cfg.Options...)
}

// SpanEnricher tags the server span with the request ID and the audit or
// schema ID of the route. 5xx responses mark the span as failed. It must run
// after Tracing.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if id := logger.GetRequestID(c.Request.Context()); id != "" {
				if len(id) > MaxRequestIDLength {
					id = id[:MaxRequestIDLength]
				}
				span.SetAttributes(attribute.String("request_id", id))
			}
			if id, err := uuid.Parse(c.Param("id")); err == nil {
				key := telemetry.SpanAttrAuditID
				if strings.HasPrefix(c.FullPath(), "/api/v1/schemas") {
					key = telemetry.SpanAttrSchemaID
				}
				span.SetAttributes(attribute.String(key, id.String()))
			}
		}

		c.Next()

		if span.IsRecording() && c.Writer.Status() >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(c.Writer.Status()))
		}
	}
}
