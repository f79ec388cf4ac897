package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"notegen-api/internal/interfaces/http/dto"
	"notegen-api/pkg/logger"
)

// TraceIDHeader 响应中回传的 trace ID
const TraceIDHeader = "X-Trace-ID"

// Trace OpenTelemetry 追踪中间件；探针与指标抓取不产生 span
func Trace(serviceName string, skipPaths ...string) gin.HandlerFunc {
	skip := map[string]struct{}{"/health": {}, "/live": {}, "/ready": {}}
	for _, p := range skipPaths {
		if p = strings.TrimSpace(p); p != "" {
			skip[p] = struct{}{}
		}
	}
	return otelgin.Middleware(serviceName, otelgin.WithFilter(func(r *http.Request) bool {
		_, ignored := skip[r.URL.Path]
		return !ignored
	}))
}

// TraceContext 把当前 span 的 trace_id/span_id 写入日志上下文
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		sc := trace.SpanContextFromContext(c.Request.Context())
		if !sc.IsValid() {
			c.Next()
			return
		}

		traceID, spanID := sc.TraceID().String(), sc.SpanID().String()
		c.Set(dto.TraceIDContextKey, traceID)

		ctx := logger.WithContext(c.Request.Context(), logger.TraceIDKey, traceID)
		ctx = logger.WithContext(ctx, logger.SpanIDKey, spanID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(TraceIDHeader, traceID)

		c.Next()
	}
}
