package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"notegen-api/pkg/metrics"
)

// Metrics Prometheus 指标采集中间件。
// 未匹配路由不计入，避免扫描请求撑爆 path 标签；SSE 长连接不记录响应体大小。
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			c.Next()
			return
		}
		start := time.Now()

		c.Next()

		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

		if strings.HasPrefix(c.Writer.Header().Get("Content-Type"), "text/event-stream") {
			return
		}
		if size := c.Writer.Size(); size > 0 {
			metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
