// Package metrics 定义服务的 Prometheus 指标，全部注册在默认 Registry
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "notegen"

var (
	llmBuckets      = []float64{1, 5, 10, 30, 60, 120}
	runBuckets      = []float64{5, 15, 30, 60, 120, 300, 600}
	latencyBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	responseBuckets = prometheus.ExponentialBuckets(100, 10, 6)
)

func counter(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

func histogram(subsystem, name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels)
}

// HTTP
var (
	HTTPRequestsTotal   = counter("http", "requests_total", "HTTP requests by route and status", "method", "path", "status")
	HTTPRequestDuration = histogram("http", "request_duration_seconds", "HTTP request latency", latencyBuckets, "method", "path")

	// HTTPResponseSize 不含 SSE 响应
	HTTPResponseSize = histogram("http", "response_size_bytes", "HTTP response body size", responseBuckets, "method", "path")
)

// 生成流程
var (
	// GenerationRunsTotal status: done/error
	GenerationRunsTotal   = counter("generation", "runs_total", "Generation runs by terminal status", "status")
	GenerationRunDuration = histogram("generation", "run_duration_seconds", "Generation run wall time", runBuckets, "status")

	// GenerationSectionsTotal source: run/retry
	GenerationSectionsTotal = counter("generation", "section_images_total", "Section illustrations by outcome", "source", "audit_status")

	GenerationsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "generation", Name: "active_runs",
		Help: "Generation runs currently executing in this process",
	})
)

// 上游模型调用
var (
	UpstreamCallTotal    = counter("upstream", "call_total", "Image generation calls", "provider", "model", "status")
	UpstreamCallDuration = histogram("upstream", "call_duration_seconds", "Image generation call latency", llmBuckets, "provider", "model")

	// LLMTokensUsed type: prompt/completion
	LLMTokensUsed = counter("llm", "tokens_used_total", "Tokens consumed by chat model calls", "workflow", "provider", "model", "type")

	LLMCallDuration = histogram("llm", "call_duration_seconds", "Chat model call latency", llmBuckets, "workflow", "provider", "model")
	LLMCallTotal    = counter("llm", "call_total", "Chat model calls", "workflow", "provider", "model", "status")
)

// 队列与下载
var (
	RedisStreamProcessed = counter("redis", "stream_processed_total", "Stream messages handled by outcome", "stream", "status")

	RedisStreamDLQLength = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "redis", Name: "stream_dlq_length",
		Help: "Entries waiting in a dead letter stream",
	}, []string{"stream"})

	DownloadTotal = counter("download", "total", "Proxied image downloads by outcome", "status")
)
