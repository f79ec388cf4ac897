package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const readinessTimeout = 2 * time.Second

// HealthChecker 可探活的依赖
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	version string
	pg      HealthChecker
	redis   HealthChecker
}

// NewHealthHandler 创建健康检查处理器；redis 为 nil 表示未启用
func NewHealthHandler(version string, pg HealthChecker, redis HealthChecker) *HealthHandler {
	return &HealthHandler{
		version: version,
		pg:      pg,
		redis:   redis,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

// Ready 就绪检查接口：PostgreSQL 必需；Redis 启用时必需
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	deps := []struct {
		name   string
		dep    HealthChecker
		absent string
	}{
		{"postgres", h.pg, "missing"},
		{"redis", h.redis, "disabled"},
	}

	results := make([]*readinessCheck, len(deps))
	var g errgroup.Group
	for i, d := range deps {
		g.Go(func() error {
			results[i] = checkDependency(ctx, d.dep, d.absent)
			return nil
		})
	}
	_ = g.Wait()

	resp := readinessResponse{Status: "ok", Checks: make(map[string]*readinessCheck, len(deps))}
	for i, d := range deps {
		resp.Checks[d.name] = results[i]
		if st := results[i].Status; st != "ok" && st != "disabled" {
			resp.Status = "not_ready"
		}
	}
	if resp.Status != "ok" {
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func checkDependency(ctx context.Context, dep HealthChecker, absent string) *readinessCheck {
	if dep == nil {
		return &readinessCheck{Status: absent}
	}
	start := time.Now()
	err := dep.HealthCheck(ctx)
	check := &readinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = "error"
		check.Error = err.Error()
	}
	return check
}
