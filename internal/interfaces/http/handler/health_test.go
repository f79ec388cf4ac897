package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func serveReady(t *testing.T, h *HealthHandler) (int, readinessResponse) {
	t.Helper()
	r := gin.New()
	r.GET("/ready", h.Ready)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	var resp readinessResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return w.Code, resp
}

func TestReady(t *testing.T) {
	healthy := checkerFunc(func(context.Context) error { return nil })
	broken := checkerFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		pg, redis  HealthChecker
		wantCode   int
		wantRedis  string
		wantStatus string
	}{
		{"all healthy", healthy, healthy, http.StatusOK, "ok", "ok"},
		{"redis disabled", healthy, nil, http.StatusOK, "disabled", "ok"},
		{"redis down", healthy, broken, http.StatusServiceUnavailable, "error", "not_ready"},
		{"postgres down", broken, nil, http.StatusServiceUnavailable, "disabled", "not_ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := serveReady(t, NewHealthHandler("test", tt.pg, tt.redis))
			if code != tt.wantCode || resp.Status != tt.wantStatus {
				t.Fatalf("got %d %q, want %d %q", code, resp.Status, tt.wantCode, tt.wantStatus)
			}
			if resp.Checks["redis"].Status != tt.wantRedis {
				t.Fatalf("redis check = %+v", resp.Checks["redis"])
			}
		})
	}
}

func TestHealthReportsVersion(t *testing.T) {
	r := gin.New()
	r.GET("/health", NewHealthHandler("1.2.3", nil, nil).Health)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp.Version != "1.2.3" {
		t.Fatalf("unexpected health response %d %+v", w.Code, resp)
	}
}
