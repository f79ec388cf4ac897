package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDKeepsValidHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/x", func(c *gin.Context) {
		seen = c.GetString("request_id")
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123_x.y")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if seen != "abc-123_x.y" || w.Header().Get(RequestIDHeader) != "abc-123_x.y" {
		t.Fatalf("request id = %q, header = %q", seen, w.Header().Get(RequestIDHeader))
	}
}

func TestRequestIDReplacesInvalidHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, bad := range []string{"has space", "<script>", strings.Repeat("a", 65)} {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(RequestIDHeader, bad)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		got := w.Header().Get(RequestIDHeader)
		if got == bad || len(got) != 36 {
			t.Fatalf("header %q: got %q, want generated uuid", bad, got)
		}
	}
}

type stubLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (s *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.err
}

func TestRateLimit(t *testing.T) {
	cases := []struct {
		name    string
		limiter *stubLimiter
		want    int
	}{
		{"allowed", &stubLimiter{allowed: true}, http.StatusOK},
		{"rejected", &stubLimiter{}, http.StatusTooManyRequests},
		{"limiter down fails open", &stubLimiter{err: errors.New("redis down")}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(RateLimit(RateLimitConfig{Enabled: true, Limit: 1, Window: time.Second}, tc.limiter, nil))
			r.GET("/v1/rewrite", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/rewrite", nil))
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
			if len(tc.limiter.keys) != 1 || !strings.HasPrefix(tc.limiter.keys[0], "ratelimit:ip:") ||
				!strings.HasSuffix(tc.limiter.keys[0], ":/v1/rewrite") {
				t.Fatalf("keys = %v", tc.limiter.keys)
			}
		})
	}
}

func TestRateLimitDisabled(t *testing.T) {
	limiter := &stubLimiter{}
	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{Enabled: false}, limiter, nil))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusOK || len(limiter.keys) != 0 {
		t.Fatalf("status = %d, keys = %v", w.Code, limiter.keys)
	}
}

func TestRecoveryReturnsEnvelope(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"internal server error"`) || strings.Contains(w.Body.String(), "boom") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestCORSWildcardEchoesOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS(CORSConfig{AllowedOrigins: []string{"*"}}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://notes.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://notes.example.com" {
		t.Fatalf("allow origin = %q", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("credentials must be allowed")
	}
}
