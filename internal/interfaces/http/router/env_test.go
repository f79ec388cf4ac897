package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"notegen-api/internal/application/history"
	"notegen-api/internal/application/notegen"
	"notegen-api/internal/config"
	"notegen-api/internal/domain/entity"
	"notegen-api/internal/infrastructure/persistence/memory"
	"notegen-api/internal/interfaces/http/handler"
	wfmodel "notegen-api/internal/workflow/model"
	apperrors "notegen-api/pkg/errors"
	"notegen-api/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memUsers struct {
	mu    sync.Mutex
	byID  map[string]*entity.User
	email map[string]string
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*entity.User{}, email: map[string]string{}}
}

func (r *memUsers) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.email[u.Email]; ok {
		return apperrors.ErrDuplicateEmail
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	cp := *u
	r.byID[u.ID] = &cp
	r.email[u.Email] = u.ID
	return nil
}

func (r *memUsers) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	id, ok := r.email[entity.NormalizeEmail(email)]
	r.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *memUsers) UpdateLastLogin(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		u.TouchLogin(time.Now())
	}
	return nil
}

func (r *memUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.email[entity.NormalizeEmail(email)]
	return ok, nil
}

type memHistories struct {
	mu    sync.Mutex
	items []*entity.History
}

func (r *memHistories) Create(_ context.Context, h *entity.History) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	r.items = append(r.items, h)
	return nil
}

func (r *memHistories) ListByUser(_ context.Context, userID string, limit int) ([]*entity.History, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.History
	for i := len(r.items) - 1; i >= 0 && len(out) < limit; i-- {
		if r.items[i].UserID == userID {
			out = append(out, r.items[i])
		}
	}
	return out, nil
}

type stubInvoker struct {
	content string
}

func (s stubInvoker) Invoke(context.Context, *wfmodel.RewriteInput) (*schema.Message, error) {
	return schema.AssistantMessage(s.content, nil), nil
}

type countingImages struct {
	mu      sync.Mutex
	calls   int
	gate    chan struct{}
	entered chan struct{}
}

// hold 让之后的调用阻塞到 release 为止；entered 在调用进入时收到信号
func (f *countingImages) hold() (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.entered = make(chan struct{}, 1)
	gate := f.gate
	var once sync.Once
	return f.entered, func() { once.Do(func() { close(gate) }) }
}

func (f *countingImages) Generate(ctx context.Context, _ string) (string, error) {
	f.mu.Lock()
	gate, entered := f.gate, f.entered
	f.mu.Unlock()
	if gate != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return fmt.Sprintf("https://img.example.com/%d.png", f.calls), nil
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return false, nil
}

type okChecker struct{}

func (okChecker) HealthCheck(context.Context) error { return nil }

func sixSections() string {
	parts := make([]string, 0, 6)
	for i := 1; i <= 6; i++ {
		parts = append(parts, fmt.Sprintf(`{"section_id":"s%d","section_text":"第%d段","order":%d}`, i, i, i))
	}
	return `{"sections":[` + strings.Join(parts, ",") + `]}`
}

type testServer struct {
	t         *testing.T
	engine    *gin.Engine
	orch      *notegen.Orchestrator
	users     *memUsers
	histories *memHistories
	images    *countingImages
}

type serverOption func(cfg *config.Config, h *RouterHandlers)

func withRateLimiter() serverOption {
	return func(cfg *config.Config, h *RouterHandlers) {
		cfg.Security.RateLimit = config.RateLimitConfig{Enabled: true, Limit: 1, Window: time.Minute}
		h.RateLimiter = denyAll{}
	}
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	cfg := &config.Config{}
	cfg.App.Env = "test"

	ts := &testServer{
		t:         t,
		users:     newMemUsers(),
		histories: &memHistories{},
		images:    &countingImages{},
	}
	jwtManager := utils.NewJWTManager("test-secret", "notegen", 15*time.Minute, 24*time.Hour)

	rewriter := notegen.NewRewriter(stubInvoker{content: sixSections()}, "fake")
	illustrator := notegen.NewIllustrator(ts.images, nil)
	ts.orch = notegen.NewOrchestrator(rewriter, illustrator,
		memory.NewGenerationStore(0), ts.histories, memory.NewProgressHub(),
		notegen.Options{DoneDisplay: time.Second, ErrorDisplay: time.Second},
	)

	h := &RouterHandlers{
		Auth:       handler.NewAuthHandler(jwtManager, ts.users, false),
		User:       handler.NewUserHandler(ts.users),
		History:    handler.NewHistoryHandler(history.NewService(ts.histories, 0)),
		Catalog:    handler.NewCatalogHandler(),
		Generation: handler.NewGenerationHandler(rewriter, illustrator, ts.orch),
		Download:   handler.NewDownloadHandler(time.Second),
		Health:     handler.NewHealthHandler("test", okChecker{}, nil),
		Tokens:     jwtManager,
	}
	for _, opt := range opts {
		opt(cfg, h)
	}
	ts.engine = NewWithDeps(cfg, h).Engine()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = ts.orch.Shutdown(ctx)
	})
	return ts
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		ErrorCode string `json:"error_code"`
	} `json:"error"`
}

func (ts *testServer) do(method, path string, body any, token string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	ts.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			ts.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			ts.t.Fatalf("decode envelope: %v; body=%s", err, w.Body.String())
		}
	}
	return w, env
}

// register 注册并返回访问令牌
func (ts *testServer) register(email, password string) string {
	ts.t.Helper()
	w, env := ts.do(http.MethodPost, "/v1/auth/register", map[string]string{"email": email, "password": password}, "")
	if w.Code != http.StatusCreated {
		ts.t.Fatalf("register status = %d, body=%s", w.Code, w.Body.String())
	}
	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.AccessToken == "" {
		ts.t.Fatalf("register data = %s, err=%v", env.Data, err)
	}
	return data.AccessToken
}

func longArticle() string {
	return strings.Repeat("这是一篇关于旅行的文章。", 50)
}
