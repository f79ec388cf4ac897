package notegen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"

	"notegen-api/internal/domain/entity"
	"notegen-api/internal/infrastructure/persistence/memory"
	wfmodel "notegen-api/internal/workflow/model"
	apperrors "notegen-api/pkg/errors"
)

type fakeInvoker struct {
	mu      sync.Mutex
	calls   int
	inputs  []*wfmodel.RewriteInput
	content string
	err     error
}

func (f *fakeInvoker) Invoke(_ context.Context, in *wfmodel.RewriteInput) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.content, nil), nil
}

// fakeImages 按调用顺序返回结果；failOn 中的序号（从 1 开始）返回上游错误
type fakeImages struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	failOn  map[int]bool
	failAll bool
}

func (f *fakeImages) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.failAll || f.failOn[f.calls] {
		return "", apperrors.ErrUpstreamUnavailable.WithError(errors.New("status 500"))
	}
	return fmt.Sprintf("https://img.example.com/%d.png", f.calls), nil
}

type recordingHistories struct {
	mu      sync.Mutex
	created []*entity.History
}

func (r *recordingHistories) Create(_ context.Context, h *entity.History) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.ID == "" {
		h.ID = fmt.Sprintf("h-%d", len(r.created)+1)
	}
	r.created = append(r.created, h)
	return nil
}

func (r *recordingHistories) ListByUser(context.Context, string, int) ([]*entity.History, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entity.History(nil), r.created...), nil
}

func sectionsReply(n int) string {
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, fmt.Sprintf(`{"section_id":"s%d","section_text":"第%d段内容","order":%d}`, i, i, i))
	}
	return `好的，结果如下：{"sections":[` + strings.Join(parts, ",") + `]}`
}

func longText(n int) string {
	return strings.Repeat("文", n)
}

type testEnv struct {
	orch      *Orchestrator
	store     *memory.GenerationStore
	hub       *memory.ProgressHub
	invoker   *fakeInvoker
	images    *fakeImages
	histories *recordingHistories
}

func newTestEnv(content string, images *fakeImages) *testEnv {
	if images == nil {
		images = &fakeImages{}
	}
	env := &testEnv{
		store:     memory.NewGenerationStore(0),
		hub:       memory.NewProgressHub(),
		invoker:   &fakeInvoker{content: content},
		images:    images,
		histories: &recordingHistories{},
	}
	env.orch = NewOrchestrator(
		NewRewriter(env.invoker, "fake"),
		NewIllustrator(env.images, nil),
		env.store,
		env.histories,
		env.hub,
		Options{DoneDisplay: 20 * time.Millisecond, ErrorDisplay: 30 * time.Millisecond},
	)
	return env
}

// seed 直接写入一条待运行的生成记录
func (e *testEnv) seed(userID string, save bool) *entity.Generation {
	g := entity.NewGeneration(userID, longText(600), "casual", "food", "", save)
	g.ID = fmt.Sprintf("gen-%d", time.Now().UnixNano())
	_ = e.store.Save(context.Background(), g)
	return g
}

func (e *testEnv) waitIdle() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = e.orch.Shutdown(ctx)
}
