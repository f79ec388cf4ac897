package notegen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"notegen-api/internal/domain/entity"
	"notegen-api/internal/domain/repository"
	"notegen-api/internal/domain/service"
	"notegen-api/internal/workflow/catalog"
	apperrors "notegen-api/pkg/errors"
	"notegen-api/pkg/logger"
	"notegen-api/pkg/metrics"
)

const (
	defaultDoneDisplay  = time.Second
	defaultErrorDisplay = 3 * time.Second
)

// errSkipUpdate 让 update 放弃本次写入（例如定时重置已过期）
var errSkipUpdate = errors.New("skip update")

// Options 编排器选项
type Options struct {
	// DoneDisplay 完成状态保留时长
	DoneDisplay time.Duration
	// ErrorDisplay 错误状态保留时长
	ErrorDisplay time.Duration
	// Dispatcher 非空时 Start 只投递消息，不在本进程执行
	Dispatcher RunDispatcher
}

// StartInput 发起生成的请求
type StartInput struct {
	UserID      string
	RawText     string
	ToneID      string
	StyleID     string
	FreePrompt  string
	SaveHistory bool
}

// Orchestrator 串联 改写 -> 逐段配图，维护进度并隔离单段失败
type Orchestrator struct {
	rewriter    *Rewriter
	illustrator *Illustrator
	runs        repository.GenerationRepository
	histories   repository.HistoryRepository
	bus         service.ProgressBus

	dispatcher   RunDispatcher
	doneDisplay  time.Duration
	errorDisplay time.Duration

	locks keyedMutex
	wg    sync.WaitGroup
}

func NewOrchestrator(
	rewriter *Rewriter,
	illustrator *Illustrator,
	runs repository.GenerationRepository,
	histories repository.HistoryRepository,
	bus service.ProgressBus,
	opts Options,
) *Orchestrator {
	if opts.DoneDisplay <= 0 {
		opts.DoneDisplay = defaultDoneDisplay
	}
	if opts.ErrorDisplay <= 0 {
		opts.ErrorDisplay = defaultErrorDisplay
	}
	return &Orchestrator{
		rewriter:     rewriter,
		illustrator:  illustrator,
		runs:         runs,
		histories:    histories,
		bus:          bus,
		dispatcher:   opts.Dispatcher,
		doneDisplay:  opts.DoneDisplay,
		errorDisplay: opts.ErrorDisplay,
		locks:        keyedMutex{locks: make(map[string]*refLock)},
	}
}

// Start 创建生成记录并异步执行，立即返回 idle 状态的快照
func (o *Orchestrator) Start(ctx context.Context, in StartInput) (*entity.Generation, error) {
	if err := ValidateRawText(in.RawText); err != nil {
		return nil, err
	}
	toneID := strings.TrimSpace(in.ToneID)
	if toneID == "" {
		toneID = catalog.DefaultToneID
	}

	g := entity.NewGeneration(in.UserID, in.RawText, toneID, strings.TrimSpace(in.StyleID), strings.TrimSpace(in.FreePrompt), in.SaveHistory)
	g.ID = uuid.NewString()
	if err := o.runs.Save(ctx, g); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to save generation")
	}

	ctx = logger.WithContext(ctx, logger.GenerationIDKey, g.ID)
	if o.dispatcher != nil {
		if err := o.dispatcher.Dispatch(ctx, g.ID); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeServiceUnavailable, "failed to dispatch generation")
		}
		logger.Info(ctx, "generation dispatched")
		return g.Clone(), nil
	}

	runCtx := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		_ = o.Run(runCtx, g.ID)
	}()
	return g.Clone(), nil
}

// Run 执行一次完整流程。改写失败终止运行；单段配图失败只标记该段。
// 已经开始过的生成不会再次执行。
func (o *Orchestrator) Run(ctx context.Context, generationID string) (err error) {
	ctx = logger.WithContext(ctx, logger.GenerationIDKey, generationID)

	var rev int64
	g, err := o.update(ctx, generationID, func(g *entity.Generation) error {
		if g.StartedAt != nil {
			return apperrors.ErrGenerationInProgress.WithDetail("generation already started")
		}
		g.Revision++
		g.Task.Reset()
		g.Task.Enter(entity.GenerationStatusRewriting, progressRewriting, stepRewriting)
		g.ResultReady = false
		g.MarkStarted()
		rev = g.Revision
		return nil
	})
	if err != nil {
		return err
	}
	o.publish(ctx, g, nil)

	metrics.GenerationsActive.Inc()
	defer metrics.GenerationsActive.Dec()

	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "generation pipeline panicked", fmt.Errorf("%v", r))
			err = apperrors.ErrGenerationFailed
			o.fail(ctx, generationID, rev, stepFailed, apperrors.ErrGenerationFailed.Message)
		}
	}()

	logger.Info(ctx, "generation started", "tone_id", g.ToneID, "style_id", g.StyleID)

	result, err := o.rewriter.Rewrite(ctx, RewriteInput{
		RawText:    g.RawText,
		ToneID:     g.ToneID,
		FreePrompt: g.FreePrompt,
	})
	if err != nil {
		logger.Error(ctx, "rewrite step failed", err)
		o.fail(ctx, generationID, rev, stepFailed, userMessage(err))
		return err
	}

	n := len(result.Sections)
	g, err = o.update(ctx, generationID, func(g *entity.Generation) error {
		g.Sections = result.Sections
		g.RewrittenText = result.RewrittenText
		g.Task.UpdateProgress(progressRewritten, stepRewritten)
		return nil
	})
	if err != nil {
		o.fail(ctx, generationID, rev, stepFailed, userMessage(err))
		return err
	}
	o.publish(ctx, g, nil)

	g, err = o.update(ctx, generationID, func(g *entity.Generation) error {
		g.Task.Enter(entity.GenerationStatusGenerating, progressGenerating, fmt.Sprintf(stepGenerating, 0, n))
		return nil
	})
	if err != nil {
		o.fail(ctx, generationID, rev, stepFailed, userMessage(err))
		return err
	}
	o.publish(ctx, g, nil)

	for i, step := range progressSteps(n) {
		section := result.Sections[i]

		g, err = o.update(ctx, generationID, func(g *entity.Generation) error {
			g.Task.UpdateProgress(step.Percent, step.Label)
			return nil
		})
		if err != nil {
			o.fail(ctx, generationID, rev, stepFailed, userMessage(err))
			return err
		}
		o.publish(ctx, g, nil)

		ill, imgErr := o.illustrator.Illustrate(ctx, IllustrateInput{
			SectionText: section.Text,
			StyleID:     g.StyleID,
			FreePrompt:  g.FreePrompt,
		})
		if imgErr != nil {
			logger.Warn(ctx, "section illustration failed",
				"section_id", section.SectionID,
				"order", section.Order,
				"error", imgErr.Error(),
			)
		}

		var updated entity.Section
		g, err = o.update(ctx, generationID, func(g *entity.Generation) error {
			s, ok := g.Section(section.SectionID)
			if !ok {
				return apperrors.ErrSectionNotFound
			}
			if imgErr != nil {
				s.MarkImageFailed()
			} else {
				s.MarkIllustrated(ill.ImageURL)
			}
			updated = *s
			return nil
		})
		if err != nil {
			o.fail(ctx, generationID, rev, stepFailed, userMessage(err))
			return err
		}
		metrics.GenerationSectionsTotal.WithLabelValues("run", string(updated.AuditStatus)).Inc()
		o.publish(ctx, g, &updated)
	}

	historyID := o.saveHistory(ctx, g)

	g, err = o.update(ctx, generationID, func(g *entity.Generation) error {
		g.Task.Complete(stepDone)
		g.ResultReady = true
		g.HistoryID = historyID
		g.MarkCompleted()
		return nil
	})
	if err != nil {
		o.fail(ctx, generationID, rev, stepFailed, userMessage(err))
		return err
	}
	o.publish(ctx, g, nil)

	metrics.GenerationRunsTotal.WithLabelValues(string(entity.GenerationStatusDone)).Inc()
	metrics.GenerationRunDuration.WithLabelValues(string(entity.GenerationStatusDone)).Observe(g.Duration().Seconds())
	logger.Info(ctx, "generation completed", "sections", n, "duration_ms", g.Duration().Milliseconds())

	o.scheduleReset(ctx, generationID, rev, entity.GenerationStatusDone, o.doneDisplay)
	return nil
}

// RetrySection 不带风格与附加要求重新生成单段配图，只修改该段
func (o *Orchestrator) RetrySection(ctx context.Context, generationID, sectionID, ownerID string) (*entity.Section, error) {
	ctx = logger.WithContext(ctx, logger.GenerationIDKey, generationID)

	var (
		rev  int64
		text string
	)
	g, err := o.update(ctx, generationID, func(g *entity.Generation) error {
		if !g.AccessibleBy(ownerID) {
			return apperrors.ErrGenerationNotFound
		}
		s, ok := g.Section(sectionID)
		if !ok {
			return apperrors.ErrSectionNotFound
		}
		if g.Task.Status.IsActive() {
			return apperrors.ErrGenerationInProgress
		}
		g.Revision++
		g.Task.Reset()
		g.Task.Enter(entity.GenerationStatusGenerating, progressRetry, fmt.Sprintf(stepRetrying, s.Order))
		rev = g.Revision
		text = s.Text
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.publish(ctx, g, nil)

	ill, imgErr := o.illustrator.Illustrate(ctx, IllustrateInput{SectionText: text})
	if imgErr != nil {
		logger.Warn(ctx, "section retry failed", "section_id", sectionID, "error", imgErr.Error())
		metrics.GenerationSectionsTotal.WithLabelValues("retry", string(entity.AuditStatusReview)).Inc()
		o.markError(ctx, generationID, rev, stepRetryFail, apperrors.ErrRetryFailed.Message, false)
		return nil, apperrors.ErrRetryFailed.WithError(imgErr)
	}

	var (
		updated entity.Section
		owned   bool
	)
	g, err = o.update(ctx, generationID, func(g *entity.Generation) error {
		s, ok := g.Section(sectionID)
		if !ok {
			return apperrors.ErrSectionNotFound
		}
		s.MarkIllustrated(ill.ImageURL)
		if owned = g.Revision == rev; owned {
			g.Task.Reset()
		}
		updated = *s
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.GenerationSectionsTotal.WithLabelValues("retry", string(updated.AuditStatus)).Inc()
	o.emit(ctx, g, &updated, owned)
	return &updated, nil
}

// Get 返回快照；无权访问与不存在一样返回 NotFound
func (o *Orchestrator) Get(ctx context.Context, generationID, ownerID string) (*entity.Generation, error) {
	g, err := o.runs.Get(ctx, generationID)
	if err != nil {
		return nil, err
	}
	if !g.AccessibleBy(ownerID) {
		return nil, apperrors.ErrGenerationNotFound
	}
	return g, nil
}

// Subscribe 先订阅再读取快照，避免漏掉两者之间的事件
func (o *Orchestrator) Subscribe(ctx context.Context, generationID, ownerID string) (*entity.Generation, <-chan service.ProgressEvent, func(), error) {
	if _, err := o.Get(ctx, generationID, ownerID); err != nil {
		return nil, nil, nil, err
	}
	events, cancel, err := o.bus.Subscribe(ctx, generationID)
	if err != nil {
		return nil, nil, nil, err
	}
	g, err := o.runs.Get(ctx, generationID)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return g, events, cancel, nil
}

// Shutdown 等待进程内运行与定时重置结束
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) update(ctx context.Context, id string, fn func(g *entity.Generation) error) (*entity.Generation, error) {
	// 进程内先串行，跨进程的并发写由存储的 Update 保证
	unlock := o.locks.Lock(id)
	defer unlock()

	return o.runs.Update(ctx, id, func(g *entity.Generation) error {
		if err := fn(g); err != nil {
			return err
		}
		g.UpdatedAt = time.Now()
		return nil
	})
}

func (o *Orchestrator) fail(ctx context.Context, id string, rev int64, step, message string) {
	o.markError(ctx, id, rev, step, message, true)
}

// markError 进入 error 状态并安排重置；run 为 false 表示单段重试失败，不计入运行指标
func (o *Orchestrator) markError(ctx context.Context, id string, rev int64, step, message string, run bool) {
	g, err := o.update(ctx, id, func(g *entity.Generation) error {
		if g.Revision != rev {
			return errSkipUpdate
		}
		g.Task.Fail(message)
		g.Task.CurrentStep = step
		if run {
			g.MarkCompleted()
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, errSkipUpdate) {
			logger.Error(ctx, "failed to record generation error", err)
		}
		return
	}
	o.publish(ctx, g, nil)

	if run {
		status := string(entity.GenerationStatusError)
		metrics.GenerationRunsTotal.WithLabelValues(status).Inc()
		if d := g.Duration(); d > 0 {
			metrics.GenerationRunDuration.WithLabelValues(status).Observe(d.Seconds())
		}
	}

	o.scheduleReset(ctx, id, rev, entity.GenerationStatusError, o.errorDisplay)
}

// scheduleReset 展示窗口结束后回到 idle；期间若已开始新的运行或重试则不动
func (o *Orchestrator) scheduleReset(ctx context.Context, id string, rev int64, expect entity.GenerationStatus, delay time.Duration) {
	ctx = context.WithoutCancel(ctx)
	o.wg.Add(1)
	time.AfterFunc(delay, func() {
		defer o.wg.Done()
		g, err := o.update(ctx, id, func(g *entity.Generation) error {
			if g.Revision != rev || g.Task.Status != expect {
				return errSkipUpdate
			}
			g.Task.Reset()
			return nil
		})
		if err != nil {
			if !errors.Is(err, errSkipUpdate) && !errors.Is(err, apperrors.ErrGenerationNotFound) {
				logger.Warn(ctx, "failed to reset generation task", "error", err.Error())
			}
			return
		}
		o.publish(ctx, g, nil)
	})
}

func (o *Orchestrator) saveHistory(ctx context.Context, g *entity.Generation) string {
	if !g.SaveHistory || g.UserID == "" || o.histories == nil {
		return ""
	}
	body, err := json.Marshal(g.Sections)
	if err != nil {
		logger.Error(ctx, "failed to encode sections for history", err)
		return ""
	}
	h := entity.NewHistory(g.UserID, g.RawText, string(body))
	if err := o.histories.Create(ctx, h); err != nil {
		logger.Error(ctx, "failed to save generation history", err)
		return ""
	}
	return h.ID
}

func (o *Orchestrator) publish(ctx context.Context, g *entity.Generation, section *entity.Section) {
	o.emit(ctx, g, section, false)
}

// emit final 为 true 时订阅方据此结束本次进度流
func (o *Orchestrator) emit(ctx context.Context, g *entity.Generation, section *entity.Section, final bool) {
	if o.bus == nil || g == nil {
		return
	}
	evt := service.ProgressEvent{
		GenerationID: g.ID,
		Task:         g.Task,
		Section:      section,
		ResultReady:  g.ResultReady,
		Final:        final,
		At:           time.Now(),
	}
	if err := o.bus.Publish(ctx, evt); err != nil {
		logger.Warn(ctx, "failed to publish progress", "error", err.Error())
	}
}

// keyedMutex 按生成 ID 串行化状态读写
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
