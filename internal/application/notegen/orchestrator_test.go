package notegen

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"notegen-api/internal/domain/entity"
	"notegen-api/internal/domain/service"
	"notegen-api/internal/workflow/catalog"
	apperrors "notegen-api/pkg/errors"
)

func collectUntilTerminal(t *testing.T, events <-chan service.ProgressEvent) []service.ProgressEvent {
	t.Helper()
	var out []service.ProgressEvent
	timeout := time.After(2 * time.Second)
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, evt)
			if evt.Terminal() {
				return out
			}
		case <-timeout:
			t.Fatalf("timed out waiting for terminal event, got %d events", len(out))
		}
	}
}

func TestProgressSteps(t *testing.T) {
	var got []Progress
	for i, p := range progressSteps(3) {
		if i != len(got) {
			t.Fatalf("unexpected index %d", i)
		}
		got = append(got, p)
	}
	want := []int{35, 55, 75}
	for i, p := range got {
		if p.Percent != want[i] {
			t.Errorf("step %d percent = %d, want %d", i, p.Percent, want[i])
		}
	}
	if got[2].Label != "正在生成配图 (3/3)..." {
		t.Fatalf("unexpected label %q", got[2].Label)
	}
}

func TestOrchestrator_RunIsolatesImageFailure(t *testing.T) {
	env := newTestEnv(sectionsReply(3), &fakeImages{failOn: map[int]bool{2: true}})
	g := env.seed("", false)

	events, cancel, err := env.hub.Subscribe(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	if err := env.orch.Run(context.Background(), g.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := env.orch.Get(context.Background(), g.ID, "")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Task.Status != entity.GenerationStatusDone || got.Task.Progress != 100 || !got.ResultReady {
		t.Fatalf("unexpected task: %+v ready=%v", got.Task, got.ResultReady)
	}
	if len(got.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(got.Sections))
	}
	wantStatus := []entity.AuditStatus{entity.AuditStatusPass, entity.AuditStatusReview, entity.AuditStatusPass}
	for i, s := range got.Sections {
		if s.Order != i+1 {
			t.Errorf("section %d order = %d", i, s.Order)
		}
		if s.AuditStatus != wantStatus[i] {
			t.Errorf("section %d audit = %s, want %s", i, s.AuditStatus, wantStatus[i])
		}
	}
	if got.Sections[1].ErrorCode != entity.SectionErrorImageFailed || got.Sections[1].ImageURL != "" {
		t.Fatalf("failed section not marked: %+v", got.Sections[1])
	}
	if got.Sections[0].ErrorCode != "" || got.Sections[2].ImageURL == "" {
		t.Fatalf("healthy sections affected: %+v", got.Sections)
	}

	evts := collectUntilTerminal(t, events)
	last := -1
	for _, e := range evts {
		if e.Task.Progress < last {
			t.Fatalf("progress decreased: %d after %d", e.Task.Progress, last)
		}
		last = e.Task.Progress
	}
	if evts[len(evts)-1].Task.Status != entity.GenerationStatusDone {
		t.Fatalf("last event status = %s", evts[len(evts)-1].Task.Status)
	}

	env.waitIdle()
	got, _ = env.orch.Get(context.Background(), g.ID, "")
	if got.Task.Status != entity.GenerationStatusIdle || !got.ResultReady {
		t.Fatalf("expected idle with result kept, got %+v ready=%v", got.Task, got.ResultReady)
	}
	if len(got.Sections) != 3 {
		t.Fatalf("sections lost after reset")
	}
}

func TestOrchestrator_RewriteFailureEntersErrorThenIdle(t *testing.T) {
	env := newTestEnv("", nil)
	env.invoker.err = errors.New("connection reset by peer")
	g := env.seed("", false)

	err := env.orch.Run(context.Background(), g.ID)
	if !apperrors.IsCode(err, apperrors.CodeUpstreamUnavailable) {
		t.Fatalf("expected upstream unavailable, got %v", err)
	}

	got, _ := env.orch.Get(context.Background(), g.ID, "")
	if got.Task.Status != entity.GenerationStatusError {
		t.Fatalf("status = %s, want error", got.Task.Status)
	}
	if got.Task.Error != apperrors.ErrUpstreamUnavailable.Message {
		t.Fatalf("error message = %q", got.Task.Error)
	}
	if env.images.calls != 0 {
		t.Fatalf("no image call expected after rewrite failure")
	}

	env.waitIdle()
	got, _ = env.orch.Get(context.Background(), g.ID, "")
	if got.Task.Status != entity.GenerationStatusIdle || got.Task.Error != "" {
		t.Fatalf("expected reset to idle, got %+v", got.Task)
	}
}

func TestOrchestrator_RunOnlyOnce(t *testing.T) {
	env := newTestEnv(sectionsReply(1), nil)
	g := env.seed("", false)

	if err := env.orch.Run(context.Background(), g.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := env.orch.Run(context.Background(), g.ID); !apperrors.IsCode(err, apperrors.CodeGenerationInProgress) {
		t.Fatalf("expected second run to be rejected, got %v", err)
	}
	if env.invoker.calls != 1 {
		t.Fatalf("rewrite invoked %d times", env.invoker.calls)
	}
	env.waitIdle()
}

func TestOrchestrator_SavesHistoryForOwner(t *testing.T) {
	env := newTestEnv(sectionsReply(2), nil)
	g := env.seed("user-1", true)

	if err := env.orch.Run(context.Background(), g.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(env.histories.created) != 1 {
		t.Fatalf("expected one history record, got %d", len(env.histories.created))
	}
	h := env.histories.created[0]
	if h.UserID != "user-1" || h.RawText != g.RawText || h.ResultJSON == "" {
		t.Fatalf("unexpected history: %+v", h)
	}
	got, _ := env.orch.Get(context.Background(), g.ID, "user-1")
	if got.HistoryID != h.ID {
		t.Fatalf("history id not recorded")
	}
	env.waitIdle()
}

func TestOrchestrator_GuestRunSkipsHistory(t *testing.T) {
	env := newTestEnv(sectionsReply(2), nil)
	g := env.seed("", true)

	if err := env.orch.Run(context.Background(), g.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(env.histories.created) != 0 {
		t.Fatalf("guest run must not save history")
	}
	env.waitIdle()
}

func TestOrchestrator_StartRunsInBackground(t *testing.T) {
	env := newTestEnv(sectionsReply(2), nil)

	g, err := env.orch.Start(context.Background(), StartInput{RawText: longText(600)})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if g.ToneID != "casual" || g.Task.Status != entity.GenerationStatusIdle {
		t.Fatalf("unexpected snapshot: %+v", g)
	}

	env.waitIdle()
	got, _ := env.orch.Get(context.Background(), g.ID, "")
	if !got.ResultReady || len(got.Sections) != 2 {
		t.Fatalf("run did not complete: %+v", got)
	}
}

func TestOrchestrator_StartValidates(t *testing.T) {
	env := newTestEnv(sectionsReply(2), nil)
	if _, err := env.orch.Start(context.Background(), StartInput{RawText: "太短"}); !apperrors.IsCode(err, apperrors.CodeInvalidParam) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if env.invoker.calls != 0 {
		t.Fatal("no upstream call expected")
	}
}

type recordingDispatcher struct {
	ids []string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, id string) error {
	d.ids = append(d.ids, id)
	return nil
}

func TestOrchestrator_StartDispatches(t *testing.T) {
	env := newTestEnv(sectionsReply(2), nil)
	d := &recordingDispatcher{}
	env.orch.dispatcher = d

	g, err := env.orch.Start(context.Background(), StartInput{UserID: "u", RawText: longText(600)})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(d.ids) != 1 || d.ids[0] != g.ID {
		t.Fatalf("expected dispatch of %s, got %v", g.ID, d.ids)
	}
	env.waitIdle()
	if env.invoker.calls != 0 {
		t.Fatal("dispatched run must not execute in process")
	}
}

func TestOrchestrator_RetrySection(t *testing.T) {
	env := newTestEnv(sectionsReply(3), &fakeImages{failOn: map[int]bool{2: true}})
	g := env.seed("owner", false)
	if err := env.orch.Run(context.Background(), g.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}
	before, _ := env.orch.Get(context.Background(), g.ID, "owner")
	env.waitIdle()

	events, cancel, err := env.hub.Subscribe(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	s, err := env.orch.RetrySection(context.Background(), g.ID, "s2", "owner")
	if err != nil {
		t.Fatalf("RetrySection: %v", err)
	}
	if s.AuditStatus != entity.AuditStatusPass || s.ErrorCode != "" || s.ImageURL == "" {
		t.Fatalf("retried section not healed: %+v", s)
	}

	got := collectUntilTerminal(t, events)
	last := got[len(got)-1]
	if got[0].Task.Status != entity.GenerationStatusGenerating || !last.Final || last.Task.Status != entity.GenerationStatusIdle {
		t.Fatalf("retry events = %+v", got)
	}
	if last.Section == nil || last.Section.ImageURL != s.ImageURL {
		t.Fatalf("final event should carry the section: %+v", last.Section)
	}

	// 对已通过的段落再次重试：覆盖为最新的图片
	s2, err := env.orch.RetrySection(context.Background(), g.ID, "s2", "owner")
	if err != nil {
		t.Fatalf("second RetrySection: %v", err)
	}
	if s2.ImageURL == s.ImageURL {
		t.Fatalf("expected a new image url")
	}

	after, _ := env.orch.Get(context.Background(), g.ID, "owner")
	if after.Sections[1].ImageURL != s2.ImageURL || after.Sections[1].AuditStatus != entity.AuditStatusPass {
		t.Fatalf("section not updated in place: %+v", after.Sections[1])
	}
	for _, i := range []int{0, 2} {
		if after.Sections[i] != before.Sections[i] {
			t.Fatalf("section %d changed: %+v -> %+v", i, before.Sections[i], after.Sections[i])
		}
	}
	if after.Task.Status != entity.GenerationStatusIdle {
		t.Fatalf("task after retry = %s, want idle", after.Task.Status)
	}
	// 重试不带风格与附加要求
	if len(env.images.prompts) != 5 {
		t.Fatalf("expected 5 image calls, got %d", len(env.images.prompts))
	}
	for _, p := range env.images.prompts[3:] {
		if !strings.Contains(p, catalog.FallbackStylePrompt) || strings.Contains(p, catalog.StylePrompt("food")) {
			t.Fatalf("retry prompt should use the fallback style: %q", p)
		}
	}
	if !strings.Contains(env.images.prompts[0], catalog.StylePrompt("food")) {
		t.Fatalf("run prompt should use the chosen style: %q", env.images.prompts[0])
	}
	env.waitIdle()
}

func TestOrchestrator_RetryFailureEntersError(t *testing.T) {
	images := &fakeImages{}
	env := newTestEnv(sectionsReply(2), images)
	g := env.seed("", false)
	if err := env.orch.Run(context.Background(), g.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}
	before, _ := env.orch.Get(context.Background(), g.ID, "")

	images.failAll = true
	_, err := env.orch.RetrySection(context.Background(), g.ID, "s1", "")
	if !apperrors.IsCode(err, apperrors.CodeRetryFailed) {
		t.Fatalf("expected retry failed, got %v", err)
	}

	got, _ := env.orch.Get(context.Background(), g.ID, "")
	if got.Task.Status != entity.GenerationStatusError || got.Task.Error != apperrors.ErrRetryFailed.Message {
		t.Fatalf("unexpected task: %+v", got.Task)
	}
	if got.Sections[0] != before.Sections[0] {
		t.Fatalf("failed retry must not touch the section")
	}

	env.waitIdle()
	got, _ = env.orch.Get(context.Background(), g.ID, "")
	if got.Task.Status != entity.GenerationStatusIdle {
		t.Fatalf("expected idle after error window, got %s", got.Task.Status)
	}
}

func TestOrchestrator_RetryAccess(t *testing.T) {
	env := newTestEnv(sectionsReply(2), nil)
	g := env.seed("owner", false)

	if _, err := env.orch.RetrySection(context.Background(), g.ID, "s1", "owner"); !apperrors.IsCode(err, apperrors.CodeSectionNotFound) {
		t.Fatalf("expected section not found before rewrite, got %v", err)
	}
	if err := env.orch.Run(context.Background(), g.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := env.orch.RetrySection(context.Background(), g.ID, "s1", "intruder"); !apperrors.IsCode(err, apperrors.CodeGenerationNotFound) {
		t.Fatalf("expected not found for other user, got %v", err)
	}
	if _, err := env.orch.RetrySection(context.Background(), "missing", "s1", "owner"); !apperrors.IsCode(err, apperrors.CodeGenerationNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := env.orch.Get(context.Background(), g.ID, ""); !apperrors.IsCode(err, apperrors.CodeGenerationNotFound) {
		t.Fatalf("anonymous read of an owned generation must fail, got %v", err)
	}
	env.waitIdle()
}

func TestOrchestrator_RetryRejectedWhileRunning(t *testing.T) {
	env := newTestEnv(sectionsReply(2), nil)
	g := env.seed("", false)

	_, err := env.orch.update(context.Background(), g.ID, func(g *entity.Generation) error {
		g.Sections = []entity.Section{entity.NewSection("s1", "段落", 1)}
		g.Task.Enter(entity.GenerationStatusGenerating, 40, "x")
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := env.orch.RetrySection(context.Background(), g.ID, "s1", ""); !apperrors.IsCode(err, apperrors.CodeGenerationInProgress) {
		t.Fatalf("expected in-progress conflict, got %v", err)
	}
}

func TestOrchestrator_SubscribeReturnsSnapshot(t *testing.T) {
	env := newTestEnv(sectionsReply(2), nil)
	g := env.seed("owner", false)

	snap, events, cancel, err := env.orch.Subscribe(context.Background(), g.ID, "owner")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()
	if snap.ID != g.ID || snap.Task.Status != entity.GenerationStatusIdle {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	if err := env.orch.Run(context.Background(), g.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}
	evts := collectUntilTerminal(t, events)
	if !evts[len(evts)-1].ResultReady {
		t.Fatal("terminal event should carry result_ready")
	}

	if _, _, _, err := env.orch.Subscribe(context.Background(), g.ID, "other"); !apperrors.IsCode(err, apperrors.CodeGenerationNotFound) {
		t.Fatalf("expected not found for other user, got %v", err)
	}
	env.waitIdle()
}
