package entity

import (
	"time"
)

// GenerationStatus 生成任务状态
type GenerationStatus string

const (
	GenerationStatusIdle       GenerationStatus = "idle"
	GenerationStatusRewriting  GenerationStatus = "rewriting"
	GenerationStatusGenerating GenerationStatus = "generating"
	GenerationStatusDone       GenerationStatus = "done"
	GenerationStatusError      GenerationStatus = "error"
)

// IsActive 是否处于执行中
func (s GenerationStatus) IsActive() bool {
	return s == GenerationStatusRewriting || s == GenerationStatusGenerating
}

// IsTerminal 是否为终态（完成或失败）
func (s GenerationStatus) IsTerminal() bool {
	return s == GenerationStatusDone || s == GenerationStatusError
}

// GenerationTask 一次运行的进度状态
type GenerationTask struct {
	Status      GenerationStatus `json:"status"`
	Progress    int              `json:"progress"` // 0-100，运行内单调不减
	CurrentStep string           `json:"current_step"`
	Error       string           `json:"error,omitempty"`
}

// NewGenerationTask 创建 idle 状态的任务
func NewGenerationTask() GenerationTask {
	return GenerationTask{Status: GenerationStatusIdle}
}

// Enter 切换到执行阶段并更新进度
func (t *GenerationTask) Enter(status GenerationStatus, progress int, step string) {
	t.Status = status
	t.Error = ""
	t.advance(progress, step)
}

// UpdateProgress 更新进度，低于当前值的进度被忽略
func (t *GenerationTask) UpdateProgress(progress int, step string) {
	t.advance(progress, step)
}

func (t *GenerationTask) advance(progress int, step string) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	if progress > t.Progress {
		t.Progress = progress
	}
	if step != "" {
		t.CurrentStep = step
	}
}

// Complete 任务完成
func (t *GenerationTask) Complete(step string) {
	t.Status = GenerationStatusDone
	t.Progress = 100
	t.CurrentStep = step
	t.Error = ""
}

// Fail 任务失败
func (t *GenerationTask) Fail(message string) {
	t.Status = GenerationStatusError
	t.Error = message
}

// Reset 展示窗口结束后回到 idle
func (t *GenerationTask) Reset() {
	*t = NewGenerationTask()
}

// Generation 一次文章改写与配图的完整记录
type Generation struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id,omitempty"`
	RawText       string         `json:"raw_text"`
	ToneID        string         `json:"tone_id"`
	StyleID       string         `json:"style_id,omitempty"`
	FreePrompt    string         `json:"free_prompt,omitempty"`
	SaveHistory   bool           `json:"save_history"`
	Task          GenerationTask `json:"task"`
	Sections      []Section      `json:"sections"`
	RewrittenText string         `json:"rewritten_text,omitempty"`
	// ResultReady 结果已完整生成（即使 Task 已回到 idle）
	ResultReady bool       `json:"result_ready"`
	HistoryID   string     `json:"history_id,omitempty"`
	// Revision 每次运行或重试递增，过期的定时重置据此失效
	Revision    int64      `json:"revision"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewGeneration 创建新的生成记录
func NewGeneration(userID, rawText, toneID, styleID, freePrompt string, saveHistory bool) *Generation {
	now := time.Now()
	return &Generation{
		UserID:      userID,
		RawText:     rawText,
		ToneID:      toneID,
		StyleID:     styleID,
		FreePrompt:  freePrompt,
		SaveHistory: saveHistory,
		Task:        NewGenerationTask(),
		Sections:    []Section{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AccessibleBy 游客创建的记录凭 ID 访问；登录用户创建的仅本人可见
func (g *Generation) AccessibleBy(userID string) bool {
	return g.UserID == "" || g.UserID == userID
}

// Section 按 ID 查找段落
func (g *Generation) Section(sectionID string) (*Section, bool) {
	for i := range g.Sections {
		if g.Sections[i].SectionID == sectionID {
			return &g.Sections[i], true
		}
	}
	return nil, false
}

// MarkStarted 记录开始时间
func (g *Generation) MarkStarted() {
	now := time.Now()
	g.StartedAt = &now
	g.UpdatedAt = now
}

// MarkCompleted 记录结束时间
func (g *Generation) MarkCompleted() {
	now := time.Now()
	g.CompletedAt = &now
	g.UpdatedAt = now
}

// Duration 运行耗时
func (g *Generation) Duration() time.Duration {
	if g.StartedAt == nil || g.CompletedAt == nil {
		return 0
	}
	return g.CompletedAt.Sub(*g.StartedAt)
}

// Clone 深拷贝，供并发读取快照
func (g *Generation) Clone() *Generation {
	cp := *g
	cp.Sections = append([]Section(nil), g.Sections...)
	return &cp
}
