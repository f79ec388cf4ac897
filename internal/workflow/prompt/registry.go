package prompt

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	PromptRewriteV1 PromptID = "rewrite_v1"
	PromptImageV1   PromptID = "image_v1"
)

// Registry 缓存已解析的模板；模板使用 Go template 语法，避免与 JSON 示例中的花括号冲突
type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	files, err := resolvePromptFiles(id)
	if err != nil {
		return nil, err
	}

	msgs := make([]schema.MessagesTemplate, 0, 2)
	if files.system != "" {
		system, err := readEmbeddedText(files.system)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, schema.SystemMessage(system))
	}
	user, err := readEmbeddedText(files.user)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, schema.UserMessage(user))

	tpl := einoprompt.FromMessages(schema.GoTemplate, msgs...)
	r.cache[id] = tpl
	return tpl, nil
}

// RenderText 渲染只有单条用户消息的模板，返回其文本
func (r *Registry) RenderText(ctx context.Context, id PromptID, vars map[string]any) (string, error) {
	tpl, err := r.ChatTemplate(id)
	if err != nil {
		return "", err
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("format prompt %s: %w", id, err)
	}
	if len(msgs) == 0 {
		return "", fmt.Errorf("prompt %s rendered no message", id)
	}
	return strings.TrimSpace(msgs[len(msgs)-1].Content), nil
}

type promptFiles struct {
	system string
	user   string
}

func resolvePromptFiles(id PromptID) (promptFiles, error) {
	switch id {
	case PromptRewriteV1:
		return promptFiles{
			system: "templates/rewrite_v1.system.txt",
			user:   "templates/rewrite_v1.user.txt",
		}, nil
	case PromptImageV1:
		return promptFiles{user: "templates/image_v1.user.txt"}, nil
	default:
		return promptFiles{}, fmt.Errorf("unknown prompt id: %s", id)
	}
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
