package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"notegen-api/internal/config"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// defaultTimeout 改写请求的兜底超时
const defaultTimeout = 60 * time.Second

// EinoFactory 管理改写服务的 Eino ChatModel 实例
type EinoFactory struct {
	providers map[string]config.ProviderConfig
	defaultID string
	models    map[string]model.BaseChatModel
	mu        sync.RWMutex
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	rewrite := cfg.Providers.Rewrite
	name := strings.TrimSpace(rewrite.Name)
	if name == "" {
		name = "deepseek"
	}
	return &EinoFactory{
		providers: map[string]config.ProviderConfig{name: rewrite},
		defaultID: name,
		models:    make(map[string]model.BaseChatModel),
	}
}

// DefaultProvider 返回默认服务名
func (f *EinoFactory) DefaultProvider() string {
	return f.defaultID
}

// Get 获取指定名称的 ChatModel，如果未指定则返回默认客户端
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = f.defaultID
	}

	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	// 惰性加载
	f.mu.Lock()
	defer f.mu.Unlock()

	if m, ok = f.models[name]; ok {
		return m, nil
	}

	providerCfg, ok := f.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not found in providers config", name)
	}

	timeout := providerCfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	cfg := &openai.ChatModelConfig{
		APIKey:  providerCfg.APIKey,
		BaseURL: providerCfg.BaseURL,
		Model:   providerCfg.Model,
		Timeout: timeout,
	}
	if providerCfg.MaxTokens > 0 {
		cfg.MaxTokens = &providerCfg.MaxTokens
	}
	if providerCfg.Temperature > 0 {
		cfg.Temperature = ptrFloat32(float32(providerCfg.Temperature))
	}

	chatModel, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}

	f.models[name] = chatModel
	return chatModel, nil
}

// Default 返回默认 ChatModel
func (f *EinoFactory) Default(ctx context.Context) (model.BaseChatModel, error) {
	return f.Get(ctx, "")
}

func ptrFloat32(f float32) *float32 {
	return &f
}
