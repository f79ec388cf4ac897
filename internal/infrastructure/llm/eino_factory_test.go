package llm

import (
	"context"
	"testing"
	"time"

	"notegen-api/internal/config"
)

func TestEinoFactory_GetCachesModel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Providers.Rewrite = config.ProviderConfig{
		Name:    "deepseek",
		APIKey:  "sk-test",
		BaseURL: "http://127.0.0.1:1/v1",
		Model:   "deepseek-chat",
		Timeout: time.Second,
	}
	f := NewEinoFactory(cfg)

	if got := f.DefaultProvider(); got != "deepseek" {
		t.Fatalf("DefaultProvider() = %q, want deepseek", got)
	}

	m1, err := f.Get(context.Background(), "")
	if err != nil {
		t.Fatalf("Get default: %v", err)
	}
	m2, err := f.Get(context.Background(), "deepseek")
	if err != nil {
		t.Fatalf("Get by name: %v", err)
	}
	if m1 != m2 {
		t.Fatal("expected cached model instance")
	}
}

func TestEinoFactory_UnknownProvider(t *testing.T) {
	f := NewEinoFactory(&config.Config{})
	if _, err := f.Get(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
