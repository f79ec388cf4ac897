package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadFrom_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Providers.Rewrite.BaseURL != "https://api.deepseek.com" {
		t.Fatalf("rewrite base url = %q", cfg.Providers.Rewrite.BaseURL)
	}
	if cfg.Providers.Image.Model != "doubao-seedream-4-5-251128" {
		t.Fatalf("image model = %q", cfg.Providers.Image.Model)
	}
	if cfg.Providers.Image.Timeout != 60*time.Second {
		t.Fatalf("image timeout = %v", cfg.Providers.Image.Timeout)
	}
	if cfg.Generation.DoneDisplay != time.Second || cfg.Generation.ErrorDisplay != 3*time.Second {
		t.Fatalf("display windows = %v / %v", cfg.Generation.DoneDisplay, cfg.Generation.ErrorDisplay)
	}
	if cfg.Generation.HistoryLimit != 50 {
		t.Fatalf("history limit = %d", cfg.Generation.HistoryLimit)
	}
}

func TestLoadFrom_ExpandsPlaceholders(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("NOTEGEN_TEST_MODEL", "custom-model")
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `
providers:
  rewrite:
    model: ${NOTEGEN_TEST_MODEL:fallback}
    base_url: ${NOTEGEN_TEST_UNSET:https://example.test/v1}
`)

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Providers.Rewrite.Model != "custom-model" {
		t.Fatalf("model = %q", cfg.Providers.Rewrite.Model)
	}
	if cfg.Providers.Rewrite.BaseURL != "https://example.test/v1" {
		t.Fatalf("base url = %q", cfg.Providers.Rewrite.BaseURL)
	}
}

func TestLoadFrom_EnvFileOverridesBase(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "generation:\n  history_limit: 50\n")
	writeConfig(t, dir, "config.staging.yaml", "generation:\n  history_limit: 20\n")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Generation.HistoryLimit != 20 {
		t.Fatalf("history limit = %d", cfg.Generation.HistoryLimit)
	}
}

func TestLoadFrom_ProviderEnvBinding(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("ARK_API_KEY", "ark-secret")
	t.Setenv("DEEPSEEK_API_KEY", "ds-secret")

	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Providers.Image.APIKey != "ark-secret" {
		t.Fatalf("image api key = %q", cfg.Providers.Image.APIKey)
	}
	if cfg.Providers.Rewrite.APIKey != "ds-secret" {
		t.Fatalf("rewrite api key = %q", cfg.Providers.Rewrite.APIKey)
	}
}

func TestExpandEnv_KeepsUnknownWithoutDefault(t *testing.T) {
	got := expandEnv("key: ${NOTEGEN_DEFINITELY_UNSET}")
	if got != "key: ${NOTEGEN_DEFINITELY_UNSET}" {
		t.Fatalf("expandEnv = %q", got)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.Generation.HistoryLimit = 50
		c.Observability.Tracing.SampleRate = 1
		return c
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := map[string]func(*Config){
		"async without redis": func(c *Config) { c.Generation.Async = true },
		"history limit":       func(c *Config) { c.Generation.HistoryLimit = 0 },
		"sample rate":         func(c *Config) { c.Observability.Tracing.SampleRate = 1.5 },
		"placeholder secret in production": func(c *Config) {
			c.App.Env = "production"
			c.Security.JWT.Secret = placeholderJWTSecret
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			if err := c.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadFrom_RejectsAsyncWithoutRedis(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "cache:\n  redis:\n    enabled: false\ngeneration:\n  async: true\n")

	if _, err := LoadFrom(dir); err == nil {
		t.Fatal("expected error for async generation without redis")
	}
}
