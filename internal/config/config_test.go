package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"API_ADDR", "PREZENCE_STATE_BACKEND", "PREZENCE_WEBHOOK_TIMEOUT_SECONDS", "MINIO_USE_SSL", "OPENAI_MODEL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Addr != ":8787" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.StateBackend != "sqlite" {
		t.Errorf("StateBackend = %q", cfg.StateBackend)
	}
	if cfg.WebhookTimeout != 30*time.Second {
		t.Errorf("WebhookTimeout = %v", cfg.WebhookTimeout)
	}
	if cfg.MinioUseSSL {
		t.Error("expected MinioUseSSL to default to false")
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("OpenAIModel = %q", cfg.OpenAIModel)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PREZENCE_STATE_BACKEND", "Redis")
	t.Setenv("PREZENCE_WEBHOOK_TIMEOUT_SECONDS", "5")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("PREZENCE_WEBHOOK_URL", "https://hook.example")

	cfg := Load()
	if cfg.StateBackend != "redis" {
		t.Errorf("StateBackend = %q", cfg.StateBackend)
	}
	if cfg.WebhookTimeout != 5*time.Second {
		t.Errorf("WebhookTimeout = %v", cfg.WebhookTimeout)
	}
	if !cfg.MinioUseSSL {
		t.Error("expected MinioUseSSL")
	}
	if cfg.WebhookURL != "https://hook.example" {
		t.Errorf("WebhookURL = %q", cfg.WebhookURL)
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("PREZENCE_WEBHOOK_TIMEOUT_SECONDS", "soon")
	t.Setenv("MINIO_USE_SSL", "maybe")

	cfg := Load()
	if cfg.WebhookTimeout != 30*time.Second {
		t.Errorf("WebhookTimeout = %v", cfg.WebhookTimeout)
	}
	if cfg.MinioUseSSL {
		t.Error("expected fallback to false")
	}
}
