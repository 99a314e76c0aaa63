package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "123:abc"},
		LLM:      LLMConfig{APIKey: "sk-test"},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Errorf("run mode = %q, want longpoll default", cfg.Telegram.RunMode)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, want default", cfg.LLM.Model)
	}
	if cfg.LLM.MaxTokens != 4096 {
		t.Errorf("max tokens = %d, want 4096", cfg.LLM.MaxTokens)
	}
	if cfg.Bot.TaskTTLSeconds != 3600 {
		t.Errorf("task ttl = %d, want 3600", cfg.Bot.TaskTTLSeconds)
	}
	if cfg.Bot.MaxPDFSizeBytes != 20<<20 {
		t.Errorf("max pdf size = %d, want 20 MiB", cfg.Bot.MaxPDFSizeBytes)
	}
}

func TestNormalizeRequiredFields(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.Token = ""
	if err := Normalize(cfg); err == nil {
		t.Error("missing telegram token accepted")
	}

	cfg = validConfig()
	cfg.LLM.APIKey = ""
	if err := Normalize(cfg); err == nil {
		t.Error("missing llm api key accepted")
	}
}

func TestNormalizeRunMode(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "polling"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("polling alias rejected: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Errorf("polling alias normalized to %q", cfg.Telegram.RunMode)
	}

	cfg = validConfig()
	cfg.Telegram.RunMode = "carrier-pigeon"
	if err := Normalize(cfg); err == nil || !strings.Contains(err.Error(), "run_mode") {
		t.Errorf("invalid run mode: err = %v", err)
	}

	cfg = validConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	if err := Normalize(cfg); err == nil {
		t.Error("webhook mode without url/listen/port accepted")
	}
}

func TestNormalizeRedisPrefix(t *testing.T) {
	cfg := validConfig()
	cfg.Redis.Addr = "localhost:6379"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Redis.Prefix != "qabot" {
		t.Errorf("redis prefix = %q, want qabot default", cfg.Redis.Prefix)
	}
}

func TestNormalizeRateLimitExcludes(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{" Callback ", "message"}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.RateLimit.ExcludeUpdates[0] != UpdateCallback {
		t.Errorf("exclude[0] = %q, want normalized callback", cfg.RateLimit.ExcludeUpdates[0])
	}

	cfg = validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{"dice-roll"}
	if err := Normalize(cfg); err == nil {
		t.Error("invalid exclude update accepted")
	}
}
