package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadKeepsDefaultsAndAppliesEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "server:\n  port: \"9090\"\nrewards:\n  correct_answer: \"20\"\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MINTER_PRIVATE_KEY", "abc123")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port from file, got %s", cfg.Server.Port)
	}
	if cfg.Rewards.CorrectAnswer != "20" || cfg.Rewards.Participation != "1" {
		t.Fatalf("expected file override plus defaults, got %+v", cfg.Rewards)
	}
	if cfg.Minter.PrivateKey != "abc123" {
		t.Fatalf("expected key from env")
	}
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Fatalf("expected two origins, got %v", cfg.Server.CORSOrigins)
	}
	if cfg.Redis.TTL != "10m" || cfg.Quiz.TTL != "10m" {
		t.Fatalf("unexpected cache ttl defaults %q %q", cfg.Redis.TTL, cfg.Quiz.TTL)
	}
	if cfg.Distribution.Mode != "staged" || len(cfg.Distribution.Fractions) != 3 {
		t.Fatalf("unexpected distribution defaults %+v", cfg.Distribution)
	}
}

func TestTTLDuration(t *testing.T) {
	if d := TTLDuration("", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback, got %v", d)
	}
	if d := TTLDuration("garbage", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback on parse error, got %v", d)
	}
	if d := TTLDuration("30s", time.Minute); d != 30*time.Second {
		t.Fatalf("expected 30s, got %v", d)
	}
}
