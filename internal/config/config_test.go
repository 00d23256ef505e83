package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default configuration should validate, got %v", err)
	}
}

func TestLoadMissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "web-chat.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.WebPort != 25595 {
		t.Errorf("expected default webPort 25595, got %d", cfg.WebPort)
	}
	if cfg.AuthMode != AuthNone {
		t.Errorf("expected default authMode NONE, got %s", cfg.AuthMode)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected a default config file to be written: %v", err)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "web-chat.yaml")
	content := "webPort: 8080\nauthMode: SIMPLE\nwebPassword: hunter2\nmaxMessageLength: 128\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.WebPort != 8080 {
		t.Errorf("webPort = %d, want 8080", cfg.WebPort)
	}
	if cfg.AuthMode != AuthSimple {
		t.Errorf("authMode = %s, want SIMPLE", cfg.AuthMode)
	}
	if cfg.MaxMessageLength != 128 {
		t.Errorf("maxMessageLength = %d, want 128", cfg.MaxMessageLength)
	}
	// Untouched fields keep their defaults.
	if cfg.RateLimitMessagesPerMinute != 20 {
		t.Errorf("rateLimitMessagesPerMinute = %d, want default 20", cfg.RateLimitMessagesPerMinute)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "web-chat.yaml")
	if err := os.WriteFile(path, []byte("webPort: [not a port"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected an error for malformed YAML")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "web-chat.yaml")
	if err := os.WriteFile(path, []byte("webPort: 8080\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("WEBCHAT_PORT", "9090")
	t.Setenv("WEBCHAT_AUTH_MODE", "SIMPLE")
	t.Setenv("WEBCHAT_PASSWORD", "secret")
	t.Setenv("WEBCHAT_TRUST_PROXY", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.WebPort != 9090 {
		t.Errorf("env override lost: webPort = %d, want 9090", cfg.WebPort)
	}
	if cfg.AuthMode != AuthSimple || cfg.WebPassword != "secret" {
		t.Errorf("env auth override lost: %s / %q", cfg.AuthMode, cfg.WebPassword)
	}
	if cfg.TrustProxy {
		t.Error("env trustProxy override lost")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero port", func(c *Config) { c.WebPort = 0 }, true},
		{"port too large", func(c *Config) { c.WebPort = 70000 }, true},
		{"unknown auth mode", func(c *Config) { c.AuthMode = "FANCY" }, true},
		{"simple without password", func(c *Config) { c.AuthMode = AuthSimple }, true},
		{"simple with password", func(c *Config) { c.AuthMode = AuthSimple; c.WebPassword = "x" }, false},
		{"linked", func(c *Config) { c.AuthMode = AuthLinked }, false},
		{"zero message length", func(c *Config) { c.MaxMessageLength = 0 }, true},
		{"zero history", func(c *Config) { c.MaxHistoryMessages = 0 }, true},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected an error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	cfg.OTPRateLimitSeconds = 45
	cfg.MessageRetentionMinutes = 10

	if got := cfg.OTPCooldown().Seconds(); got != 45 {
		t.Errorf("OTPCooldown = %vs, want 45s", got)
	}
	if got := cfg.MessageRetention().Minutes(); got != 10 {
		t.Errorf("MessageRetention = %vm, want 10m", got)
	}
}
