package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("SESSION_SECRET", "")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.MaxAttachmentBytes() != 10<<20 {
		t.Errorf("expected 10MB attachment cap, got %d", cfg.MaxAttachmentBytes())
	}
	if cfg.MaxSessions != 10000 {
		t.Errorf("expected default session cap 10000, got %d", cfg.MaxSessions)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("expected 2h session ttl, got %s", cfg.SessionTTL)
	}
	if len(cfg.SessionSecret) < 16 {
		t.Errorf("expected generated development secret, got %q", cfg.SessionSecret)
	}
	if cfg.ShowRejectedFiles {
		t.Error("rejected files should be silent by default")
	}
	if cfg.MaintenanceMode {
		t.Error("maintenance mode should be off by default")
	}
}

func TestLoadMaintenanceMode(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("MAINTENANCE_MODE", "true")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.MaintenanceMode {
		t.Error("expected maintenance mode from MAINTENANCE_MODE")
	}
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123")

	cfg, err := Load([]string{"-port", "9100", "-env", "production"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9100" {
		t.Errorf("expected flag port 9100, got %q", cfg.Port)
	}
	if !cfg.IsProduction() {
		t.Errorf("expected production env, got %q", cfg.Env)
	}
}

func TestLoadProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("SESSION_SECRET", "")

	if _, err := Load(nil); err == nil {
		t.Fatal("expected error when SESSION_SECRET is missing in production")
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Env:                 "development",
		SessionSecret:       "0123456789abcdef",
		SessionTTL:          time.Hour,
		MaxSessions:         100,
		MaxUploadSizeMB:     100,
		MaxAttachmentSizeMB: 10,
		RateLimitPerMinute:  10,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cases := map[string]func(c *Config){
		"bad env":            func(c *Config) { c.Env = "staging" },
		"short secret":       func(c *Config) { c.SessionSecret = "short" },
		"zero ttl":           func(c *Config) { c.SessionTTL = 0 },
		"zero sessions":      func(c *Config) { c.MaxSessions = 0 },
		"upload below file":  func(c *Config) { c.MaxUploadSizeMB = 5 },
		"zero attachment":    func(c *Config) { c.MaxAttachmentSizeMB = 0 },
		"zero rate limit":    func(c *Config) { c.RateLimitPerMinute = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			if err := c.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}
