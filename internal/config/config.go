package config

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string
	Env      string // development, production
	LogLevel string

	// Sessions
	SessionSecret string
	SessionTTL    time.Duration
	SecureCookies bool
	MaxSessions   int

	// Limits
	MaxUploadSizeMB     int
	MaxAttachmentSizeMB int
	RateLimitPerMinute  int

	// Previews
	PreviewWidth   int
	PreviewWorkers int

	ShowRejectedFiles bool
	MaintenanceMode   bool
}

// Load reads configuration from the environment (and .env if present),
// letting command line flags override the server settings.
func Load(args []string) (*Config, error) {
	// Load .env file if it exists (don't error if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&cfg.Port, "port", getEnv("PORT", "8080"), "Server port")
	fs.StringVar(&cfg.Env, "env", getEnv("ENV", "development"), "Environment (development, production)")
	fs.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", ""), "Log level (debug, info, warn, error)")

	cfg.SessionSecret = getEnv("SESSION_SECRET", "")
	cfg.SessionTTL = getEnvDuration("SESSION_TTL", 2*time.Hour)
	cfg.SecureCookies = getEnv("SECURE_COOKIES", "false") == "true"
	cfg.MaxSessions = getEnvInt("MAX_SESSIONS", 10000)
	cfg.MaxUploadSizeMB = getEnvInt("MAX_UPLOAD_SIZE_MB", 100)
	cfg.MaxAttachmentSizeMB = getEnvInt("MAX_ATTACHMENT_SIZE_MB", 10)
	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", 120)
	cfg.PreviewWidth = getEnvInt("PREVIEW_WIDTH", 480)
	cfg.PreviewWorkers = getEnvInt("PREVIEW_WORKERS", 4)
	cfg.ShowRejectedFiles = getEnv("SHOW_REJECTED_FILES", "false") == "true"
	cfg.MaintenanceMode = getEnv("MAINTENANCE_MODE", "false") == "true"

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	if cfg.SessionSecret == "" && cfg.IsDevelopment() {
		cfg.SessionSecret = randomSecret()
		slog.Warn("SESSION_SECRET not set, using a random secret for this process")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "production" {
		return fmt.Errorf("ENV must be development or production, got %q", c.Env)
	}
	if len(c.SessionSecret) < 16 {
		return fmt.Errorf("SESSION_SECRET must be at least 16 characters")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("MAX_SESSIONS must be positive")
	}
	if c.MaxAttachmentSizeMB <= 0 {
		return fmt.Errorf("MAX_ATTACHMENT_SIZE_MB must be positive")
	}
	if c.MaxUploadSizeMB < c.MaxAttachmentSizeMB {
		return fmt.Errorf("MAX_UPLOAD_SIZE_MB must be at least MAX_ATTACHMENT_SIZE_MB")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// MaxUploadBytes is the request body cap for one batch.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadSizeMB) << 20
}

// MaxAttachmentBytes is the per-file cap.
func (c *Config) MaxAttachmentBytes() int64 {
	return int64(c.MaxAttachmentSizeMB) << 20
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
		slog.Warn("ignoring invalid integer", "key", key, "value", val)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		slog.Warn("ignoring invalid duration", "key", key, "value", val)
	}
	return fallback
}

func randomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
