// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"OCMS_DB_PATH" envDefault:"./data/ocms-translations.db"`
	SessionSecret string `env:"OCMS_SESSION_SECRET,required"`
	ServerHost    string `env:"OCMS_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"OCMS_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"OCMS_ENV" envDefault:"development"`
	LogLevel      string `env:"OCMS_LOG_LEVEL" envDefault:"info"`

	// PublicURL is the externally reachable base URL, used to build provider callback URLs.
	PublicURL string `env:"OCMS_PUBLIC_URL" envDefault:"http://localhost:8080"`

	// Cache configuration
	RedisURL     string `env:"OCMS_REDIS_URL"`                         // Optional Redis URL for distributed caching
	CachePrefix  string `env:"OCMS_CACHE_PREFIX" envDefault:"ocms:"`   // Redis key prefix
	CacheTTL     int    `env:"OCMS_CACHE_TTL" envDefault:"86400"`      // Default cache TTL in seconds
	CacheMaxSize int    `env:"OCMS_CACHE_MAX_SIZE" envDefault:"10000"` // Max memory cache entries

	// Initial admin account, created on first start when both are set
	AdminEmail    string `env:"OCMS_ADMIN_EMAIL"`
	AdminPassword string `env:"OCMS_ADMIN_PASSWORD"`

	// Translation provider configuration
	TranslationBackend string        `env:"OCMS_TRANSLATION_BACKEND" envDefault:"vendor"`
	VendorURL          string        `env:"OCMS_VENDOR_URL"`
	VendorAPIKey       string        `env:"OCMS_VENDOR_API_KEY"`
	VendorTimeout      time.Duration `env:"OCMS_VENDOR_TIMEOUT" envDefault:"30s"`
	VendorAllowPrivate bool          `env:"OCMS_VENDOR_ALLOW_PRIVATE"`
	CallbackSecret     string        `env:"OCMS_CALLBACK_SECRET"`
	OpenAIAPIKey       string        `env:"OCMS_OPENAI_API_KEY"`
	OpenAIModel        string        `env:"OCMS_OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL      string        `env:"OCMS_OPENAI_BASE_URL"`
	StalledOrderAfter  time.Duration `env:"OCMS_STALLED_ORDER_AFTER" envDefault:"72h"`
	WebhookURLs        []string      `env:"OCMS_WEBHOOK_URLS" envSeparator:","`
	WebhookSecret      string        `env:"OCMS_WEBHOOK_SECRET"`
	EventRetentionDays int           `env:"OCMS_EVENT_RETENTION_DAYS" envDefault:"90"`
	CallbackRateLimit  float64       `env:"OCMS_CALLBACK_RATE_LIMIT" envDefault:"5"`
	CallbackBurstLimit int           `env:"OCMS_CALLBACK_BURST" envDefault:"20"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// VendorEnabled returns true if the HTTP translation vendor is configured.
func (c Config) VendorEnabled() bool {
	return c.VendorURL != ""
}

// OpenAIEnabled returns true if the machine translation backend is configured.
func (c Config) OpenAIEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// CallbackURL returns the public URL the provider calls back for a request.
func (c Config) CallbackURL(requestID int64) string {
	return fmt.Sprintf("%s/translations/%d/callback", strings.TrimRight(c.PublicURL, "/"), requestID)
}

// MinSessionSecretLength is the minimum required length for the session secret.
// AES-256 requires 32 bytes minimum for secure encryption.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Validate session secret length
	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("OCMS_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	// Reject known weak/default secrets
	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("OCMS_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	// Warn about low-entropy secrets
	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("OCMS_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	switch cfg.TranslationBackend {
	case "vendor", "openai":
	default:
		return nil, fmt.Errorf("OCMS_TRANSLATION_BACKEND must be vendor or openai, got %q", cfg.TranslationBackend)
	}

	if !cfg.IsDevelopment() && cfg.CallbackSecret == "" {
		slog.Warn("OCMS_CALLBACK_SECRET is not set; provider callbacks will not be signature-checked")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
