// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// SMTP security modes.
const (
	SMTPSecurityTLS  = "tls"
	SMTPSecuritySSL  = "ssl"
	SMTPSecurityNone = "none"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache and event stream (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Token issuance
	JWTSecretKey          string `env:"JWT_SECRET_KEY,required"`
	JWTAlgorithm          string `env:"JWT_ALGORITHM" envDefault:"HS256"`
	JWTExpiresDeltaMinute int    `env:"JWT_EXPIRES_DELTA_IN_MINUTES" envDefault:"30"`

	// SMTP transport
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	// SMTPSecurity is one of "tls", "ssl" or "none".
	SMTPSecurity string `env:"SMTP_SECURITY" envDefault:"tls"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"no-reply@plixa.io"`

	// Payment provider callback verification
	ProviderWebhookSecret string `env:"PROVIDER_WEBHOOK_SECRET,required"`
	// Provider API for pull-style transaction verification. Optional; the
	// verify endpoint answers 503 when unset.
	ProviderBaseURL string `env:"PROVIDER_BASE_URL"`
	ProviderAPIKey  string `env:"PROVIDER_API_KEY"`

	// Rate limiting
	RateLimitAPIEnabled    bool `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
	RateLimitPayEnabled    bool `env:"RATE_LIMIT_PAY_ENABLED" envDefault:"true"`
	RateLimitPayRPS        int  `env:"RATE_LIMIT_PAY_RPS" envDefault:"20"`
	RateLimitPayBurst      int  `env:"RATE_LIMIT_PAY_BURST" envDefault:"10"`
	RateLimitAPIPerMinute  int  `env:"RATE_LIMIT_API_PER_MINUTE" envDefault:"120"`
	RateLimitAPIBurst      int  `env:"RATE_LIMIT_API_BURST" envDefault:"20"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://app.plixa.io")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// JWTExpiresDelta returns the access token lifetime as a duration.
func (c *Config) JWTExpiresDelta() time.Duration {
	return time.Duration(c.JWTExpiresDeltaMinute) * time.Minute
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Only HS256 tokens are supported; reject anything else at startup
	// rather than at first login.
	if cfg.JWTAlgorithm != "HS256" {
		return nil, fmt.Errorf("unsupported JWT algorithm %q (only HS256 is supported)", cfg.JWTAlgorithm)
	}

	switch cfg.SMTPSecurity {
	case SMTPSecurityTLS, SMTPSecuritySSL, SMTPSecurityNone:
	default:
		return nil, fmt.Errorf("invalid SMTP_SECURITY %q (want tls, ssl or none)", cfg.SMTPSecurity)
	}

	return cfg, nil
}
