// Package config handles loading and managing application configuration.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/khipudemo/khipu-payments/internal/domain"
)

// Config holds all configuration for the application.
type Config struct {
	// Server configuration
	Server ServerConfig

	// Khipu API configuration
	Khipu KhipuConfig

	// Payment facade settings
	Payment PaymentConfig

	// Logging settings
	Log LogConfig

	// Notification relay to a downstream backend
	Notify NotifyConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port    string
	GinMode string // "debug", "release", or "test"
}

// KhipuConfig holds provider credentials and transport settings.
type KhipuConfig struct {
	APIKey        string
	ReceiverID    string
	SecretKey     string
	BaseURL       string
	LegacyBaseURL string
	AuthMode      string // "api_key" or "hmac"
	SigningScheme string // "raw", "per_value" or "full_url"
	BanksFallback bool
	UserAgent     string

	CreateTimeout time.Duration
	QueryTimeout  time.Duration
	BanksTimeout  time.Duration
}

// PaymentConfig holds settings for payment creation.
type PaymentConfig struct {
	BaseURL   string
	MinAmount float64
	MaxAmount float64
}

// NotifyConfig holds the optional notification relay settings.
// An empty ForwardURL disables forwarding.
type NotifyConfig struct {
	ForwardURL     string
	ForwardSecret  string
	ForwardTimeout time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Auth modes.
const (
	AuthModeAPIKey = "api_key"
	AuthModeHMAC   = "hmac"
)

// Load reads configuration from environment variables, after seeding them
// from a .env file when one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		Khipu: KhipuConfig{
			APIKey:        getEnv("KHIPU_API_KEY", ""),
			ReceiverID:    getEnv("KHIPU_RECEIVER_ID", ""),
			SecretKey:     getEnv("KHIPU_SECRET_KEY", ""),
			BaseURL:       getEnv("KHIPU_API_URL", "https://payment-api.khipu.com/v3"),
			LegacyBaseURL: getEnv("KHIPU_LEGACY_API_URL", "https://khipu.com/api/2.0"),
			AuthMode:      strings.ToLower(getEnv("KHIPU_AUTH_MODE", AuthModeAPIKey)),
			SigningScheme: getEnv("KHIPU_SIGNING_SCHEME", "raw"),
			BanksFallback: getEnvBool("KHIPU_BANKS_FALLBACK", true),
			UserAgent:     getEnv("USER_AGENT", ""),
			CreateTimeout: getEnvDuration("KHIPU_CREATE_TIMEOUT", 15*time.Second),
			QueryTimeout:  getEnvDuration("KHIPU_QUERY_TIMEOUT", 30*time.Second),
			BanksTimeout:  getEnvDuration("KHIPU_BANKS_TIMEOUT", 10*time.Second),
		},
		Payment: PaymentConfig{
			BaseURL:   getEnv("BASE_URL", getEnv("NEXT_PUBLIC_BASE_URL", "http://localhost:8080")),
			MinAmount: getEnvFloat("PAYMENT_MIN_AMOUNT", 0),
			MaxAmount: getEnvFloat("PAYMENT_MAX_AMOUNT", 0),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Notify: NotifyConfig{
			ForwardURL:     getEnv("NOTIFY_FORWARD_URL", ""),
			ForwardSecret:  getEnv("NOTIFY_FORWARD_SECRET", ""),
			ForwardTimeout: getEnvDuration("NOTIFY_FORWARD_TIMEOUT", 15*time.Second),
		},
	}
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	var missing []string
	if c.Khipu.APIKey == "" {
		missing = append(missing, "KHIPU_API_KEY")
	}
	if c.Khipu.ReceiverID == "" {
		missing = append(missing, "KHIPU_RECEIVER_ID")
	}
	if c.Khipu.SecretKey == "" {
		missing = append(missing, "KHIPU_SECRET_KEY")
	}
	if len(missing) > 0 {
		return domain.NewPaymentError(domain.KindConfiguration,
			strings.Join(missing, ", ")+" must be set")
	}
	if c.Khipu.AuthMode != AuthModeAPIKey && c.Khipu.AuthMode != AuthModeHMAC {
		return domain.NewPaymentError(domain.KindConfiguration,
			"KHIPU_AUTH_MODE must be api_key or hmac")
	}
	return nil
}

// getEnv retrieves an environment variable with a fallback default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat retrieves an environment variable as a float with a fallback.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool retrieves an environment variable as a boolean with a fallback.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("15s") or plain milliseconds ("15000").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
