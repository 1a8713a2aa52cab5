// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings for the canary service.
type Config struct {
	DBPath     string
	BaseURL    string
	CanaryPort int
	APIPort    int

	TokenTTL         time.Duration
	BodyPreviewBytes int

	RateLimitMax    int
	RateLimitWindow time.Duration

	// TrustProxy makes the recorder prefer the first X-Forwarded-For entry
	// over the transport peer address. Only safe behind a controlled proxy.
	TrustProxy bool

	EnrichTimeout time.Duration
	EnrichAsync   bool

	AlertQueueSize int
	WebhookURL     string
	EmailTo        string
	EmailFrom      string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPass       string
}

// LoadDotenv reads a .env file from the working directory into the process
// environment. A missing file is not an error.
func LoadDotenv() {
	_ = godotenv.Load()
}

// FromEnv builds a Config from CANARYD_* environment variables, applying
// defaults for anything unset.
func FromEnv() *Config {
	return &Config{
		DBPath:     getEnv("CANARYD_DB", "canaryd.db"),
		BaseURL:    getEnv("CANARYD_BASE_URL", "http://localhost:8080"),
		CanaryPort: getEnvInt("CANARYD_CANARY_PORT", 8080),
		APIPort:    getEnvInt("CANARYD_API_PORT", 8081),

		TokenTTL:         getEnvSeconds("CANARYD_TOKEN_TTL_SECONDS", 7*24*time.Hour),
		BodyPreviewBytes: getEnvInt("CANARYD_BODY_PREVIEW_BYTES", 2048),

		RateLimitMax:    getEnvInt("CANARYD_RATE_LIMIT_MAX", 20),
		RateLimitWindow: getEnvSeconds("CANARYD_RATE_LIMIT_WINDOW_SECONDS", time.Minute),

		TrustProxy: getEnvBool("CANARYD_TRUST_PROXY", false),

		EnrichTimeout: getEnvSeconds("CANARYD_ENRICH_TIMEOUT_SECONDS", 2*time.Second),
		EnrichAsync:   getEnvBool("CANARYD_ENRICH_ASYNC", false),

		AlertQueueSize: getEnvInt("CANARYD_ALERT_QUEUE_SIZE", 64),
		WebhookURL:     os.Getenv("CANARYD_ALERT_WEBHOOK"),
		EmailTo:        os.Getenv("CANARYD_ALERT_EMAIL"),
		EmailFrom:      os.Getenv("CANARYD_SMTP_FROM"),
		SMTPHost:       os.Getenv("CANARYD_SMTP_HOST"),
		SMTPPort:       getEnvInt("CANARYD_SMTP_PORT", 25),
		SMTPUser:       os.Getenv("CANARYD_SMTP_USER"),
		SMTPPass:       os.Getenv("CANARYD_SMTP_PASS"),
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvSeconds(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return time.Duration(i) * time.Second
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}
