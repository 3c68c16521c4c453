package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
	SessionSecret      string
	EncryptionKey      string
	Env                string
	Port               string
	DatabaseURL        string
	RedisURL           string
	LogLevel           string
	LogFormat          string
	SeedDevData        bool

	// Text generation
	AIProvider    string
	AIAPIKey      string
	AIBaseURL     string
	AIModel       string
	AITemperature float64
	AITimeout     time.Duration

	// Usage limits
	DefaultLettersLimit  int
	GenerationRateLimit  int
	GenerationRateWindow time.Duration

	warnings []warning
}

// warning is a problem found while loading, held until a logger is configured.
type warning struct {
	msg  string
	args []any
}

type loader struct {
	warnings []warning
}

func (l *loader) warn(msg string, args ...any) {
	l.warnings = append(l.warnings, warning{msg: msg, args: args})
}

// Load reads configuration from environment variables
func Load() *Config {
	l := &loader{}
	cfg := &Config{
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:  getEnvWithDefault("GOOGLE_CALLBACK_URL", "http://localhost:8080/auth/google/callback"),
		SessionSecret:      os.Getenv("SESSION_SECRET"),
		EncryptionKey:      os.Getenv("ENCRYPTION_KEY"),
		Env:                getEnvWithDefault("ENV", "development"),
		Port:               getEnvWithDefault("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		LogLevel:           getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvWithDefault("LOG_FORMAT", "text"),
		SeedDevData:        l.getEnvBool("SEED_DEV_DATA", false),

		AIProvider:    getEnvWithDefault("AI_PROVIDER", "openai"),
		AIAPIKey:      os.Getenv("AI_API_KEY"),
		AIBaseURL:     os.Getenv("AI_BASE_URL"), // empty selects the provider's public endpoint
		AIModel:       os.Getenv("AI_MODEL"),
		AITemperature: l.getEnvFloat("AI_TEMPERATURE", 0.7),
		AITimeout:     l.getEnvDuration("AI_TIMEOUT", 2*time.Minute),

		DefaultLettersLimit:  l.getEnvInt("DEFAULT_LETTERS_LIMIT", 3),
		GenerationRateLimit:  l.getEnvInt("GENERATION_RATE_LIMIT", 5),
		GenerationRateWindow: l.getEnvDuration("GENERATION_RATE_WINDOW", time.Minute),
	}

	// Warn if using default session secret (insecure for production)
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "dev-secret-change-in-production-use-openssl-rand-hex-32"
		l.warn("Using default SESSION_SECRET. Generate a secure secret with: openssl rand -hex 32")
	}

	// The key is only checked when a generation is attempted.
	if cfg.AIAPIKey == "" && cfg.AIProvider != "stub" {
		l.warn("AI_API_KEY not set; letter generation requests will fail until it is configured")
	}

	cfg.warnings = l.warnings
	return cfg
}

// LogWarnings reports problems found by Load. Call it once the configured
// logger is installed.
func (c *Config) LogWarnings(logger *slog.Logger) {
	for _, w := range c.warnings {
		logger.Warn(w.msg, w.args...)
	}
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (l *loader) getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		l.warn("Invalid integer in environment, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}

func (l *loader) getEnvFloat(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		l.warn("Invalid number in environment, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}

func (l *loader) getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		l.warn("Invalid boolean in environment, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}

func (l *loader) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		l.warn("Invalid duration in environment, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}
