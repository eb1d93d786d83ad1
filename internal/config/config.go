package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Upstream clinic API the portal fetches from and acts against.
	ClinicAPIBaseURL    string
	ClinicAPIKey        string
	ClinicAPITimeout    time.Duration
	ClinicAPIMaxRetries int
	ClinicAPIRetryDelay time.Duration

	// Patient session handling.
	SessionJWTSecret string
	SessionTTL       time.Duration

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	CORSAllowedOrigins []string

	// Per-patient request budget. Zero disables rate limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int

	// Timezone used when projecting appointment instants for display.
	DisplayTimezone string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ClinicAPIBaseURL:    getEnv("CLINIC_API_BASE_URL", "http://localhost:8000"),
		ClinicAPIKey:        getEnv("CLINIC_API_KEY", ""),
		ClinicAPITimeout:    getEnvAsDuration("CLINIC_API_TIMEOUT", 10*time.Second),
		ClinicAPIMaxRetries: getEnvAsInt("CLINIC_API_MAX_RETRIES", 2),
		ClinicAPIRetryDelay: getEnvAsDuration("CLINIC_API_RETRY_BASE_DELAY", 250*time.Millisecond),

		SessionJWTSecret: getEnv("SESSION_JWT_SECRET", ""),
		SessionTTL:       getEnvAsDuration("SESSION_TTL", 12*time.Hour),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		DisplayTimezone: getEnv("DISPLAY_TZ", "UTC"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
