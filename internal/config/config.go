package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Config struct {
	BackendURL          string
	HTTPPort            string
	LogLevel            string
	LogFormat           string
	BackendTimeout      time.Duration
	ScreenIdleTTL       time.Duration
	ScreenEvictInterval time.Duration
	RateLimitPerMinute  int
}

var AppConfig Config

// Load reads the environment (and a .env file when one exists) without
// validating it, so callers can apply overrides first.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, relying on environment variables")
	}

	return Config{
		BackendURL:          strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8000"), "/"),
		HTTPPort:            getEnv("HTTP_PORT", "5173"),
		LogLevel:            getEnv("LOG_LEVEL", "INFO"),
		LogFormat:           getEnv("LOG_FORMAT", "console"),
		BackendTimeout:      getEnvAsDuration("BACKEND_TIMEOUT", 0),
		ScreenIdleTTL:       getEnvAsDuration("SCREEN_IDLE_TTL", 30*time.Minute),
		ScreenEvictInterval: getEnvAsDuration("SCREEN_EVICT_INTERVAL", time.Minute),
		RateLimitPerMinute:  getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
	}
}

// LoadConfig reads and validates the environment into AppConfig.
func LoadConfig() error {
	AppConfig = Load()
	return AppConfig.Validate()
}

func (c Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil {
		return errors.Wrap(err, "invalid BACKEND_URL")
	}
	if !u.IsAbs() || u.Host == "" {
		return errors.Errorf("BACKEND_URL must be an absolute URL, got %q", c.BackendURL)
	}
	if _, err := strconv.Atoi(c.HTTPPort); err != nil {
		return errors.Errorf("HTTP_PORT must be numeric, got %q", c.HTTPPort)
	}
	if c.RateLimitPerMinute < 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE cannot be negative")
	}
	return nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
