package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Insecure fallback secrets. They keep local development friction-free but
// MUST be overridden in any real deployment; Load refuses to start with them
// outside the development environment.
const (
	fallbackAccessSecret  = "chirpnet-access-secret-change-in-production"
	fallbackRefreshSecret = "chirpnet-refresh-secret-change-in-production"
)

type Config struct {
	DatabaseURL string

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	ServerHost     string
	ServerPort     string
	Environment    string
	AllowedOrigins []string

	BcryptCost int

	RedisURL               string
	RateLimitEnabled       bool
	RateLimitIPAttempts    int
	RateLimitIPWindow      time.Duration
	RateLimitBlockDuration time.Duration

	HousekeepingInterval time.Duration

	RegisterRetryAttempts  int
	RegisterRetryBaseDelay time.Duration

	LogLevel  string
	LogFormat string
}

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrInsecureSecrets    = errors.New("default token secrets are not allowed outside development")
	ErrInvalidTokenTTL    = errors.New("invalid token TTL format")
)

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		AccessTokenSecret:  getEnvOrDefault("JWT_ACCESS_SECRET", fallbackAccessSecret),
		RefreshTokenSecret: getEnvOrDefault("JWT_REFRESH_SECRET", fallbackRefreshSecret),
		ServerHost:         getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
		ServerPort:         getEnvOrDefault("SERVER_PORT", "8080"),
		Environment:        getEnvOrDefault("ENV", "development"),
		BcryptCost:         getEnvOrDefaultInt("BCRYPT_COST", 0),
		RedisURL:           getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		RateLimitEnabled:   getEnvOrDefaultBool("RATE_LIMIT_ENABLED", false),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvOrDefault("LOG_FORMAT", "json"),
	}

	for _, origin := range strings.Split(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}

	usingFallback := cfg.AccessTokenSecret == fallbackAccessSecret || cfg.RefreshTokenSecret == fallbackRefreshSecret
	if usingFallback && cfg.Environment != "development" {
		return nil, ErrInsecureSecrets
	}

	accessTTL, err := parseSeconds(getEnvOrDefault("JWT_ACCESS_TOKEN_TTL", "900"))
	if err != nil {
		return nil, ErrInvalidTokenTTL
	}
	cfg.AccessTokenTTL = accessTTL

	refreshTTL, err := parseSeconds(getEnvOrDefault("JWT_REFRESH_TOKEN_TTL", "604800"))
	if err != nil {
		return nil, ErrInvalidTokenTTL
	}
	cfg.RefreshTokenTTL = refreshTTL

	cfg.RateLimitIPAttempts = getEnvOrDefaultInt("RATE_LIMIT_IP_ATTEMPTS", 5)

	ipWindow, err := parseSeconds(getEnvOrDefault("RATE_LIMIT_IP_WINDOW", "900"))
	if err != nil {
		return nil, ErrInvalidTokenTTL
	}
	cfg.RateLimitIPWindow = ipWindow

	blockDuration, err := parseSeconds(getEnvOrDefault("RATE_LIMIT_BLOCK_DURATION", "1800"))
	if err != nil {
		return nil, ErrInvalidTokenTTL
	}
	cfg.RateLimitBlockDuration = blockDuration

	housekeeping, err := parseSeconds(getEnvOrDefault("HOUSEKEEPING_INTERVAL", "3600"))
	if err != nil {
		return nil, ErrInvalidTokenTTL
	}
	cfg.HousekeepingInterval = housekeeping

	cfg.RegisterRetryAttempts = getEnvOrDefaultInt("REGISTER_RETRY_ATTEMPTS", 5)
	cfg.RegisterRetryBaseDelay = getEnvOrDefaultDuration("REGISTER_RETRY_BASE_DELAY", 100*time.Millisecond)

	return cfg, nil
}

// UsingFallbackSecrets reports whether either signing secret is still the
// built-in development value.
func (c *Config) UsingFallbackSecrets() bool {
	return c.AccessTokenSecret == fallbackAccessSecret || c.RefreshTokenSecret == fallbackRefreshSecret
}

func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%s", c.ServerHost, c.ServerPort)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvOrDefaultDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * time.Second
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return d
	}
	return defaultValue
}

func parseSeconds(value string) (time.Duration, error) {
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}
