package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const devJWTSecret = "dev-only-insecure-secret"

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Token issuance
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int

	CORSAllowedOrigins []string
	AuthRateLimitRPS   float64
	AuthRateLimitBurst int

	// Lead duplicate-email rejection ships disabled.
	RejectDuplicateLeadEmail bool
}

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Port:                     getEnv("PORT", "8080"),
		Env:                      getEnv("ENV", "development"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		RedisAddr:                getEnv("REDIS_ADDR", ""),
		RedisPassword:            getEnv("REDIS_PASSWORD", ""),
		RedisTLS:                 getEnvAsBool("REDIS_TLS", false),
		JWTSecret:                getEnv("JWT_SECRET", ""),
		AccessTokenTTL:           getEnvAsDuration("ACCESS_TOKEN_TTL", 60*time.Minute),
		RefreshTokenTTL:          getEnvAsDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		BcryptCost:               getEnvAsInt("BCRYPT_COST", 12),
		CORSAllowedOrigins:       getEnvAsList("CORS_ALLOWED_ORIGINS"),
		AuthRateLimitRPS:         getEnvAsFloat("AUTH_RATE_LIMIT_RPS", 5),
		AuthRateLimitBurst:       getEnvAsInt("AUTH_RATE_LIMIT_BURST", 10),
		RejectDuplicateLeadEmail: getEnvAsBool("REJECT_DUPLICATE_LEAD_EMAIL", false),
	}
	if cfg.JWTSecret == "" && !cfg.IsProduction() {
		cfg.JWTSecret = devJWTSecret
	}
	return cfg
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Validate checks settings the server cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.IsProduction() && c.JWTSecret == devJWTSecret {
		return errors.New("config: JWT_SECRET must be set in production")
	}
	if c.IsProduction() && strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("config: DATABASE_URL is required in production")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("config: token TTLs must be positive")
	}
	return nil
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
