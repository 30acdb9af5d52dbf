package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Recovery RecoveryConfig
	Email    EmailConfig
	Billing  BillingConfig
	Redis    RedisConfig
	Auth     AuthConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string // CIDR ranges allowed to set forwarding headers
}

type RecoveryConfig struct {
	EncryptionKey     string // EMAIL_RECOVERY_ENCRYPTION_KEY; empty means ephemeral key
	AdminAPIKey       string // guards the internal cleanup endpoint
	RequestTTL        time.Duration
	MaxAttempts       int
	MaxPendingPerUser int
	RateLimitWindow   time.Duration
	RateLimitMax      int
	CleanupInterval   time.Duration
}

type EmailConfig struct {
	AWSRegion   string
	FromAddress string
}

type BillingConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type RedisConfig struct {
	Addr     string // empty means use the in-memory rate limiter
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string // verifies admin bearer tokens issued by the identity service
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "relink"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: parseCSVEnv("TRUSTED_PROXIES"),
		},
		Recovery: RecoveryConfig{
			EncryptionKey:     getEnv("EMAIL_RECOVERY_ENCRYPTION_KEY", ""),
			AdminAPIKey:       getEnv("ADMIN_API_KEY", ""),
			RequestTTL:        getEnvAsDuration("EMAIL_RECOVERY_REQUEST_TTL", 72*time.Hour),
			MaxAttempts:       getEnvAsInt("EMAIL_RECOVERY_MAX_ATTEMPTS", 3),
			MaxPendingPerUser: getEnvAsInt("EMAIL_RECOVERY_MAX_PENDING", 3),
			RateLimitWindow:   getEnvAsDuration("EMAIL_RECOVERY_RATE_WINDOW", 24*time.Hour),
			RateLimitMax:      getEnvAsInt("EMAIL_RECOVERY_RATE_MAX", 3),
			CleanupInterval:   getEnvAsDuration("EMAIL_RECOVERY_CLEANUP_INTERVAL", 1*time.Hour),
		},
		Email: EmailConfig{
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "no-reply@relink.dev"),
		},
		Billing: BillingConfig{
			BaseURL: getEnv("BILLING_API_URL", ""),
			APIKey:  getEnv("BILLING_API_KEY", ""),
			Timeout: getEnvAsDuration("BILLING_API_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret: jwtSecret,
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	// An empty encryption key is tolerated but makes stored answers
	// unrecoverable across restarts; the cipher logs a warning at startup.
	if env == "production" && cfg.Recovery.AdminAPIKey == "" {
		return nil, fmt.Errorf("ADMIN_API_KEY is required in production")
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for the admin token secret
func validateJWTSecret(secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires stronger secret (256 bits)
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	// Check against common weak secrets
	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseCSVEnv(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{} // Default to no origins in production
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
