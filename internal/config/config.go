package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Store    string // "postgres" or "memory"
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Server   ServerConfig
	Slack    SlackConfig
	Guard    GuardConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// JWTConfig holds JWT authentication settings.
type JWTConfig struct {
	Secret     string //nolint:gosec // G117: JWT signing secret config
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// SlackConfig holds Slack alerting settings.
type SlackConfig struct {
	BotToken     string
	AlertChannel string
}

// GuardConfig tunes the critical-operation pipeline.
type GuardConfig struct {
	MaxLoginAttempts int
	LockoutDuration  time.Duration

	RateLimitMax    int
	RateLimitWindow time.Duration

	// Login attempts get their own, much tighter window.
	LoginRateLimitMax    int
	LoginRateLimitWindow time.Duration

	OperationTimeout time.Duration
	AlertCooldown    time.Duration

	// SensitiveFields extends the audit redaction list beyond the built-in
	// password/token/secret.
	SensitiveFields []string
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("AEGIS_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("AEGIS_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("AEGIS_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	accessTTL, err := getEnvDuration("AEGIS_JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	refreshTTL, err := getEnvDuration("AEGIS_JWT_REFRESH_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("AEGIS_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("AEGIS_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	maxLoginAttempts, err := getEnvInt("AEGIS_MAX_LOGIN_ATTEMPTS", 5)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	lockoutDuration, err := getEnvDuration("AEGIS_LOCKOUT_DURATION", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateLimitMax, err := getEnvInt("AEGIS_RATE_LIMIT_MAX", 60)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateLimitWindow, err := getEnvDuration("AEGIS_RATE_LIMIT_WINDOW", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	loginRateLimitMax, err := getEnvInt("AEGIS_LOGIN_RATE_LIMIT_MAX", 5)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	loginRateLimitWindow, err := getEnvDuration("AEGIS_LOGIN_RATE_LIMIT_WINDOW", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	operationTimeout, err := getEnvDuration("AEGIS_OPERATION_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	alertCooldown, err := getEnvDuration("AEGIS_ALERT_COOLDOWN", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("AEGIS_CORS_ORIGINS", []string{"http://localhost:5173"})
	sensitiveFields := getEnvList("AEGIS_SENSITIVE_FIELDS", nil)

	cfg := &Config{
		Store: getEnv("AEGIS_STORE", "postgres"),
		Database: DatabaseConfig{
			Host:     getEnv("AEGIS_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("AEGIS_DB_USER", "aegis"),
			Password: getEnv("AEGIS_DB_PASSWORD", ""),
			DBName:   getEnv("AEGIS_DB_NAME", "aegis_dev"),
			SSLMode:  getEnv("AEGIS_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("AEGIS_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("AEGIS_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:     getEnv("AEGIS_JWT_SECRET", ""),
			AccessTTL:  accessTTL,
			RefreshTTL: refreshTTL,
		},
		Server: ServerConfig{
			Addr:         getEnv("AEGIS_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
		},
		Slack: SlackConfig{
			BotToken:     getEnv("AEGIS_SLACK_BOT_TOKEN", ""),
			AlertChannel: getEnv("AEGIS_SLACK_ALERT_CHANNEL", ""),
		},
		Guard: GuardConfig{
			MaxLoginAttempts:     maxLoginAttempts,
			LockoutDuration:      lockoutDuration,
			RateLimitMax:         rateLimitMax,
			RateLimitWindow:      rateLimitWindow,
			LoginRateLimitMax:    loginRateLimitMax,
			LoginRateLimitWindow: loginRateLimitWindow,
			OperationTimeout:     operationTimeout,
			AlertCooldown:        alertCooldown,
			SensitiveFields:      sensitiveFields,
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if c.Store != "postgres" && c.Store != "memory" {
		return fmt.Errorf("AEGIS_STORE must be 'postgres' or 'memory', got %q", c.Store)
	}

	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("AEGIS_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("AEGIS_JWT_SECRET must be at least 32 characters")
	}

	if c.Store == "postgres" && c.Database.SSLMode == "disable" {
		log.Warn().Msg("AEGIS_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("AEGIS_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("AEGIS_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("AEGIS_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("AEGIS_JWT_REFRESH_TTL must be positive, got %s", c.JWT.RefreshTTL)
	}
	if c.Guard.MaxLoginAttempts < 1 {
		return fmt.Errorf("AEGIS_MAX_LOGIN_ATTEMPTS must be >= 1, got %d", c.Guard.MaxLoginAttempts)
	}
	if c.Guard.LockoutDuration <= 0 {
		return fmt.Errorf("AEGIS_LOCKOUT_DURATION must be positive, got %s", c.Guard.LockoutDuration)
	}
	if c.Guard.RateLimitMax < 1 {
		return fmt.Errorf("AEGIS_RATE_LIMIT_MAX must be >= 1, got %d", c.Guard.RateLimitMax)
	}
	if c.Guard.RateLimitWindow <= 0 {
		return fmt.Errorf("AEGIS_RATE_LIMIT_WINDOW must be positive, got %s", c.Guard.RateLimitWindow)
	}
	if c.Guard.LoginRateLimitMax < 1 {
		return fmt.Errorf("AEGIS_LOGIN_RATE_LIMIT_MAX must be >= 1, got %d", c.Guard.LoginRateLimitMax)
	}
	if c.Guard.LoginRateLimitWindow <= 0 {
		return fmt.Errorf("AEGIS_LOGIN_RATE_LIMIT_WINDOW must be positive, got %s", c.Guard.LoginRateLimitWindow)
	}
	if c.Guard.OperationTimeout < 0 {
		return fmt.Errorf("AEGIS_OPERATION_TIMEOUT must not be negative, got %s", c.Guard.OperationTimeout)
	}
	if c.Guard.AlertCooldown < 0 {
		return fmt.Errorf("AEGIS_ALERT_COOLDOWN must not be negative, got %s", c.Guard.AlertCooldown)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
