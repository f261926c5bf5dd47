package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Env        string
	LogLevel   string
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	OTEL       OTELConfig
	Validation ValidationConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// ValidationConfig holds the order validation engine and sweep settings.
// A non-nil threshold overrides the value from the rules file.
type ValidationConfig struct {
	RulesPath                string
	SimpleMax                *float64
	ComplexMin               *float64
	AutoApproveMinConfidence *float64
	SweepConcurrency         int
	SweepBatchSize           int
	SweepInterval            time.Duration
	StatsCacheTTLSeconds     int
	PublishBreakerFailures   int
	PublishBreakerTimeout    time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Env:      getEnv("APP_ENV", "production"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "optical_lab"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 20),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "order-validation"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Validation: ValidationConfig{
			RulesPath:                getEnv("VALIDATION_RULES_PATH", ""),
			SimpleMax:                getEnvAsOptionalFloat("VALIDATION_SIMPLE_MAX"),
			ComplexMin:               getEnvAsOptionalFloat("VALIDATION_COMPLEX_MIN"),
			AutoApproveMinConfidence: getEnvAsOptionalFloat("VALIDATION_AUTO_APPROVE_MIN_CONFIDENCE"),
			SweepConcurrency:         getEnvAsInt("SWEEP_CONCURRENCY", 8),
			SweepBatchSize:           getEnvAsInt("SWEEP_BATCH_SIZE", 500),
			SweepInterval:            getEnvAsDuration("SWEEP_INTERVAL", 0),
			StatsCacheTTLSeconds:     getEnvAsInt("STATS_CACHE_TTL_SECONDS", 60),
			PublishBreakerFailures:   getEnvAsInt("PUBLISH_BREAKER_MAX_FAILURES", 5),
			PublishBreakerTimeout:    getEnvAsDuration("PUBLISH_BREAKER_TIMEOUT", 30*time.Second),
		},
	}

	if cfg.Validation.SweepConcurrency < 1 {
		return nil, fmt.Errorf("SWEEP_CONCURRENCY must be at least 1, got %d", cfg.Validation.SweepConcurrency)
	}
	if cfg.Validation.SweepBatchSize < 1 {
		return nil, fmt.Errorf("SWEEP_BATCH_SIZE must be at least 1, got %d", cfg.Validation.SweepBatchSize)
	}

	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsOptionalFloat returns nil when key is unset or not a number.
func getEnvAsOptionalFloat(key string) *float64 {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return nil
	}
	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &floatVal
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
