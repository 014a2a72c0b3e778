package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Store backends
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	Environment string
	LogLevel    string

	// Database
	DatabaseURL string
	Store       string
	AutoMigrate bool

	// Background Workers
	WorkerCount             int
	AutoPostIntervalMinutes int

	// CORS
	AllowedOrigins []string

	// Sentry
	SentryDSN string

	// Engine
	PaymentMatchTolerance decimal.Decimal
	DefaultCurrency       string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                    getEnv("PORT", "8080"),
		Environment:             getEnv("ENVIRONMENT", "development"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		Store:                   strings.ToLower(getEnv("STORE", StorePostgres)),
		AutoMigrate:             getEnvAsBool("AUTO_MIGRATE", true),
		WorkerCount:             getEnvAsInt("WORKER_COUNT", 5),
		AutoPostIntervalMinutes: getEnvAsInt("AUTO_POST_INTERVAL_MINUTES", 60),
		AllowedOrigins:          getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
		SentryDSN:               getEnv("SENTRY_DSN", ""),
		PaymentMatchTolerance:   getEnvAsDecimal("PAYMENT_MATCH_TOLERANCE", decimal.RequireFromString("0.01")),
		DefaultCurrency:         strings.ToUpper(getEnv("DEFAULT_CURRENCY", "USD")),
	}

	// Validate required configuration
	if cfg.Store != StorePostgres && cfg.Store != StoreMemory {
		return nil, fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, cfg.Store)
	}

	if cfg.DatabaseURL == "" && cfg.Store == StorePostgres {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}

	if cfg.PaymentMatchTolerance.IsNegative() {
		return nil, fmt.Errorf("PAYMENT_MATCH_TOLERANCE must not be negative")
	}

	return cfg, nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as integer
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice reads an environment variable as comma-separated slice
func getEnvAsSlice(key string, defaultValue []string) []string {
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
