// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all configuration values.
type Config struct {
	// Storage
	PostgresDSN   string
	ClickhouseDSN string
	UseMemory     bool

	// Dedup lock
	RedisAddr     string
	RedisPassword string
	LockTTL       time.Duration

	// HTTP
	HTTPAddr     string
	APIRateLimit float64 // requests per second
	APIRateBurst int

	// Generation
	GenerateInterval time.Duration
	DedupWindow      time.Duration
	PolicyFile       string

	// Detectors
	PriceLookbackDays   int
	PriceThreshold      float64
	TariffThresholdPct  float64
	FreightThresholdPct float64
	FXThresholdPct      float64

	// Store circuit breaker
	BreakerTimeout time.Duration

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables, after loading a .env
// file if one exists. Set variables take precedence over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		ClickhouseDSN: getEnv("CLICKHOUSE_DSN", ""),
		UseMemory:     getEnvBool("USE_MEMORY", false),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		LockTTL:       getEnvDuration("LOCK_TTL", 30*time.Second),

		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		APIRateLimit: getEnvFloat("API_RATE_LIMIT", 20),
		APIRateBurst: getEnvInt("API_RATE_BURST", 40),

		GenerateInterval: getEnvDuration("GENERATE_INTERVAL", time.Hour),
		DedupWindow:      getEnvDuration("DEDUP_WINDOW", 24*time.Hour),
		PolicyFile:       getEnv("POLICY_FILE", ""),

		PriceLookbackDays:   getEnvInt("PRICE_LOOKBACK_DAYS", 30),
		PriceThreshold:      getEnvFloat("PRICE_THRESHOLD", 2.0),
		TariffThresholdPct:  getEnvFloat("TARIFF_THRESHOLD_PCT", 10),
		FreightThresholdPct: getEnvFloat("FREIGHT_THRESHOLD_PCT", 15),
		FXThresholdPct:      getEnvFloat("FX_THRESHOLD_PCT", 2.5),

		BreakerTimeout: getEnvDuration("BREAKER_TIMEOUT", 30*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that required values are set and in range.
func (c *Config) Validate() error {
	if !c.UseMemory && (c.PostgresDSN == "" || c.ClickhouseDSN == "") {
		return errors.New("POSTGRES_DSN and CLICKHOUSE_DSN are required unless USE_MEMORY is set")
	}
	if c.GenerateInterval <= 0 {
		return errors.New("GENERATE_INTERVAL must be positive")
	}
	if c.DedupWindow <= 0 {
		return errors.New("DEDUP_WINDOW must be positive")
	}
	if c.PriceLookbackDays < 1 {
		return errors.New("PRICE_LOOKBACK_DAYS must be at least 1")
	}
	for key, v := range map[string]float64{
		"PRICE_THRESHOLD":       c.PriceThreshold,
		"TARIFF_THRESHOLD_PCT":  c.TariffThresholdPct,
		"FREIGHT_THRESHOLD_PCT": c.FreightThresholdPct,
		"FX_THRESHOLD_PCT":      c.FXThresholdPct,
		"API_RATE_LIMIT":        c.APIRateLimit,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	if c.APIRateBurst < 1 {
		return errors.New("API_RATE_BURST must be at least 1")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// Level returns the parsed log level, defaulting to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// MaskedPostgresDSN returns the Postgres DSN with its password hidden.
func (c *Config) MaskedPostgresDSN() string {
	return maskDSN(c.PostgresDSN)
}

// MaskedClickhouseDSN returns the ClickHouse DSN with its password hidden.
func (c *Config) MaskedClickhouseDSN() string {
	return maskDSN(c.ClickhouseDSN)
}

// MaskedRedisPassword returns the Redis password with most characters hidden.
func (c *Config) MaskedRedisPassword() string {
	return maskSecret(c.RedisPassword)
}

// maskDSN hides the password component of a URL-style DSN.
func maskDSN(dsn string) string {
	if dsn == "" {
		return "(not set)"
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "(invalid)"
	}
	return u.Redacted()
}

// maskSecret hides all but the first and last 4 characters of a secret.
func maskSecret(s string) string {
	if len(s) <= 8 {
		if len(s) == 0 {
			return "(not set)"
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
