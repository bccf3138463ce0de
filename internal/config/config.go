// Package config loads runtime settings from the environment.
// A .env file in the working directory is honoured when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds every setting the binaries read at startup.
type Config struct {
	DatabaseURL    string
	ServerPort     string
	AllowedOrigins string
	JWTSecret      string
	Env            string

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CacheTTLSeconds int

	// Order suggestion and alert tuning.
	UsageWindowDays     int
	LeadTimeBufferDays  int
	OrderUpToMultiplier decimal.Decimal
	AtRiskFactor        decimal.Decimal
}

// Load reads .env (if any) and then the process environment.
// Missing optional values fall back to defaults; malformed values are an error.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from an arbitrary lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DatabaseURL:    getenv("DATABASE_URL"),
		ServerPort:     stringOr(getenv("SERVER_PORT"), "8080"),
		AllowedOrigins: getenv("ALLOWED_ORIGINS"),
		JWTSecret:      getenv("JWT_SECRET"),
		Env:            stringOr(getenv("APP_ENV"), "development"),
		RedisAddr:      getenv("REDIS_ADDR"),
		RedisPassword:  getenv("REDIS_PASSWORD"),
	}

	var err error
	if cfg.RedisDB, err = intOr(getenv, "REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.CacheTTLSeconds, err = intOr(getenv, "CACHE_TTL_SECONDS", 60); err != nil {
		return nil, err
	}
	if cfg.UsageWindowDays, err = intOr(getenv, "USAGE_WINDOW_DAYS", 30); err != nil {
		return nil, err
	}
	if cfg.UsageWindowDays <= 0 {
		return nil, fmt.Errorf("USAGE_WINDOW_DAYS must be positive, got %d", cfg.UsageWindowDays)
	}
	if cfg.LeadTimeBufferDays, err = intOr(getenv, "LEAD_TIME_BUFFER_DAYS", 3); err != nil {
		return nil, err
	}
	if cfg.LeadTimeBufferDays < 0 {
		return nil, fmt.Errorf("LEAD_TIME_BUFFER_DAYS cannot be negative, got %d", cfg.LeadTimeBufferDays)
	}
	if cfg.OrderUpToMultiplier, err = decimalOr(getenv, "ORDER_UP_TO_MULTIPLIER", "1.5"); err != nil {
		return nil, err
	}
	if cfg.OrderUpToMultiplier.LessThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("ORDER_UP_TO_MULTIPLIER must be at least 1, got %s", cfg.OrderUpToMultiplier)
	}
	if cfg.AtRiskFactor, err = decimalOr(getenv, "AT_RISK_FACTOR", "1.2"); err != nil {
		return nil, err
	}
	if cfg.AtRiskFactor.LessThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("AT_RISK_FACTOR must be at least 1, got %s", cfg.AtRiskFactor)
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intOr(getenv func(string) string, key string, def int) (int, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, raw)
	}
	return n, nil
}

func decimalOr(getenv func(string) string, key, def string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		raw = def
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %q is not a number", key, raw)
	}
	return d, nil
}
