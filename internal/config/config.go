package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"homestay-booking/internal/database"
	"homestay-booking/internal/logger"
	"homestay-booking/internal/notify"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration, read once at startup.
type Config struct {
	Port           int
	DB             database.Config
	MigrationsDir  string
	PricingFile    string
	RedisURL       string
	IdempotencyTTL time.Duration
	PendingTTL     time.Duration
	SMTP           notify.SMTPConfig
	Log            logger.Options
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads .env files (when present) and then the process environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	e := env{get: getenv}

	cfg := Config{
		Port: e.int("PORT", 8080),
		DB: database.Config{
			Host:     e.str("DB_HOST", "localhost"),
			Port:     e.str("DB_PORT", "5432"),
			Username: e.str("DB_USERNAME", "postgres"),
			Password: e.str("DB_PASSWORD", ""),
			Database: e.str("DB_DATABASE", "homestay"),
			Schema:   e.str("DB_SCHEMA", "public"),
		},
		MigrationsDir:  e.str("MIGRATIONS_DIR", "migrations"),
		PricingFile:    e.str("PRICING_FILE", ""),
		RedisURL:       e.str("REDIS_URL", ""),
		IdempotencyTTL: e.duration("IDEMPOTENCY_TTL", 24*time.Hour),
		PendingTTL:     e.duration("IDEMPOTENCY_PENDING_TTL", time.Minute),
		SMTP: notify.SMTPConfig{
			Host:     e.str("SMTP_HOST", ""),
			Port:     e.int("SMTP_PORT", 587),
			Username: e.str("SMTP_USERNAME", ""),
			Password: e.str("SMTP_PASSWORD", ""),
			From:     e.str("FROM_EMAIL", ""),
		},
		Log: logger.Options{
			Level:  e.str("LOG_LEVEL", "info"),
			Format: e.str("LOG_FORMAT", "json"),
			File:   e.str("LOG_FILE", ""),
		},
		RateLimitRPS:   e.float("RATE_LIMIT_RPS", 1),
		RateLimitBurst: e.int("RATE_LIMIT_BURST", 3),
	}
	if e.err != nil {
		return Config{}, e.err
	}
	return cfg, nil
}

// env collects the first parse error so Load can report it once.
type env struct {
	get func(string) string
	err error
}

func (e *env) str(key, def string) string {
	if v := e.get(key); v != "" {
		return v
	}
	return def
}

func (e *env) int(key string, def int) int {
	v := e.get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return n
}

func (e *env) float(key string, def float64) float64 {
	v := e.get(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return f
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := e.get(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return d
}

func (e *env) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}
