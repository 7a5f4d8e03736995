package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken string
	DatabaseURL   string
	DBMaxConns    int // Connection pool cap, open and idle alike
	PortalBaseURL string

	PollInterval  time.Duration // Delay after a successful reconciliation cycle
	RetryInterval time.Duration // Shorter delay after a cycle with zero successful fetches
	FetchTimeout  time.Duration // Per-student portal fetch deadline
	CycleTimeout  time.Duration // Upper bound on one whole reconciliation cycle

	FetchConcurrency int // Cap on concurrent portal sessions per cycle
	SendConcurrency  int // Cap on concurrent Telegram sends per cycle

	LogLevel    string
	Environment string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.DBMaxConns, err = intEnv("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}

	cfg.PortalBaseURL = strings.TrimRight(os.Getenv("PORTAL_BASE_URL"), "/")
	if cfg.PortalBaseURL == "" {
		cfg.PortalBaseURL = "https://student.rea.ru"
	}

	cfg.PollInterval, err = secondsEnv("POLL_INTERVAL_SECONDS", 1200)
	if err != nil {
		return nil, err
	}
	cfg.RetryInterval, err = secondsEnv("RETRY_INTERVAL_SECONDS", 300)
	if err != nil {
		return nil, err
	}
	cfg.FetchTimeout, err = secondsEnv("FETCH_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	cfg.CycleTimeout, err = secondsEnv("CYCLE_TIMEOUT_SECONDS", 600)
	if err != nil {
		return nil, err
	}

	cfg.FetchConcurrency, err = intEnv("FETCH_CONCURRENCY", 8)
	if err != nil {
		return nil, err
	}
	cfg.SendConcurrency, err = intEnv("SEND_CONCURRENCY", 8)
	if err != nil {
		return nil, err
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	return cfg, nil
}

func secondsEnv(name string, def int) (time.Duration, error) {
	v, err := intEnv(name, def)
	if err != nil {
		return 0, err
	}
	return time.Duration(v) * time.Second, nil
}

func intEnv(name string, def int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive, got %d", name, v)
	}
	return v, nil
}
