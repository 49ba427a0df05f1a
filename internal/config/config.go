package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultSlotLockTTL       = "10m"
	defaultSweepInterval     = "5m"
	defaultSweepBatchSize    = "50"
	defaultStaleSweepEvery   = "1h"
	defaultStaleAfter        = "30h"
	defaultJWTAccessTTL      = "24h"
	defaultJWTSecret         = "change-me-jwt-secret"
	defaultGatewayBaseURL    = "https://api.payproc.example/v1"
	defaultTeleconfBaseURL   = "https://rooms.example/api"
	defaultHTTPAddr          = ":8080"
	defaultFindSlotsPageSize = "100"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	DatabaseURL string

	JWTSecret    string
	JWTAccessTTL time.Duration

	// Core booking parameters.
	SlotLockTTL       time.Duration // how long a lock holds a slot pending payment
	SweepInterval     time.Duration // expiry sweeper tick
	SweepBatchSize    int           // max pending bookings reclaimed per run
	StaleSweepEvery   time.Duration // stale-appointment task tick
	StaleAfter        time.Duration // confirmed appointments older than this are cancelled
	FindSlotsPageSize int

	// Payment gateway.
	GatewaySecretKey     string
	GatewayWebhookSecret string
	GatewayBaseURL       string
	GatewayCallbackURL   string
	GatewayReturnURL     string

	// Teleconference provisioning.
	TeleconfBaseURL string
	TeleconfAPIKey  string
}

func Load() (*Config, error) {
	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = getEnv("HTTP_ADDR", defaultHTTPAddr)
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))

	var err error
	if cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", defaultJWTAccessTTL); err != nil {
		return nil, err
	}
	if cfg.SlotLockTTL, err = parseDurationEnv("SLOT_LOCK_TTL", defaultSlotLockTTL); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = parseDurationEnv("SWEEP_INTERVAL", defaultSweepInterval); err != nil {
		return nil, err
	}
	if cfg.StaleSweepEvery, err = parseDurationEnv("STALE_SWEEP_EVERY", defaultStaleSweepEvery); err != nil {
		return nil, err
	}
	if cfg.StaleAfter, err = parseDurationEnv("STALE_AFTER", defaultStaleAfter); err != nil {
		return nil, err
	}
	if cfg.SweepBatchSize, err = parseIntEnv("SWEEP_BATCH_SIZE", defaultSweepBatchSize); err != nil {
		return nil, err
	}
	if cfg.FindSlotsPageSize, err = parseIntEnv("FIND_SLOTS_PAGE_SIZE", defaultFindSlotsPageSize); err != nil {
		return nil, err
	}

	cfg.GatewaySecretKey = strings.TrimSpace(os.Getenv("PAYMENT_SECRET_KEY"))
	cfg.GatewayWebhookSecret = strings.TrimSpace(os.Getenv("PAYMENT_WEBHOOK_SECRET"))
	cfg.GatewayBaseURL = getEnv("PAYMENT_BASE_URL", defaultGatewayBaseURL)
	cfg.GatewayCallbackURL = strings.TrimSpace(os.Getenv("PAYMENT_CALLBACK_URL"))
	cfg.GatewayReturnURL = strings.TrimSpace(os.Getenv("PAYMENT_RETURN_URL"))

	cfg.TeleconfBaseURL = getEnv("TELECONF_BASE_URL", defaultTeleconfBaseURL)
	cfg.TeleconfAPIKey = strings.TrimSpace(os.Getenv("TELECONF_API_KEY"))

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.SlotLockTTL <= 0 {
		return fmt.Errorf("SLOT_LOCK_TTL must be > 0")
	}
	if cfg.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be > 0")
	}
	if cfg.SweepBatchSize <= 0 {
		return fmt.Errorf("SWEEP_BATCH_SIZE must be > 0")
	}
	if cfg.StaleSweepEvery <= 0 {
		return fmt.Errorf("STALE_SWEEP_EVERY must be > 0")
	}
	if cfg.StaleAfter <= 0 {
		return fmt.Errorf("STALE_AFTER must be > 0")
	}
	if cfg.FindSlotsPageSize <= 0 {
		return fmt.Errorf("FIND_SLOTS_PAGE_SIZE must be > 0")
	}

	if isProdLike(cfg.AppEnv) {
		if cfg.JWTSecret == "" || cfg.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if cfg.GatewaySecretKey == "" {
			return fmt.Errorf("in prod/release PAYMENT_SECRET_KEY must be set")
		}
		if cfg.GatewayWebhookSecret == "" {
			return fmt.Errorf("in prod/release PAYMENT_WEBHOOK_SECRET must be set")
		}
		if cfg.GatewayCallbackURL == "" {
			return fmt.Errorf("in prod/release PAYMENT_CALLBACK_URL must be set")
		}
	}
	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
