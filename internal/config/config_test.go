package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "carebook.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Minute, cfg.SlotLockTTL)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 50, cfg.SweepBatchSize)
	assert.Equal(t, time.Hour, cfg.StaleSweepEvery)
	assert.Equal(t, 30*time.Hour, cfg.StaleAfter)
	assert.Equal(t, 100, cfg.FindSlotsPageSize)
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/carebook")
	t.Setenv("SLOT_LOCK_TTL", "15m")
	t.Setenv("SWEEP_BATCH_SIZE", "200")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.SlotLockTTL)
	assert.Equal(t, 200, cfg.SweepBatchSize)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "carebook.db")
	t.Setenv("SLOT_LOCK_TTL", "soon")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("SLOT_LOCK_TTL", "10m")
	t.Setenv("SWEEP_BATCH_SIZE", "0")
	_, err = Load()
	require.Error(t, err)
}

func TestLoad_ProdValidation(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("DATABASE_URL", "postgres://localhost/carebook")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	t.Setenv("JWT_SECRET", "real-secret")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAYMENT_SECRET_KEY")

	t.Setenv("PAYMENT_SECRET_KEY", "sk-live")
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "whsec")
	t.Setenv("PAYMENT_CALLBACK_URL", "https://api.example/webhooks/payments")
	_, err = Load()
	require.NoError(t, err)
}
