package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ledger")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, 5, cfg.WorkerCount)
	assert.Equal(t, 60, cfg.AutoPostIntervalMinutes)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, "0.01", cfg.PaymentMatchTolerance.String())
	assert.Equal(t, "USD", cfg.DefaultCurrency)
}

func TestLoad_RequiresDatabaseURLForPostgres(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORE", "postgres")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MemoryStore(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORE", "Memory")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("PAYMENT_MATCH_TOLERANCE", "0.05")
	t.Setenv("AUTO_MIGRATE", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "0.05", cfg.PaymentMatchTolerance.String())
}

func TestLoad_RejectsUnknownStore(t *testing.T) {
	t.Setenv("STORE", "redis")

	_, err := Load()
	assert.Error(t, err)
}
