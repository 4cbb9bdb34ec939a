package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.LedgerDriver)
	assert.Equal(t, 10*time.Second, cfg.CollaboratorTimeout)
	assert.False(t, cfg.StrictAvailability)
	assert.Equal(t, 4, cfg.BusRows)
	assert.Equal(t, 4, cfg.BusCols)
	assert.Equal(t, NotifyLog, cfg.NotifyMode)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STRICT_AVAILABILITY", "yes")
	t.Setenv("COLLABORATOR_TIMEOUT", "2500ms")
	t.Setenv("BUS_ROWS", "10")
	t.Setenv("NOTIFY_MODE", "AMQP")
	t.Setenv("RABBITMQ_URL", "amqp://u:p@broker:5672/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.StrictAvailability)
	assert.Equal(t, 2500*time.Millisecond, cfg.CollaboratorTimeout)
	assert.Equal(t, 10, cfg.BusRows)
	assert.Equal(t, NotifyAMQP, cfg.NotifyMode)
	assert.Equal(t, "amqp://u:p@broker:5672/", cfg.AMQPURL)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LEDGER_DRIVER", "postgres")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("LEDGER_DRIVER", "mysql")
	_, err = Load()
	assert.ErrorContains(t, err, "LEDGER_DSN")
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 5*time.Minute, cfg.TTL)
}
