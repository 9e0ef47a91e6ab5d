package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridedispatch/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Dispatch.HourlyRate.Equal(decimal.NewFromInt(400)))
	assert.Equal(t, "default", cfg.Dispatch.DefaultTenant)
	assert.Empty(t, cfg.Kafka.Brokers)

	p := cfg.Commission.Default
	assert.True(t, p.DriverPct.Equal(decimal.RequireFromString("0.75")))
	assert.True(t, p.DispatcherPct.Equal(decimal.RequireFromString("0.02")))
	assert.True(t, p.AdminPct.Equal(decimal.RequireFromString("0.20")))
	assert.True(t, p.SuperAdminPct.Equal(decimal.RequireFromString("0.03")))
	assert.Equal(t, domain.RoleDriver, p.Remainder())
}

func TestLoad_AlternateCommissionScheme(t *testing.T) {
	t.Setenv("DRIVER_COMMISSION_PERCENT", "79")
	t.Setenv("DISPATCHER_COMMISSION_PERCENT", "18")
	t.Setenv("ADMIN_COMMISSION_PERCENT", "2")
	t.Setenv("SUPER_ADMIN_COMMISSION_PERCENT", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.Commission.Default.Validate())
}

func TestLoad_RejectsInvalidPolicy(t *testing.T) {
	t.Setenv("DRIVER_COMMISSION_PERCENT", "80")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidPolicy)
}

func TestLoad_JoinsMalformedValues(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	t.Setenv("TRIP_LOCK_TTL", "soon")
	t.Setenv("HOURLY_RATE", "-5")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_DB")
	assert.Contains(t, err.Error(), "TRIP_LOCK_TTL")
	assert.Contains(t, err.Error(), "HOURLY_RATE")
}

func TestGetListEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " a:9092, ,b:9092 ")
	assert.Equal(t, []string{"a:9092", "b:9092"}, getListEnv("KAFKA_BROKERS", nil))
}
