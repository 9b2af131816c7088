package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 6, cfg.PageSize)
	assert.Equal(t, "UAH", cfg.DefaultCurrency)
	assert.Equal(t, 10, cfg.RecentOrdersLimit)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 10000, cfg.MaxSessions)
	assert.True(t, cfg.AdminBotEnabled)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "MySQL")
	t.Setenv("CATALOG_PAGE_SIZE", "12")
	t.Setenv("DEFAULT_CURRENCY", "usd")
	t.Setenv("CHECKOUT_SESSION_TTL", "90s")
	t.Setenv("ADMIN_BOT_ENABLED", "false")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, 12, cfg.PageSize)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, 90*time.Second, cfg.SessionTTL)
	assert.False(t, cfg.AdminBotEnabled)
}

func TestFromEnv_Malformed(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CATALOG_PAGE_SIZE", "six")
	t.Setenv("CHECKOUT_SESSION_TTL", "soon")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CATALOG_PAGE_SIZE")
	assert.Contains(t, err.Error(), "CHECKOUT_SESSION_TTL")
}

func TestFromEnv_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := FromEnv()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestFromEnv_UnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "postgres")

	_, err := FromEnv()
	assert.ErrorContains(t, err, "DB_DRIVER")
}
