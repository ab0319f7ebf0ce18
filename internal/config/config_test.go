package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Equal(t, "root:root@tcp(localhost:3306)/ravematch?parseTime=true&charset=utf8mb4&loc=UTC", cfg.DB.DSN)
	assert.Equal(t, "UTC", cfg.Quota.TimeZone)
	assert.Equal(t, 15, cfg.Quota.DefaultDailySwipes)
	assert.Equal(t, 20, cfg.Quota.NewProfileSwipes)
	assert.Equal(t, 9999, cfg.Quota.PremiumDailySwipes)
	assert.Equal(t, 5, cfg.Quota.WeeklySuperlikes)
	assert.Equal(t, 5*time.Minute, cfg.Quota.BoostDuration)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Empty(t, cfg.Auth.JWTSecret)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("MYSQL_DSN", "custom-dsn")
	t.Setenv("QUOTA_TIMEZONE", "Europe/Istanbul")
	t.Setenv("QUOTA_WEEKLY_SUPERLIKES", "7")
	t.Setenv("QUOTA_BOOST_DURATION", "30m")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.test,https://b.test")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "custom-dsn", cfg.DB.DSN)
	assert.Equal(t, "Europe/Istanbul", cfg.Quota.TimeZone)
	assert.Equal(t, 7, cfg.Quota.WeeklySuperlikes)
	assert.Equal(t, 30*time.Minute, cfg.Quota.BoostDuration)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("QUOTA_WEEKLY_SUPERLIKES", "many")
	_, err := Load()
	assert.Error(t, err)

	// New falls back to the defaults
	cfg := New()
	assert.Equal(t, 5, cfg.Quota.WeeklySuperlikes)
}
