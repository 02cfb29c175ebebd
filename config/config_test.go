package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConfigDefaults(t *testing.T) {
	for _, k := range []string{"DB_DRIVER", "PORT", "JWT_EXPIRES_IN", "STRICT_OVERLAP_GUARD", "REMINDER_CRON"} {
		t.Setenv(k, "")
	}
	cfg, err := buildConfig(lookupFunc(nil))
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiresIn)
	assert.False(t, cfg.StrictOverlapGuard)
	assert.Equal(t, "0 7 * * *", cfg.ReminderCron)
}

func TestBuildConfigPrefersParameters(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STRICT_OVERLAP_GUARD", "TRUE")
	params := map[string]string{"PORT": "9090", "DB_DRIVER": "sqlite"}

	cfg, err := buildConfig(lookupFunc(params))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.True(t, cfg.StrictOverlapGuard)
}

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"90m", 90 * time.Minute},
		{"7d", 7 * 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
	}
	for _, tc := range tests {
		got, err := parseExpiry(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := parseExpiry("soon")
	assert.Error(t, err)
}

func TestBuildConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")
	_, err := buildConfig(lookupFunc(nil))
	assert.Error(t, err)
}

func TestValidateConfigProduction(t *testing.T) {
	cfg := &Config{AppEnv: "production", DBDriver: "mysql", JWTSecret: "0123456789abcdef"}
	assert.Error(t, validateConfig(cfg), "db password is required")

	cfg.DBPassword = "secret"
	assert.NoError(t, validateConfig(cfg))

	cfg.JWTSecret = "short"
	assert.Error(t, validateConfig(cfg))

	assert.NoError(t, validateConfig(&Config{AppEnv: "development"}))
}
