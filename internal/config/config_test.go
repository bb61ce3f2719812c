package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so host settings do not leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BOT_TOKEN", "GROUP_ID", "WEBHOOK_SECRET", "REGISTER_WEBHOOK", "PUBLIC_URL", "HTTP_ADDR",
		"VERIFY_TTL", "TICKET_TTL", "CALL_TIMEOUT", "VERIFY_RATE_LIMIT", "STORE_DRIVER",
		"MIGRATIONS_PATH", "TURNSTILE_SITE_KEY", "TURNSTILE_SECRET",
		"DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "testuser",
			Password: "testpass",
			Name:     "testdb",
		},
	}

	dsn := cfg.DSN()
	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	assert.Equal(t, expected, dsn)
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		contains string
	}{
		{
			name:     "missing bot token",
			env:      map[string]string{"GROUP_ID": "-1001"},
			contains: "BOT_TOKEN",
		},
		{
			name:     "missing group id",
			env:      map[string]string{"BOT_TOKEN": "token"},
			contains: "GROUP_ID",
		},
		{
			name: "postgres without password",
			env: map[string]string{
				"BOT_TOKEN":    "token",
				"GROUP_ID":     "-1001",
				"STORE_DRIVER": "postgres",
			},
			contains: "DB_PASSWORD",
		},
		{
			name: "negative verify ttl",
			env: map[string]string{
				"BOT_TOKEN":  "token",
				"GROUP_ID":   "-1001",
				"VERIFY_TTL": "-1h",
			},
			contains: "VERIFY_TTL",
		},
		{
			name: "unknown driver",
			env: map[string]string{
				"BOT_TOKEN":    "token",
				"GROUP_ID":     "-1001",
				"STORE_DRIVER": "redis",
			},
			contains: "STORE_DRIVER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			assert.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "test_token")
	t.Setenv("GROUP_ID", "-1001234")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "test_token", cfg.BotToken)
	assert.Equal(t, int64(-1001234), cfg.GroupID)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 7*24*time.Hour, cfg.VerifyTTL)
	assert.Equal(t, 10*time.Minute, cfg.TicketTTL)
	assert.Equal(t, 10*time.Second, cfg.CallTimeout)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.False(t, cfg.VerificationEnabled())
}

func TestLoad_Postgres(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "test_token")
	t.Setenv("GROUP_ID", "-1001234")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_HOST", "db")
	t.Setenv("TURNSTILE_SECRET", "ts-secret")
	t.Setenv("VERIFY_TTL", "72h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, 72*time.Hour, cfg.VerifyTTL)
	assert.True(t, cfg.VerificationEnabled())
}

func TestLoad_ZeroVerifyTTL(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "test_token")
	t.Setenv("GROUP_ID", "-1001234")
	t.Setenv("VERIFY_TTL", "0s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.VerifyTTL)
}
