package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"PORT", "LEDGER_DB_PATH", "LOG_LEVEL", "LOG_PRETTY", "ALLOWED_ORIGINS",
		"DISCORD_BOT_TOKEN", "DISCORD_CHANNEL_ID", "REMINDER_SCHEDULE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Unsetenv("REMINDER_SCHEDULE"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "ledger.db", cfg.DatabasePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogPretty)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.False(t, cfg.DiscordEnabled())
	assert.Equal(t, "0 8 * * *", cfg.ReminderSchedule)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LEDGER_DB_PATH", "/tmp/x.db")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:5173, https://ledger.example")
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("DISCORD_CHANNEL_ID", "123")
	t.Setenv("REMINDER_SCHEDULE", "@daily")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/tmp/x.db", cfg.DatabasePath)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, []string{"http://localhost:5173", "https://ledger.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.DiscordEnabled())
	assert.Equal(t, "@daily", cfg.ReminderSchedule)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "eighty")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"eighty"`)

	clearEnv(t)
	t.Setenv("PORT", "70000")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "70000")

	clearEnv(t)
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	_, err = Load()
	assert.Error(t, err)
}

func TestEmptyReminderScheduleDisables(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.ReminderSchedule)
}
