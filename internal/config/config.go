package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           int
	DatabasePath   string
	LogLevel       string
	LogPretty      bool
	// Explicit cross-origin clients; empty means same-origin only.
	AllowedOrigins []string

	// The Discord front end is disabled when no token is set.
	DiscordBotToken  string
	DiscordChannelId string

	// Cron spec for the obligation reminder; empty disables it.
	ReminderSchedule string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := getEnvAsInt("PORT", 8080)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:             port,
		DatabasePath:     getEnv("LEDGER_DB_PATH", "ledger.db"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogPretty:        getEnvAsBool("LOG_PRETTY", false),
		AllowedOrigins:   getEnvAsList("ALLOWED_ORIGINS", nil),
		DiscordBotToken:  os.Getenv("DISCORD_BOT_TOKEN"),
		DiscordChannelId: os.Getenv("DISCORD_CHANNEL_ID"),
		ReminderSchedule: "0 8 * * *",
	}
	// Set but empty turns reminders off.
	if v, ok := os.LookupEnv("REMINDER_SCHEDULE"); ok {
		cfg.ReminderSchedule = strings.TrimSpace(v)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database path is not set")
	}
	if c.DiscordBotToken != "" && c.DiscordChannelId == "" {
		return fmt.Errorf("Channel ID is not set")
	}
	return nil
}

// DiscordEnabled reports whether the bot should be started.
func (c *Config) DiscordEnabled() bool {
	return c.DiscordBotToken != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: not a number", key, v)
	}
	return n, nil
}

func getEnvAsBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvAsList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
