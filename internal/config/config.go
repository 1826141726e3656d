// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Embedded zone database for ANALYTICS_TIMEZONE.

	"github.com/joho/godotenv"
)

// Narrative providers.
const (
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
)

// Config holds the application configuration.
type Config struct {
	TelegramAPIID    int
	TelegramAPIHash  string
	SessionFile      string
	TelegramBotToken string
	AllowedUsers     []int64

	Port         int
	DatabasePath string
	LogLevel     string
	Timezone     string

	NarrativeProvider string
	OpenRouterAPIKey  string
	OpenRouterModel   string
	AnthropicAPIKey   string
	AnthropicModel    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PDFFontPath   string
	RetentionDays int

	loc *time.Location
}

// LoadEnvFiles preloads variables from .env.local and .env when present.
// Variables already set in the environment win.
func LoadEnvFiles() error {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	apiID, err := intEnv("TELEGRAM_API_ID", 0)
	if err != nil {
		return nil, err
	}
	if apiID == 0 {
		return nil, fmt.Errorf("TELEGRAM_API_ID is required")
	}
	apiHash := os.Getenv("TELEGRAM_API_HASH")
	if apiHash == "" {
		return nil, fmt.Errorf("TELEGRAM_API_HASH is required")
	}

	var allowedUsers []int64
	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			allowedUsers = append(allowedUsers, uid)
		}
	}

	port, err := intEnv("PORT", 5050)
	if err != nil {
		return nil, err
	}
	redisDB, err := intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	retention, err := intEnv("RETENTION_DAYS", 30)
	if err != nil {
		return nil, err
	}
	if retention <= 0 {
		return nil, fmt.Errorf("RETENTION_DAYS must be positive, got %d", retention)
	}

	tz := envOrDefault("ANALYTICS_TIMEZONE", "Europe/Moscow")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid ANALYTICS_TIMEZONE %q: %w", tz, err)
	}

	provider := strings.ToLower(envOrDefault("NARRATIVE_PROVIDER", ProviderOpenRouter))
	if provider != ProviderOpenRouter && provider != ProviderAnthropic {
		return nil, fmt.Errorf("unknown NARRATIVE_PROVIDER %q", provider)
	}

	return &Config{
		TelegramAPIID:     apiID,
		TelegramAPIHash:   apiHash,
		SessionFile:       envOrDefault("TELEGRAM_SESSION_FILE", "./data/session.json"),
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		AllowedUsers:      allowedUsers,
		Port:              port,
		DatabasePath:      envOrDefault("DATABASE_PATH", "./data/analytics.db"),
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		Timezone:          tz,
		NarrativeProvider: provider,
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:   envOrDefault("OPENROUTER_MODEL", "deepseek/deepseek-chat-v3-0324:free"),
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:    envOrDefault("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           redisDB,
		PDFFontPath:       os.Getenv("PDF_FONT_PATH"),
		RetentionDays:     retention,
		loc:               loc,
	}, nil
}

// Location returns the time zone reports are rendered in.
func (c *Config) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Retention is how long narratives are kept.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
