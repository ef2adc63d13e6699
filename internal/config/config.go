// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	PublicURL      string
	ListenAddr     string
	DBPath         string
	SecretKey      []byte // 32-byte AES-256 key for grant encryption

	CacheTTL        time.Duration
	CacheServeStale bool

	TickInterval     time.Duration
	ReminderInterval time.Duration
	WakingStartHour  int
	WakingEndHour    int
	SummaryHour      int
	SummaryMinute    int

	DiscordToken string

	// Test/override endpoints; empty selects production Splitwise.
	APIBaseURL    string
	OAuthAuthURL  string
	OAuthTokenURL string
}

// Load reads configuration from the environment (and a .env file if one is
// present) and returns a validated Config. SPLITGATE_CONSUMER_KEY,
// SPLITGATE_CONSUMER_SECRET, SPLITGATE_PUBLIC_URL, and SPLITGATE_SECRET_KEY
// are required; everything else has a default.
func Load() (*Config, error) {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := &Config{
		ConsumerKey:    os.Getenv("SPLITGATE_CONSUMER_KEY"),
		ConsumerSecret: os.Getenv("SPLITGATE_CONSUMER_SECRET"),
		PublicURL:      os.Getenv("SPLITGATE_PUBLIC_URL"),
		ListenAddr:     envOr("SPLITGATE_LISTEN_ADDR", "127.0.0.1:8080"),
		DBPath:         envOr("SPLITGATE_DB_PATH", "splitgate.db"),
		DiscordToken:   os.Getenv("SPLITGATE_DISCORD_TOKEN"),
		APIBaseURL:     os.Getenv("SPLITGATE_API_BASE_URL"),
		OAuthAuthURL:   os.Getenv("SPLITGATE_OAUTH_AUTH_URL"),
		OAuthTokenURL:  os.Getenv("SPLITGATE_OAUTH_TOKEN_URL"),
	}

	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" {
		return nil, fmt.Errorf("SPLITGATE_CONSUMER_KEY and SPLITGATE_CONSUMER_SECRET are required")
	}
	if cfg.PublicURL == "" {
		return nil, fmt.Errorf("SPLITGATE_PUBLIC_URL is required")
	}

	secretHex := os.Getenv("SPLITGATE_SECRET_KEY")
	if secretHex == "" {
		return nil, fmt.Errorf("SPLITGATE_SECRET_KEY is required")
	}
	key, err := hex.DecodeString(secretHex)
	if err != nil {
		return nil, fmt.Errorf("SPLITGATE_SECRET_KEY is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("SPLITGATE_SECRET_KEY must decode to 32 bytes, got %d", len(key))
	}
	cfg.SecretKey = key

	if cfg.CacheTTL, err = envDuration("SPLITGATE_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.CacheServeStale, err = envBool("SPLITGATE_CACHE_SERVE_STALE", false); err != nil {
		return nil, err
	}
	if cfg.TickInterval, err = envDuration("SPLITGATE_TICK_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.ReminderInterval, err = envDuration("SPLITGATE_REMINDER_INTERVAL", 4*time.Hour); err != nil {
		return nil, err
	}

	if cfg.WakingStartHour, err = envHour("SPLITGATE_WAKING_START_HOUR", 9); err != nil {
		return nil, err
	}
	if cfg.WakingEndHour, err = envHour("SPLITGATE_WAKING_END_HOUR", 21); err != nil {
		return nil, err
	}
	if cfg.WakingStartHour >= cfg.WakingEndHour {
		return nil, fmt.Errorf("waking window start %d must be before end %d",
			cfg.WakingStartHour, cfg.WakingEndHour)
	}

	if cfg.SummaryHour, err = envHour("SPLITGATE_SUMMARY_HOUR", 14); err != nil {
		return nil, err
	}
	if cfg.SummaryMinute, err = envInt("SPLITGATE_SUMMARY_MINUTE", 30, 0, 59); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envOr(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return fallback
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", name, v, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", name, v)
	}
	return parsed, nil
}

func envBool(name string, fallback bool) (bool, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s has invalid boolean %q: %w", name, v, err)
	}
	return parsed, nil
}

func envHour(name string, fallback int) (int, error) {
	return envInt(name, fallback, 0, 23)
}

func envInt(name string, fallback, min, max int) (int, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid integer %q: %w", name, v, err)
	}
	if parsed < min || parsed > max {
		return 0, fmt.Errorf("%s must be between %d and %d, got %d", name, min, max, parsed)
	}
	return parsed, nil
}
