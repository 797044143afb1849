// Package config reads service settings from the environment (optionally
// seeded from a .env file) and keeps user preferences in a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	SelectorsPath        string
	SelectorsWatchPeriod time.Duration

	Cache   CacheConfig
	AI      AIConfig
	Browser BrowserConfig

	RateLimitPerMinute int
	PreferencesPath    string
}

type CacheConfig struct {
	Backend             string
	RedisURL            string
	RedisPrefix         string
	TTL                 time.Duration
	MaxBytes            int64
	EntryMaxBytes       int64
	PrunePercent        float64
	MaintenanceInterval time.Duration
}

type AIConfig struct {
	Provider    string
	OpenAIKey   string
	OpenAIModel string
	GeminiKey   string
	GeminiModel string
	Timeout     time.Duration
}

type BrowserConfig struct {
	Enabled     bool
	ChromePath  string
	RemoteURL   string
	LoadTimeout time.Duration
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment, applying defaults
// for unset variables.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:                 getEnv("PORT", "3000"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "json"),
		SelectorsPath:        getEnv("SELECTORS_PATH", ""),
		SelectorsWatchPeriod: getEnvDuration("SELECTORS_WATCH_INTERVAL", 30*time.Second),
		Cache: CacheConfig{
			Backend:             strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
			RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379/0"),
			RedisPrefix:         getEnv("REDIS_PREFIX", "replykit:"),
			TTL:                 time.Duration(getEnvInt("CACHE_TTL_HOURS", 24)) * time.Hour,
			MaxBytes:            int64(getEnvInt("CACHE_MAX_BYTES", 8<<20)),
			EntryMaxBytes:       int64(getEnvInt("CACHE_ENTRY_MAX_BYTES", 100<<10)),
			PrunePercent:        getEnvFloat("CACHE_PRUNE_PERCENT", 0.2),
			MaintenanceInterval: getEnvDuration("CACHE_MAINTENANCE_INTERVAL", time.Hour),
		},
		AI: AIConfig{
			Provider:    strings.ToLower(getEnv("AI_PROVIDER", "openai")),
			OpenAIKey:   getEnv("OPENAI_API_KEY", ""),
			OpenAIModel: getEnv("OPENAI_MODEL", ""),
			GeminiKey:   getEnv("GEMINI_API_KEY", os.Getenv("GOOGLE_API_KEY")),
			GeminiModel: getEnv("GEMINI_MODEL", ""),
			Timeout:     time.Duration(getEnvInt("AI_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Browser: BrowserConfig{
			Enabled:     getEnvBool("BROWSER_ENABLED", false),
			ChromePath:  getEnv("CHROME_PATH", ""),
			RemoteURL:   getEnv("CHROME_REMOTE_URL", ""),
			LoadTimeout: time.Duration(getEnvInt("BROWSER_TIMEOUT_SECONDS", 45)) * time.Second,
		},
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 10),
		PreferencesPath:    getEnv("PREFERENCES_PATH", "preferences.yaml"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("CACHE_BACKEND must be memory or redis, got %q", c.Cache.Backend)
	}
	switch c.AI.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("AI_PROVIDER must be openai or gemini, got %q", c.AI.Provider)
	}
	if c.Cache.TTL <= 0 {
		return errors.New("CACHE_TTL_HOURS must be positive")
	}
	if c.Cache.PrunePercent <= 0 || c.Cache.PrunePercent > 1 {
		return fmt.Errorf("CACHE_PRUNE_PERCENT must be in (0, 1], got %v", c.Cache.PrunePercent)
	}
	if c.Cache.EntryMaxBytes <= 0 || c.Cache.MaxBytes < c.Cache.EntryMaxBytes {
		return errors.New("CACHE_MAX_BYTES must be at least CACHE_ENTRY_MAX_BYTES")
	}
	if c.Cache.MaintenanceInterval <= 0 {
		return fmt.Errorf("CACHE_MAINTENANCE_INTERVAL must be positive, got %v", c.Cache.MaintenanceInterval)
	}
	if c.SelectorsWatchPeriod <= 0 {
		return fmt.Errorf("SELECTORS_WATCH_INTERVAL must be positive, got %v", c.SelectorsWatchPeriod)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or bare seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if s, err := strconv.Atoi(value); err == nil {
		return time.Duration(s) * time.Second
	}
	return defaultValue
}
