package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// Environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Screening
	Screen ScreenConfig

	// Universe discovery
	Universe UniverseConfig

	// Market data provider
	Yahoo YahooConfig

	// Redis (optional, distributed rate limiting)
	Redis RedisConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// ScreenConfig holds the screening thresholds and run parameters.
type ScreenConfig struct {
	RSIMax                float64
	DistanceFromLowMaxPct float64
	VolumeMin             int64
	TopN                  int
	MaxWorkers            int
	LookbackDays          int
	FetchTimeout          time.Duration
	UniverseMaxAge        time.Duration
	RefreshSpec           string // cron spec for serve-mode refresh
	StrategyProfile       string // optional YAML profile path
}

// UniverseConfig holds constituents discovery configuration.
type UniverseConfig struct {
	SourceURL string
}

// YahooConfig holds Yahoo Finance chart API configuration.
type YahooConfig struct {
	BaseURL    string
	RatePerSec float64
	RateBurst  int
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// Load reads configuration from environment variables.
// Only this function calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		Screen: ScreenConfig{
			RSIMax:                getEnvAsFloat("RSI_MAX", 40),
			DistanceFromLowMaxPct: getEnvAsFloat("DISTANCE_FROM_LOW_MAX_PCT", 5),
			VolumeMin:             getEnvAsInt64("VOLUME_MIN", 1_000_000),
			TopN:                  getEnvAsInt("TOP_N", 50),
			MaxWorkers:            getEnvAsInt("MAX_WORKERS", 10),
			LookbackDays:          getEnvAsInt("LOOKBACK_DAYS", 90),
			FetchTimeout:          getEnvAsDuration("FETCH_TIMEOUT", "10s"),
			UniverseMaxAge:        getEnvAsDuration("UNIVERSE_CACHE_MAX_AGE", "1h"),
			RefreshSpec:           getEnv("SCREEN_REFRESH_SPEC", "0 */30 * * * *"),
			StrategyProfile:       getEnv("STRATEGY_PROFILE", ""),
		},

		Universe: UniverseConfig{
			SourceURL: getEnv("UNIVERSE_SOURCE_URL", "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"),
		},

		Yahoo: YahooConfig{
			BaseURL:    getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			RatePerSec: getEnvAsFloat("YAHOO_RATE_PER_SEC", 5),
			RateBurst:  getEnvAsInt("YAHOO_RATE_BURST", 5),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks that configured values are usable
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	s := c.Screen
	if s.RSIMax < 10 || s.RSIMax > 50 {
		return fmt.Errorf("RSI_MAX must be between 10 and 50, got %v", s.RSIMax)
	}
	if s.DistanceFromLowMaxPct < 1 || s.DistanceFromLowMaxPct > 15 {
		return fmt.Errorf("DISTANCE_FROM_LOW_MAX_PCT must be between 1 and 15, got %v", s.DistanceFromLowMaxPct)
	}
	if s.VolumeMin < 100_000 || s.VolumeMin > 10_000_000 {
		return fmt.Errorf("VOLUME_MIN must be between 100000 and 10000000, got %d", s.VolumeMin)
	}
	if s.TopN < 0 {
		return fmt.Errorf("TOP_N must be >= 0 (0 means unrestricted), got %d", s.TopN)
	}
	if s.MaxWorkers < 1 {
		return fmt.Errorf("MAX_WORKERS must be >= 1, got %d", s.MaxWorkers)
	}
	// 30-session low window plus indicator warmup
	if s.LookbackDays < 35 {
		return fmt.Errorf("LOOKBACK_DAYS must be >= 35, got %d", s.LookbackDays)
	}
	if s.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if s.UniverseMaxAge <= 0 {
		return fmt.Errorf("UNIVERSE_CACHE_MAX_AGE must be positive")
	}

	if c.Universe.SourceURL == "" {
		return fmt.Errorf("UNIVERSE_SOURCE_URL is required")
	}
	if c.Yahoo.BaseURL == "" {
		return fmt.Errorf("YAHOO_BASE_URL is required")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
