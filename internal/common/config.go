// Package common provides shared utilities for Folio
package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/folio/internal/interfaces"
)

// Config holds all configuration for Folio
type Config struct {
	Environment     string          `toml:"environment"`
	DisplayCurrency string          `toml:"display_currency"` // Default display currency for snapshots (default "USD")
	Server          ServerConfig    `toml:"server"`
	Storage         StorageConfig   `toml:"storage"`
	Clients         ClientsConfig   `toml:"clients"`
	Analytics       AnalyticsConfig `toml:"analytics"`
	Events          EventsConfig    `toml:"events"`
	Logging         LoggingConfig   `toml:"logging"`
	Auth            AuthConfig      `toml:"auth"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds SurrealDB connection settings.
type StorageConfig struct {
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD  EODHDConfig  `toml:"eodhd"`
	Gemini GeminiConfig `toml:"gemini"`
	FX     FXConfig     `toml:"fx"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	RateLimit      int    `toml:"rate_limit"`
	Timeout        string `toml:"timeout"`
	ExchangeSuffix string `toml:"exchange_suffix"` // appended to bare tickers, e.g. "US"
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// FXConfig holds currency-rate settings. Fallback rates are quoted as
// display-currency units per 1 USD and are used when the live lookup fails.
type FXConfig struct {
	CacheTTL  string             `toml:"cache_ttl"`
	Fallbacks map[string]float64 `toml:"fallbacks"`
}

// GetCacheTTL parses and returns the FX cache TTL
func (c *FXConfig) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return time.Hour
	}
	return d
}

// AnalyticsConfig holds snapshot and TWR settings.
type AnalyticsConfig struct {
	ComparisonTickers []string `toml:"comparison_tickers"` // benchmark series returned alongside TWR
	TWRCache          bool     `toml:"twr_cache"`
	AnalysisCacheTTL  string   `toml:"analysis_cache_ttl"`
	QuoteConcurrency  int      `toml:"quote_concurrency"`
}

// GetAnalysisCacheTTL parses and returns the AI analysis cache TTL
func (c *AnalyticsConfig) GetAnalysisCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.AnalysisCacheTTL)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// EventsConfig holds the snapshot event publisher settings. An empty broker
// list disables publishing.
type EventsConfig struct {
	Brokers        []string `toml:"brokers"`
	Topic          string   `toml:"topic"`
	MaxAttempts    int      `toml:"max_attempts"`
	PublishTimeout string   `toml:"publish_timeout"`
}

// GetMaxAttempts returns the write attempts per event, at least 1.
func (c *EventsConfig) GetMaxAttempts() int {
	if c.MaxAttempts < 1 {
		return 1
	}
	return c.MaxAttempts
}

// GetPublishTimeout parses and returns the bound on one publish call
func (c *EventsConfig) GetPublishTimeout() time.Duration {
	d, err := time.ParseDuration(c.PublishTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// AuthConfig holds bearer token configuration.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:     "development",
		DisplayCurrency: "USD",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Address:   "ws://localhost:8000/rpc",
			Namespace: "folio",
			Database:  "folio",
			Username:  "root",
			Password:  "root",
		},
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL:        "https://eodhd.com/api",
				RateLimit:      10,
				Timeout:        "30s",
				ExchangeSuffix: "US",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.5-flash",
			},
			FX: FXConfig{
				CacheTTL: "1h",
				Fallbacks: map[string]float64{
					"SGD": 1.35,
					"EUR": 0.92,
					"GBP": 0.79,
					"CNY": 7.20,
				},
			},
		},
		Analytics: AnalyticsConfig{
			ComparisonTickers: []string{"SPY"},
			TWRCache:          true,
			AnalysisCacheTTL:  "24h",
			QuoteConcurrency:  5,
		},
		Events: EventsConfig{
			Topic:          "folio.snapshots",
			MaxAttempts:    2,
			PublishTimeout: "2s",
		},
		Auth: AuthConfig{
			JWTSecret: "dev-jwt-secret-change-in-production",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Outputs:    []string{"console"},
			FilePath:   "./logs/folio.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// A .env file in the working directory is loaded first; variables already
// set in the process environment take precedence over it.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Missing .env is normal outside development
	_ = godotenv.Load()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	validateDisplayCurrency(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FOLIO_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("FOLIO_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("FOLIO_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("FOLIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if dc := os.Getenv("FOLIO_DISPLAY_CURRENCY"); dc != "" {
		config.DisplayCurrency = strings.ToUpper(dc)
	}

	// Storage overrides
	if v := os.Getenv("FOLIO_STORAGE_ADDRESS"); v != "" {
		config.Storage.Address = v
	}
	if v := os.Getenv("FOLIO_STORAGE_NAMESPACE"); v != "" {
		config.Storage.Namespace = v
	}
	if v := os.Getenv("FOLIO_STORAGE_DATABASE"); v != "" {
		config.Storage.Database = v
	}
	if v := os.Getenv("FOLIO_STORAGE_USERNAME"); v != "" {
		config.Storage.Username = v
	}
	if v := os.Getenv("FOLIO_STORAGE_PASSWORD"); v != "" {
		config.Storage.Password = v
	}

	if v := os.Getenv("FOLIO_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}

	if v := os.Getenv("FOLIO_EVENTS_BROKERS"); v != "" {
		parts := strings.Split(v, ",")
		brokers := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				brokers = append(brokers, p)
			}
		}
		config.Events.Brokers = brokers
	}

	if v := os.Getenv("FOLIO_COMPARISON_TICKERS"); v != "" {
		parts := strings.Split(v, ",")
		tickers := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
				tickers = append(tickers, p)
			}
		}
		config.Analytics.ComparisonTickers = tickers
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from environment, InternalStore, or fallback
func ResolveAPIKey(ctx context.Context, store interfaces.InternalStore, name string, fallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"eodhd_api_key":  {"EODHD_API_KEY", "FOLIO_EODHD_API_KEY"},
		"gemini_api_key": {"GEMINI_API_KEY", "FOLIO_GEMINI_API_KEY", "GOOGLE_API_KEY"},
	}

	// Check environment variables first (highest priority)
	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if store != nil {
		apiKey, err := store.GetSystemKV(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or store", name)
}

// validateDisplayCurrency upper-cases the display currency and defaults it to USD.
func validateDisplayCurrency(config *Config) {
	dc := strings.ToUpper(strings.TrimSpace(config.DisplayCurrency))
	if len(dc) != 3 {
		dc = "USD"
	}
	config.DisplayCurrency = dc
}
