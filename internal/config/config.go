// Package config handles configuration loading for energyprice.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api"       yaml:"api"`
	Providers ProvidersConfig `mapstructure:"providers" yaml:"providers"`
	Cache     CacheConfig     `mapstructure:"cache"     yaml:"cache"`
	News      NewsConfig      `mapstructure:"news"      yaml:"news"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// ProvidersConfig holds upstream provider credentials. Both keys are
// optional: a missing key degrades that provider to always-absent, it
// never errors.
type ProvidersConfig struct {
	EIAAPIKey  string `mapstructure:"eia_api_key"  yaml:"eia_api_key"`
	FREDAPIKey string `mapstructure:"fred_api_key" yaml:"fred_api_key"`
}

// CacheConfig holds upstream response cache settings.
type CacheConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds" yaml:"ttl_seconds"`
}

// NewsConfig holds the energy news feed settings.
type NewsConfig struct {
	FeedURL    string `mapstructure:"feed_url"    yaml:"feed_url"`
	TTLSeconds int    `mapstructure:"ttl_seconds" yaml:"ttl_seconds"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.energyprice/config.yaml (home directory)
//  3. /etc/energyprice/config.yaml (system)
//
// Environment variables override config file values.
// Format: ENERGYPRICE_<SECTION>_<KEY>, e.g., ENERGYPRICE_PROVIDERS_EIA_API_KEY
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".energyprice"))
	v.AddConfigPath("/etc/energyprice")

	v.SetEnvPrefix("ENERGYPRICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is fine, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)

	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("ENERGYPRICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Cache defaults
	v.SetDefault("cache.ttl_seconds", 300) // 5 minutes

	// News defaults
	v.SetDefault("news.feed_url", "https://www.eia.gov/rss/todayinenergy.xml")
	v.SetDefault("news.ttl_seconds", 900) // 15 minutes

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// The shorter EIA_API_KEY / FRED_API_KEY forms are accepted too, matching
// what the upstream providers document.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("ENERGYPRICE_PROVIDERS_EIA_API_KEY"); key != "" {
		cfg.Providers.EIAAPIKey = key
	}
	if key := os.Getenv("ENERGYPRICE_PROVIDERS_FRED_API_KEY"); key != "" {
		cfg.Providers.FREDAPIKey = key
	}
	if key := os.Getenv("EIA_API_KEY"); key != "" && cfg.Providers.EIAAPIKey == "" {
		cfg.Providers.EIAAPIKey = key
	}
	if key := os.Getenv("FRED_API_KEY"); key != "" && cfg.Providers.FREDAPIKey == "" {
		cfg.Providers.FREDAPIKey = key
	}
}

// NewLogger builds a logrus logger from the logging configuration.
func NewLogger(cfg LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	return logger
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
