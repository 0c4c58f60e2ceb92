package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	// GitHub configuration
	GitHub GitHubConfig `yaml:"github" mapstructure:"github"`

	// Ownership analysis settings
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`

	// Commit-detail cache settings
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`
}

type GitHubConfig struct {
	Token     string `yaml:"token" mapstructure:"token"`
	RateLimit int    `yaml:"rate_limit" mapstructure:"rate_limit"` // Requests per second
}

type AnalysisConfig struct {
	LookbackDays int `yaml:"lookback_days" mapstructure:"lookback_days"`
	MaxPages     int `yaml:"max_pages" mapstructure:"max_pages"` // Hard cap on commit pages
	PageSize     int `yaml:"page_size" mapstructure:"page_size"`
}

type CacheConfig struct {
	TTL             time.Duration `yaml:"ttl" mapstructure:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		GitHub: GitHubConfig{
			RateLimit: 10, // 10 requests per second
		},
		Analysis: AnalysisConfig{
			LookbackDays: 90,
			MaxPages:     10,
			PageSize:     100,
		},
		Cache: CacheConfig{
			TTL:             1 * time.Hour,
			CleanupInterval: 10 * time.Minute,
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	// Load .env files first (in order of precedence)
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults
	cfg := Default()
	v.SetDefault("github", cfg.GitHub)
	v.SetDefault("analysis", cfg.Analysis)
	v.SetDefault("cache", cfg.Cache)

	// Load from environment variables
	v.SetEnvPrefix("BUGROUTER")
	v.AutomaticEnv()

	// Try to find config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".bugrouter")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".bugrouter"))
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	// Unmarshal into struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local", // Local overrides (highest precedence)
		".env",       // Main environment file
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
}

// applyEnvOverrides applies environment variables that don't fit the
// viper key scheme (GITHUB_TOKEN is the conventional name, not
// BUGROUTER_GITHUB_TOKEN)
func applyEnvOverrides(cfg *Config) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHub.Token = token
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.GitHub.RateLimit <= 0 {
		return fmt.Errorf("github rate_limit must be positive, got %d", c.GitHub.RateLimit)
	}
	if c.Analysis.LookbackDays <= 0 {
		return fmt.Errorf("analysis lookback_days must be positive, got %d", c.Analysis.LookbackDays)
	}
	if c.Analysis.MaxPages <= 0 {
		return fmt.Errorf("analysis max_pages must be positive, got %d", c.Analysis.MaxPages)
	}
	return nil
}
