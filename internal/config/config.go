// Package config handles configuration loading for smartreviewer.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm"     yaml:"llm" json:"llm"`
	News    NewsConfig    `mapstructure:"news"    yaml:"news" json:"news"`
	Cache   CacheConfig   `mapstructure:"cache"   yaml:"cache" json:"cache"`
	Store   StoreConfig   `mapstructure:"store"   yaml:"store" json:"store"`
	API     APIConfig     `mapstructure:"api"     yaml:"api" json:"api"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`
}

// LLMConfig holds the completion endpoint settings.
type LLMConfig struct {
	OpenAIKey  string `mapstructure:"openai_key"  yaml:"openai_key" json:"openai_key"`
	BaseURL    string `mapstructure:"base_url"    yaml:"base_url" json:"base_url"` // any OpenAI-compatible endpoint
	Model      string `mapstructure:"model"       yaml:"model" json:"model"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
}

// NewsConfig holds news search provider settings.
type NewsConfig struct {
	Provider   string   `mapstructure:"provider"     yaml:"provider" json:"provider"` // "gnews" or "rss"
	GNewsKey   string   `mapstructure:"gnews_key"    yaml:"gnews_key" json:"gnews_key"`
	BaseURL    string   `mapstructure:"base_url"     yaml:"base_url" json:"base_url"`
	Lang       string   `mapstructure:"lang"         yaml:"lang" json:"lang"`
	Country    string   `mapstructure:"country"      yaml:"country" json:"country"`
	Feeds      []string `mapstructure:"feeds"        yaml:"feeds" json:"feeds"`
	RatePerSec int      `mapstructure:"rate_per_sec" yaml:"rate_per_sec" json:"rate_per_sec"`
}

// CacheConfig holds trending-headline cache settings.
type CacheConfig struct {
	Backend     string `mapstructure:"backend"      yaml:"backend" json:"backend"` // "memory" or "redis"
	RedisAddr   string `mapstructure:"redis_addr"   yaml:"redis_addr" json:"redis_addr"`
	TrendingTTL int    `mapstructure:"trending_ttl" yaml:"trending_ttl" json:"trending_ttl"` // seconds, 0 disables
}

// StoreConfig holds both sides of analyzed-article persistence: the
// base URL the store client talks to, and the SQL backend the serve
// command exposes.
type StoreConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	Driver  string `mapstructure:"driver"   yaml:"driver" json:"driver"` // "sqlite" or "postgres"
	DSN     string `mapstructure:"dsn"      yaml:"dsn" json:"dsn"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host" json:"host"`
	Port        int      `mapstructure:"port"         yaml:"port" json:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level" json:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "text" or "json"
}

// LLMTimeout returns the completion request timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSec) * time.Second
}

// TrendingTTL returns how long trending headlines stay cached.
func (c *Config) TrendingTTL() time.Duration {
	return time.Duration(c.Cache.TrendingTTL) * time.Second
}

// Addr returns the host:port the API server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.smartreviewer/config.yaml (home directory)
//  3. /etc/smartreviewer/config.yaml (system)
//
// Environment variables override config file values.
// Format: SMARTREVIEWER_<SECTION>_<KEY>, e.g., SMARTREVIEWER_LLM_OPENAI_KEY
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".smartreviewer"))
	v.AddConfigPath("/etc/smartreviewer")

	// Config file is optional.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SMARTREVIEWER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enum-like settings.
func (c *Config) Validate() error {
	switch c.News.Provider {
	case "gnews", "rss":
	default:
		return fmt.Errorf("config: unknown news.provider %q", c.News.Provider)
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown cache.backend %q", c.Cache.Backend)
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	return nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-3.5-turbo")
	v.SetDefault("llm.timeout_sec", 60)

	// News defaults
	v.SetDefault("news.provider", "gnews")
	v.SetDefault("news.base_url", "https://gnews.io/api/v4")
	v.SetDefault("news.lang", "en")
	v.SetDefault("news.country", "us")
	v.SetDefault("news.feeds", []string{
		"https://feeds.bbci.co.uk/news/rss.xml",
		"https://rss.nytimes.com/services/xml/rss/nyt/HomePage.xml",
	})
	v.SetDefault("news.rate_per_sec", 1)

	// Cache defaults
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.trending_ttl", 300) // 5 minutes

	// Store defaults
	v.SetDefault("store.base_url", "http://localhost:3001/api")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "smartreviewer.db")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 3001)
	v.SetDefault("api.cors_origins", []string{"http://localhost:5173"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("SMARTREVIEWER_LLM_OPENAI_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	if key := os.Getenv("SMARTREVIEWER_NEWS_GNEWS_KEY"); key != "" {
		cfg.News.GNewsKey = key
	}
	if dsn := os.Getenv("SMARTREVIEWER_STORE_DSN"); dsn != "" {
		cfg.Store.DSN = dsn
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
