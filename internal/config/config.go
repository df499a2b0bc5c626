package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for gmassist
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Context   ContextConfig   `mapstructure:"context"`
	Narration NarrationConfig `mapstructure:"narration"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	AllowOrigins []string      `mapstructure:"allow_origins"`
}

// AdminConfig holds admin authentication configuration
type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// LogConfig holds logging configuration. File is optional; when set,
// JSON logs are also written there with rotation.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Production bool   `mapstructure:"production"`
	File       string `mapstructure:"file"`
}

// StoreConfig selects and configures the script store
type StoreConfig struct {
	Driver         string        `mapstructure:"driver"` // sqlite, mongo
	Path           string        `mapstructure:"path"`
	MongoURI       string        `mapstructure:"mongo_uri"`
	Database       string        `mapstructure:"database"`
	Collection     string        `mapstructure:"collection"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	SeedSample     bool          `mapstructure:"seed_sample"`
}

// LLMConfig holds LLM provider configuration
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// ContextConfig tunes the script lookup that precedes each turn
type ContextConfig struct {
	TriggerTerms []string      `mapstructure:"trigger_terms"`
	MaxRecords   int           `mapstructure:"max_records"`
	ExcerptChars int           `mapstructure:"excerpt_chars"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// NarrationConfig bounds narration block buffering
type NarrationConfig struct {
	MaxBlockBytes int `mapstructure:"max_block_bytes"`
}

// RateLimitConfig holds rate limiting configuration. With RedisURL set the
// counters are shared through Redis instead of kept in process.
type RateLimitConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	RequestsPerHour int    `mapstructure:"requests_per_hour"`
	RedisURL        string `mapstructure:"redis_url"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// GMASSIST_LLM_API_KEY -> llm.api_key
	v.SetEnvPrefix("GMASSIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("admin.api_key", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.production", false)
	v.SetDefault("log.file", "")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "./data/gmassist.db")
	v.SetDefault("store.mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("store.database", "whispershard")
	v.SetDefault("store.collection", "scripts")
	v.SetDefault("store.connect_timeout", 10*time.Second)
	v.SetDefault("store.seed_sample", true)

	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.idle_timeout", 60*time.Second)

	v.SetDefault("context.trigger_terms", []string{"script", "scene"})
	v.SetDefault("context.max_records", 3)
	v.SetDefault("context.excerpt_chars", 300)
	v.SetDefault("context.cache_ttl", 5*time.Minute)

	v.SetDefault("narration.max_block_bytes", 64*1024)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_hour", 100)
	v.SetDefault("rate_limit.redis_url", "")
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "mongo":
	default:
		return fmt.Errorf("unsupported store driver: %q", c.Store.Driver)
	}
	if c.Context.MaxRecords <= 0 {
		return fmt.Errorf("context.max_records must be positive, got %d", c.Context.MaxRecords)
	}
	if c.Context.ExcerptChars <= 0 {
		return fmt.Errorf("context.excerpt_chars must be positive, got %d", c.Context.ExcerptChars)
	}
	if c.LLM.IdleTimeout <= 0 {
		return fmt.Errorf("llm.idle_timeout must be positive, got %s", c.LLM.IdleTimeout)
	}
	return nil
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
