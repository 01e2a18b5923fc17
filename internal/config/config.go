package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Health   HealthConfig   `mapstructure:"health"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port        string   `mapstructure:"port"`
	Env         string   `mapstructure:"env"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	// Chat requests allowed per user per minute
	ChatRateLimit int `mapstructure:"chat_rate_limit"`
}

// LogConfig selects log level and output format
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig selects how bearer tokens are verified.
// Provider "none" authenticates every request as DevUserID.
type AuthConfig struct {
	Provider        string `mapstructure:"provider"`
	SupabaseURL     string `mapstructure:"supabase_url"`
	SupabaseAnonKey string `mapstructure:"supabase_anon_key"`
	DevUserID       string `mapstructure:"dev_user_id"`
}

// DatabaseConfig holds the sample store connection
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// RedisConfig holds the key-value store connection. An empty Addr uses an in-memory store.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// KafkaConfig holds the event stream. No brokers disables publishing.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// LLMConfig holds the text generation backend
type LLMConfig struct {
	Provider string        `mapstructure:"provider"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// HealthConfig holds aggregation settings
type HealthConfig struct {
	// Timezone whose midnights split days, e.g. "America/Los_Angeles"
	Timezone string `mapstructure:"timezone"`
}

// Location resolves the configured timezone
func (h HealthConfig) Location() (*time.Location, error) {
	if h.Timezone == "" || h.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(h.Timezone)
}

// IsProduction reports whether the server runs in production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Load reads configuration from .env, environment variables and config files
func Load() (*Config, error) {
	// A missing .env file is normal outside local development
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.cors_origins", []string{"http://localhost:8081", "http://localhost:19006"})
	v.SetDefault("server.chat_rate_limit", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("auth.provider", "supabase")
	v.SetDefault("auth.dev_user_id", "dev-user")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:lora.db?_pragma=busy_timeout(5000)")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "lora:")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "lora.health-events")
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("health.timezone", "Local")

	v.SetEnvPrefix("LORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Also accept the non-prefixed names used by hosting platforms and the mobile app's .env
	v.BindEnv("server.port", "LORA_SERVER_PORT", "PORT")
	v.BindEnv("auth.supabase_url", "LORA_AUTH_SUPABASE_URL", "SUPABASE_URL")
	v.BindEnv("auth.supabase_anon_key", "LORA_AUTH_SUPABASE_ANON_KEY", "SUPABASE_ANON_KEY")
	v.BindEnv("database.dsn", "LORA_DATABASE_DSN", "DATABASE_URL")
	v.BindEnv("redis.addr", "LORA_REDIS_ADDR", "REDIS_ADDR")
	v.BindEnv("llm.api_key", "LORA_LLM_API_KEY", "GEMINI_API_KEY")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Comma-separated env values arrive as a single element
	config.Server.CORSOrigins = splitList(config.Server.CORSOrigins)
	config.Kafka.Brokers = splitList(config.Kafka.Brokers)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks that the configuration is consistent
func (c *Config) Validate() error {
	switch c.Auth.Provider {
	case "supabase":
		if c.Auth.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required when auth.provider is supabase")
		}
		if c.Auth.SupabaseAnonKey == "" {
			return fmt.Errorf("SUPABASE_ANON_KEY is required when auth.provider is supabase")
		}
	case "none":
		if c.IsProduction() {
			return fmt.Errorf("auth.provider none is not allowed in production")
		}
		if c.Auth.DevUserID == "" {
			return fmt.Errorf("auth.dev_user_id is required when auth.provider is none")
		}
	default:
		return fmt.Errorf("unknown auth.provider %q", c.Auth.Provider)
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	switch c.LLM.Provider {
	case "gemini", "none":
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}

	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when brokers are set")
	}

	if c.Server.ChatRateLimit < 1 {
		return fmt.Errorf("server.chat_rate_limit must be positive")
	}

	if _, err := c.Health.Location(); err != nil {
		return fmt.Errorf("invalid health.timezone: %w", err)
	}

	return nil
}
