package config

import (
	"os"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8080", Env: "development", ChatRateLimit: 20},
		Auth:     AuthConfig{Provider: "supabase", SupabaseURL: "https://x.supabase.co", SupabaseAnonKey: "anon"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: ":memory:"},
		LLM:      LLMConfig{Provider: "gemini"},
		Health:   HealthConfig{Timezone: "UTC"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "supabase without url", mutate: func(c *Config) { c.Auth.SupabaseURL = "" }, wantErr: true},
		{name: "dev auth in development", mutate: func(c *Config) { c.Auth = AuthConfig{Provider: "none", DevUserID: "dev"} }},
		{name: "dev auth in production", mutate: func(c *Config) {
			c.Auth = AuthConfig{Provider: "none", DevUserID: "dev"}
			c.Server.Env = "production"
		}, wantErr: true},
		{name: "unknown auth provider", mutate: func(c *Config) { c.Auth.Provider = "firebase" }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "empty dsn", mutate: func(c *Config) { c.Database.DSN = "" }, wantErr: true},
		{name: "unknown llm provider", mutate: func(c *Config) { c.LLM.Provider = "local" }, wantErr: true},
		{name: "brokers without topic", mutate: func(c *Config) { c.Kafka.Brokers = []string{"localhost:9092"} }, wantErr: true},
		{name: "bad timezone", mutate: func(c *Config) { c.Health.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "zero rate limit", mutate: func(c *Config) { c.Server.ChatRateLimit = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("LORA_AUTH_PROVIDER", "none")
	t.Setenv("LORA_DATABASE_DSN", ":memory:")
	t.Setenv("LORA_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("LORA_HEALTH_TIMEZONE", "UTC")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Auth.DevUserID != "dev-user" {
		t.Errorf("DevUserID = %q", cfg.Auth.DevUserID)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("Brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.LLM.Timeout.Seconds() != 30 {
		t.Errorf("LLM timeout = %v", cfg.LLM.Timeout)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList([]string{"a, b", "", " c "})
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("splitList = %v", got)
	}
}
