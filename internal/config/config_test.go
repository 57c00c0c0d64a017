package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/invagro_test")
	t.Setenv("OPENAI_BASE_URL", "http://llm.local/")
	t.Setenv("OPENAI_TIMEOUT", "10s")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SECURE_COOKIES", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Server.SecureCookies)
	assert.Equal(t, "http://llm.local", cfg.OpenAI.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 10, cfg.RateLimit.ChatBurst)
	assert.Equal(t, "Invagro", cfg.Company.Name)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.url")
}

func TestConfig_Validate(t *testing.T) {
	base := func() Config {
		return Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{URL: "postgres://x"},
			OpenAI:   OpenAIConfig{Timeout: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "port zero", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "port too high", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.OpenAI.Timeout = 0 }, wantErr: true},
		{name: "negative burst", mutate: func(c *Config) { c.RateLimit.ChatBurst = -1 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ServerAndLLMChecks(t *testing.T) {
	c := Config{}
	assert.Error(t, c.RequireServer())
	assert.False(t, c.LLMEnabled())

	c.Auth.JWTSecret = "s3cret"
	c.OpenAI.APIKey = "sk-test"
	assert.NoError(t, c.RequireServer())
	assert.False(t, c.LLMEnabled(), "model is still missing")

	c.OpenAI.Model = "gpt-4o-mini"
	assert.True(t, c.LLMEnabled())
}
