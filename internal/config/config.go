package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Log       LogConfig       `mapstructure:"log"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Invoice   InvoiceConfig   `mapstructure:"invoice"`
	Company   CompanyConfig   `mapstructure:"company"`
}

type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
	SecureCookies  bool   `mapstructure:"secure_cookies"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// OpenAIConfig configures the LLM gateway. An empty APIKey or Model leaves
// the chat running on its keyword fallback.
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RedisConfig is optional; rate limiting is disabled when Addr is empty.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	ChatRate  float64 `mapstructure:"chat_rate"`
	ChatBurst int     `mapstructure:"chat_burst"`
}

// InvoiceConfig.AuthorizedRange overrides the range stored in company settings.
type InvoiceConfig struct {
	AuthorizedRange string `mapstructure:"authorized_range"`
}

// CompanyConfig feeds the invoice PDF header.
type CompanyConfig struct {
	Name    string `mapstructure:"name"`
	RTN     string `mapstructure:"rtn"`
	Address string `mapstructure:"address"`
	Phone   string `mapstructure:"phone"`
	CAI     string `mapstructure:"cai"`
}

// Load reads .env (if present) and the environment into a validated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.OpenAI.BaseURL = strings.TrimRight(cfg.OpenAI.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", "")
	v.SetDefault("server.secure_cookies", false)

	v.SetDefault("auth.token_ttl", time.Hour)

	v.SetDefault("openai.base_url", "https://api.openai.com")
	v.SetDefault("openai.timeout", 25*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("redis.db", 0)
	v.SetDefault("ratelimit.chat_rate", 0.5)
	v.SetDefault("ratelimit.chat_burst", 10)

	v.SetDefault("company.name", "Invagro")
	v.SetDefault("company.address", "Tegucigalpa, Honduras")
}

// bindEnvVars binds every key to its environment variable. Binding makes the
// keys visible to Unmarshal even when no default is set.
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.allowed_origins", "ALLOWED_ORIGINS")
	_ = v.BindEnv("server.secure_cookies", "SECURE_COOKIES")
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("auth.token_ttl", "JWT_TTL")
	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	_ = v.BindEnv("openai.model", "OPENAI_MODEL")
	_ = v.BindEnv("openai.timeout", "OPENAI_TIMEOUT")
	_ = v.BindEnv("log.level", "LOG_LEVEL")
	_ = v.BindEnv("log.format", "LOG_FORMAT")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("ratelimit.chat_rate", "CHAT_RATE")
	_ = v.BindEnv("ratelimit.chat_burst", "CHAT_BURST")
	_ = v.BindEnv("invoice.authorized_range", "INVOICE_AUTHORIZED_RANGE")
	_ = v.BindEnv("company.name", "COMPANY_NAME")
	_ = v.BindEnv("company.rtn", "COMPANY_RTN")
	_ = v.BindEnv("company.address", "COMPANY_ADDRESS")
	_ = v.BindEnv("company.phone", "COMPANY_PHONE")
	_ = v.BindEnv("company.cai", "COMPANY_CAI")
}

// Validate checks the settings every binary needs. The JWT secret is checked
// by the server alone, see RequireServer.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required (DATABASE_URL)")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.OpenAI.Timeout <= 0 {
		return fmt.Errorf("openai.timeout must be positive")
	}
	if c.RateLimit.ChatRate < 0 || c.RateLimit.ChatBurst < 0 {
		return fmt.Errorf("ratelimit values must not be negative")
	}
	return nil
}

// RequireServer adds the checks specific to the HTTP server.
func (c *Config) RequireServer() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (JWT_SECRET)")
	}
	return nil
}

// LLMEnabled reports whether both credentials needed for the model are present.
func (c *Config) LLMEnabled() bool {
	return c.OpenAI.APIKey != "" && c.OpenAI.Model != ""
}
