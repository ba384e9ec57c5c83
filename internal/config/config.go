package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	LLM       LLMConfig       `mapstructure:"llm" validate:"required"`
	Expansion ExpansionConfig `mapstructure:"expansion" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// LogFile, when set, also writes logs to a rotating file.
	LogFile         string        `mapstructure:"log_file"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// RedisConfig is required only when expansion.checkpoint_backend is "redis".
type RedisConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// AuthConfig contains API authentication settings. An empty secret
// disables bearer-token checks.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
	// TokenLifetime is the validity of tokens issued by cmd/token-issuer.
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gte=0"`
}

// LLMConfig selects the generation provider and holds per-provider settings.
type LLMConfig struct {
	Provider string `mapstructure:"provider" validate:"required,oneof=openai deepseek gemini mock"`

	// SettingsFile is a JSON file holding persisted model preferences. It is
	// merged over the config file and rewritten when a fallback substitutes
	// the preferred model.
	SettingsFile string `mapstructure:"settings_file"`

	// RequestsPerMinute paces outbound calls. Zero means unlimited.
	RequestsPerMinute int `mapstructure:"requests_per_minute" validate:"gte=0"`

	OpenAI   ProviderConfig `mapstructure:"openai"`
	DeepSeek ProviderConfig `mapstructure:"deepseek"`
	Gemini   ProviderConfig `mapstructure:"gemini"`
}

// ProviderConfig holds credentials and model preference for one provider.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
	// ModelsCacheTTL bounds how long an account's model list is reused.
	ModelsCacheTTL time.Duration `mapstructure:"models_cache_ttl" validate:"gte=0"`
}

// ExpansionConfig configures the expansion job controller and its workers.
type ExpansionConfig struct {
	CheckpointBackend string        `mapstructure:"checkpoint_backend" validate:"required,oneof=postgres redis file"`
	CheckpointDir     string        `mapstructure:"checkpoint_dir" validate:"required_if=CheckpointBackend file"`
	PollInterval      time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	MaxAttempts       int           `mapstructure:"max_attempts" validate:"gte=1,lte=10"`

	AcceptShorterOnFinalAttempt bool `mapstructure:"accept_shorter_on_final_attempt"`

	Workers   int `mapstructure:"workers" validate:"gte=1"`
	QueueSize int `mapstructure:"queue_size" validate:"gte=1"`
}

// APIKey returns the key configured for provider, or "" when the provider
// takes no key or is unknown.
func (c LLMConfig) APIKey(provider string) string {
	if p, ok := c.providerConfig(provider); ok {
		return p.APIKey
	}
	return ""
}

// ProviderSettings returns the settings block for provider.
func (c LLMConfig) ProviderSettings(provider string) ProviderConfig {
	p, _ := c.providerConfig(provider)
	return p
}

func (c LLMConfig) providerConfig(provider string) (ProviderConfig, bool) {
	switch provider {
	case "openai":
		return c.OpenAI, true
	case "deepseek":
		return c.DeepSeek, true
	case "gemini":
		return c.Gemini, true
	default:
		return ProviderConfig{}, false
	}
}
