package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "COURSEGEN"

// ConfigFileEnv names the environment variable that points at a YAML config file.
const ConfigFileEnv = EnvPrefix + "_CONFIG_FILE"

const defaultConfigFile = "config.yaml"

// defaults lists every key with its default value. Each key must appear here
// so that viper resolves it from the environment during Unmarshal.
var defaults = map[string]any{
	"server.port":             8080,
	"server.log_level":        "info",
	"server.log_file":         "",
	"server.shutdown_timeout": 15 * time.Second,

	"database.url":            "",
	"database.max_open_conns": 25,
	"database.max_idle_conns": 5,

	"redis.url": "",

	"auth.jwt_secret":     "",
	"auth.token_lifetime": 24 * time.Hour,

	"llm.provider":            "openai",
	"llm.settings_file":       "",
	"llm.requests_per_minute": 0,

	"llm.openai.api_key":          "",
	"llm.openai.model":            "o1-preview",
	"llm.openai.base_url":         "https://api.openai.com",
	"llm.openai.models_cache_ttl": 10 * time.Minute,

	"llm.deepseek.api_key":          "",
	"llm.deepseek.model":            "deepseek-chat",
	"llm.deepseek.base_url":         "https://api.deepseek.com",
	"llm.deepseek.models_cache_ttl": 0,

	"llm.gemini.api_key":          "",
	"llm.gemini.model":            "gemini-2.0-flash",
	"llm.gemini.base_url":         "",
	"llm.gemini.models_cache_ttl": 0,

	"expansion.checkpoint_backend":              "postgres",
	"expansion.checkpoint_dir":                  "checkpoints",
	"expansion.poll_interval":                   time.Second,
	"expansion.max_attempts":                    3,
	"expansion.accept_shorter_on_final_attempt": true,
	"expansion.workers":                         2,
	"expansion.queue_size":                      16,
}

// Load configuration from environment variables and optionally config files.
//
// Sources, lowest precedence first: built-in defaults, the YAML file named
// by COURSEGEN_CONFIG_FILE (or ./config.yaml when present), the JSON settings
// file named by llm.settings_file, then COURSEGEN_* environment variables. A
// .env file in the working directory is loaded into the environment first.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not read .env file", "error", err)
	}

	path := os.Getenv(ConfigFileEnv)
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the config file.
func LoadFile(configPath string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if settings := v.GetString("llm.settings_file"); settings != "" {
		if err := mergeSettings(v, settings); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against its struct tags and the cross-field rules the
// tags cannot express.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if cfg.Expansion.CheckpointBackend == "redis" && cfg.Redis.URL == "" {
		return errors.New("configuration validation failed: redis.url is required for the redis checkpoint backend")
	}
	return nil
}

// mergeSettings overlays the persisted settings file. A missing file is not
// an error: it is created on the first preference write.
func mergeSettings(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("failed to read settings file %s: %w", path, err)
	}
	return nil
}
