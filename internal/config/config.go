// Package config loads and validates the application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/Veraticus/rivalwatch/internal/common"
)

// EnvPrefix is the prefix for environment variable overrides (RIVALWATCH_LLM_API_KEY, ...).
const EnvPrefix = "RIVALWATCH"

// Config is the complete application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Cache      CacheConfig      `mapstructure:"cache"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Guardrails GuardrailsConfig `mapstructure:"guardrails"`
	Access     AccessConfig     `mapstructure:"access"`
	Memory     MemoryConfig     `mapstructure:"memory"`
	Server     ServerConfig     `mapstructure:"server"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

// DatabaseConfig selects the decision log backend.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	Path   string `mapstructure:"path" validate:"required_if=Driver sqlite"`
	URL    string `mapstructure:"url" validate:"required_if=Driver postgres"`
}

// CacheConfig selects the decision cache backend.
type CacheConfig struct {
	Backend       string        `mapstructure:"backend" validate:"oneof=memory badger redis none"`
	TTL           time.Duration `mapstructure:"ttl" validate:"gt=0"`
	BadgerPath    string        `mapstructure:"badger_path"`
	RedisAddr     string        `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" validate:"gte=0"`
}

// LLMConfig configures the extraction and explanation model.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider" validate:"oneof=gemini openai anthropic"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`
	Temperature float64       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int           `mapstructure:"max_tokens" validate:"gte=0"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RateLimit   int           `mapstructure:"rate_limit" validate:"gte=0"`
}

// GuardrailsConfig tunes the request gates.
type GuardrailsConfig struct {
	RequireBusiness  bool            `mapstructure:"require_business"`
	BlockOnGateError bool            `mapstructure:"block_on_gate_error"`
	RateLimit        RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig sets per-business request limits.
type RateLimitConfig struct {
	Backend   string `mapstructure:"backend" validate:"oneof=memory redis"`
	PerMinute int    `mapstructure:"per_minute" validate:"gt=0"`
	PerHour   int    `mapstructure:"per_hour" validate:"gtefield=PerMinute"`
	PerDay    int    `mapstructure:"per_day" validate:"gtefield=PerHour"`
}

// AccessConfig selects the business access checker.
type AccessConfig struct {
	Mode   string        `mapstructure:"mode" validate:"oneof=allow_all allowlist"`
	Grants []AccessGrant `mapstructure:"grants" validate:"dive"`
}

// AccessGrant lists the users allowed to act for one business.
type AccessGrant struct {
	BusinessID string   `mapstructure:"business_id" validate:"required"`
	Users      []string `mapstructure:"users" validate:"min=1,dive,required"`
}

// MemoryConfig tunes the asynchronous decision log writer.
type MemoryConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Workers      int           `mapstructure:"workers" validate:"gt=0"`
	QueueSize    int           `mapstructure:"queue_size" validate:"gt=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// SetDefaults registers every default value on v. Keys without a default
// are registered empty so environment overrides reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "~/.local/share/rivalwatch/rivalwatch.db")
	v.SetDefault("database.url", "")

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.badger_path", "~/.local/share/rivalwatch/cache")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.rate_limit", 60)

	v.SetDefault("guardrails.require_business", false)
	v.SetDefault("guardrails.block_on_gate_error", true)
	v.SetDefault("guardrails.rate_limit.backend", "memory")
	v.SetDefault("guardrails.rate_limit.per_minute", 10)
	v.SetDefault("guardrails.rate_limit.per_hour", 100)
	v.SetDefault("guardrails.rate_limit.per_day", 500)

	v.SetDefault("access.mode", "allow_all")

	v.SetDefault("memory.enabled", true)
	v.SetDefault("memory.workers", 2)
	v.SetDefault("memory.queue_size", 256)
	v.SetDefault("memory.write_timeout", 5*time.Second)

	v.SetDefault("server.addr", ":8080")
}

// BindEnv makes every key overridable from RIVALWATCH_* environment variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

var validate = validator.New()

// Load applies defaults, unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	cfg.Database.Path = ExpandPath(cfg.Database.Path)
	cfg.Cache.BadgerPath = ExpandPath(cfg.Cache.BadgerPath)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and cross-field requirements.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%w: %s failed %q validation", common.ErrInvalidConfig, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	if c.Access.Mode == "allowlist" && len(c.Access.Grants) == 0 {
		return fmt.Errorf("%w: access.grants is required in allowlist mode", common.ErrInvalidConfig)
	}
	return nil
}

// RequireLLMKey reports a missing API key for commands that call the model.
func (c Config) RequireLLMKey() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("%w: llm.api_key (or %s_LLM_API_KEY)", common.ErrMissingConfig, EnvPrefix)
	}
	return nil
}

// GrantMap returns the allowlist as a business to users map.
func (a AccessConfig) GrantMap() map[string][]string {
	grants := make(map[string][]string, len(a.Grants))
	for _, g := range a.Grants {
		grants[g.BusinessID] = append(grants[g.BusinessID], g.Users...)
	}
	return grants
}

// ExpandPath expands a leading ~ and $VAR references in path.
func ExpandPath(path string) string {
	switch {
	case path == "":
		return path
	case path == "~" || strings.HasPrefix(path, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return os.ExpandEnv(path)
}
