// Package config loads Specwright settings from a TOML file, SPECWRIGHT_*
// environment variables and built-in defaults, in that order of precedence
// (environment first).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. SPECWRIGHT_LOG_LEVEL.
	EnvPrefix = "SPECWRIGHT"
	// DirName is the directory under $HOME holding config and data.
	DirName = ".specwright"
	// FileName is the config file inside DirName.
	FileName = "config.toml"
)

// ProviderConfig selects a text-generation provider. An empty Provider
// disables it.
type ProviderConfig struct {
	Provider string `toml:"provider" mapstructure:"provider"`
	Model    string `toml:"model" mapstructure:"model"`
	APIKey   string `toml:"api_key" mapstructure:"api_key"`
	BaseURL  string `toml:"base_url" mapstructure:"base_url"`
}

// GenerationConfig configures the language model client.
type GenerationConfig struct {
	Primary        ProviderConfig `toml:"primary" mapstructure:"primary"`
	Fallback       ProviderConfig `toml:"fallback" mapstructure:"fallback"`
	TimeoutSeconds int            `toml:"timeout_seconds" mapstructure:"timeout_seconds"`
	MaxTokens      int            `toml:"max_tokens" mapstructure:"max_tokens"`
}

// RateLimitConfig bounds generation calls in a sliding window. Zero
// disables a limit.
type RateLimitConfig struct {
	WindowSeconds int `toml:"window_seconds" mapstructure:"window_seconds"`
	Global        int `toml:"global" mapstructure:"global"`
	PerSession    int `toml:"per_session" mapstructure:"per_session"`
}

// ConversationConfig tunes stage derivation and history pruning.
type ConversationConfig struct {
	MinMessages   int `toml:"min_messages" mapstructure:"min_messages"`
	HistoryWindow int `toml:"history_window" mapstructure:"history_window"`
	KeepRecent    int `toml:"keep_recent" mapstructure:"keep_recent"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level" mapstructure:"level"`
	File  string `toml:"file" mapstructure:"file"`
}

// Config holds all configuration values.
type Config struct {
	DataDir      string             `toml:"data_dir" mapstructure:"data_dir"`
	DBFile       string             `toml:"db_file" mapstructure:"db_file"`
	Log          LogConfig          `toml:"log" mapstructure:"log"`
	Generation   GenerationConfig   `toml:"generation" mapstructure:"generation"`
	RateLimit    RateLimitConfig    `toml:"rate_limit" mapstructure:"rate_limit"`
	Conversation ConversationConfig `toml:"conversation" mapstructure:"conversation"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir: DefaultDir(),
		DBFile:  "specwright.db",
		Log:     LogConfig{Level: "INFO"},
		Generation: GenerationConfig{
			Primary: ProviderConfig{
				Provider: "ollama",
				Model:    "llama3.1",
				BaseURL:  "http://localhost:11434",
			},
			TimeoutSeconds: 60,
			MaxTokens:      1024,
		},
		RateLimit: RateLimitConfig{WindowSeconds: 60, Global: 60, PerSession: 10},
		Conversation: ConversationConfig{
			MinMessages:   10,
			HistoryWindow: 20,
			KeepRecent:    10,
		},
	}
}

// DefaultDir is ~/.specwright, or .specwright when there is no home.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// DefaultPath is the config file Load reads when none is given.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), FileName)
}

// Load reads configuration. path may be empty for DefaultPath; a missing
// file is not an error.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	if path == "" {
		path = DefaultPath()
	}

	setDefaults(v, Default())
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	applyProviderKeys(&cfg.Generation.Primary)
	applyProviderKeys(&cfg.Generation.Fallback)
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("db_file", d.DBFile)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	for name, p := range map[string]ProviderConfig{"primary": d.Generation.Primary, "fallback": d.Generation.Fallback} {
		v.SetDefault("generation."+name+".provider", p.Provider)
		v.SetDefault("generation."+name+".model", p.Model)
		v.SetDefault("generation."+name+".api_key", p.APIKey)
		v.SetDefault("generation."+name+".base_url", p.BaseURL)
	}
	v.SetDefault("generation.timeout_seconds", d.Generation.TimeoutSeconds)
	v.SetDefault("generation.max_tokens", d.Generation.MaxTokens)
	v.SetDefault("rate_limit.window_seconds", d.RateLimit.WindowSeconds)
	v.SetDefault("rate_limit.global", d.RateLimit.Global)
	v.SetDefault("rate_limit.per_session", d.RateLimit.PerSession)
	v.SetDefault("conversation.min_messages", d.Conversation.MinMessages)
	v.SetDefault("conversation.history_window", d.Conversation.HistoryWindow)
	v.SetDefault("conversation.keep_recent", d.Conversation.KeepRecent)
}

// applyProviderKeys falls back to the vendor's conventional API key
// variable when none is configured.
func applyProviderKeys(p *ProviderConfig) {
	if p.APIKey != "" {
		return
	}
	switch strings.ToLower(p.Provider) {
	case "openai":
		p.APIKey = getEnv("OPENAI_API_KEY", "")
	case "anthropic":
		p.APIKey = getEnv("ANTHROPIC_API_KEY", "")
	}
}

// WriteDefault writes the default configuration to path. An existing file
// is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}
	data, err := toml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Encode renders cfg as TOML with API keys masked.
func Encode(cfg Config) ([]byte, error) {
	cfg.Generation.Primary.APIKey = mask(cfg.Generation.Primary.APIKey)
	cfg.Generation.Fallback.APIKey = mask(cfg.Generation.Fallback.APIKey)
	return toml.Marshal(cfg)
}

func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

// DBPath is the absolute path of the SQLite database.
func (c Config) DBPath() string {
	if filepath.IsAbs(c.DBFile) {
		return c.DBFile
	}
	return filepath.Join(c.DataDir, c.DBFile)
}

// OfflineDir is where offline queues are kept.
func (c Config) OfflineDir() string {
	return filepath.Join(c.DataDir, "offline")
}

// Timeout is the per-call generation timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Generation.TimeoutSeconds) * time.Second
}

// Window is the rate-limit window.
func (c Config) Window() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
