package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultBaseURL            = "http://localhost:8080/v1"
	DefaultModel              = "Qwen/Qwen3-0.6B"
	DefaultMaxTokens          = 1000
	DefaultMaxToolTurns       = 20
	DefaultModelContextLength = 32768
	DefaultSessionMaxAgeDays  = 30

	// DefaultContextLength caps the context used when none is requested.
	DefaultContextLength = 16384
)

type Config struct {
	Server             ServerConfig   `mapstructure:"server" yaml:"server"`
	Model              string         `mapstructure:"model" yaml:"model"`
	MaxTokens          int            `mapstructure:"max_tokens" yaml:"max_tokens"`
	MaxToolTurns       int            `mapstructure:"max_tool_turns" yaml:"max_tool_turns"`
	ContextLength      int            `mapstructure:"context_length" yaml:"context_length,omitempty"`
	ModelContextLength int            `mapstructure:"model_context_length" yaml:"model_context_length"`
	MaxKVSize          int            `mapstructure:"max_kv_size" yaml:"max_kv_size,omitempty"`
	Tools              []string       `mapstructure:"tools" yaml:"tools,omitempty"`
	Cache              CacheConfig    `mapstructure:"cache" yaml:"cache"`
	Sessions           SessionsConfig `mapstructure:"sessions" yaml:"sessions"`
	Theme              ThemeConfig    `mapstructure:"theme" yaml:"theme"`
}

// ServerConfig points at an OpenAI-compatible completions server
// (mlx_lm.server, llama.cpp server, vLLM).
type ServerConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key,omitempty"`
}

// CacheConfig controls the server prompt cache and conversation persistence.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	File    string `mapstructure:"file" yaml:"file,omitempty"` // sqlite file for saved conversations
}

// SessionsConfig controls cleanup of saved conversations.
type SessionsConfig struct {
	MaxAgeDays int `mapstructure:"max_age_days" yaml:"max_age_days"` // 0 keeps everything
}

// ThemeConfig allows customization of UI colors
// Colors can be ANSI color numbers (0-255) or hex codes (#RRGGBB)
type ThemeConfig struct {
	Preset  string `mapstructure:"preset" yaml:"preset,omitempty"`   // ansi, gruvbox, dracula, nord
	Label   string `mapstructure:"label" yaml:"label,omitempty"`     // assistant label
	Info    string `mapstructure:"info" yaml:"info,omitempty"`       // banners
	Success string `mapstructure:"success" yaml:"success,omitempty"` // success states
	Error   string `mapstructure:"error" yaml:"error,omitempty"`     // error states
	Warning string `mapstructure:"warning" yaml:"warning,omitempty"` // warnings
	Muted   string `mapstructure:"muted" yaml:"muted,omitempty"`     // dimmed text
	Text    string `mapstructure:"text" yaml:"text,omitempty"`       // primary text
	Spinner string `mapstructure:"spinner" yaml:"spinner,omitempty"` // progress indicator
	Prompt  string `mapstructure:"prompt" yaml:"prompt,omitempty"`   // chat input prompt
}

func Load() (*Config, error) {
	configPath, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}
	return LoadFrom(viper.GetViper(), configPath)
}

// LoadFrom reads config.yaml from dir into v and decodes it.
func LoadFrom(v *viper.Viper, dir string) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	setDefaults(v)

	// Read config file (optional - won't error if missing)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	resolveServer(&cfg.Server)
	cfg.Cache.File = expandPath(expandEnv(cfg.Cache.File))

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.base_url", DefaultBaseURL)
	v.SetDefault("model", DefaultModel)
	v.SetDefault("max_tokens", DefaultMaxTokens)
	v.SetDefault("max_tool_turns", DefaultMaxToolTurns)
	v.SetDefault("model_context_length", DefaultModelContextLength)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("sessions.max_age_days", DefaultSessionMaxAgeDays)
}

// Overrides are command-line values that win over the config file.
// Zero values leave the config untouched.
type Overrides struct {
	Model         string
	MaxTokens     int
	ContextLength int
	MaxKVSize     int
	CacheEnabled  bool
	CacheFile     string
	Tools         []string
}

// ApplyOverrides applies command-line overrides to the config.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Model != "" {
		c.Model = o.Model
	}
	if o.MaxTokens > 0 {
		c.MaxTokens = o.MaxTokens
	}
	if o.ContextLength > 0 {
		c.ContextLength = o.ContextLength
	}
	if o.MaxKVSize > 0 {
		c.MaxKVSize = o.MaxKVSize
	}
	if o.CacheEnabled {
		c.Cache.Enabled = true
	}
	if o.CacheFile != "" {
		c.Cache.File = expandPath(o.CacheFile)
	}
	if len(o.Tools) > 0 {
		c.Tools = o.Tools
	}
}

// resolveServer resolves the server URL and API key
func resolveServer(cfg *ServerConfig) {
	cfg.BaseURL = expandEnv(cfg.BaseURL)
	if env := os.Getenv("BIZARRO_BASE_URL"); env != "" {
		cfg.BaseURL = env
	}
	cfg.APIKey = expandEnv(cfg.APIKey)
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("BIZARRO_API_KEY")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// expandEnv expands ${VAR} or $VAR in a string
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}
	return s
}

// expandPath expands a leading ~ to the home directory.
func expandPath(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// GetConfigDir returns the XDG config directory for bizarro.
// Uses $XDG_CONFIG_HOME if set, otherwise ~/.config
func GetConfigDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, "bizarro"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "bizarro"), nil
}

// GetConfigPath returns the path where the config file should be located
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// GetHistoryPath returns the chat input history file.
func GetHistoryPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".bizarro_chat_history"
	}
	return filepath.Join(homeDir, ".bizarro_chat_history")
}

// Exists returns true if a config file exists
func Exists() bool {
	path, err := GetConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
