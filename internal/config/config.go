// Package config loads promptctl configuration from file, environment and
// defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. PROMPT_RENDER_FORMAT.
const EnvPrefix = "PROMPT"

// Config is the full configuration tree.
type Config struct {
	Templates TemplatesConfig `mapstructure:"templates" yaml:"templates"`
	Render    RenderConfig    `mapstructure:"render" yaml:"render"`
	History   HistoryConfig   `mapstructure:"history" yaml:"history"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
}

// TemplatesConfig controls template discovery.
type TemplatesConfig struct {
	Paths    []string `mapstructure:"paths" yaml:"paths"`
	Builtins bool     `mapstructure:"builtins" yaml:"builtins"`
}

// RenderConfig holds render defaults.
type RenderConfig struct {
	Format        string `mapstructure:"format" yaml:"format"`
	ListDelimiter string `mapstructure:"list_delimiter" yaml:"list_delimiter"`
}

// HistoryConfig controls the render history database.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	// RateLimits overrides per-route limits, keyed by route name.
	RateLimits map[string]RateLimit `mapstructure:"rate_limits" yaml:"rate_limits,omitempty"`
}

// RateLimit is a per-route token bucket: rate tokens per second, at most
// burst at once.
type RateLimit struct {
	Rate  float64 `mapstructure:"rate" yaml:"rate"`
	Burst int     `mapstructure:"burst" yaml:"burst"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Templates: TemplatesConfig{Builtins: true},
		Render:    RenderConfig{Format: "raw", ListDelimiter: ","},
		History: HistoryConfig{
			Enabled: false,
			Path:    filepath.Join(DataDir(), "history.db"),
		},
		Log:    LogConfig{Level: "warn", Format: "console"},
		Server: ServerConfig{Addr: "127.0.0.1:8484"},
	}
}

// ConfigDir returns the user configuration directory.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "prompt")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".", ".prompt")
	}
	return filepath.Join(home, ".config", "prompt")
}

// DataDir returns the user data directory.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "prompt")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".", ".prompt")
	}
	return filepath.Join(home, ".local", "share", "prompt")
}

// DefaultPath is the config file read when no explicit path is given.
func DefaultPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Load reads configuration from path (or the default location when empty),
// applies PROMPT_* environment overrides and validates the result. A missing
// default file is not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || (!errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist)) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if env := os.Getenv(EnvPrefix + "_TEMPLATES_PATHS"); env != "" {
		cfg.Templates.Paths = filepath.SplitList(env)
	}
	cfg.History.Path = expandHome(cfg.History.Path)
	for i, p := range cfg.Templates.Paths {
		cfg.Templates.Paths[i] = expandHome(p)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("templates.paths", cfg.Templates.Paths)
	v.SetDefault("templates.builtins", cfg.Templates.Builtins)
	v.SetDefault("render.format", cfg.Render.Format)
	v.SetDefault("render.list_delimiter", cfg.Render.ListDelimiter)
	v.SetDefault("history.enabled", cfg.History.Enabled)
	v.SetDefault("history.path", cfg.History.Path)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("server.addr", cfg.Server.Addr)
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log.format %q: expected console or json", c.Log.Format)
	}
	if c.Render.ListDelimiter == "" {
		return fmt.Errorf("render.list_delimiter cannot be empty")
	}
	if c.History.Enabled && strings.TrimSpace(c.History.Path) == "" {
		return fmt.Errorf("history.path is required when history is enabled")
	}
	for route, limit := range c.Server.RateLimits {
		if limit.Rate < 0 || limit.Burst < 0 {
			return fmt.Errorf("server.rate_limits.%s: rate and burst cannot be negative", route)
		}
		if limit.Rate > 0 && limit.Burst < 1 {
			return fmt.Errorf("server.rate_limits.%s: burst must be at least 1", route)
		}
	}
	return nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return filepath.Join(home, path[2:])
}
