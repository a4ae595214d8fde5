package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the persistent application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	UI      UIConfig      `yaml:"ui"`
	Journal JournalConfig `yaml:"journal"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig locates the analysis service
type ServerConfig struct {
	BaseURL           string  `yaml:"base_url"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int     `yaml:"burst"`
}

// Timeout returns the HTTP timeout as a duration.
func (s ServerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// UIConfig holds UI preferences
type UIConfig struct {
	LastEmotionTopK        int  `yaml:"last_emotion_top_k"`
	AccumulatedEmotionTopK int  `yaml:"accumulated_emotion_top_k"`
	AutoLoadOnBlur         bool `yaml:"auto_load_on_blur"` // fetch info when leaving team/member fields
}

// JournalConfig controls the local results journal
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // empty = ~/.stagewatch/journal.db
}

// LoggingConfig controls the file log
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:           "http://127.0.0.1:8000",
			TimeoutSeconds:    60,
			RequestsPerSecond: 5,
			Burst:             3,
		},
		UI: UIConfig{
			LastEmotionTopK:        5,
			AccumulatedEmotionTopK: 10,
			AutoLoadOnBlur:         true,
		},
		Journal: JournalConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Dir returns ~/.stagewatch
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".stagewatch")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// JournalPath returns the configured journal location, or the default.
func (c *Config) JournalPath() string {
	if c.Journal.Path != "" {
		return c.Journal.Path
	}
	return filepath.Join(Dir(), "journal.db")
}

// Load reads config from path (ConfigPath() when empty). A missing file
// yields defaults. Keys absent from the file keep their default values.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()
	cfg.normalize()
	return cfg, nil
}

// Save writes config to path (ConfigPath() when empty).
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides settings from STAGEWATCH_* environment variables.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("STAGEWATCH_SERVER")); v != "" {
		c.Server.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("STAGEWATCH_LOG_LEVEL")); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) normalize() {
	d := DefaultConfig()
	c.Server.BaseURL = strings.TrimRight(strings.TrimSpace(c.Server.BaseURL), "/")
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = d.Server.BaseURL
	}
	if c.Server.TimeoutSeconds <= 0 {
		c.Server.TimeoutSeconds = d.Server.TimeoutSeconds
	}
	if c.Server.RequestsPerSecond < 0 {
		c.Server.RequestsPerSecond = 0
	}
	if c.Server.Burst <= 0 {
		c.Server.Burst = 1
	}
	if c.UI.LastEmotionTopK <= 0 {
		c.UI.LastEmotionTopK = d.UI.LastEmotionTopK
	}
	if c.UI.AccumulatedEmotionTopK <= 0 {
		c.UI.AccumulatedEmotionTopK = d.UI.AccumulatedEmotionTopK
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
}
