// Package config provides configuration management for pacekeeper.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pacekeeper/pacekeeper/internal/intervention"
)

const (
	// DefaultPort is the HTTP listen port.
	DefaultPort = 8787
	// DefaultModel is the language-analysis model used by the classifier.
	DefaultModel = "gemini-2.0-flash"
)

// Config is the full service configuration.
type Config struct {
	Port                int                 `yaml:"port"`
	DBPath              string              `yaml:"db_path"`
	MaxConns            int                 `yaml:"max_conns"`
	Model               string              `yaml:"model"`
	ClassifyTimeoutSec  int                 `yaml:"classify_timeout_sec"`
	ConfidenceThreshold float64             `yaml:"confidence_threshold"`
	Intervention        intervention.Policy `yaml:"intervention"`
}

// ClassifyTimeout is the classification call timeout as a duration.
func (c *Config) ClassifyTimeout() time.Duration {
	return time.Duration(c.ClassifyTimeoutSec) * time.Second
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Port:                DefaultPort,
		DBPath:              DBPath(),
		MaxConns:            4,
		Model:               DefaultModel,
		ClassifyTimeoutSec:  6,
		ConfidenceThreshold: 0.4,
		Intervention:        intervention.DefaultPolicy(),
	}
}

// DataDir returns the pacekeeper data directory (~/.pacekeeper).
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".pacekeeper")
}

// DBPath returns the SQLite database path.
func DBPath() string {
	return filepath.Join(DataDir(), "pacekeeper.db")
}

// SettingsPath returns the YAML settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// EnsureDataDir creates the data directory if missing.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0o755)
}

// EnsureSettings writes the default settings file if none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads the settings file, filling unset fields with defaults and
// applying environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.DBPath == "" {
		c.DBPath = d.DBPath
	}
	if c.MaxConns <= 0 {
		c.MaxConns = d.MaxConns
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.ClassifyTimeoutSec <= 0 {
		c.ClassifyTimeoutSec = d.ClassifyTimeoutSec
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = d.ConfidenceThreshold
	}
	if c.Intervention.CooldownMin <= 0 {
		c.Intervention = d.Intervention
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PACEKEEPER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("PACEKEEPER_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("PACEKEEPER_MODEL"); v != "" {
		c.Model = v
	}
}
