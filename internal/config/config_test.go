// Package config provides configuration management for pacekeeper.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigSuite is a test suite for configuration loading.
type ConfigSuite struct {
	suite.Suite
}

func (s *ConfigSuite) SetupTest() {
	// Point the data dir at a throwaway home.
	s.T().Setenv("HOME", s.T().TempDir())
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

// TestDefault tests the default configuration values.
func (s *ConfigSuite) TestDefault() {
	cfg := Default()
	s.Equal(DefaultPort, cfg.Port)
	s.Equal(DefaultModel, cfg.Model)
	s.Equal(4, cfg.MaxConns)
	s.Equal(6*time.Second, cfg.ClassifyTimeout())
	s.Equal(0.4, cfg.ConfidenceThreshold)
	s.Equal(10, cfg.Intervention.CooldownMin)
}

// TestLoadMissingFile tests that a missing settings file yields defaults.
func (s *ConfigSuite) TestLoadMissingFile() {
	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal(DefaultPort, cfg.Port)
	s.Equal(DefaultModel, cfg.Model)
}

// TestLoadPartialFile tests unset fields fill with defaults.
func (s *ConfigSuite) TestLoadPartialFile() {
	s.Require().NoError(EnsureDataDir())
	s.Require().NoError(os.WriteFile(SettingsPath(), []byte("port: 9999\nmodel: gemini-2.5-pro\n"), 0o644))

	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal(9999, cfg.Port)
	s.Equal("gemini-2.5-pro", cfg.Model)
	s.Equal(4, cfg.MaxConns)
	s.Equal(10, cfg.Intervention.CooldownMin)
}

// TestLoadInterventionPolicy tests policy thresholds load from YAML.
func (s *ConfigSuite) TestLoadInterventionPolicy() {
	s.Require().NoError(EnsureDataDir())
	content := "intervention:\n  gentle_overtime_min: 3\n  firm_overtime_min: 10\n  mandatory_overtime_min: 20\n  cooldown_min: 5\n"
	s.Require().NoError(os.WriteFile(SettingsPath(), []byte(content), 0o644))

	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal(3, cfg.Intervention.GentleOvertimeMin)
	s.Equal(10, cfg.Intervention.FirmOvertimeMin)
	s.Equal(5, cfg.Intervention.CooldownMin)
	s.Equal(5*time.Minute, cfg.Intervention.CooldownWindow())
}

// TestLoadInvalidFile tests malformed YAML surfaces as an error.
func (s *ConfigSuite) TestLoadInvalidFile() {
	s.Require().NoError(EnsureDataDir())
	s.Require().NoError(os.WriteFile(SettingsPath(), []byte("port: [not a port"), 0o644))

	_, err := Load()
	s.Error(err)
}

// TestEnvOverrides tests environment variables win over the file.
func (s *ConfigSuite) TestEnvOverrides() {
	s.T().Setenv("PACEKEEPER_PORT", "8000")
	s.T().Setenv("PACEKEEPER_DB", "/tmp/custom.db")
	s.T().Setenv("PACEKEEPER_MODEL", "gemini-2.5-flash")

	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal(8000, cfg.Port)
	s.Equal("/tmp/custom.db", cfg.DBPath)
	s.Equal("gemini-2.5-flash", cfg.Model)
}

// TestEnsureSettings tests the default file is written once.
func (s *ConfigSuite) TestEnsureSettings() {
	s.Require().NoError(EnsureDataDir())
	s.Require().NoError(EnsureSettings())

	data, err := os.ReadFile(SettingsPath())
	s.Require().NoError(err)
	s.Contains(string(data), "port:")

	// A second call must not clobber edits.
	s.Require().NoError(os.WriteFile(SettingsPath(), []byte("port: 1234\n"), 0o644))
	s.Require().NoError(EnsureSettings())
	data, err = os.ReadFile(SettingsPath())
	s.Require().NoError(err)
	s.Contains(string(data), "port: 1234")
}

// TestPaths tests path helpers derive from the home directory.
func TestPaths(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	require.Equal(t, filepath.Join(tmp, ".pacekeeper"), DataDir())
	assert.Equal(t, filepath.Join(DataDir(), "pacekeeper.db"), DBPath())
	assert.Equal(t, filepath.Join(DataDir(), "config.yaml"), SettingsPath())
}
