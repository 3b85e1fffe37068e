package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/charliek/respawn/internal/constants"
	"github.com/charliek/respawn/internal/domain"
)

// Config represents the respawn configuration file
type Config struct {
	Target          string            `yaml:"target"`
	Args            []string          `yaml:"args"`
	Dir             string            `yaml:"dir"`
	RestartDelay    string            `yaml:"restart_delay"`
	ShutdownTimeout string            `yaml:"shutdown_timeout"`
	LogFile         string            `yaml:"log_file"`
	EnvFile         string            `yaml:"env_file"`
	Env             map[string]string `yaml:"env"`
	API             APIConfig         `yaml:"api"`

	// path is where the config was loaded from; relative env files resolve against it
	path string
}

// APIConfig defines the optional status API. An empty address disables it.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	return &Config{
		RestartDelay:    constants.DefaultRestartDelay.String(),
		ShutdownTimeout: constants.DefaultShutdownTimeout.String(),
		LogFile:         constants.DefaultLogFile,
	}
}

// Load reads and parses a configuration file
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("checking config file: %w", err)
	}

	if err := CheckFilePermissions(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.path = path
	return cfg, nil
}

// Parse parses configuration from YAML bytes on top of the defaults.
// The result is not validated: flags may still supply the target.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	// Explicit empty values fall back to defaults
	def := Default()
	if cfg.RestartDelay == "" {
		cfg.RestartDelay = def.RestartDelay
	}
	if cfg.ShutdownTimeout == "" {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	if cfg.LogFile == "" {
		cfg.LogFile = def.LogFile
	}

	return cfg, nil
}

// Path returns the file the configuration was loaded from, if any
func (c *Config) Path() string {
	return c.path
}

// BaseDir is the directory relative paths in the config resolve against
func (c *Config) BaseDir() string {
	if c.path == "" {
		return ""
	}
	return filepath.Dir(c.path)
}

// RestartDelayDuration returns the parsed restart delay
func (c *Config) RestartDelayDuration() (time.Duration, error) {
	return parseDuration("restart_delay", c.RestartDelay)
}

// ShutdownTimeoutDuration returns the parsed shutdown timeout
func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	return parseDuration("shutdown_timeout", c.ShutdownTimeout)
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, &ValidationError{Field: field, Message: fmt.Sprintf("invalid duration %q", value)}
	}
	return d, nil
}

// ToDomainProcess builds the child process definition, loading the env file
func (c *Config) ToDomainProcess() (domain.ProcessConfig, error) {
	env, err := LoadProcessEnv(c.EnvFile, c.Env, c.BaseDir())
	if err != nil {
		return domain.ProcessConfig{}, err
	}

	return domain.ProcessConfig{
		Target: c.Target,
		Args:   c.Args,
		Env:    env,
		Dir:    c.Dir,
	}, nil
}
