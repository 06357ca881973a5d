// Package config handles configuration for javagui-runner.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// RefreshPolicy decides when a session re-reads the component tree on its own.
type RefreshPolicy string

const (
	RefreshAfterAction RefreshPolicy = "after-action" // refresh after every successful action
	RefreshManual      RefreshPolicy = "manual"       // only on RefreshTree and inside assertions
)

// Config represents the workspace configuration (javagui.yaml).
type Config struct {
	// Assertion settings
	Timeout       time.Duration `yaml:"timeout"`       // Default assertion timeout
	PollInterval  time.Duration `yaml:"pollInterval"`  // Sleep between assertion attempts
	RefreshPolicy RefreshPolicy `yaml:"refreshPolicy"` // after-action or manual

	Agent AgentConfig `yaml:"agent"`
	Log   LogConfig   `yaml:"log"`
}

// AgentConfig locates the in-JVM agent.
type AgentConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	ConnectTimeout    time.Duration `yaml:"connectTimeout"`
	RequestTimeout    time.Duration `yaml:"requestTimeout"`
	RetryCount        int           `yaml:"retryCount"`
	ReconnectDelay    time.Duration `yaml:"reconnectDelay"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Format     string `yaml:"format"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Timeout:       10 * time.Second,
		PollInterval:  200 * time.Millisecond,
		RefreshPolicy: RefreshAfterAction,
		Agent: AgentConfig{
			Host:           "127.0.0.1",
			Port:           5678,
			ConnectTimeout: 5 * time.Second,
			RequestTimeout: 30 * time.Second,
			RetryCount:     3,
			ReconnectDelay: 500 * time.Millisecond,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// Load loads configuration from a file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir looks for javagui.yaml or javagui.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{"javagui.yaml", "javagui.yml"} {
		configPath := filepath.Join(dir, name)
		if _, err := os.Stat(configPath); err == nil {
			return Load(configPath)
		}
	}

	// No config file found, return defaults
	return Default(), nil
}

// Resolve loads the configuration the CLI runs with: the given file (or the
// one found in dir), then .env from dir, then JAVAGUI_* environment variables.
func Resolve(path, dir string) (*Config, error) {
	var cfg *Config
	var err error
	if path != "" {
		cfg, err = Load(path)
	} else {
		cfg, err = LoadFromDir(dir)
	}
	if err != nil {
		return nil, err
	}

	if err := LoadDotEnv(dir); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads dir/.env into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from JAVAGUI_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	durations := map[string]*time.Duration{
		"JAVAGUI_TIMEOUT":         &c.Timeout,
		"JAVAGUI_POLL_INTERVAL":   &c.PollInterval,
		"JAVAGUI_CONNECT_TIMEOUT": &c.Agent.ConnectTimeout,
		"JAVAGUI_REQUEST_TIMEOUT": &c.Agent.RequestTimeout,
	}
	for key, dst := range durations {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}

	if v, ok := lookup("JAVAGUI_HOST"); ok && v != "" {
		c.Agent.Host = v
	}
	if v, ok := lookup("JAVAGUI_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("JAVAGUI_PORT: %w", err)
		}
		c.Agent.Port = port
	}
	if v, ok := lookup("JAVAGUI_REFRESH_POLICY"); ok && v != "" {
		c.RefreshPolicy = RefreshPolicy(strings.ToLower(v))
	}
	if v, ok := lookup("JAVAGUI_LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("JAVAGUI_LOG_FILE"); ok && v != "" {
		c.Log.File = v
	}
	return nil
}

// Validate returns a list of problems; an empty list means the config is usable.
func (c *Config) Validate() []string {
	var problems []string
	if c.Timeout < 0 {
		problems = append(problems, "timeout must not be negative")
	}
	if c.PollInterval <= 0 {
		problems = append(problems, "pollInterval must be positive")
	}
	switch c.RefreshPolicy {
	case RefreshAfterAction, RefreshManual:
	default:
		problems = append(problems, fmt.Sprintf("refreshPolicy %q must be %q or %q", c.RefreshPolicy, RefreshAfterAction, RefreshManual))
	}
	if c.Agent.Port < 0 || c.Agent.Port > 65535 {
		problems = append(problems, fmt.Sprintf("agent.port %d out of range", c.Agent.Port))
	}
	if c.Agent.ConnectTimeout < 0 || c.Agent.RequestTimeout < 0 {
		problems = append(problems, "agent timeouts must not be negative")
	}
	if c.Agent.RetryCount < 0 {
		problems = append(problems, "agent.retryCount must not be negative")
	}
	if c.Agent.RequestsPerSecond < 0 {
		problems = append(problems, "agent.requestsPerSecond must not be negative")
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be console or json", c.Log.Format))
	}
	return problems
}

// LogFile returns the configured log file, defaulting to <home>/logs/javagui.log.
func (c *Config) LogFile() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(GetLogsDir(), "javagui.log")
}
