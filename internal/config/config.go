// Package config loads and validates the engine's configuration.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config is the engine's top-level configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Backends BackendsConfig `yaml:"backends"`
	Worker   WorkerConfig   `yaml:"worker"`
	Tools    ToolsConfig    `yaml:"tools"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the engine's HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig configures the sqlite store.
type DatabaseConfig struct {
	// Path is the sqlite database file. ":memory:" is accepted for tests.
	Path string `yaml:"path"`
}

// BackendConfig names one LLM backend's base URL.
type BackendConfig struct {
	URL string `yaml:"url"`
}

// BackendsConfig holds the Interactive and Background execution-context
// backend URLs, plus model overrides keyed by task name (each applied to
// that task's specialist).
type BackendsConfig struct {
	Interactive BackendConfig     `yaml:"interactive"`
	Background  BackendConfig     `yaml:"background"`
	Models      map[string]string `yaml:"models"`
	// RequestTimeout bounds a single LLM invocation. Default 120s.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// WorkerConfig configures the background job poller.
type WorkerConfig struct {
	// PollInterval is how often the worker checks for pending jobs when
	// idle. Default 2s.
	PollInterval time.Duration `yaml:"poll_interval"`
	// DrainTimeout bounds the HTTP listener's graceful shutdown once the
	// engine is asked to stop; the worker's queue drain is not bounded by
	// it. Default 30s.
	DrainTimeout time.Duration `yaml:"drain_timeout"`
}

// ToolsConfig configures tool dispatch.
type ToolsConfig struct {
	// RemoteClientBaseURL is the envoy device's base URL the executor POSTs
	// Client-location tool calls to (<base_url>/tools/execute).
	RemoteClientBaseURL string `yaml:"remote_client_base_url"`
	// RemoteTimeout bounds a client-remote tool call. Default 15s.
	RemoteTimeout time.Duration `yaml:"remote_timeout"`
}

// LoggingConfig configures the root logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// Format is "json" or "text". Defaults to "json"; "text" is typically
	// used with --dev.
	Format string `yaml:"format"`
}

// applyDefaults fills in zero-valued fields with the engine's defaults.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8787
	}
	if c.Database.Path == "" {
		c.Database.Path = "artificer.db"
	}
	if c.Backends.Interactive.URL == "" {
		c.Backends.Interactive.URL = "http://localhost:11435/api/chat"
	}
	if c.Backends.Background.URL == "" {
		c.Backends.Background.URL = "http://localhost:11434/api/chat"
	}
	if c.Backends.RequestTimeout == 0 {
		c.Backends.RequestTimeout = 120 * time.Second
	}
	if c.Worker.PollInterval == 0 {
		c.Worker.PollInterval = 2 * time.Second
	}
	if c.Worker.DrainTimeout == 0 {
		c.Worker.DrainTimeout = 30 * time.Second
	}
	if c.Tools.RemoteTimeout == 0 {
		c.Tools.RemoteTimeout = 15 * time.Second
	}
	if c.Tools.RemoteClientBaseURL == "" {
		c.Tools.RemoteClientBaseURL = "http://localhost:8081"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate checks the config for values that would make the engine unsafe
// or impossible to start.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("config: database path is required")
	}
	return nil
}

// Load reads and parses a YAML config file at path, expanding
// `$VAR`/`${VAR}` references before parsing and applying defaults after.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := parse(os.ExpandEnv(string(data)))
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with every field at its default value, for use
// when no config file is supplied (e.g. in tests).
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
