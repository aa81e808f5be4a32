package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// envoyConfig is the terminal client's own minimal config file: which
// engine to talk to and which paired device to authenticate as. Kept
// separate from internal/config.Config (the engine's config), since envoy
// and engine are distinct processes that may run on different machines.
type envoyConfig struct {
	ServerURL string `yaml:"server_url"`
	DeviceID  int64  `yaml:"device_id"`
	DeviceKey string `yaml:"device_key"`
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "envoy.yaml"
	}
	return filepath.Join(home, ".config", "artificer", "envoy.yaml")
}

func loadEnvoyConfig(path string) (*envoyConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &envoyConfig{ServerURL: "http://localhost:8787"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("envoy: read config %s: %w", path, err)
	}
	var cfg envoyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("envoy: parse config %s: %w", path, err)
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = "http://localhost:8787"
	}
	return &cfg, nil
}

func saveEnvoyConfig(path string, cfg *envoyConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("envoy: create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("envoy: marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("envoy: write config %s: %w", path, err)
	}
	return nil
}
