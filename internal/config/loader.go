package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// parse unmarshals expanded YAML text into a Config.
func parse(expanded string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	return &cfg, nil
}
