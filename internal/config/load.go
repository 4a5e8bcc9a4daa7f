package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadWithoutValidation reads the configuration file at path on top of the
// variant defaults. An empty path falls back to DefaultConfigPath when it
// exists, otherwise to the defaults alone. Callers apply flag overrides and
// validate afterwards.
func LoadWithoutValidation(path string, variant Variant) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	// #nosec G304 -- operator supplied path
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(variant), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return parseConfig(data, variant)
}

// parseConfig decodes YAML into a copy of the defaults. The variant given by
// the caller only wins when the file does not set one.
func parseConfig(data []byte, variant Variant) (*Config, error) {
	cfg := Default(variant)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if cfg.Variant == "" {
		cfg.Variant = variant
	}
	return cfg, nil
}
