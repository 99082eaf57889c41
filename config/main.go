// Package config loads and validates the top-level mocktun config file and
// canonicalizes the filesystem paths the rest of the process reads from it.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"mocktun/logger"
)

// LoadConfig reads a JSON or YAML config document, validates it, and returns
// it. Supports .json, .yaml, .yml; any other extension is parsed as JSON,
// matching spec.md's "config.json in the working directory" default.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML in '%s': %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON in '%s': %w", path, err)
		}
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	logger.LogSuccess(fmt.Sprintf("config loaded from %s", path))
	return &cfg, nil
}
