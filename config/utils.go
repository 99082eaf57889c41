package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// validate checks required fields on every mock rule and tunnel mapping.
// Grounded on pymock/config.py generate_mock_processor/load_tunnels, which
// raise/exit on a missing prefix|file or port|dest_host|dest_port.
func validate(cfg *Config) error {
	for i, rule := range cfg.Mock {
		if rule.Prefix == "" {
			return fmt.Errorf("mock[%d]: prefix is required", i)
		}
		if rule.File == "" {
			return fmt.Errorf("mock[%d]: file is required", i)
		}
	}

	for i, m := range cfg.Tunnel.Mappings {
		if m.Port == 0 {
			return fmt.Errorf("tunnel.mappings[%d]: port is required", i)
		}
		if m.DestHost == "" {
			return fmt.Errorf("tunnel.mappings[%d]: dest_host is required", i)
		}
		if m.DestPort == 0 {
			return fmt.Errorf("tunnel.mappings[%d]: dest_port is required", i)
		}
	}

	return nil
}

// NormalizePath canonicalizes a user-supplied filesystem path (a config
// entry or a control-plane request argument). If the absolute form does not
// lie within the current working directory, it is rewritten to ".",
// matching pymock/utils.py normalize_path exactly (spec.md §6 filesystem
// safety).
func NormalizePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "."
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	if commonPath(abs, cwd) != cwd {
		return "."
	}
	rel, err := filepath.Rel(cwd, abs)
	if err != nil {
		return "."
	}
	return rel
}

// commonPath returns the longest common ancestor directory of two absolute,
// cleaned paths (the Go standard library has no filepath.Commonpath).
func commonPath(a, b string) string {
	aParts := strings.Split(filepath.Clean(a), string(filepath.Separator))
	bParts := strings.Split(filepath.Clean(b), string(filepath.Separator))

	n := len(aParts)
	if len(bParts) < n {
		n = len(bParts)
	}
	i := 0
	for i < n && aParts[i] == bParts[i] {
		i++
	}
	if i == 0 {
		return string(filepath.Separator)
	}
	return strings.Join(aParts[:i], string(filepath.Separator))
}

// ResolveHandlerPath resolves a mock/controller "file" config entry
// relative to the directory the config file lives in.
func ResolveHandlerPath(configFilePath, file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(filepath.Dir(configFilePath), file)
}
