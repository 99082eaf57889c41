// Package reload implements hot-reload of a changed file on disk: the top-
// level config file, a mock handler artifact, or a tunnel controller
// artifact. Grounded on pymock/config.py's reload_file.
package reload

import (
	"fmt"
	"path/filepath"

	"mocktun/config"
	"mocktun/logger"
	"mocktun/mockengine"
	"mocktun/script"
	"mocktun/tunnel"
)

// Dispatcher routes a changed file path to the right reload action,
// matching pymock's reload_file branch order: config path, then a
// matching rule file_path, then a matching controller file_path, else
// "unregistered file, ignore".
type Dispatcher struct {
	ConfigPath string
	ConfigDir  string
	Rules      *mockengine.RuleTable
	Registry   *tunnel.Registry
	Mappings   []config.TunnelMapping
}

// ReloadFile reacts to a changed file, returning a short human-readable
// result string (surfaced by the control plane's POST /file/reload), or an
// error if the reload failed.
func (d *Dispatcher) ReloadFile(path string) (string, error) {
	abs, err := filepath.Abs(path)
	configAbs, cerr := filepath.Abs(d.ConfigPath)
	if err == nil && cerr == nil && abs == configAbs {
		return d.reloadConfig()
	}

	// Rule and controller source paths are kept in config.NormalizePath
	// form, so compare against the same form of the changed path.
	path = config.NormalizePath(path)

	if ok, err := d.reloadHandler(path); ok {
		if err != nil {
			return "", err
		}
		return "processor file reloaded", nil
	}

	if ok, err := d.reloadController(path); ok {
		if err != nil {
			return "", err
		}
		return "controller file reloaded", nil
	}

	return "unregistered file, ignore", nil
}

func (d *Dispatcher) reloadConfig() (string, error) {
	cfg, err := config.LoadConfig(d.ConfigPath)
	if err != nil {
		return "", err
	}

	newRules, err := mockengine.NewRuleTable(d.ConfigDir, cfg.Mock)
	if err != nil {
		return "", err
	}
	d.Rules.Replace(newRules)

	newTunnels := make([]*tunnel.Tunnel, 0, len(cfg.Tunnel.Mappings))
	for _, m := range cfg.Tunnel.Mappings {
		factory, err := loadControllerFactory(d.ConfigDir, m)
		if err != nil {
			return "", err
		}
		newTunnels = append(newTunnels, tunnel.New(m.Port, m.DestHost, m.DestPort, factory))
	}
	if err := d.Registry.ReloadTunnel(newTunnels); err != nil {
		return "", err
	}
	d.Mappings = cfg.Tunnel.Mappings

	logger.LogSuccess("config file reloaded")
	return "config file reloaded", nil
}

func (d *Dispatcher) reloadHandler(path string) (bool, error) {
	for _, file := range d.Rules.Files() {
		if file != path {
			continue
		}
		handler, err := script.LoadHandler(path)
		if err != nil {
			return true, err
		}
		d.Rules.ReplaceHandler(path, handler)
		return true, nil
	}
	return false, nil
}

func (d *Dispatcher) reloadController(path string) (bool, error) {
	for _, m := range d.Mappings {
		if m.Controller == "" {
			continue
		}
		file := config.NormalizePath(config.ResolveHandlerPath(d.ConfigDir, m.Controller))
		if file != path {
			continue
		}
		t, ok := d.Registry.Get(m.Port)
		if !ok {
			continue
		}
		factory, err := script.LoadController(path)
		if err != nil {
			return true, err
		}
		t.SetControllerFactory(factory)
		return true, nil
	}
	return false, nil
}

func loadControllerFactory(configDir string, m config.TunnelMapping) (script.ControllerFactory, error) {
	if m.Controller == "" {
		return nil, nil
	}
	file := config.NormalizePath(config.ResolveHandlerPath(configDir, m.Controller))
	factory, err := script.LoadController(file)
	if err != nil {
		return nil, fmt.Errorf("tunnel mapping port %d: %w", m.Port, err)
	}
	return factory, nil
}
