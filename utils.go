package main

import (
	"fmt"
	"os"
	"path/filepath"

	"mocktun/config"
	"mocktun/controlplane"
	mtlogger "mocktun/logger"
	"mocktun/mockengine"
	"mocktun/reload"
	"mocktun/script"
	"mocktun/store"
	"mocktun/tunnel"
)

// mustLoadAndStart loads config.json, builds every component it describes,
// and starts the mock listener and control plane, the Go analogue of
// pymock/main.py's load_config/setup_mock/setup_tunnel/setup_controller
// sequence.
func mustLoadAndStart(configPath string) (*Runtime, error) {
	configDir := filepath.Dir(configPath)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	st := store.New()

	rules, err := mockengine.NewRuleTable(configDir, cfg.Mock)
	if err != nil {
		return nil, err
	}

	registry := tunnel.NewRegistry()
	mappings := cfg.Tunnel.Mappings
	for _, m := range mappings {
		factory, err := loadControllerFactory(configDir, m)
		if err != nil {
			return nil, err
		}
		if err := registry.StartTunnel(tunnel.New(m.Port, m.DestHost, m.DestPort, factory)); err != nil {
			return nil, fmt.Errorf("tunnel port %d: %w", m.Port, err)
		}
	}

	dispatch := &reload.Dispatcher{
		ConfigPath: configPath,
		ConfigDir:  configDir,
		Rules:      rules,
		Registry:   registry,
		Mappings:   mappings,
	}

	mockAddr := fmt.Sprintf("%s:%d", flagAddr, flagMockPort)
	mock := mockengine.NewListener(mockAddr, rules, st)
	go func() {
		if err := mock.ListenAndServe(); err != nil {
			mtlogger.LogError(fmt.Sprintf("mock listener stopped: %v", err))
		}
	}()
	mtlogger.LogSuccess(fmt.Sprintf("mock listener started on %s", mtlogger.GetServerHost(mockAddr)))

	controlAddr := fmt.Sprintf("%s:%d", flagAddr, flagControlPort)
	control := controlplane.NewServer(controlplane.Config{
		Addr:     controlAddr,
		Password: flagPassword,
		HTTPS:    flagHTTPS,
		CertFile: "server.crt",
		KeyFile:  "server.key",
	}, registry, dispatch)
	go func() {
		if err := control.Listen(); err != nil {
			mtlogger.LogError(fmt.Sprintf("control plane stopped: %v", err))
		}
	}()
	mtlogger.LogSuccess(fmt.Sprintf("control plane started on %s", mtlogger.GetServerHost(controlAddr)))

	return &Runtime{
		ConfigDir: configDir,
		Store:     st,
		Rules:     rules,
		Mock:      mock,
		Registry:  registry,
		Control:   control,
		Dispatch:  dispatch,
	}, nil
}

// loadControllerFactory loads the Lua controller artifact named by a tunnel
// mapping, if any. Mirrors reload.loadControllerFactory for the initial
// startup path, where no Dispatcher yet exists to delegate to.
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

// reloadFile is invoked by the debounced file watcher in main.go for every
// changed path, dispatching to the Runtime's reload.Dispatcher.
func reloadFile(rt *Runtime, path string) {
	rt.Mu.Lock()
	dispatch := rt.Dispatch
	rt.Mu.Unlock()

	message, err := dispatch.ReloadFile(path)
	if err != nil {
		mtlogger.LogError(fmt.Sprintf("reload of %s failed: %v", path, err))
		return
	}
	mtlogger.LogInfo(fmt.Sprintf("%s: %s", path, message))
}

// fatalExit logs a startup error and exits the process, matching the
// teacher's fatalExit.
func fatalExit(msg string) {
	mtlogger.LogError(msg)
	os.Exit(1)
}
