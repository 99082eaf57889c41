package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	mtlogger "mocktun/logger"
)

const (
	// Version is the application version.
	Version = "0.0.1"

	// debounceDelay collapses a burst of fsnotify writes into one reload,
	// matching the teacher's watchConfigFile debounce.
	debounceDelay = 500 * time.Millisecond
)

var (
	flagVerbose     bool
	flagMockPort    int
	flagControlPort int
	flagWorkDir     string
	flagPassword    string
	flagAddr        string
	flagHTTPS       bool
)

func main() {
	mtlogger.StartupMessage(Version)

	rootCmd := &cobra.Command{
		Use:   "mocktun",
		Short: "mocktun mock HTTP + TCP tunnel server",
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the mock listener, tunnels, and control plane",
		Run: func(cmd *cobra.Command, args []string) {
			startApp()
		},
	}

	startCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging")
	startCmd.Flags().IntVar(&flagMockPort, "mp", 8080, "mock listener port")
	startCmd.Flags().IntVar(&flagControlPort, "cp", 80, "control plane port")
	startCmd.Flags().StringVar(&flagWorkDir, "wd", "", "working directory")
	startCmd.Flags().StringVar(&flagPassword, "p", "", "control plane password")
	startCmd.Flags().StringVar(&flagAddr, "addr", "0.0.0.0", "bind ip address")
	startCmd.Flags().BoolVar(&flagHTTPS, "https", false, "use https for the control plane")

	rootCmd.AddCommand(startCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func startApp() {
	if flagVerbose {
		mtlogger.LoggerConfig.ShowTimestamp = true
	}

	if flagWorkDir != "" {
		if err := os.Chdir(flagWorkDir); err != nil {
			fatalExit(fmt.Sprintf("failed to chdir to %s: %v", flagWorkDir, err))
		}
	}

	if flagHTTPS {
		if !fileExists("server.crt") || !fileExists("server.key") {
			fatalExit("file {server.crt, server.key} is required in https mode")
		}
	}

	bootstrap()

	configPath, err := filepath.Abs("config.json")
	if err != nil {
		fatalExit(fmt.Sprintf("failed to resolve config path: %v", err))
	}

	rt, err := mustLoadAndStart(configPath)
	if err != nil {
		fatalExit(fmt.Sprintf("failed to start: %v", err))
	}

	watchFiles(rt, configPath)
}

// bootstrap creates config.json and recordings/ if absent, matching
// pymock/main.py's main() bootstrap block.
func bootstrap() {
	if !fileExists("config.json") {
		if err := os.WriteFile("config.json", []byte("{}"), 0644); err != nil {
			fatalExit(fmt.Sprintf("failed to create config.json: %v", err))
		}
	}
	if info, err := os.Stat("recordings"); err != nil || !info.IsDir() {
		if err := os.Mkdir("recordings", 0755); err != nil && !os.IsExist(err) {
			fatalExit(fmt.Sprintf("failed to create recordings directory: %v", err))
		}
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// watchFiles watches the config file plus every loaded handler/controller
// source path, debouncing bursts of writes the way the teacher's
// watchConfigFile does, but widened from config-file-only because
// SPEC_FULL.md's hot-reload covers handler and controller artifacts too.
func watchFiles(rt *Runtime, configPath string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fatalExit(fmt.Sprintf("failed to start file watcher: %v", err))
	}
	defer watcher.Close()

	if err := watcher.Add(configPath); err != nil {
		fatalExit(fmt.Sprintf("failed to watch config file: %v", err))
	}
	rt.watchLoadedFiles(watcher)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var reloadTimer *time.Timer
	var mu sync.Mutex
	pending := make(map[string]struct{})

	for {
		select {
		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				mu.Lock()
				pending[event.Name] = struct{}{}
				if reloadTimer != nil {
					reloadTimer.Stop()
				}
				reloadTimer = time.AfterFunc(debounceDelay, func() {
					mu.Lock()
					files := make([]string, 0, len(pending))
					for f := range pending {
						files = append(files, f)
					}
					pending = make(map[string]struct{})
					mu.Unlock()
					for _, f := range files {
						reloadFile(rt, f)
					}
					rt.watchLoadedFiles(watcher)
				})
				mu.Unlock()
			}

		case err := <-watcher.Errors:
			mtlogger.LogError(fmt.Sprintf("file watcher error: %v", err))

		case sig := <-sigChan:
			handleSignal(sig, rt)
			return
		}
	}
}

func handleSignal(sig os.Signal, rt *Runtime) {
	mtlogger.LogWarn(fmt.Sprintf("signal received (%s), shutting down gracefully...", sig))
	rt.shutdown()
	mtlogger.LogInfo("mocktun stopped")
}
