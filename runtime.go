package main

import (
	"sync"

	"github.com/fsnotify/fsnotify"

	"mocktun/config"
	"mocktun/controlplane"
	"mocktun/mockengine"
	"mocktun/reload"
	"mocktun/store"
	"mocktun/tunnel"
)

// Runtime bundles the pieces started by a single startApp call, guarded by
// Mu for the swap-on-reload path in utils.go.
type Runtime struct {
	Mu sync.Mutex

	ConfigDir string
	Store     *store.Store
	Rules     *mockengine.RuleTable
	Mock      *mockengine.Listener
	Registry  *tunnel.Registry
	Control   *controlplane.Server
	Dispatch  *reload.Dispatcher

	watched map[string]struct{}
}

// watchLoadedFiles adds every currently-loaded handler and controller
// source path to watcher, skipping paths already registered. Called once at
// startup and again after every reload, since a reload can load new handler
// or controller files that weren't previously on disk.
func (rt *Runtime) watchLoadedFiles(watcher *fsnotify.Watcher) {
	rt.Mu.Lock()
	defer rt.Mu.Unlock()

	if rt.watched == nil {
		rt.watched = make(map[string]struct{})
	}

	paths := rt.Rules.Files()
	for _, m := range rt.Dispatch.Mappings {
		if m.Controller == "" {
			continue
		}
		paths = append(paths, config.NormalizePath(config.ResolveHandlerPath(rt.ConfigDir, m.Controller)))
	}

	for _, p := range paths {
		if _, ok := rt.watched[p]; ok {
			continue
		}
		if err := watcher.Add(p); err == nil {
			rt.watched[p] = struct{}{}
		}
	}
}

func (rt *Runtime) shutdown() {
	rt.Mu.Lock()
	defer rt.Mu.Unlock()

	rt.Registry.StopAll()
	_ = rt.Mock.Close()
	_ = rt.Control.Shutdown()
	rt.Store.Close()
}
