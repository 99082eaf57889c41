package tunnel

import "sync"

// Registry is the process-wide set of active tunnels keyed by port, the Go
// analogue of pymock/tunnel.py's module-level tunnel_map plus
// get_tunnels/get_tunnel/start_tunnel/reload_tunnel.
type Registry struct {
	mu      sync.Mutex
	tunnels map[int]*Tunnel
}

// NewRegistry creates an empty tunnel Registry.
func NewRegistry() *Registry {
	return &Registry{tunnels: make(map[int]*Tunnel)}
}

// All returns every registered tunnel.
func (r *Registry) All() []*Tunnel {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Tunnel, 0, len(r.tunnels))
	for _, t := range r.tunnels {
		out = append(out, t)
	}
	return out
}

// Get looks up a tunnel by its listening port.
func (r *Registry) Get(port int) (*Tunnel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tunnels[port]
	return t, ok
}

// StartTunnel registers t under its port, stopping and replacing whatever
// tunnel previously held that port, then starts it. Matches pymock's
// start_tunnel.
func (r *Registry) StartTunnel(t *Tunnel) error {
	r.mu.Lock()
	existing, ok := r.tunnels[t.Port]
	r.tunnels[t.Port] = t
	r.mu.Unlock()

	if ok {
		if err := existing.Stop(); err != nil {
			return err
		}
	}
	return t.Start()
}

// ReloadTunnel stops and clears every registered tunnel, then starts each
// of newTunnels fresh. Matches pymock's reload_tunnel, used by a full
// config-file reload.
func (r *Registry) ReloadTunnel(newTunnels []*Tunnel) error {
	r.mu.Lock()
	old := make([]*Tunnel, 0, len(r.tunnels))
	for _, t := range r.tunnels {
		old = append(old, t)
	}
	r.tunnels = make(map[int]*Tunnel)
	r.mu.Unlock()

	for _, t := range old {
		if err := t.Stop(); err != nil {
			return err
		}
	}
	for _, t := range newTunnels {
		if err := r.StartTunnel(t); err != nil {
			return err
		}
	}
	return nil
}

// StopAll stops every registered tunnel, used on process shutdown.
func (r *Registry) StopAll() {
	for _, t := range r.All() {
		_ = t.Stop()
	}
}
