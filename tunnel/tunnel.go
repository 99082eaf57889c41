// Package tunnel implements the raw TCP tunneling side of mocktun: each
// configured mapping listens on a local port and relays every connection to
// a fixed destination, optionally observed by a controller script.
// Grounded on pymock/tunnel.py.
package tunnel

import (
	"fmt"
	"net"
	"sync"

	"mocktun/logger"
	"mocktun/script"
	"mocktun/utils"
)

// Status mirrors pymock's Tunnel.status string states.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusStarted  Status = "started"
	StatusStopping Status = "stopping"
)

// Tunnel listens on Port and relays every accepted connection to
// DestHost:DestPort, matching pymock's Tunnel class.
type Tunnel struct {
	Port     int
	DestHost string
	DestPort int

	factory script.ControllerFactory

	mu          sync.Mutex
	status      Status
	listener    net.Listener
	connections map[string]*Connection
}

// New builds a Tunnel. factory may be nil, in which case every connection
// gets a script.DefaultController (no controller artifact configured for
// this mapping).
func New(port int, destHost string, destPort int, factory script.ControllerFactory) *Tunnel {
	if factory == nil {
		factory = script.DefaultControllerFactory{}
	}
	return &Tunnel{
		Port:        port,
		DestHost:    destHost,
		DestPort:    destPort,
		factory:     factory,
		status:      StatusStopped,
		connections: make(map[string]*Connection),
	}
}

func (t *Tunnel) controllerFactory() script.ControllerFactory { return t.factory }

// Status returns the tunnel's current lifecycle state.
func (t *Tunnel) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Start begins accepting connections. A no-op if the tunnel isn't stopped,
// matching pymock's Tunnel.start.
func (t *Tunnel) Start() error {
	t.mu.Lock()
	if t.status != StatusStopped {
		t.mu.Unlock()
		return nil
	}
	t.status = StatusStarting
	t.mu.Unlock()

	logger.LogInfo(fmt.Sprintf("starting tunnel server %d => %s:%d", t.Port, t.DestHost, t.DestPort))
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", t.Port))
	if err != nil {
		t.mu.Lock()
		t.status = StatusStopped
		t.mu.Unlock()
		return err
	}

	t.mu.Lock()
	t.listener = ln
	t.status = StatusStarted
	t.mu.Unlock()

	go t.acceptLoop(ln)
	return nil
}

func (t *Tunnel) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go t.onConnect(conn)
	}
}

// onConnect assigns a fresh connection ID (retrying on collision, matching
// pymock's Tunnel.on_connect) and starts relaying.
func (t *Tunnel) onConnect(local net.Conn) {
	var connID string
	t.mu.Lock()
	for {
		connID = utils.RandString(8)
		if _, exists := t.connections[connID]; !exists {
			break
		}
	}
	conn := newConnection(connID, local, t)
	t.connections[connID] = conn
	t.mu.Unlock()

	conn.start()
}

func (t *Tunnel) onDisconnect(conn *Connection) {
	t.mu.Lock()
	delete(t.connections, conn.connID)
	t.mu.Unlock()
}

// Stop closes the listener and cancels every active connection. A no-op if
// the tunnel isn't started, matching pymock's Tunnel.stop.
func (t *Tunnel) Stop() error {
	t.mu.Lock()
	if t.status != StatusStarted {
		t.mu.Unlock()
		return nil
	}
	t.status = StatusStopping
	ln := t.listener
	conns := make([]*Connection, 0, len(t.connections))
	for _, c := range t.connections {
		conns = append(conns, c)
	}
	t.mu.Unlock()

	logger.LogInfo(fmt.Sprintf("stopping tunnel server %d => %s:%d", t.Port, t.DestHost, t.DestPort))
	if ln != nil {
		if err := ln.Close(); err != nil {
			return err
		}
	}
	for _, c := range conns {
		c.cancel()
	}

	t.mu.Lock()
	t.status = StatusStopped
	t.mu.Unlock()
	return nil
}

// Connections returns a snapshot of active connections for the control
// plane's GET /tunnel/connection endpoint.
func (t *Tunnel) Connections() []*Connection {
	t.mu.Lock()
	defer t.mu.Unlock()
	conns := make([]*Connection, 0, len(t.connections))
	for _, c := range t.connections {
		conns = append(conns, c)
	}
	return conns
}

// Connection looks up one active connection by ID.
func (t *Tunnel) Connection(connID string) (*Connection, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.connections[connID]
	return c, ok
}

// SetControllerFactory hot-swaps the controller used for future
// connections, matching pymock's reload_file controller-file branch
// (item['tunnel'].controller_cls = controller_cls). Existing connections
// keep their already-instantiated controller.
func (t *Tunnel) SetControllerFactory(factory script.ControllerFactory) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.factory = factory
}

// Reset force-closes a single connection's sockets with SO_LINGER(0),
// matching pymock's TunnelConnectionHandler reset action (socket_nolinger
// on both sockets then cancel).
func (c *Connection) Reset() {
	if tcp, ok := c.local.(*net.TCPConn); ok {
		_ = tcp.SetLinger(0)
	}
	if c.dest != nil {
		if tcp, ok := c.dest.(*net.TCPConn); ok {
			_ = tcp.SetLinger(0)
		}
	}
	c.cancel()
}

// Close cancels this connection without forcing SO_LINGER, matching
// pymock's TunnelConnectionHandler close action.
func (c *Connection) Close() { c.cancel() }

// PeerDesc returns the "ip:port => host:port" description used in this
// connection's log lines.
func (c *Connection) PeerDesc() string { return c.desc }
