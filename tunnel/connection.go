package tunnel

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"mocktun/logger"
	"mocktun/script"
)

const proxyBufSize = 1024

// Connection is one accepted TCP connection being relayed through a
// Tunnel, grounded on pymock/tunnel.py's Connection class.
type Connection struct {
	connID   string
	local    net.Conn
	dest     net.Conn
	tunnel   *Tunnel
	peerIP   string
	peerPort int
	desc     string

	controller script.Controller

	mu        sync.Mutex
	cancelled bool
}

func newConnection(connID string, local net.Conn, t *Tunnel) *Connection {
	ip, port := splitHostPort(local.RemoteAddr().String())
	c := &Connection{
		connID:   connID,
		local:    local,
		tunnel:   t,
		peerIP:   ip,
		peerPort: port,
		desc:     fmt.Sprintf("%s:%d => %s:%d", ip, port, t.DestHost, t.DestPort),
	}
	c.controller = t.controllerFactory().New(c)
	return c
}

// ConnID/PeerIP/PeerPort/TunnelPort implement script.ConnInfo.
func (c *Connection) ConnID() string  { return c.connID }
func (c *Connection) PeerIP() string  { return c.peerIP }
func (c *Connection) PeerPort() int   { return c.peerPort }
func (c *Connection) TunnelPort() int { return c.tunnel.Port }

// start dials the tunnel's destination, notifies the controller, and pumps
// data in both directions until either side closes or errors, matching
// pymock's Connection.start: asyncio.gather(proxy_in(), proxy_out()) with
// cancellation distinguished from a genuine error in the logs.
func (c *Connection) start() {
	defer c.tunnel.onDisconnect(c)

	dest, err := net.Dial("tcp", fmt.Sprintf("%s:%d", c.tunnel.DestHost, c.tunnel.DestPort))
	if err != nil {
		logger.LogError(fmt.Sprintf("[%s] tunnel connect failed %s: %v", c.connID, c.desc, err))
		c.local.Close()
		return
	}
	c.dest = dest

	logger.LogInfo(fmt.Sprintf("[%s] tunnel connected %s", c.connID, c.desc))
	c.controller.OnConnected()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() { defer wg.Done(); errs <- c.proxyOut() }()
	go func() { defer wg.Done(); errs <- c.proxyIn() }()
	wg.Wait()
	close(errs)

	var firstErr error
	for e := range errs {
		// net.ErrClosed is the pump whose socket the other pump closed on
		// its way out, not a failure of its own.
		if e != nil && firstErr == nil && !errors.Is(e, net.ErrClosed) {
			firstErr = e
		}
	}

	if c.isCancelled() {
		logger.LogInfo(fmt.Sprintf("[%s] tunnel cancelled %s", c.connID, c.desc))
	} else if firstErr != nil && firstErr != io.EOF {
		logger.LogError(fmt.Sprintf("[%s] tunnel error %s: %v", c.connID, c.desc, firstErr))
	} else {
		logger.LogInfo(fmt.Sprintf("[%s] tunnel closed %s", c.connID, c.desc))
	}
}

// cancel force-closes both sockets, unblocking any in-flight Read and
// ending proxyIn/proxyOut, matching pymock's Connection.cancel.
func (c *Connection) cancel() {
	c.mu.Lock()
	c.cancelled = true
	c.mu.Unlock()
	c.local.Close()
	if c.dest != nil {
		c.dest.Close()
	}
}

func (c *Connection) isCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// proxyOut reads from local and writes to dest, calling the controller's
// OnOutput hook to observe outbound data before it is relayed, matching
// pymock's proxy_out.
func (c *Connection) proxyOut() error {
	defer c.dest.Close()
	buf := make([]byte, proxyBufSize)
	for {
		n, err := c.local.Read(buf)
		if n > 0 {
			if herr := c.controller.OnOutput(buf[:n]); herr != nil {
				return herr
			}
			if _, werr := c.dest.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// proxyIn is the symmetric mirror of proxyOut: dest -> local, via
// controller.OnInput.
func (c *Connection) proxyIn() error {
	defer c.local.Close()
	buf := make([]byte, proxyBufSize)
	for {
		n, err := c.dest.Read(buf)
		if n > 0 {
			if herr := c.controller.OnInput(buf[:n]); herr != nil {
				return herr
			}
			if _, werr := c.local.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	var port int
	fmt.Sscanf(portStr, "%d", &port)
	return host, port
}
