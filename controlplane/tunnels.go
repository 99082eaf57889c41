package controlplane

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"mocktun/tunnel"
)

type tunnelInfo struct {
	Port     int    `json:"port"`
	DestHost string `json:"dest_host"`
	DestPort int    `json:"dest_port"`
	Status   string `json:"status"`
}

type connectionInfo struct {
	ConnID   string `json:"conn_id"`
	PeerIP   string `json:"peer_ip"`
	PeerPort int    `json:"peer_port"`
}

func (s *Server) tunnelByQuery(c *fiber.Ctx) (*tunnel.Tunnel, error) {
	portStr, err := queryRequired(c, "port")
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, newAPIError(fiber.StatusBadRequest, "invalid port")
	}
	t, ok := s.registry.Get(port)
	if !ok {
		return nil, newAPIError(fiber.StatusNotFound, "tunnel["+portStr+"] not found")
	}
	return t, nil
}

// handleTunnelList implements GET /tunnel, matching pymock's
// TunnelServerHandler.get.
func (s *Server) handleTunnelList(c *fiber.Ctx) error {
	tunnels := s.registry.All()
	out := make([]tunnelInfo, 0, len(tunnels))
	for _, t := range tunnels {
		out = append(out, tunnelInfo{Port: t.Port, DestHost: t.DestHost, DestPort: t.DestPort, Status: string(t.Status())})
	}
	return c.JSON(out)
}

// handleTunnelAction implements POST /tunnel?action=start|stop, matching
// pymock's TunnelServerHandler.post.
func (s *Server) handleTunnelAction(c *fiber.Ctx) error {
	action, err := queryRequired(c, "action")
	if err != nil {
		return err
	}
	switch action {
	case "start":
		t, err := s.tunnelByQuery(c)
		if err != nil {
			return err
		}
		if err := t.Start(); err != nil {
			return newAPIError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendString("tunnel started")
	case "stop":
		t, err := s.tunnelByQuery(c)
		if err != nil {
			return err
		}
		if err := t.Stop(); err != nil {
			return newAPIError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendString("tunnel stopped")
	default:
		return newAPIError(fiber.StatusBadRequest, "unknown action "+action)
	}
}

func (s *Server) connectionByQuery(c *fiber.Ctx) (*tunnel.Connection, error) {
	t, err := s.tunnelByQuery(c)
	if err != nil {
		return nil, err
	}
	connID, err := queryRequired(c, "conn_id")
	if err != nil {
		return nil, err
	}
	conn, ok := t.Connection(connID)
	if !ok {
		return nil, newAPIError(fiber.StatusNotFound, "connection["+connID+"] not found in tunnel")
	}
	return conn, nil
}

// handleConnectionList implements GET /tunnel/connection, matching
// pymock's TunnelConnectionHandler.get.
func (s *Server) handleConnectionList(c *fiber.Ctx) error {
	t, err := s.tunnelByQuery(c)
	if err != nil {
		return err
	}
	conns := t.Connections()
	out := make([]connectionInfo, 0, len(conns))
	for _, conn := range conns {
		out = append(out, connectionInfo{ConnID: conn.ConnID(), PeerIP: conn.PeerIP(), PeerPort: conn.PeerPort()})
	}
	return c.JSON(out)
}

// handleConnectionAction implements POST /tunnel/connection?action=close|reset,
// matching pymock's TunnelConnectionHandler.post.
func (s *Server) handleConnectionAction(c *fiber.Ctx) error {
	action, err := queryRequired(c, "action")
	if err != nil {
		return err
	}
	switch action {
	case "close":
		conn, err := s.connectionByQuery(c)
		if err != nil {
			return err
		}
		conn.Close()
		return c.SendString("connection closed")
	case "reset":
		conn, err := s.connectionByQuery(c)
		if err != nil {
			return err
		}
		conn.Reset()
		return c.SendString("connection reset")
	default:
		return newAPIError(fiber.StatusBadRequest, "unknown action "+action)
	}
}
