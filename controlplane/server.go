// Package controlplane is the web UI/API companion service mocktun exposes
// alongside the mock listener and tunnels: file browsing, hot reload
// triggers, tunnel/connection management, and a live log WebSocket.
// Grounded on pymock/controller.py's setup_controller and the teacher's
// server/main.go fiber assembly idiom (custom ErrorHandler, ordered
// middleware, route registration helpers).
package controlplane

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"mocktun/logger"
	"mocktun/reload"
	"mocktun/tunnel"
)

// Config controls how the control plane is bootstrapped, the Go analogue of
// pymock's setup_controller(mock, port, https, addr) parameters.
type Config struct {
	Addr     string
	Password string // empty disables Basic Auth, matching server_password=None
	HTTPS    bool
	CertFile string
	KeyFile  string
}

// Server is the control-plane fiber application.
type Server struct {
	App      *fiber.App
	cfg      Config
	registry *tunnel.Registry
	dispatch *reload.Dispatcher
}

// NewServer assembles the fiber app and registers every route named in
// pymock/controller.py's setup_controller, plus the file-browser endpoints
// the spec's distillation dropped.
func NewServer(cfg Config, registry *tunnel.Registry, dispatch *reload.Dispatcher) *Server {
	s := &Server{cfg: cfg, registry: registry, dispatch: dispatch}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          controlPlaneErrorHandler,
	})
	s.App = app

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.LogRoute(c.Method(), c.Path(), c.Response().StatusCode(), time.Since(start))
		return err
	})

	auth := basicAuth(cfg.Password)

	app.Get("/file/list", auth, s.handleFileList)
	app.Get("/file", auth, s.handleFileGet)
	app.Put("/file", auth, s.handleFilePut)
	app.Post("/file", auth, s.handleFileCreate)
	app.Post("/file/reload", auth, s.handleReload)

	app.Get("/tunnel", auth, s.handleTunnelList)
	app.Post("/tunnel", auth, s.handleTunnelAction)
	app.Get("/tunnel/connection", auth, s.handleConnectionList)
	app.Post("/tunnel/connection", auth, s.handleConnectionAction)

	s.registerLogWS(app, auth)

	return s
}

// Listen blocks serving the control plane, over TLS if cfg.HTTPS is set,
// matching pymock's ssl.create_default_context/load_cert_chain branch in
// setup_controller.
func (s *Server) Listen() error {
	if s.cfg.HTTPS {
		return s.App.ListenTLS(s.cfg.Addr, s.cfg.CertFile, s.cfg.KeyFile)
	}
	return s.App.Listen(s.cfg.Addr)
}

// Shutdown stops the control plane.
func (s *Server) Shutdown() error { return s.App.Shutdown() }

func queryRequired(c *fiber.Ctx, name string) (string, error) {
	v := c.Query(name)
	if v == "" {
		return "", newAPIError(fiber.StatusBadRequest, "missing argument: "+name)
	}
	return v, nil
}
