package controlplane

import (
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"

	"mocktun/logger"
)

// registerLogWS mounts GET /ws/logs, matching pymock's LogWSHandler: every
// connected client gets its own bounded queue (logger.Sink) fed by every
// logged line, and a full queue drops the newest message with a warning
// instead of blocking the logger.
func (s *Server) registerLogWS(app *fiber.App, auth fiber.Handler) {
	app.Use("/ws/logs", auth, func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/logs", fiberws.New(func(conn *fiberws.Conn) {
		sink := logger.Subscribe()
		defer logger.Unsubscribe(sink)

		for line := range sink.Messages {
			if err := conn.WriteMessage(fiberws.TextMessage, []byte(line)); err != nil {
				return
			}
		}
	}))
}
