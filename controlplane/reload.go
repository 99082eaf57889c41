package controlplane

import (
	"os"

	"github.com/gofiber/fiber/v2"
)

// handleReload implements POST /file/reload, matching pymock's
// ReloadHandler.post.
func (s *Server) handleReload(c *fiber.Ctx) error {
	path, err := pathArg(c)
	if err != nil {
		return err
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return newAPIError(fiber.StatusMethodNotAllowed, "not a file")
	}

	message, err := s.dispatch.ReloadFile(path)
	if err != nil {
		return newAPIError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendString(message)
}
