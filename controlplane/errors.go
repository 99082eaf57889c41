package controlplane

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// ApiError is a status-coded control-plane failure, mirroring the teacher's
// ApiError shape but carrying the plain-text body pymock's write_error/
// send_error produce instead of a JSON envelope (file/tunnel endpoints here
// are plain-text, matching pymock/controller.py's CommonRequestHandler).
type ApiError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *ApiError) Error() string { return e.Message }

func newAPIError(status int, message string) *ApiError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &ApiError{Status: status, Message: message}
}

// controlPlaneErrorHandler renders an ApiError (or any other error) as
// plain text, matching pymock's CommonRequestHandler.write_error.
func controlPlaneErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := err.Error()

	if apiErr, ok := err.(*ApiError); ok {
		status = apiErr.Status
		message = apiErr.Message
	} else if fiberErr, ok := err.(*fiber.Error); ok {
		status = fiberErr.Code
		message = fiberErr.Message
	}

	c.Set("Content-Type", "text/plain")
	return c.Status(status).SendString(message)
}
