package controlplane

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// basicAuth enforces HTTP Basic Auth against a single shared password,
// checking only the password field and ignoring the username — matching
// pymock/controller.py's BasicAuthHandler.prepare exactly. A nil/empty
// password disables auth entirely (server_password is None).
func basicAuth(password string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if password == "" {
			return c.Next()
		}

		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Basic ") {
			return unauthorized(c)
		}

		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, "Basic "))
		if err != nil {
			return unauthorized(c)
		}
		parts := strings.SplitN(string(decoded), ":", 2)
		if len(parts) != 2 {
			return unauthorized(c)
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(password)) != 1 {
			return unauthorized(c)
		}
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx) error {
	c.Set("WWW-Authenticate", `Basic realm="mocktun"`)
	return newAPIError(fiber.StatusUnauthorized, "unauthorized")
}
