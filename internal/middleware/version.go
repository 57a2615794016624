package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pis-platform/pis/internal/types"
)

// APIVersion is the only API major version served
const APIVersion = "1.0.0"

// VersionMiddleware parses the X-Api-Version header, rejects unsupported
// major versions and echoes the served version back.
func VersionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		version := c.Get("X-Api-Version", APIVersion)

		// Support version aliases
		switch version {
		case "1", "1.0":
			version = APIVersion
		}

		if major, _, _ := strings.Cut(version, "."); major != "1" {
			return types.NewError(fiber.StatusBadRequest, "Unsupported API version "+version, "version")
		}

		c.Locals("apiVersion", version)
		c.Set("X-Api-Version", APIVersion)

		return c.Next()
	}
}
