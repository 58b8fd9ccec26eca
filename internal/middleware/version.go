package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/jam-build-crm/internal/types"
)

// APIVersion is the version this server speaks.
const APIVersion = "1.0.0"

// VersionMiddleware parses the X-Api-Version header, rejects other major versions and
// stores the version in context.
func VersionMiddleware() fiber.Handler {
	major, _, _ := strings.Cut(APIVersion, ".")
	return func(c *fiber.Ctx) error {
		version := c.Get("X-Api-Version", APIVersion)

		// Support version aliases
		switch strings.Count(version, ".") {
		case 0:
			version += ".0.0"
		case 1:
			version += ".0"
		}

		if m, _, _ := strings.Cut(version, "."); m != major {
			return types.ValidationError("Unsupported API version " + version)
		}

		c.Locals("apiVersion", version)
		c.Set("X-Api-Version", APIVersion)

		return c.Next()
	}
}
