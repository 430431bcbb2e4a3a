// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware extracts tenant and user identity set by the Gateway.
// The Gateway has already validated the session; this service trusts the
// forwarded headers.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orgID := c.Get("X-Organization-ID")
		userID := c.Get("X-User-ID")
		rolesStr := c.Get("X-User-Roles")

		if orgID == "" {
			log.Printf("❌ [USER_CTX] X-Organization-ID missing on %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-Organization-ID — request must come through gateway with tenant context",
			})
		}
		if userID == "" {
			log.Printf("❌ [USER_CTX] X-User-ID missing on %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		var roles []string
		if rolesStr != "" {
			for _, r := range strings.Split(rolesStr, ",") {
				r = strings.TrimSpace(r)
				if r != "" {
					roles = append(roles, r)
				}
			}
		}

		c.Locals("organization_id", orgID)
		c.Locals("user_id", userID)
		c.Locals("user_roles", roles)

		return c.Next()
	}
}

// AdminOnlyMiddleware gates the admin surface on the forwarded role list.
func AdminOnlyMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		roles, _ := c.Locals("user_roles").([]string)
		for _, r := range roles {
			if r == "admin" || r == "org_admin" {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "admin role required",
		})
	}
}
