package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "github.com/kiz-commit/porchrecords-sub005/internal/log"
	"github.com/kiz-commit/porchrecords-sub005/internal/services"
)

// RequireAdmin gates the back office. The sync subsystem only ever consumes
// this as a boolean capability.
func RequireAdmin(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies("sid")
		if sid == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "login required"})
		}
		if !auth.IsAdmin(sid) {
			applog.Security(c, "access.denied.admin", map[string]any{"sid": sid})
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
		}
		return c.Next()
	}
}
