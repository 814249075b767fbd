// middleware/auth.go
package middleware

import (
	"strings"

	"quiz-study-system/logger"

	"github.com/gofiber/fiber/v2"
)

const (
	LocalUserID         = "user_id"
	LocalUserRoles      = "user_roles"
	LocalDeviceID       = "device_id"
	LocalOTPNotRequired = "otp_not_required"
)

// UserContextMiddleware extracts user identity and roles set by the Gateway.
func UserContextMiddleware(log *logger.Logger) fiber.Handler {
	log = log.With("middleware", "user_context")
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			log.Warn("❌ [USER_CTX] X-User-ID required but missing", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID: request must come through gateway with auth context",
			})
		}

		var roles []string
		for _, r := range strings.Split(c.Get("X-User-Roles"), ",") {
			if r = strings.TrimSpace(r); r != "" {
				roles = append(roles, r)
			}
		}

		c.Locals(LocalUserID, userID)
		c.Locals(LocalUserRoles, roles)
		c.Locals(LocalOTPNotRequired, strings.EqualFold(c.Get("X-Otp-Not-Required"), "true"))

		log.Debug("👤 [USER_CTX] resolved", "user_id", userID, "roles", roles, "path", c.Path())
		return c.Next()
	}
}

// RequireRole rejects requests whose gateway roles do not include role.
// It must run after UserContextMiddleware.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roles, _ := c.Locals(LocalUserRoles).([]string)
		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "forbidden",
			"cause": "role " + role + " required",
		})
	}
}
