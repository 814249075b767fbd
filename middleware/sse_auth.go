// middleware/sse_auth.go
package middleware

import (
	"strings"

	"quiz-study-system/logger"
	"quiz-study-system/services"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware validates `token` and `device_id` query params through the
// auth service; EventSource clients cannot set headers.
func SSEAuthMiddleware(validator services.TokenValidator, log *logger.Logger) fiber.Handler {
	log = log.With("middleware", "sse_auth")
	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(c.Query("token"))
		deviceID := strings.TrimSpace(c.Query("device_id"))

		if accessToken == "" || deviceID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token or device_id in query",
			})
		}

		resp, err := validator.ValidateToken(c.UserContext(), accessToken, deviceID)
		if err != nil {
			log.Warn("❌ [SSEAuth] validation failed", "device_id", deviceID, "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		// same keys as UserContextMiddleware so handlers read one place
		c.Locals(LocalUserID, resp.UserID)
		c.Locals(LocalDeviceID, resp.DeviceID)
		c.Locals(LocalOTPNotRequired, resp.OTPNotRequiredForDevice)
		c.Locals(LocalUserRoles, resp.Roles)

		log.Debug("[SSEAuth] ✅ authenticated", "user_id", resp.UserID, "device_id", resp.DeviceID)
		return c.Next()
	}
}
