package handlers

import (
	"errors"

	"quiz-study-system/middleware"
	"quiz-study-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Guards are the per-route middleware chains built in main.
type Guards struct {
	User   fiber.Handler // gateway user context
	Admin  fiber.Handler // role check, runs after User
	Stream fiber.Handler // query-token auth for EventSource clients
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrNotificationNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrSessionCompleted),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, gorm.ErrDuplicatedKey):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrInvalidResult),
		errors.Is(err, services.ErrInvalidTeam),
		errors.Is(err, services.ErrInvalidAssignment),
		errors.Is(err, services.ErrInvalidAchievement):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrNotTeamOwner):
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, msg string, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, msg string, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals(middleware.LocalUserID).(string)
	return id
}
