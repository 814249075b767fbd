package handlers

import (
	"quiz-study-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupNotificationRoutes(app *fiber.App, notifications *services.NotificationService, guards Guards) {
	app.Get("/user/notifications/stream", guards.Stream, notifications.StreamUserNotificationsSSE)

	app.Get("/user/notifications", guards.User, func(c *fiber.Ctx) error {
		list, err := notifications.List(c.UserContext(), userID(c), c.QueryBool("unviewed", false), c.QueryInt("limit", 50))
		if err != nil {
			return fail(c, "failed to list notifications", err)
		}
		return c.JSON(list)
	})

	app.Patch("/notifications/:id/viewed", guards.User, func(c *fiber.Ctx) error {
		if err := notifications.MarkViewed(c.UserContext(), userID(c), c.Params("id")); err != nil {
			return fail(c, "failed to mark notification viewed", err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
