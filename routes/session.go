package routes

import (
	"github.com/gofiber/fiber/v2"

	"study-booking-api/controllers"
	"study-booking-api/middleware"
)

// SetupSessionRoutes configures all session related routes
func SetupSessionRoutes(app *fiber.App) {
	session := app.Group("/sessions")
	session.Get("/", controllers.GetAllSessions)
	session.Get("/:id", controllers.GetSession)
	session.Get("/:id/timeslots", controllers.GetSessionTimeSlots)
	session.Post("/", middleware.Protected(), controllers.CreateSession)
	session.Delete("/:id", middleware.Protected(), controllers.DeleteSession)
}
