package routes

import (
	"github.com/gofiber/fiber/v2"

	"study-booking-api/controllers"
	"study-booking-api/middleware"
)

// SetupBookingRoutes configures all booking related routes. Creation is
// public so participants can book without an account.
func SetupBookingRoutes(app *fiber.App) {
	booking := app.Group("/bookings")
	booking.Post("/", controllers.CreateBooking)
	booking.Get("/:id", middleware.Protected(), controllers.GetBooking)
	booking.Delete("/:id", middleware.Protected(), controllers.DeleteBooking)
}
