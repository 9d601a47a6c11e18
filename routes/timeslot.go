package routes

import (
	"github.com/gofiber/fiber/v2"

	"study-booking-api/controllers"
	"study-booking-api/middleware"
)

// SetupTimeSlotRoutes configures all time slot related routes
func SetupTimeSlotRoutes(app *fiber.App) {
	slot := app.Group("/timeslots")
	slot.Get("/", controllers.GetAllTimeSlots)
	slot.Get("/:id", controllers.GetTimeSlot)
	slot.Get("/:id/bookings", middleware.Protected(), controllers.GetSlotBookings)
	slot.Get("/:id/bookings/audit", middleware.Protected(), controllers.GetSlotBookingsAudit)
	slot.Post("/", middleware.Protected(), controllers.CreateTimeSlot)
	slot.Put("/:id", middleware.Protected(), controllers.UpdateTimeSlot)
	slot.Delete("/:id", middleware.Protected(), controllers.DeleteTimeSlot)
}
