package routes

import (
	"github.com/gofiber/fiber/v2"

	"study-booking-api/controllers"
	"study-booking-api/middleware"
)

// SetupStudyRoutes configures all study related routes. Reads are public;
// mutations go through the ownership gate in the controllers.
func SetupStudyRoutes(app *fiber.App) {
	study := app.Group("/studies")
	study.Get("/", controllers.GetAllStudies)
	study.Get("/my", middleware.Protected(), controllers.GetMyStudies)
	study.Get("/:id", controllers.GetStudy)
	study.Get("/:id/sessions", controllers.GetStudySessions)
	study.Post("/", middleware.Protected(), controllers.CreateStudy)
	study.Put("/:id", middleware.Protected(), controllers.UpdateStudy)
	study.Delete("/:id", middleware.Protected(), controllers.DeleteStudy)
}
