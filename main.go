package main

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"study-booking-api/cron"
	"study-booking-api/db"
	"study-booking-api/redis"
	"study-booking-api/routes"
)

func main() {
	app := fiber.New()
	if os.Getenv("AUTO_MIGRATE") == "true" {
		db.Migrate()
	} else {
		db.Init()
	}
	redis.InitRedis()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	routes.SetupAuthRoutes(app)
	routes.SetupStudyRoutes(app)
	routes.SetupSessionRoutes(app)
	routes.SetupTimeSlotRoutes(app)
	routes.SetupBookingRoutes(app)

	cron.StartCronJobs()

	log.Fatal(app.Listen(":8000"))
}
