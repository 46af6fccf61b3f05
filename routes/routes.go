package routes

import (
	"github.com/anjiri1684/skillazon/handlers"
	"github.com/anjiri1684/skillazon/middleware"
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes mounts every API group under /api/v1.
func SetupRoutes(app *fiber.App, h *handlers.Handler, jwtSecret string) {
	api := app.Group("/api/v1")
	protected := middleware.Protected(jwtSecret)

	AuthRoutes(api, h)
	ProfileRoutes(api, h, protected)
	SkillRoutes(api, h, protected)
	BookingRoutes(api, h, protected)
	ReviewRoutes(api, h, protected)
	AdminRoutes(api, h, protected)
	MessagingRoutes(api, h)
}
