package routes

import (
	"github.com/anjiri1684/skillazon/handlers"
	"github.com/anjiri1684/skillazon/middleware"
	"github.com/gofiber/fiber/v2"
)

func AdminRoutes(api fiber.Router, h *handlers.Handler, protected fiber.Handler) {
	admin := api.Group("/admin", protected, middleware.AdminRequired())

	users := admin.Group("/users")
	users.Get("", h.GetAllUsers)
	users.Put("/:userId/status", h.SetUserStatus)

	admin.Get("/bookings", h.AdminGetAllBookings)
	admin.Get("/reviews/reported", h.AdminListReportedReviews)
	admin.Put("/reviews/:reviewId/hide", h.AdminHideReview)
}
