package routes

import (
	"github.com/anjiri1684/skillazon/handlers"
	"github.com/gofiber/fiber/v2"
)

func ReviewRoutes(api fiber.Router, h *handlers.Handler, protected fiber.Handler) {
	reviews := api.Group("/reviews/:reviewId", protected)
	reviews.Post("/response", h.RespondToReview)
	reviews.Post("/helpful", h.MarkReviewHelpful)
	reviews.Post("/report", h.ReportReview)
}
