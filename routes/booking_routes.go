package routes

import (
	"github.com/anjiri1684/skillazon/handlers"
	"github.com/gofiber/fiber/v2"
)

func BookingRoutes(api fiber.Router, h *handlers.Handler, protected fiber.Handler) {
	booking := api.Group("/bookings", protected)
	booking.Post("", h.CreateBooking)
	booking.Get("/me", h.GetMyBookings)
	booking.Get("/upcoming", h.GetUpcomingBookings)
	booking.Get("/past", h.GetPastBookings)
	booking.Get("/stats", h.GetBookingStats)

	booking.Get("/:bookingId", h.GetBooking)
	booking.Patch("/:bookingId/confirm", h.ConfirmBooking)
	booking.Patch("/:bookingId/cancel", h.CancelBooking)
	booking.Patch("/:bookingId/complete", h.CompleteBooking)
	booking.Post("/:bookingId/rating", h.RateBooking)
	booking.Post("/:bookingId/reviews", h.SubmitReview)
	booking.Get("/:bookingId/messages", h.GetBookingMessages)
}
