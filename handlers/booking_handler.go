package handlers

import (
	"time"

	"github.com/anjiri1684/skillazon/middleware"
	"github.com/anjiri1684/skillazon/models"
	"github.com/anjiri1684/skillazon/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	SkillID       string    `json:"skill_id" validate:"required,uuid"`
	ScheduledDate time.Time `json:"scheduled_date" validate:"required"`
	Duration      *int      `json:"duration,omitempty"`
	Message       string    `json:"message,omitempty"`
}

type ConfirmBookingRequest struct {
	MeetingLink     *string `json:"meeting_link,omitempty" validate:"omitempty,url"`
	MeetingPlatform *string `json:"meeting_platform,omitempty"`
	TeacherNotes    *string `json:"teacher_notes,omitempty"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty"`
}

type RateBookingRequest struct {
	Role   models.Role `json:"role" validate:"required,oneof=student teacher"`
	Rating int         `json:"rating"`
	Review string      `json:"review,omitempty"`
}

func (h *Handler) CreateBooking(c *fiber.Ctx) error {
	studentID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	var req CreateBookingRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	skillID, _ := uuid.Parse(req.SkillID)

	booking, err := h.Bookings.CreateBooking(c.UserContext(), studentID, services.CreateBookingInput{
		SkillID:       skillID,
		ScheduledDate: req.ScheduledDate,
		Duration:      req.Duration,
		Message:       req.Message,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Booking request sent. The teacher will confirm it shortly.",
		"booking": booking,
	})
}

func (h *Handler) GetMyBookings(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	bookings, err := h.Bookings.ListBookings(c.UserContext(), userID, services.BookingQuery{
		As:     models.Role(c.Query("as")),
		Status: models.BookingStatus(c.Query("status")),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(bookings)
}

func (h *Handler) GetUpcomingBookings(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	bookings, err := h.Bookings.FindUpcoming(c.UserContext(), userID, models.Role(c.Query("role")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(bookings)
}

func (h *Handler) GetPastBookings(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	bookings, err := h.Bookings.FindPast(c.UserContext(), userID, models.Role(c.Query("role")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(bookings)
}

func (h *Handler) GetBookingStats(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	as := c.Query("as", "both")
	if as == "both" {
		stats, err := h.Bookings.GetCombinedStats(c.UserContext(), userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"as": as, "stats": stats})
	}

	stats, err := h.Bookings.GetStats(c.UserContext(), userID, models.Role(as))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"as": as, "stats": stats})
}

func (h *Handler) GetBooking(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	bookingID, ok := paramUUID(c, "bookingId")
	if !ok {
		return badRequest(c, "Invalid booking ID")
	}

	booking, err := h.Bookings.GetBooking(c.UserContext(), bookingID, userID, middleware.IsAdmin(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(booking)
}

func (h *Handler) ConfirmBooking(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	bookingID, ok := paramUUID(c, "bookingId")
	if !ok {
		return badRequest(c, "Invalid booking ID")
	}

	var req ConfirmBookingRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return badRequest(c, err.Error())
		}
	}

	booking, err := h.Bookings.Confirm(c.UserContext(), bookingID, userID, services.ConfirmInput{
		MeetingLink:     req.MeetingLink,
		MeetingPlatform: req.MeetingPlatform,
		TeacherNotes:    req.TeacherNotes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Booking confirmed", "booking": booking})
}

func (h *Handler) CancelBooking(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	bookingID, ok := paramUUID(c, "bookingId")
	if !ok {
		return badRequest(c, "Invalid booking ID")
	}

	var req CancelBookingRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Cannot parse JSON")
		}
	}

	booking, err := h.Bookings.Cancel(c.UserContext(), bookingID, userID, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Booking cancelled", "booking": booking})
}

func (h *Handler) CompleteBooking(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	bookingID, ok := paramUUID(c, "bookingId")
	if !ok {
		return badRequest(c, "Invalid booking ID")
	}

	booking, err := h.Bookings.Complete(c.UserContext(), bookingID, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Booking marked as completed", "booking": booking})
}

func (h *Handler) RateBooking(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	bookingID, ok := paramUUID(c, "bookingId")
	if !ok {
		return badRequest(c, "Invalid booking ID")
	}

	var req RateBookingRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	booking, err := h.Bookings.AttachRating(c.UserContext(), bookingID, userID, req.Role, req.Rating, req.Review)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(booking)
}
