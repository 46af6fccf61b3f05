package handlers

import (
	"github.com/anjiri1684/skillazon/models"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) GetAllUsers(c *fiber.Ctx) error {
	users, err := h.Users.ListUsers(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

func (h *Handler) SetUserStatus(c *fiber.Ctx) error {
	userID, ok := paramUUID(c, "userId")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	type Request struct {
		IsActive *bool `json:"is_active" validate:"required"`
	}
	var req Request
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	user, err := h.Users.SetActive(c.UserContext(), userID, *req.IsActive)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User status updated", "user": user})
}

func (h *Handler) AdminGetAllBookings(c *fiber.Ctx) error {
	bookings, err := h.Bookings.ListAll(c.UserContext(), models.BookingStatus(c.Query("status")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(bookings)
}

func (h *Handler) AdminHideReview(c *fiber.Ctx) error {
	reviewID, ok := paramUUID(c, "reviewId")
	if !ok {
		return badRequest(c, "Invalid review ID")
	}

	review, err := h.Reviews.HideReview(c.UserContext(), reviewID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(review)
}

// ReportedReview exposes the reports that json-hides on the model.
type ReportedReview struct {
	models.Review
	Reports []models.ReviewReport `json:"reports"`
}

func (h *Handler) AdminListReportedReviews(c *fiber.Ctx) error {
	reviews, err := h.Reviews.ListReported(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	out := make([]ReportedReview, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, ReportedReview{Review: r, Reports: r.Reports})
	}
	return c.JSON(out)
}
