package handlers

import (
	"github.com/anjiri1684/skillazon/middleware"
	"github.com/anjiri1684/skillazon/models"
	"github.com/anjiri1684/skillazon/services"
	"github.com/gofiber/fiber/v2"
)

type SubmitReviewRequest struct {
	ReviewType models.ReviewType `json:"review_type" validate:"required"`
	Rating     int               `json:"rating" validate:"required"`
	Review     string            `json:"review" validate:"required"`
}

func (h *Handler) SubmitReview(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	bookingID, ok := paramUUID(c, "bookingId")
	if !ok {
		return badRequest(c, "Invalid booking ID")
	}

	var req SubmitReviewRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	review, err := h.Reviews.SubmitReview(c.UserContext(), userID, services.SubmitReviewInput{
		BookingID:  bookingID,
		ReviewType: req.ReviewType,
		Rating:     req.Rating,
		Review:     req.Review,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Review submitted successfully",
		"review":  review,
	})
}

func (h *Handler) GetTeacherReviews(c *fiber.Ctx) error {
	teacherID, ok := paramUUID(c, "teacherId")
	if !ok {
		return badRequest(c, "Invalid teacher ID")
	}

	reviews, err := h.Reviews.ListTeacherReviews(c.UserContext(), teacherID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reviews)
}

func (h *Handler) GetSkillReviews(c *fiber.Ctx) error {
	skillID, ok := paramUUID(c, "skillId")
	if !ok {
		return badRequest(c, "Invalid skill ID")
	}

	reviews, err := h.Reviews.ListSkillReviews(c.UserContext(), skillID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reviews)
}

func (h *Handler) RespondToReview(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	reviewID, ok := paramUUID(c, "reviewId")
	if !ok {
		return badRequest(c, "Invalid review ID")
	}

	type Request struct {
		Response string `json:"response" validate:"required"`
	}
	var req Request
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	review, err := h.Reviews.AddResponse(c.UserContext(), reviewID, userID, req.Response)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Response added successfully", "review": review})
}

func (h *Handler) MarkReviewHelpful(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	reviewID, ok := paramUUID(c, "reviewId")
	if !ok {
		return badRequest(c, "Invalid review ID")
	}

	review, err := h.Reviews.AddHelpfulVote(c.UserContext(), reviewID, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Marked as helpful", "helpful_votes": review.HelpfulVotes})
}

func (h *Handler) ReportReview(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	reviewID, ok := paramUUID(c, "reviewId")
	if !ok {
		return badRequest(c, "Invalid review ID")
	}

	type Request struct {
		Reason string `json:"reason" validate:"required"`
	}
	var req Request
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	if _, err := h.Reviews.ReportReview(c.UserContext(), reviewID, userID, req.Reason); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Review reported, our moderators will take a look"})
}

func (h *Handler) GetTeacherReviewStats(c *fiber.Ctx) error {
	teacherID, ok := paramUUID(c, "teacherId")
	if !ok {
		return badRequest(c, "Invalid teacher ID")
	}

	stats, err := h.Reviews.GetTeacherStats(c.UserContext(), teacherID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}
