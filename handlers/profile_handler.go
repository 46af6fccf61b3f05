package handlers

import (
	"github.com/anjiri1684/skillazon/middleware"
	"github.com/anjiri1684/skillazon/services"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) GetMyProfile(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	user, err := h.Users.GetUser(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

func (h *Handler) UpdateMyProfile(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	var req services.ProfileUpdate
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	user, err := h.Users.UpdateProfile(c.UserContext(), userID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// BecomeTeacher enables teaching and returns a fresh token carrying the
// new can_teach claim.
func (h *Handler) BecomeTeacher(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	user, err := h.Users.BecomeTeacher(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	token, err := h.Users.IssueToken(user)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Teaching enabled for your account", "token": token, "user": user})
}

// GetAvatarUploadSignature signs a direct browser upload of the caller's avatar.
func (h *Handler) GetAvatarUploadSignature(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	if h.Avatars == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Avatar uploads are not configured"})
	}

	sig, err := h.Avatars.Sign(userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sig)
}

// SetAvatar stores the delivery URL of an upload signed for the caller.
func (h *Handler) SetAvatar(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	if h.Avatars == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Avatar uploads are not configured"})
	}

	type Request struct {
		URL string `json:"url" validate:"required,url"`
	}
	var req Request
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	if !h.Avatars.OwnsURL(req.URL, userID) {
		return badRequest(c, "Avatar must be an image uploaded with your signature")
	}

	user, err := h.Users.UpdateProfile(c.UserContext(), userID, services.ProfileUpdate{Avatar: &req.URL})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}
