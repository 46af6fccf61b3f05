package handlers

import (
	"time"

	"github.com/anjiri1684/skillazon/services"
	"github.com/gofiber/fiber/v2"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CanTeach  bool      `json:"can_teach"`
	CanLearn  bool      `json:"can_learn"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) RegisterUser(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	user, err := h.Users.Register(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(UserResponse{
		ID:        user.ID.String(),
		Username:  user.Username,
		Email:     user.Email,
		CanTeach:  user.Capabilities.CanTeach,
		CanLearn:  user.Capabilities.CanLearn,
		IsAdmin:   user.IsAdmin,
		CreatedAt: user.CreatedAt,
	})
}

func (h *Handler) LoginUser(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	session, err := h.Users.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"token":         session.AccessToken,
		"refresh_token": session.RefreshToken,
		"user":          session.User,
	})
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken trades a refresh token for a new access token.
func (h *Handler) RefreshToken(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Refresh token required"})
	}

	token, err := h.Users.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"token": token})
}

// Logout revokes the refresh token if there is one. It always succeeds.
func (h *Handler) Logout(c *fiber.Ctx) error {
	var req RefreshRequest
	_ = c.BodyParser(&req)
	if req.RefreshToken != "" {
		_ = h.Users.Logout(c.UserContext(), req.RefreshToken)
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}
