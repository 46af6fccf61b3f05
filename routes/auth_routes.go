package routes

import (
	"github.com/anjiri1684/skillazon/handlers"
	"github.com/gofiber/fiber/v2"
)

func AuthRoutes(api fiber.Router, h *handlers.Handler) {
	auth := api.Group("/auth")
	auth.Post("/register", h.RegisterUser)
	auth.Post("/login", h.LoginUser)
	auth.Post("/refresh", h.RefreshToken)
	auth.Post("/logout", h.Logout)
}
