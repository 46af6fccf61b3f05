package routes

import (
	"github.com/anjiri1684/skillazon/handlers"
	"github.com/gofiber/fiber/v2"
)

func ProfileRoutes(api fiber.Router, h *handlers.Handler, protected fiber.Handler) {
	profile := api.Group("/profile/me", protected)
	profile.Get("", h.GetMyProfile)
	profile.Put("", h.UpdateMyProfile)
	profile.Post("/teach", h.BecomeTeacher)
	profile.Post("/avatar/signature", h.GetAvatarUploadSignature)
	profile.Put("/avatar", h.SetAvatar)
}
