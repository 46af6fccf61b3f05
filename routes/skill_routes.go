package routes

import (
	"github.com/anjiri1684/skillazon/handlers"
	"github.com/anjiri1684/skillazon/middleware"
	"github.com/gofiber/fiber/v2"
)

func SkillRoutes(api fiber.Router, h *handlers.Handler, protected fiber.Handler) {
	api.Get("/skills", h.ListSkills)
	api.Get("/skills/featured/top-rated", h.GetTopRatedSkills)
	api.Get("/skills/:skillId", h.GetSkill)
	api.Get("/skills/:skillId/reviews", h.GetSkillReviews)
	api.Get("/teachers/:teacherId/reviews", h.GetTeacherReviews)
	api.Get("/teachers/:teacherId/review-stats", h.GetTeacherReviewStats)

	skills := api.Group("/skills", protected)
	skills.Post("", middleware.TeacherRequired(), h.CreateSkill)
	skills.Put("/:skillId", h.UpdateSkill)
	skills.Delete("/:skillId", h.DeleteSkill)
}
