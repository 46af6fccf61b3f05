package handlers

import (
	"strconv"

	"github.com/anjiri1684/skillazon/middleware"
	"github.com/anjiri1684/skillazon/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func (h *Handler) ListSkills(c *fiber.Ctx) error {
	q := services.SkillQuery{
		Category: c.Query("category"),
		Level:    c.Query("level"),
	}
	if raw := c.Query("teacher_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(c, "Invalid teacher_id")
		}
		q.TeacherID = &id
	}
	for key, dst := range map[string]**float64{"min_price": &q.MinPrice, "max_price": &q.MaxPrice} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return badRequest(c, "Invalid "+key)
		}
		*dst = &v
	}

	skills, err := h.Skills.ListSkills(c.UserContext(), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(skills)
}

func (h *Handler) GetTopRatedSkills(c *fiber.Ctx) error {
	skills, err := h.Skills.ListTopRated(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(skills)
}

func (h *Handler) GetSkill(c *fiber.Ctx) error {
	skillID, ok := paramUUID(c, "skillId")
	if !ok {
		return badRequest(c, "Invalid skill ID")
	}

	skill, err := h.Skills.GetSkill(c.UserContext(), skillID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(skill)
}

func (h *Handler) CreateSkill(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	var req services.SkillInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}

	skill, err := h.Skills.CreateSkill(c.UserContext(), userID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(skill)
}

func (h *Handler) UpdateSkill(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	skillID, ok := paramUUID(c, "skillId")
	if !ok {
		return badRequest(c, "Invalid skill ID")
	}

	var req services.SkillUpdate
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}

	skill, err := h.Skills.UpdateSkill(c.UserContext(), skillID, userID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(skill)
}

func (h *Handler) DeleteSkill(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	skillID, ok := paramUUID(c, "skillId")
	if !ok {
		return badRequest(c, "Invalid skill ID")
	}

	if err := h.Skills.DeactivateSkill(c.UserContext(), skillID, userID, middleware.IsAdmin(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Skill deactivated"})
}
