package handlers

import (
	"errors"
	"log"

	"github.com/anjiri1684/skillazon/services"
	"github.com/anjiri1684/skillazon/store"
	"github.com/anjiri1684/skillazon/websocket"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = validator.New()

// Handler carries the services every route talks to.
type Handler struct {
	Bookings *services.BookingEngine
	Reviews  *services.ReviewLedger
	Skills   *services.SkillCatalog
	Users    *services.IdentityDirectory
	Store    store.Store
	Hub      *websocket.Hub
	// Avatars is nil when uploads are not configured.
	Avatars *services.AvatarSigner
}

// respondError maps service error kinds onto HTTP statuses.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidOperation):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrConflict):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials):
		status = fiber.StatusUnauthorized
	case errors.Is(err, services.ErrAccountLocked):
		status = fiber.StatusLocked
	}

	if status == fiber.StatusInternalServerError {
		log.Printf("🔥 %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{"error": "Internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// parseBody decodes and validates a JSON request body into req.
func parseBody(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return errors.New("cannot parse JSON")
	}
	if err := validate.Struct(req); err != nil {
		return err
	}
	return nil
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}
