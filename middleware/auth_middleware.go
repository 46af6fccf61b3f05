package middleware

import (
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:     []byte(secret),
		ErrorHandler:   jwtError,
		SuccessHandler: accessOnly,
	})
}

// accessOnly keeps refresh tokens, which may share the signing key, out of
// protected routes.
func accessOnly(c *fiber.Ctx) error {
	if typ, _ := claims(c)["typ"].(string); typ == "refresh" {
		return jwtError(c, jwt.ErrTokenInvalidClaims)
	}
	return c.Next()
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"status": "error", "message": "Missing or malformed JWT", "data": nil})
	}
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"status": "error", "message": "Invalid or expired JWT", "data": nil})
}

func claims(c *fiber.Ctx) jwt.MapClaims {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return jwt.MapClaims{}
	}
	mc, _ := token.Claims.(jwt.MapClaims)
	return mc
}

// CurrentUserID returns the user_id claim of the authenticated request.
func CurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	raw, _ := claims(c)["user_id"].(string)
	id, err := uuid.Parse(raw)
	return id, err == nil
}

func IsAdmin(c *fiber.Ctx) bool {
	admin, _ := claims(c)["is_admin"].(bool)
	return admin
}

func CanTeach(c *fiber.Ctx) bool {
	teach, _ := claims(c)["can_teach"].(bool)
	return teach
}

func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !IsAdmin(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: Admin access required",
			})
		}
		return c.Next()
	}
}

// TeacherRequired rejects tokens without the can_teach capability. Users who
// just enabled teaching need to log in again to refresh the claim.
func TeacherRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !CanTeach(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: Teacher access required",
			})
		}
		return c.Next()
	}
}
