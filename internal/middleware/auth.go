package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/yourorg/snkrshop/internal/models"
	"github.com/yourorg/snkrshop/internal/token"
)

// RequireAuth guards protected endpoints. It extracts the Bearer token from
// the Authorization header, verifies it, and stores the authenticated user id
// under c.Locals("userID") before the handler runs. Authentication only;
// there are no roles.
func RequireAuth(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "authorization token not found"})
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	userID, err := token.Verify(tokenString)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "invalid token"})
	}

	c.Locals("userID", userID)
	return c.Next()
}

// CurrentUserID returns the id injected by RequireAuth, or "" when the
// request never passed the gate.
func CurrentUserID(c *fiber.Ctx) string {
	if id, ok := c.Locals("userID").(string); ok {
		return id
	}
	return ""
}
