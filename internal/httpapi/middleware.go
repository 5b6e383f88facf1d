package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/zatca-gateway/internal/dto"
	"github.com/jhoicas/zatca-gateway/pkg/adminjwt"
)

// AdminAuthMiddleware validates the bearer token protecting the
// supplemental operator endpoints (SPEC_FULL.md §4.9). It carries no tenant
// identity: a valid token proves operator scope, nothing else.
func AdminAuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code: "MISSING_TOKEN", Message: "Authorization: Bearer <token> required",
			})
		}
		if err := adminjwt.Parse(secret, strings.TrimSpace(parts[1])); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code: "INVALID_TOKEN", Message: "invalid or expired operator token",
			})
		}
		return c.Next()
	}
}
