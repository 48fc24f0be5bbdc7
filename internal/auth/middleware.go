package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/greenwhite/servicedesk-sla/pkg/util"
)

// RequireScope validates the bearer service token and checks it grants the
// given scope.
func RequireScope(tokens *TokenManager, scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return apperrors.NewUnauthorized("missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return apperrors.NewUnauthorized("invalid authorization header")
		}

		claims, err := tokens.ParseToken(parts[1])
		if err != nil {
			return apperrors.NewUnauthorized("invalid token")
		}
		if !claims.HasScope(scope) {
			return apperrors.NewUnauthorized("insufficient scope")
		}

		c.Locals("auth_service", claims.Service)
		return c.Next()
	}
}
