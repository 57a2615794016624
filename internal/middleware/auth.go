package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pis-platform/pis/internal/logging"
	"github.com/pis-platform/pis/internal/services"
	"github.com/pis-platform/pis/internal/types"
)

// Context locals set by BearerAuth
const (
	LocalClaims = "claims"
	LocalEditor = "editor"
)

// TokenVerifier validates a raw bearer token
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (jwt.MapClaims, error)
}

// BearerAuth requires a valid Azure AD access token on every request. The
// 401 message names the failure: missing, expired or invalid.
func BearerAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c.Get(fiber.HeaderAuthorization))

		claims, err := verifier.Verify(c.UserContext(), raw)
		if err != nil {
			message := services.ErrTokenInvalid.Error()
			switch {
			case errors.Is(err, services.ErrTokenMissing):
				message = services.ErrTokenMissing.Error()
			case errors.Is(err, services.ErrTokenExpired):
				message = services.ErrTokenExpired.Error()
			}
			logging.Logger.Debugf("Rejected request to %s: %v", c.Path(), err)
			return types.NewError(fiber.StatusUnauthorized, message, "auth")
		}

		c.Locals(LocalClaims, claims)
		c.Locals(LocalEditor, services.EditorName(claims))

		return c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Editor returns the display name of the authenticated caller
func Editor(c *fiber.Ctx) string {
	if name, ok := c.Locals(LocalEditor).(string); ok && name != "" {
		return name
	}
	return "unknown"
}
