package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rxtech-lab/nft-marketplace/internal/utils"
)

// AuthConfig holds configuration for the auth middleware
type AuthConfig struct {
	// ResourceID is the expected audience for token validation
	ResourceID string
	// TokenValidator validates the bearer token when no JWTAuthenticator is set
	TokenValidator func(token string, audience []string) error
	// JWTAuthenticator takes precedence over TokenValidator
	JWTAuthenticator *utils.JwtAuthenticator
	// SkipWellKnown lets .well-known endpoints bypass auth
	SkipWellKnown bool
}

// DefaultAuthConfig provides default configuration
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		SkipWellKnown: true,
		TokenValidator: func(token string, audience []string) error {
			if token == "" {
				return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
			}
			return nil
		},
	}
}

// AuthMiddleware returns a Fiber middleware for Bearer token authentication
func AuthMiddleware(config ...AuthConfig) fiber.Handler {
	cfg := DefaultAuthConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	return func(c *fiber.Ctx) error {
		if cfg.SkipWellKnown && strings.Contains(c.Path(), ".well-known") {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		var token string
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		}

		if token == "" {
			c.Set("WWW-Authenticate", `Bearer realm="Access to protected resource"`)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing or invalid Bearer token",
				"kind":  "unauthorized",
			})
		}

		if cfg.JWTAuthenticator != nil {
			user, err := cfg.JWTAuthenticator.ValidateToken(token)
			if err != nil {
				c.Set("WWW-Authenticate", `Bearer realm="Access to protected resource"`)
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error":   "Invalid token",
					"kind":    "unauthorized",
					"details": err.Error(),
				})
			}

			if cfg.ResourceID != "" && !hasAudience(user.Aud, cfg.ResourceID) {
				c.Set("WWW-Authenticate", `Bearer realm="Access to protected resource"`)
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid audience",
					"kind":  "unauthorized",
				})
			}

			c.Locals("user", user)
			return c.Next()
		}

		var audience []string
		if cfg.ResourceID != "" {
			audience = []string{cfg.ResourceID}
		}
		if cfg.TokenValidator == nil || cfg.TokenValidator(token, audience) != nil {
			c.Set("WWW-Authenticate", `Bearer realm="Access to protected resource"`)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
				"kind":  "unauthorized",
			})
		}
		return c.Next()
	}
}

func hasAudience(audiences []string, resourceID string) bool {
	for _, aud := range audiences {
		if aud == resourceID {
			return true
		}
	}
	return false
}

// GetAuthenticatedUser retrieves the authenticated user from Fiber context.
// Returns nil if no user is found.
func GetAuthenticatedUser(c *fiber.Ctx) *utils.AuthenticatedUser {
	user, ok := c.Locals("user").(*utils.AuthenticatedUser)
	if !ok {
		return nil
	}
	return user
}
