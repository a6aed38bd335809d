package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/lynqit/lynqit/app/models"
	"github.com/lynqit/lynqit/app/repository"
	"github.com/lynqit/lynqit/internal/pkg/auth"
	"github.com/lynqit/lynqit/internal/pkg/usercontext"
)

// TokenValidator verifies a bearer token.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// AuthConfig configures UserContextMiddleware.
type AuthConfig struct {
	Tokens TokenValidator
	Users  repository.UserRepository
	// EmailFallback accepts X-User-Email / ?email= when no bearer token is sent.
	EmailFallback bool
}

// UserContextMiddleware resolves the caller from a Supabase bearer token (or
// the e-mail fallback) and stores the user context on the request. Requests
// without credentials continue anonymously; an invalid token is rejected.
func UserContextMiddleware(cfg AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := extractBearer(c); token != "" {
			if cfg.Tokens == nil {
				return unauthorized(c, "Authenticatie is niet geconfigureerd")
			}
			claims, err := cfg.Tokens.ValidateToken(token)
			if err != nil {
				log.Debugf("[Auth] bearer token rejected: %v", err)
				return unauthorized(c, "Ongeldige of verlopen sessie")
			}
			user, err := cfg.Users.EnsureUser(claims.Subject, claims.Email)
			if err != nil {
				log.Errorf("[Auth] failed to load user %s: %v", claims.Subject, err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":   "internal_server_error",
					"message": "Er ging iets mis",
				})
			}
			setUser(c, user, usercontext.AuthMethodBearer)
			return c.Next()
		}

		if cfg.EmailFallback {
			if email := extractEmail(c); email != "" {
				user, err := cfg.Users.EnsureUser("", email)
				if err != nil {
					log.Errorf("[Auth] failed to load user by e-mail: %v", err)
					return unauthorized(c, "Onbekende gebruiker")
				}
				setUser(c, user, usercontext.AuthMethodEmail)
				return c.Next()
			}
		}

		usercontext.Set(c, usercontext.UserContext{})
		return c.Next()
	}
}

// setUser stores the caller. Admin rights need a verified token; an e-mail
// address alone proves nothing.
func setUser(c *fiber.Ctx, user *models.User, method string) {
	usercontext.Set(c, usercontext.UserContext{
		UserID:     user.ID,
		Email:      user.Email,
		Role:       user.Role,
		IsLoggedIn: true,
		IsAdmin:    method == usercontext.AuthMethodBearer && user.IsAdmin(),
	})
	c.Locals(usercontext.KeyAuthMethod, method)
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": msg})
}

func extractBearer(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func extractEmail(c *fiber.Ctx) string {
	if email := strings.TrimSpace(c.Get("X-User-Email")); email != "" {
		return email
	}
	return strings.TrimSpace(c.Query("email"))
}
