package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/koino/internal/config"
	"github.com/example/koino/internal/models"
	"github.com/example/koino/internal/utils"
)

const userContextKey = "currentUser"

// Every authentication failure returns the same message so callers cannot
// distinguish a bad token from an unknown user.
const authRequiredMessage = "authorization required"

// Auth validates the bearer token and loads the authenticated user into
// the request context. It must run before any access or ownership check.
func Auth(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, authRequiredMessage)
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, authRequiredMessage)
		}

		userID, err := utils.ParseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, authRequiredMessage)
		}

		var user models.User
		if err := db.First(&user, "id = ?", userID).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, authRequiredMessage)
		}

		c.Locals(userContextKey, &user)
		return c.Next()
	}
}

// OptionalAuth loads the authenticated user into the request context when
// the request carries a valid bearer token, and lets the request through
// anonymously otherwise. For read routes whose results depend on the
// viewer's access tier.
func OptionalAuth(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		parts := strings.SplitN(c.Get("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Next()
		}

		userID, err := utils.ParseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			return c.Next()
		}

		var user models.User
		if err := db.First(&user, "id = ?", userID).Error; err != nil {
			return c.Next()
		}

		c.Locals(userContextKey, &user)
		return c.Next()
	}
}

// CurrentUser extracts the authenticated user from context.
func CurrentUser(c *fiber.Ctx) (*models.User, bool) {
	value := c.Locals(userContextKey)
	if value == nil {
		return nil, false
	}

	if user, ok := value.(*models.User); ok {
		return user, true
	}

	return nil, false
}
