package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/koino/internal/models"
)

const customerContextKey = "targetCustomer"

// RequireRoles rejects the request unless the authenticated user's role is
// in the allowed set.
func RequireRoles(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, authRequiredMessage)
		}

		for _, role := range roles {
			if user.Role == role {
				return c.Next()
			}
		}

		return fiber.NewError(fiber.StatusForbidden, "access denied")
	}
}

// RequireOwner rejects the request unless the authenticated user's id
// equals the named path parameter. Admins bypass the check. Ownership is a
// pure equality comparison; there is no delegation.
func RequireOwner(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, authRequiredMessage)
		}

		if user.IsAdmin() {
			return c.Next()
		}

		targetID, err := uuid.Parse(c.Params(param))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid "+param)
		}

		if user.ID != targetID {
			return fiber.NewError(fiber.StatusForbidden, "access denied")
		}

		return c.Next()
	}
}

type targetCustomerBody struct {
	To string `json:"_to" form:"_to"`
}

// ResolveCustomer resolves the target customer of a loyalty operation into
// the request context. The identifier comes from the `_to` path parameter
// or body field and may be a user id, email or loyalty card code.
func ResolveCustomer(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := c.Params("_to")
		if identifier == "" {
			var body targetCustomerBody
			_ = c.BodyParser(&body)
			identifier = body.To
		}
		if identifier == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing customer identifier")
		}

		query := db.Where("email = ? OR card = ?", identifier, identifier)
		if id, err := uuid.Parse(identifier); err == nil {
			query = db.Where("id = ?", id)
		}

		var customer models.User
		if err := query.First(&customer).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fiber.NewError(fiber.StatusNotFound, "customer not found")
			}
			return err
		}

		c.Locals(customerContextKey, &customer)
		return c.Next()
	}
}

// TargetCustomer extracts the resolved customer from context.
func TargetCustomer(c *fiber.Ctx) (*models.User, bool) {
	value := c.Locals(customerContextKey)
	if value == nil {
		return nil, false
	}

	if user, ok := value.(*models.User); ok {
		return user, true
	}

	return nil, false
}
