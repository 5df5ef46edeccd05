package middleware

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const bodyContextKey = "validatedBody"

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateBody parses the request body into T, checks it against its
// validation tags and stores the result in the request context. Runs after
// auth and access gates so validation failures never leak resource
// existence to unauthorized callers.
func ValidateBody[T any]() fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := new(T)
		if err := c.BodyParser(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, violationMessage(err))
		}

		c.Locals(bodyContextKey, body)
		return c.Next()
	}
}

// Body extracts the validated request body from context.
func Body[T any](c *fiber.Ctx) *T {
	if body, ok := c.Locals(bodyContextKey).(*T); ok {
		return body
	}
	return new(T)
}

// RequireUUIDParams rejects the request when any named path parameter is
// not a well-formed uuid.
func RequireUUIDParams(names ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, name := range names {
			if _, err := uuid.Parse(c.Params(name)); err != nil {
				return fiber.NewError(fiber.StatusUnprocessableEntity, "invalid "+name)
			}
		}
		return c.Next()
	}
}

func violationMessage(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return "validation failed"
	}

	violations := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			violations = append(violations, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			violations = append(violations, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		case "email":
			violations = append(violations, fmt.Sprintf("%s must be a valid email", fe.Field()))
		case "min", "gte":
			violations = append(violations, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max", "lte":
			violations = append(violations, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		default:
			violations = append(violations, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}

	return "validation failed: " + strings.Join(violations, "; ")
}
