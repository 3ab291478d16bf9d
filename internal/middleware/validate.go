package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/quickbyte/internal/logger"
)

const queryLocalsKey = "queryParams"

// Validator is a struct that holds the validator instance
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that reports fields by their query tag.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("query"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate validates s against its validate tags.
func (v *Validator) Validate(s any) error {
	return v.validate.Struct(s)
}

// Defaulter is implemented by query structs that need non-zero defaults
// before parsing.
type Defaulter interface {
	SetDefaults()
}

// ValidateQuery parses the query string into a fresh T for every request,
// validates it and stores it for Query.
func ValidateQuery[T any]() fiber.Handler {
	v := NewValidator()

	return func(c *fiber.Ctx) error {
		params := new(T)
		if d, ok := any(params).(Defaulter); ok {
			d.SetDefaults()
		}

		if err := c.QueryParser(params); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid query parameters",
				"msg":   err.Error(),
			})
		}

		if err := v.Validate(params); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return err
			}
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":  "Invalid query parameters",
				"fields": fields,
			})
		}

		c.Locals(queryLocalsKey, params)
		return c.Next()
	}
}

// Query returns the parameters stored by ValidateQuery[T], or nil.
func Query[T any](c *fiber.Ctx) *T {
	params, _ := c.Locals(queryLocalsKey).(*T)
	return params
}

// ErrorHandler maps handler errors to a JSON body with the status text.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	logger.Get().Error().
		Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", code).
		Msg("HTTP error")

	return c.Status(code).JSON(fiber.Map{
		"error": http.StatusText(code),
	})
}
