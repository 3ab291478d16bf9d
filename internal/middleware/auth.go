package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/quickbyte/internal/logger"
)

var (
	errMissingKey  = errors.New("missing API key")
	errInvalidKey  = errors.New("invalid API key")
	errAdminClosed = errors.New("admin API disabled")
)

// AuthConfig defines the config for the auth middleware
type AuthConfig struct {
	// Next skips the middleware when it returns true.
	Next func(c *fiber.Ctx) bool

	// Validator checks the presented key. Required.
	Validator func(key string) (bool, error)

	// ErrorHandler is executed for a missing or invalid key.
	// Optional. Default: 401 for a missing key, 403 otherwise.
	ErrorHandler fiber.ErrorHandler

	// ContextKey is the Locals key the accepted key is stored under.
	// Optional. Default: "apiKey"
	ContextKey string

	// Header carries the key. Optional. Default: "X-API-Key"
	Header string
}

// ConfigDefault is the default config
var ConfigDefault = AuthConfig{
	ErrorHandler: func(c *fiber.Ctx, err error) error {
		logger.Get().Warn().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Err(err).
			Msg("Authentication failed")

		switch {
		case errors.Is(err, errMissingKey):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "API key is required",
			})
		case errors.Is(err, errAdminClosed):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin API is disabled",
			})
		default:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin access required",
			})
		}
	},
	ContextKey: "apiKey",
	Header:     "X-API-Key",
}

// NewAuth creates an API key middleware.
func NewAuth(config AuthConfig) fiber.Handler {
	cfg := config
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = ConfigDefault.ErrorHandler
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = ConfigDefault.ContextKey
	}
	if cfg.Header == "" {
		cfg.Header = ConfigDefault.Header
	}

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		token := strings.TrimPrefix(c.Get(cfg.Header), "Bearer ")
		if token == "" {
			return cfg.ErrorHandler(c, errMissingKey)
		}

		valid, err := cfg.Validator(token)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}
		if !valid {
			return cfg.ErrorHandler(c, errInvalidKey)
		}

		c.Locals(cfg.ContextKey, token)
		return c.Next()
	}
}

// AdminOnly accepts requests whose X-API-Key equals adminKey. An empty
// adminKey closes the admin routes entirely.
func AdminOnly(adminKey string) fiber.Handler {
	return NewAuth(AuthConfig{
		Validator: func(key string) (bool, error) {
			if adminKey == "" {
				return false, errAdminClosed
			}
			return subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) == 1, nil
		},
	})
}
