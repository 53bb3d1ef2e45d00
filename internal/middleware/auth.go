package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/olekros/zvistka/internal/logger"
)

// AuthConfig defines the config for the API key middleware.
type AuthConfig struct {
	// Next skips the middleware when it returns true. Optional.
	Next func(c *fiber.Ctx) bool

	// Validator checks the presented key. Required.
	Validator func(key string) (bool, error)

	// Header is where the key is read from. Default: "X-API-Key".
	Header string
}

// NewAuth returns a handler that rejects requests without a valid API key.
func NewAuth(cfg AuthConfig) fiber.Handler {
	if cfg.Header == "" {
		cfg.Header = "X-API-Key"
	}

	reject := func(c *fiber.Ctx, err error) error {
		logger.Get().Warn().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Err(err).
			Msg("Authentication failed")

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or missing API Key",
		})
	}

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		header := c.Get(cfg.Header)
		if header == "" {
			return reject(c, errors.New("missing API key"))
		}

		token := strings.TrimPrefix(header, "Bearer ")
		valid, err := cfg.Validator(token)
		if err != nil {
			return reject(c, err)
		}
		if !valid {
			return reject(c, errors.New("invalid API key"))
		}

		c.Locals("apiKey", token)
		return c.Next()
	}
}

// AdminOnly restricts a route to the configured admin key.
func AdminOnly(adminKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := c.Get("X-API-Key")
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "API key is required",
			})
		}
		if apiKey != adminKey {
			logger.Get().Warn().
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Msg("Unauthorized admin access attempt")

			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin access required",
			})
		}
		return c.Next()
	}
}
