package middleware

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// QueryParamsKey is where validated query structs are stored in the context.
const QueryParamsKey = "queryParams"

// ValidateQueryParams parses query parameters into a fresh instance produced
// by the factory and validates it, storing the result in the context.
func ValidateQueryParams(factory func() interface{}) fiber.Handler {
	return func(c *fiber.Ctx) error {
		params := factory()
		if err := c.QueryParser(params); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid query parameters",
				"msg":   err.Error(),
			})
		}

		if err := validate.Struct(params); err != nil {
			fields := make(map[string]string)
			for _, ferr := range err.(validator.ValidationErrors) {
				fields[ferr.Field()] = ferr.Tag()
			}
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":  "Invalid query parameters",
				"fields": fields,
			})
		}

		c.Locals(QueryParamsKey, params)
		return c.Next()
	}
}
