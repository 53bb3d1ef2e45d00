package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/olekros/zvistka/internal/config"
	"github.com/olekros/zvistka/internal/middleware"
)

// SetupRoutes configures all the routes for the application.
func SetupRoutes(app *fiber.App, handlers *Handlers, cfg *config.Config) {
	app.Use(recover.New())
	app.Use(middleware.RequestLogger())

	api := app.Group("/api/v1")

	api.Get("/health", handlers.HealthCheck)

	auth := middleware.NewAuth(middleware.AuthConfig{
		Next: func(c *fiber.Ctx) bool { return cfg.APIKey == "" },
		Validator: func(key string) (bool, error) {
			return key == cfg.APIKey, nil
		},
	})

	news := api.Group("/news")
	{
		news.Get("/parse", auth,
			middleware.ValidateQueryParams(func() interface{} { return new(ParseQuery) }),
			handlers.ParseNews)
		news.Get("/recent",
			middleware.ValidateQueryParams(func() interface{} { return new(RecentQuery) }),
			handlers.RecentNews)
		news.Get("/search",
			middleware.ValidateQueryParams(func() interface{} { return new(SearchQuery) }),
			handlers.SearchNews)
	}

	admin := api.Group("/admin", middleware.AdminOnly(cfg.AdminAPIKey))
	{
		admin.Delete("/freshness", handlers.InvalidateFreshness)
	}

	products := api.Group("/products")
	{
		products.Get("/offers",
			middleware.ValidateQueryParams(func() interface{} { return new(OffersQuery) }),
			handlers.ProductOffers)
	}

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}
