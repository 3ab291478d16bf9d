package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/bilgisen/quickbyte/internal/config"
	"github.com/bilgisen/quickbyte/internal/middleware"
)

// NewApp creates the fiber application with every route registered.
func NewApp(h *Handlers, cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "quickbyte",
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: middleware.ErrorHandler,
	})

	SetupRoutes(app, h, cfg)
	return app
}

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, h *Handlers, cfg *config.Config) {
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, X-API-Key",
	}))

	api := app.Group("/api/v1")

	api.Get("/health", h.HealthCheck)

	news := api.Group("/news")
	news.Get("/top-headlines", middleware.ValidateQuery[headlinesQuery](), h.TopHeadlines)
	news.Get("/search", middleware.ValidateQuery[searchQuery](), h.Search)
	news.Get("/articles", middleware.ValidateQuery[idsQuery](), h.ArticlesByIDs)
	news.Get("/lookup", middleware.ValidateQuery[lookupQuery](), h.LookupByURL)

	admin := api.Group("/admin", middleware.AdminOnly(cfg.AdminAPIKey))
	admin.Post("/refresh", h.Refresh)
	admin.Post("/evict", h.Evict)
	admin.Get("/status", h.JobStatus)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}
