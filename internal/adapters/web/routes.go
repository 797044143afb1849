package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"replykit/pkg/json"
)

// BodyLimit admits full page snapshots.
const BodyLimit = 16 << 20

// NewApp returns a Fiber app with the JSON codec, error handler and
// middleware chain the API expects.
func NewApp(name string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      name,
		BodyLimit:    BodyLimit,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New(RequestIDConfig()))
	app.Use(RequestIDToContextMiddleware())
	app.Use(RequestLoggerMiddleware())
	return app
}

// errorHandler renders errors that escape handlers, such as unknown routes
// and recovered panics, in the API's error shape.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(ErrorBody{Error: ErrorDetail{Kind: "http", Message: fe.Message}})
	}
	return respondError(c, err)
}

// SetupRoutes configures the application routes. Calls to the AI provider
// go through rateLimiter.
func SetupRoutes(app *fiber.App, handlers *Handlers, rateLimiter *RateLimiter) {
	app.Get("/healthz", handlers.Health)

	api := app.Group("/api")

	// Page operations
	api.Post("/extract", handlers.Extract)
	api.Post("/draft", handlers.Draft)
	api.Post("/insert", handlers.Insert)

	// Provider-backed operations
	api.Post("/analyze", rateLimiter.Middleware(), handlers.Analyze)
	api.Post("/rewrite", rateLimiter.Middleware(), handlers.Rewrite)

	// Cache and settings
	api.Delete("/cache", handlers.ClearCache)
	api.Get("/cache/stats", handlers.CacheStats)
	api.Get("/adapters", handlers.Adapters)
	api.Get("/preferences", handlers.GetPreferences)
	api.Put("/preferences", handlers.PutPreferences)
}
