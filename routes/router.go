package routes

import (
	"formdesk.link/handlers/apierrors"
	"formdesk.link/pkg/filestorage"
	"formdesk.link/pkg/metrics"
	"formdesk.link/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	recoverMiddleware "github.com/gofiber/fiber/v2/middleware/recover"
)

// Dependencies are the services the HTTP layer is wired to.
type Dependencies struct {
	Forms          services.IFormService
	Responses      services.IResponseService
	Storage        filestorage.FileStorage
	UploadMaxBytes int64
	// DisableRequestLog turns off the per-request access log.
	DisableRequestLog bool
}

// NewApp builds a fiber app with every route registered.
func NewApp(deps Dependencies) *fiber.App {
	if deps.UploadMaxBytes <= 0 {
		deps.UploadMaxBytes = filestorage.DefaultMaxUploadBytes
	}

	app := fiber.New(fiber.Config{
		AppName: "formdesk",
		// Multipart overhead on top of the largest accepted file.
		BodyLimit: int(deps.UploadMaxBytes) + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return apierrors.Respond(c, err)
		},
	})
	SetupRoutes(app, deps)
	return app
}

// SetupRoutes registers the global middleware and every route group.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	app.Use(recoverMiddleware.New())
	if !deps.DisableRequestLog {
		app.Use(logger.New())
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", metrics.Handler())

	registerPanelRoutes(app, deps)
	registerPublicLinkRoutes(app, deps)

	app.Use(notFoundHandler)
}

func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "resource not found"})
}
