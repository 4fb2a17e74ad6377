package routes

import (
	link_handlers "formdesk.link/handlers/link"
	"formdesk.link/middlewares"

	"github.com/gofiber/fiber/v2"
)

// registerPublicLinkRoutes mounts the respondent-facing routes.
func registerPublicLinkRoutes(app *fiber.App, deps Dependencies) {
	linkHandler := link_handlers.NewLinkHandler(deps.Forms, deps.Responses)
	uploadHandler := link_handlers.NewUploadHandler(deps.Storage, deps.UploadMaxBytes)

	public := app.Group("/api/public")
	public.Get("/forms/:id", linkHandler.GetPublicForm)
	public.Post("/forms/:id/responses", middlewares.AuthMiddleware, linkHandler.SubmitResponse)

	uploads := app.Group("/api/uploads", middlewares.AuthMiddleware)
	uploads.Post("/", uploadHandler.Upload)
	uploads.Get("/:name", uploadHandler.Download)

	app.Get("/f/:key", linkHandler.HandleLink)
}
