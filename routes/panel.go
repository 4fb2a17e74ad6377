package routes

import (
	panel_handlers "formdesk.link/handlers/panel"
	"formdesk.link/middlewares"

	"github.com/gofiber/fiber/v2"
)

// registerPanelRoutes mounts the owner API under /api/forms.
func registerPanelRoutes(app *fiber.App, deps Dependencies) {
	formHandler := panel_handlers.NewPanelFormHandler(deps.Forms)
	responseHandler := panel_handlers.NewPanelResponseHandler(deps.Responses)

	panelGroup := app.Group("/api/forms", middlewares.AuthMiddleware)

	panelGroup.Get("/", formHandler.ListForms)
	panelGroup.Post("/", formHandler.CreateForm)
	panelGroup.Get("/:id", formHandler.GetForm)
	panelGroup.Put("/:id", formHandler.UpdateForm)
	panelGroup.Delete("/:id", formHandler.DeleteForm)

	panelGroup.Get("/:id/responses", responseHandler.ListResponses)
	panelGroup.Get("/:id/responses/:rid", responseHandler.GetResponse)
	panelGroup.Get("/:id/responses/:rid/answers", responseHandler.GetResponseAnswers)
	panelGroup.Get("/:id/summary", responseHandler.Summary)
}
