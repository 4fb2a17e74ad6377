package handlers // handlers/panel

import (
	"formdesk.link/handlers/apierrors"
	"formdesk.link/middlewares"
	"formdesk.link/pkg/queryparams"
	"formdesk.link/services"

	"github.com/gofiber/fiber/v2"
)

// PanelResponseHandler serves the responses collected by an owner's form.
type PanelResponseHandler struct {
	service services.IResponseService
}

func NewPanelResponseHandler(service services.IResponseService) *PanelResponseHandler {
	return &PanelResponseHandler{service: service}
}

func (h *PanelResponseHandler) ListResponses(c *fiber.Ctx) error {
	userID, _ := middlewares.CurrentUserID(c)
	formID, err := uintParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "invalid form id")
	}

	params := queryparams.DefaultListParams("submitted_at")
	if err := c.QueryParser(&params); err != nil {
		return apierrors.BadRequest(c, "invalid query parameters")
	}

	result, err := h.service.ListResponses(c.UserContext(), formID, userID, params)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(result)
}

func (h *PanelResponseHandler) GetResponse(c *fiber.Ctx) error {
	userID, _ := middlewares.CurrentUserID(c)
	formID, responseID, ok := formAndResponseIDs(c)
	if !ok {
		return apierrors.BadRequest(c, "invalid form or response id")
	}

	response, err := h.service.GetResponse(c.UserContext(), formID, responseID, userID)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(response)
}

// GetResponseAnswers lists one response's answers in current question order.
func (h *PanelResponseHandler) GetResponseAnswers(c *fiber.Ctx) error {
	userID, _ := middlewares.CurrentUserID(c)
	formID, responseID, ok := formAndResponseIDs(c)
	if !ok {
		return apierrors.BadRequest(c, "invalid form or response id")
	}

	answers, err := h.service.GetResponseAnswers(c.UserContext(), formID, responseID, userID)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(fiber.Map{"data": answers})
}

// Summary returns per-question answer counts and option tallies.
func (h *PanelResponseHandler) Summary(c *fiber.Ctx) error {
	userID, _ := middlewares.CurrentUserID(c)
	formID, err := uintParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "invalid form id")
	}

	summary, err := h.service.SummarizeResponses(c.UserContext(), formID, userID)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(summary)
}

func formAndResponseIDs(c *fiber.Ctx) (uint, uint, bool) {
	formID, err := uintParam(c, "id")
	if err != nil {
		return 0, 0, false
	}
	responseID, err := uintParam(c, "rid")
	if err != nil {
		return 0, 0, false
	}
	return formID, responseID, true
}
