package handlers // handlers/panel

import (
	"strconv"

	"formdesk.link/handlers/apierrors"
	"formdesk.link/middlewares"
	"formdesk.link/pkg/queryparams"
	"formdesk.link/services"

	"github.com/gofiber/fiber/v2"
)

// PanelFormHandler serves an owner's own form definitions.
type PanelFormHandler struct {
	service services.IFormService
}

func NewPanelFormHandler(service services.IFormService) *PanelFormHandler {
	return &PanelFormHandler{service: service}
}

// ListForms returns the caller's forms with live question and response counts.
func (h *PanelFormHandler) ListForms(c *fiber.Ctx) error {
	userID, _ := middlewares.CurrentUserID(c)

	params := queryparams.DefaultListParams("updated_at")
	if err := c.QueryParser(&params); err != nil {
		return apierrors.BadRequest(c, "invalid query parameters")
	}

	result, err := h.service.ListFormsForOwner(c.UserContext(), userID, params)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(result)
}

// CreateForm stores a new form from a full question tree.
func (h *PanelFormHandler) CreateForm(c *fiber.Ctx) error {
	userID, _ := middlewares.CurrentUserID(c)

	var tree services.SubmittedForm
	if err := c.BodyParser(&tree); err != nil {
		return apierrors.BadRequest(c, "invalid form payload")
	}

	form, err := h.service.CreateForm(c.UserContext(), userID, tree)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(form)
}

// GetForm returns the full tree, removed questions and options included.
func (h *PanelFormHandler) GetForm(c *fiber.Ctx) error {
	userID, _ := middlewares.CurrentUserID(c)
	formID, err := uintParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "invalid form id")
	}

	form, err := h.service.GetFormForOwner(c.UserContext(), formID, userID)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(form)
}

// UpdateForm reconciles the submitted tree into the stored form.
func (h *PanelFormHandler) UpdateForm(c *fiber.Ctx) error {
	userID, _ := middlewares.CurrentUserID(c)
	formID, err := uintParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "invalid form id")
	}

	var tree services.SubmittedForm
	if err := c.BodyParser(&tree); err != nil {
		return apierrors.BadRequest(c, "invalid form payload")
	}

	form, err := h.service.ReconcileForm(c.UserContext(), formID, userID, tree)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(form)
}

func (h *PanelFormHandler) DeleteForm(c *fiber.Ctx) error {
	userID, _ := middlewares.CurrentUserID(c)
	formID, err := uintParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "invalid form id")
	}

	if err := h.service.DeleteForm(c.UserContext(), formID, userID); err != nil {
		return apierrors.Respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func uintParam(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, strconv.IntSize)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, strconv.ErrRange
	}
	return uint(v), nil
}
