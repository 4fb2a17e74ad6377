package handlers // handlers/link

import (
	"strconv"

	"formdesk.link/configs/configslog"
	"formdesk.link/handlers/apierrors"
	"formdesk.link/middlewares"
	"formdesk.link/models"
	"formdesk.link/services"

	"github.com/gofiber/fiber/v2"
)

// LinkHandler serves forms and response submission to respondents.
type LinkHandler struct {
	formService     services.IFormService
	responseService services.IResponseService
}

func NewLinkHandler(forms services.IFormService, responses services.IResponseService) *LinkHandler {
	return &LinkHandler{formService: forms, responseService: responses}
}

// PublicForm is the live tree shown to respondents.
type PublicForm struct {
	*models.Form
	RequiresPassword bool `json:"requires_password"`
}

func publicForm(form *models.Form) PublicForm {
	return PublicForm{Form: form, RequiresPassword: form.HasPassword()}
}

// GetPublicForm returns the live questions of an active form.
func (h *LinkHandler) GetPublicForm(c *fiber.Ctx) error {
	formID, err := strconv.ParseUint(c.Params("id"), 10, strconv.IntSize)
	if err != nil || formID == 0 {
		return apierrors.BadRequest(c, "invalid form id")
	}

	form, err := h.formService.GetLiveForm(c.UserContext(), uint(formID))
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(publicForm(form))
}

// HandleLink resolves a share key to the live form behind it.
func (h *LinkHandler) HandleLink(c *fiber.Ctx) error {
	key := c.Params("key")
	if len(key) != models.ShareKeyLength {
		configslog.SLog.Warnf("Malformed share key requested: %s", key)
		return apierrors.Respond(c, services.ErrFormNotFound)
	}

	form, err := h.formService.GetLiveFormByShareKey(c.UserContext(), key)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(publicForm(form))
}

// SubmitResponse records one respondent's answers against the current live questions.
func (h *LinkHandler) SubmitResponse(c *fiber.Ctx) error {
	respondentID, _ := middlewares.CurrentUserID(c)
	formID, err := strconv.ParseUint(c.Params("id"), 10, strconv.IntSize)
	if err != nil || formID == 0 {
		return apierrors.BadRequest(c, "invalid form id")
	}

	var submission services.SubmittedResponse
	if err := c.BodyParser(&submission); err != nil {
		return apierrors.BadRequest(c, "invalid response payload")
	}

	response, err := h.responseService.SubmitResponse(c.UserContext(), uint(formID), respondentID, submission)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(response)
}
