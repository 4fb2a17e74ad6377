// Package apierrors turns service errors into JSON responses.
package apierrors

import (
	"errors"

	"formdesk.link/configs/configslog"
	"formdesk.link/pkg/filestorage"
	"formdesk.link/pkg/validation"
	"formdesk.link/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Respond writes the status and body that correspond to err.
func Respond(c *fiber.Ctx, err error) error {
	var (
		integrity  *services.IntegrityError
		submission *services.SubmissionError
		fields     validation.Errors
		fiberErr   *fiber.Error
	)

	switch {
	case errors.As(err, &integrity):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "integrity_violation",
			"message": err.Error(),
			"entity":  integrity.Entity,
			"id":      integrity.ID,
			"reason":  integrity.Reason,
		})
	case errors.As(err, &submission):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":       "validation_failure",
			"message":     err.Error(),
			"kind":        submission.Kind,
			"question_id": submission.QuestionID,
		})
	case errors.As(err, &fields):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_input",
			"message": err.Error(),
			"fields":  fields,
		})
	case errors.Is(err, services.ErrInvalidInput):
		return write(c, fiber.StatusBadRequest, "invalid_input", err)
	case errors.Is(err, services.ErrFormNotFound), errors.Is(err, services.ErrFormInactive):
		return write(c, fiber.StatusNotFound, "form_not_found", err)
	case errors.Is(err, services.ErrResponseNotFound):
		return write(c, fiber.StatusNotFound, "response_not_found", err)
	case errors.Is(err, services.ErrFormPasswordMismatch):
		return write(c, fiber.StatusForbidden, "password_mismatch", err)
	case errors.Is(err, services.ErrTransientStore):
		configslog.Log.Warn("Request failed after transaction retries", zap.String("path", c.Path()), zap.Error(err))
		return write(c, fiber.StatusServiceUnavailable, "store_unavailable", err)
	case errors.Is(err, filestorage.ErrFileTooLarge):
		return write(c, fiber.StatusRequestEntityTooLarge, "file_too_large", err)
	case errors.Is(err, filestorage.ErrUnsupportedType):
		return write(c, fiber.StatusUnsupportedMediaType, "unsupported_file_type", err)
	case errors.Is(err, filestorage.ErrEmptyFile), errors.Is(err, filestorage.ErrInvalidName):
		return write(c, fiber.StatusBadRequest, "invalid_file", err)
	case errors.Is(err, filestorage.ErrFileNotFound):
		return write(c, fiber.StatusNotFound, "file_not_found", err)
	case errors.As(err, &fiberErr):
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": "request_error", "message": fiberErr.Message})
	}

	configslog.Log.Error("Unhandled request error", zap.String("method", c.Method()), zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error", "message": "internal server error"})
}

// BadRequest reports a malformed request that never reached a service.
func BadRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": message})
}

func write(c *fiber.Ctx, status int, code string, err error) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": err.Error()})
}
