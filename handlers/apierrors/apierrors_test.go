package apierrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"formdesk.link/pkg/filestorage"
	"formdesk.link/pkg/validation"
	"formdesk.link/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respondWith(t *testing.T, err error) (int, map[string]interface{}) {
	t.Helper()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return Respond(c, err) })

	resp, testErr := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, testErr)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestRespondStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&services.IntegrityError{Entity: "question", ID: 4, Reason: services.ReasonForeignQuestion}, 409, "integrity_violation"},
		{&services.SubmissionError{Kind: services.MissingRequired, QuestionID: 2}, 400, "validation_failure"},
		{fmt.Errorf("%w: %w", services.ErrInvalidInput, validation.Errors{{Field: "title", Rule: "notblank"}}), 400, "invalid_input"},
		{fmt.Errorf("%w: missing owner", services.ErrInvalidInput), 400, "invalid_input"},
		{services.ErrFormNotFound, 404, "form_not_found"},
		{services.ErrFormInactive, 404, "form_not_found"},
		{services.ErrResponseNotFound, 404, "response_not_found"},
		{services.ErrFormPasswordMismatch, 403, "password_mismatch"},
		{fmt.Errorf("%w: deadlock", services.ErrTransientStore), 503, "store_unavailable"},
		{filestorage.ErrFileTooLarge, 413, "file_too_large"},
		{filestorage.ErrUnsupportedType, 415, "unsupported_file_type"},
		{filestorage.ErrFileNotFound, 404, "file_not_found"},
		{fiber.NewError(fiber.StatusMethodNotAllowed, "nope"), 405, "request_error"},
		{errors.New("boom"), 500, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.code+"/"+tt.err.Error(), func(t *testing.T) {
			status, body := respondWith(t, tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body["error"])
		})
	}
}

func TestRespondIntegrityDetail(t *testing.T) {
	_, body := respondWith(t, &services.IntegrityError{Entity: "option", ID: 12, Reason: services.ReasonReferencedTwice})
	assert.Equal(t, "option", body["entity"])
	assert.Equal(t, float64(12), body["id"])
	assert.Equal(t, services.ReasonReferencedTwice, body["reason"])
}

func TestRespondFieldErrors(t *testing.T) {
	_, body := respondWith(t, fmt.Errorf("%w: %w", services.ErrInvalidInput, validation.Errors{{Field: "questions[0].text", Rule: "max", Param: "500"}}))
	fields, ok := body["fields"].([]interface{})
	require.True(t, ok)
	require.Len(t, fields, 1)
	assert.Equal(t, "questions[0].text", fields[0].(map[string]interface{})["field"])
}
