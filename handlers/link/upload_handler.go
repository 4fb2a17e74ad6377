package handlers // handlers/link

import (
	"formdesk.link/handlers/apierrors"
	"formdesk.link/pkg/filestorage"

	"github.com/gofiber/fiber/v2"
)

// UploadHandler accepts files for FILE answers and serves them back by name.
type UploadHandler struct {
	storage  filestorage.FileStorage
	maxBytes int64
}

func NewUploadHandler(storage filestorage.FileStorage, maxBytes int64) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = filestorage.DefaultMaxUploadBytes
	}
	return &UploadHandler{storage: storage, maxBytes: maxBytes}
}

// Upload stores the multipart "file" field and returns the name to put in file_path.
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return apierrors.BadRequest(c, "multipart field \"file\" is required")
	}
	if header.Size > h.maxBytes {
		return apierrors.Respond(c, filestorage.ErrFileTooLarge)
	}

	file, err := header.Open()
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer file.Close()

	name, err := filestorage.Store(c.UserContext(), h.storage, file, header.Size, h.maxBytes)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"file_path": name})
}

func (h *UploadHandler) Download(c *fiber.Ctx) error {
	name := c.Params("name")
	if !filestorage.ValidName(name) {
		return apierrors.Respond(c, filestorage.ErrInvalidName)
	}

	body, err := h.storage.Open(c.UserContext(), name)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	c.Set(fiber.HeaderContentType, filestorage.MimeTypeFor(name))
	return c.SendStream(body)
}
