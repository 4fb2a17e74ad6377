// Package filestorage stores files uploaded for FILE questions.
package filestorage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// DefaultMaxUploadBytes is the largest accepted upload.
const DefaultMaxUploadBytes int64 = 5 << 20

var (
	ErrFileTooLarge    = errors.New("file exceeds the upload size limit")
	ErrEmptyFile       = errors.New("file is empty")
	ErrUnsupportedType = errors.New("file type is not allowed")
	ErrInvalidName     = errors.New("invalid file name")
	ErrFileNotFound    = errors.New("file not found")
)

// FileStorage is a flat namespace of immutable files.
type FileStorage interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// allowedTypes maps accepted MIME types to the extension stored files get.
var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
}

var extTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
}

var namePattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.(jpg|png|gif|pdf)$`)

// ValidName reports whether name could have been produced by Store.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// MimeTypeFor returns the content type served for a stored name.
func MimeTypeFor(name string) string {
	if t, ok := extTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return "application/octet-stream"
}

// Store checks size and sniffed content type, then saves r under a fresh uuid name and returns it.
// The client-declared content type is not trusted.
func Store(ctx context.Context, storage FileStorage, r io.Reader, size, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if size > maxBytes {
		return "", ErrFileTooLarge
	}
	if size == 0 {
		return "", ErrEmptyFile
	}

	head := make([]byte, 3072)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	head = head[:n]

	contentType := mimetype.Detect(head).String()
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}

	name := uuid.NewString() + ext
	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), r), size)
	if err := storage.Save(ctx, name, body, size, contentType); err != nil {
		return "", err
	}
	return name, nil
}
