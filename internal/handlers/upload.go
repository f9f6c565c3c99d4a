package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/example/glaucoma-agent/internal/inference"
)

const (
	// MaxUploadSize bounds the accepted image size.
	MaxUploadSize = 10 << 20

	// multipartOverhead leaves room for boundaries and headers around the file.
	multipartOverhead = 1 << 20
)

var (
	errUploadMissing     = errors.New("image file is required")
	errUploadTooLarge    = fmt.Errorf("image exceeds %d MiB", MaxUploadSize>>20)
	errUnsupportedFormat = errors.New("only PNG and JPEG images are accepted")
)

// acceptedTypes are the image formats the backend is known to handle.
var acceptedTypes = []string{"image/png", "image/jpeg"}

// readUpload extracts the image form field, enforcing size and format.
func readUpload(c *gin.Context) (inference.Image, error) {
	limit := int64(MaxUploadSize + multipartOverhead)
	if c.Request.ContentLength > limit {
		return inference.Image{}, errUploadTooLarge
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	file, err := c.FormFile(inference.FormField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return inference.Image{}, errUploadTooLarge
		}
		return inference.Image{}, errUploadMissing
	}
	if file.Size > MaxUploadSize {
		return inference.Image{}, errUploadTooLarge
	}

	src, err := file.Open()
	if err != nil {
		return inference.Image{}, errUploadMissing
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, MaxUploadSize+1))
	if err != nil {
		return inference.Image{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return inference.Image{}, errUploadMissing
	}
	if len(data) > MaxUploadSize {
		return inference.Image{}, errUploadTooLarge
	}

	detected := mimetype.Detect(data)
	if !mimetype.EqualsAny(detected.String(), acceptedTypes...) {
		return inference.Image{}, errUnsupportedFormat
	}

	return inference.Image{
		Filename:    file.Filename,
		ContentType: detected.String(),
		Data:        data,
	}, nil
}

func uploadStatus(err error) int {
	switch {
	case errors.Is(err, errUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, errUploadMissing):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
