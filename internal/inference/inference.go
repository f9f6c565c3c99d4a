package inference

import (
	"context"

	"github.com/example/glaucoma-agent/internal/diagnosis"
)

// Image is an uploaded file as it will be forwarded to the backend.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Client exposes the subset of the inference backend used by the analysis flow.
type Client interface {
	Predict(ctx context.Context, baseURL string, img Image) (*diagnosis.Result, error)
}
