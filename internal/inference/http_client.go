package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/glaucoma-agent/internal/diagnosis"
	"github.com/example/glaucoma-agent/internal/logging"
)

const (
	// FormField is the multipart field name the backend reads the image from.
	FormField = "image"

	predictPath = "/predict"

	maxResponseBytes = 4 << 20
	maxErrorBytes    = 64 << 10
)

// HTTPClient calls POST {baseURL}/predict with the image as multipart form data.
type HTTPClient struct {
	http   *http.Client
	logger *zap.Logger
}

// NewHTTPClient returns a predict client whose requests are bounded by timeout.
// A zero timeout leaves the request bounded only by the caller's context.
func NewHTTPClient(timeout time.Duration, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		http:   &http.Client{Timeout: timeout},
		logger: logger.Named("inference_client"),
	}
}

// PredictURL joins the backend base URL with the predict path.
func PredictURL(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/") + predictPath
}

// Predict sends one request and never retries.
func (c *HTTPClient) Predict(ctx context.Context, baseURL string, img Image) (*diagnosis.Result, error) {
	target := PredictURL(baseURL)

	body, contentType, err := encodeMultipart(img)
	if err != nil {
		return nil, logging.NewOperationError("inference.encode", "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, connectionError(err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("predict request failed", zap.String("url", target), zap.Error(err))
		return nil, connectionError(err)
	}
	defer resp.Body.Close()

	c.logger.Info("predict response",
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(started)),
	)

	if !isSuccess(resp.StatusCode) {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		var payload struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		_ = json.Unmarshal(data, &payload)
		return nil, statusError(resp.StatusCode, payload.Error, payload.Detail)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, connectionError(err)
	}
	if len(data) > maxResponseBytes {
		c.logger.Warn("predict response too large", zap.String("url", target), zap.Int("limit_bytes", maxResponseBytes))
		return nil, oversizeError(resp.StatusCode)
	}
	result, err := diagnosis.Parse(data)
	if err != nil {
		return nil, parseError(resp.StatusCode, err)
	}
	return result, nil
}

func encodeMultipart(img Image) (*bytes.Buffer, string, error) {
	filename := filepath.Base(img.Filename)
	if filename == "." || filename == string(filepath.Separator) || filename == "" {
		filename = "upload"
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = InferContentType(filename)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FormField, filename))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", fmt.Errorf("write multipart part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

// InferContentType guesses a MIME type from a filename extension.
func InferContentType(filename string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
