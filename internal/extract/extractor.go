// Package extract pulls raw text out of stored media using a vision-capable
// chat model.
package extract

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
)

const prompt = "Extract ALL visible text from this image. Preserve line breaks where helpful. " +
	"Return only the extracted text, with no commentary."

// maxMediaBytes bounds how much of a stored object we read before OCR.
const maxMediaBytes = 20 << 20

// Completer is the narrow LLM surface the extractor needs.
type Completer interface {
	Generate(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error)
}

// Extractor runs OCR-style text extraction through a multimodal model.
type Extractor struct {
	model  Completer
	client *http.Client
	logger *slog.Logger
}

// New creates an extractor backed by the given vision model.
func New(model Completer, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger.With("component", "extract"),
	}
}

// Extract downloads the media behind a (signed) locator and asks the vision
// model for its text. Returns the trimmed extraction, which may be empty for
// media with no readable text.
func (e *Extractor) Extract(ctx context.Context, locator, contentType string) (string, error) {
	data, fetchedType, err := e.fetch(ctx, locator)
	if err != nil {
		return "", fmt.Errorf("fetch media for extraction: %w", err)
	}

	mimeType := contentType
	if mimeType == "" {
		mimeType = fetchedType
	}
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		// PDFs and unknown types go through as JPEG data; vision providers
		// reject unregistered document MIME types on the image part.
		mimeType = "image/jpeg"
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))

	messages := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(prompt),
				llms.ImageURLPart(dataURL),
			},
		},
	}

	response, err := e.model.Generate(ctx, messages,
		llms.WithTemperature(0.1),
		llms.WithMaxTokens(1000),
	)
	if err != nil {
		return "", fmt.Errorf("vision extraction: %w", err)
	}

	text := strings.TrimSpace(response.Choices[0].Content)
	e.logger.Debug("text extracted", "bytes", len(data), "text_len", len(text))
	return text, nil
}

func (e *Extractor) fetch(ctx context.Context, locator string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}
