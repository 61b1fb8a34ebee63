// Package inference asks a multimodal model where each correction
// instruction applies on an image and turns the answer into annotations.
package inference

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/instructsheet/internal/sheet"
)

var (
	// ErrMalformedResponse reports model output that is not an annotation
	// list.
	ErrMalformedResponse = errors.New("malformed model response")
	// ErrAPI is wrapped by every error returned by the remote service.
	ErrAPI = errors.New("inference API error")
	// ErrNoInstructions is returned when there is nothing to analyze.
	ErrNoInstructions = errors.New("no instructions")
	// ErrNoAPIKey is returned when the client has no credentials.
	ErrNoAPIKey = errors.New("no API key configured")
)

// Image is an encoded image with its media type.
type Image struct {
	Data []byte
	MIME string
}

// Analyzer locates instructions on an image.
type Analyzer interface {
	Analyze(ctx context.Context, img Image, instructions []string) ([]sheet.Annotation, error)
}

// APIError is a non-2xx answer of the remote service.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("API error (%d): %s - %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return ErrAPI }

// Retryable reports whether repeating the request may succeed.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
