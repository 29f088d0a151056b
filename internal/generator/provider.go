// Package generator produces ride itineraries. Remote generative-AI providers
// are wrapped in a bounded retry decorator and a fallback decorator that
// switches to the deterministic local generator, so callers never see a
// provider failure.
package generator

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
)

// TextProvider turns a prompt into text.
type TextProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ImageProvider turns a prompt into an image.
type ImageProvider interface {
	Image(ctx context.Context, prompt string) (Image, error)
}

// Image is an encoded picture.
type Image struct {
	MIMEType string
	Data     []byte
}

// DataURL renders the image inline for JSON responses.
func (i Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// StatusError is a non-2xx reply from an HTTP provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}
