package generator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/motoclube/roleplanner/internal/domain"
)

// ImagenHTTP calls an Imagen-style predict endpoint over HTTP.
type ImagenHTTP struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewImagenHTTP returns a provider posting to url. A nil httpClient uses
// http.DefaultClient.
func NewImagenHTTP(url, apiKey string, httpClient *http.Client) *ImagenHTTP {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ImagenHTTP{url: url, apiKey: apiKey, httpClient: httpClient}
}

type imagenRequest struct {
	Instances  imagenInstance   `json:"instances"`
	Parameters imagenParameters `json:"parameters"`
}

type imagenInstance struct {
	Prompt string `json:"prompt"`
}

type imagenParameters struct {
	SampleCount int `json:"sampleCount"`
}

type imagenResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MIMEType           string `json:"mimeType"`
	} `json:"predictions"`
}

// Image requests one sample. Non-2xx replies come back as *StatusError;
// a reply without image bytes is wrapped in domain.ErrProvider.
func (p *ImagenHTTP) Image(ctx context.Context, prompt string) (Image, error) {
	ctx, span := tracer.Start(ctx, "generator.ImagenHTTP.Image")
	defer span.End()

	body, err := json.Marshal(imagenRequest{
		Instances:  imagenInstance{Prompt: prompt},
		Parameters: imagenParameters{SampleCount: 1},
	})
	if err != nil {
		return Image{}, fmt.Errorf("generator.ImagenHTTP.Image: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return Image{}, fmt.Errorf("generator.ImagenHTTP.Image: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("x-goog-api-key", p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return Image{}, fmt.Errorf("generator.ImagenHTTP.Image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
		span.RecordError(err)
		return Image{}, err
	}

	var out imagenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Image{}, fmt.Errorf("generator.ImagenHTTP.Image: %w: decode: %v", domain.ErrProvider, err)
	}
	if len(out.Predictions) == 0 || out.Predictions[0].BytesBase64Encoded == "" {
		return Image{}, fmt.Errorf("generator.ImagenHTTP.Image: %w: no image in response", domain.ErrProvider)
	}
	data, err := base64.StdEncoding.DecodeString(out.Predictions[0].BytesBase64Encoded)
	if err != nil {
		return Image{}, fmt.Errorf("generator.ImagenHTTP.Image: %w: %v", domain.ErrProvider, err)
	}
	mime := out.Predictions[0].MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return Image{MIMEType: mime, Data: data}, nil
}
