package generator

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/motoclube/roleplanner/internal/domain"
)

var tracer = otel.Tracer("github.com/motoclube/roleplanner/internal/generator")

// DefaultTextModel is used when no model is configured.
const DefaultTextModel = "gemini-2.0-flash"

// contentGenerator is the subset of *genai.Models that GeminiText needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiText generates text with the Gemini API.
type GeminiText struct {
	models contentGenerator
	model  string
	config *genai.GenerateContentConfig
}

// NewGeminiText connects to the Gemini API with apiKey.
func NewGeminiText(ctx context.Context, apiKey, model string) (*GeminiText, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("generator.NewGeminiText: %w: api key is required", domain.ErrValidation)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("generator.NewGeminiText: %w", err)
	}
	return newGeminiText(client.Models, model), nil
}

func newGeminiText(models contentGenerator, model string) *GeminiText {
	if model == "" {
		model = DefaultTextModel
	}
	return &GeminiText{
		models: models,
		model:  model,
		config: &genai.GenerateContentConfig{
			Temperature:      genai.Ptr[float32](0.7),
			ResponseMIMEType: "application/json",
		},
	}
}

// Generate sends prompt as a single user turn. A reply without text is an
// error wrapped in domain.ErrProvider; API errors are returned as is so the
// retry decorator can inspect them.
func (g *GeminiText) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "generator.GeminiText.Generate", trace.WithAttributes(
		attribute.Int("prompt.length", len(prompt)),
		attribute.String("model", g.model),
	))
	defer span.End()

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate content failed")
		return "", err
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		err := fmt.Errorf("generator.GeminiText.Generate: %w: no usable candidate", domain.ErrProvider)
		span.RecordError(err)
		span.SetStatus(codes.Error, "empty response")
		return "", err
	}
	span.SetAttributes(attribute.Int("response.length", len(text)))
	return text, nil
}
