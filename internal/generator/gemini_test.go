package generator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/motoclube/roleplanner/internal/domain"
	"github.com/motoclube/roleplanner/internal/generator"
)

type mockModels struct {
	generateFn func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func (m *mockModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return m.generateFn(ctx, model, contents, config)
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}}},
		},
	}
}

// TestGeminiText_Generate verifies the prompt is sent as one user turn to the
// configured model and the candidate text is returned.
func TestGeminiText_Generate(t *testing.T) {
	var gotModel, gotPrompt string
	models := &mockModels{generateFn: func(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		gotModel = model
		gotPrompt = contents[0].Parts[0].Text
		return textResponse("  {\"title\":\"x\"}  "), nil
	}}

	g := generator.NewGeminiTextFromModels(models, "")
	out, err := g.Generate(context.Background(), "planeje")

	require.NoError(t, err)
	assert.Equal(t, `{"title":"x"}`, out)
	assert.Equal(t, generator.DefaultTextModel, gotModel)
	assert.Equal(t, "planeje", gotPrompt)
}

// TestGeminiText_EmptyCandidate verifies a reply without text is a provider error.
func TestGeminiText_EmptyCandidate(t *testing.T) {
	models := &mockModels{generateFn: func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{}, nil
	}}

	_, err := generator.NewGeminiTextFromModels(models, "m").Generate(context.Background(), "p")

	assert.ErrorIs(t, err, domain.ErrProvider)
}

// TestGeminiText_APIErrorPassesThrough verifies API errors stay inspectable so
// the retry decorator can classify them.
func TestGeminiText_APIErrorPassesThrough(t *testing.T) {
	models := &mockModels{generateFn: func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return nil, genai.APIError{Code: 429, Message: "quota", Status: "RESOURCE_EXHAUSTED"}
	}}

	_, err := generator.NewGeminiTextFromModels(models, "m").Generate(context.Background(), "p")

	var apiErr genai.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 429, apiErr.Code)
	assert.True(t, generator.Retryable(err))
}
