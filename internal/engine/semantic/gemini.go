package semantic

import (
	"context"
	stderrors "errors"
	"strings"

	"unpack/internal/core/errors"

	"google.golang.org/genai"
)

var ErrEmptyResponse = stderrors.New("oracle returned no candidates")

// GeminiOracle is a thin wrapper around the official genai client.
type GeminiOracle struct {
	cli   *genai.Client
	model string
}

func NewGeminiOracle(ctx context.Context, apiKey, model string) (*GeminiOracle, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New(errors.CodeValidationError, "gemini api key is empty")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeOracle, "create gemini client")
	}
	return &GeminiOracle{cli: cli, model: model}, nil
}

func (g *GeminiOracle) Name() string { return "gemini:" + g.model }

// Generate sends the prompt and requests application/json output.
func (g *GeminiOracle) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}
