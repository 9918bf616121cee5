// Package gemini implements llm.Model on Google Gemini.
package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/byte4ever/repo_assistant/llm"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.5-pro"

// Config holds the settings needed to create a Gemini
// model.
type Config struct {
	// APIKey is the Google AI Studio key.
	APIKey string
	// Model names the Gemini model. Defaults to
	// DefaultModel.
	Model string
	// Endpoint optionally overrides the API endpoint.
	Endpoint string
	// JSON asks the model for application/json output.
	JSON bool
}

// Model generates text with Gemini.
//
// Pattern: Strategy -- implements llm.Model.
type Model struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

var _ llm.Model = (*Model)(nil)

// New validates cfg and returns a Model. Close releases
// the underlying connection.
func New(ctx context.Context, cfg Config) (*Model, error) {
	const errCtx = "creating gemini model"

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: api key must be set", errCtx)
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	model := client.GenerativeModel(cfg.Model)
	if cfg.JSON {
		model.ResponseMIMEType = "application/json"
	}

	return &Model{client: client, model: model, name: cfg.Model}, nil
}

// Generate implements llm.Model.
func (m *Model) Generate(
	ctx context.Context,
	prompt string,
) (string, error) {
	const errCtx = "gemini generate"

	resp, err := m.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	text, err := textOf(resp)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Debug(
		"gemini response",
		"model", m.name,
		"length", len(text),
	)

	return text, nil
}

// Close releases the client.
func (m *Model) Close() error {
	return m.client.Close()
}

func textOf(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 ||
		resp.Candidates[0].Content == nil {
		return "", llm.ErrEmptyResponse
	}

	var parts []string

	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			parts = append(parts, string(t))
		}
	}

	return llm.JoinText(parts)
}
