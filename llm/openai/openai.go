// Package openai implements llm.Model on the OpenAI chat completions
// API.
package openai

import (
	"context"
	"fmt"
	"log/slog"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/byte4ever/repo_assistant/llm"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4o"

// Config holds the settings needed to create an OpenAI model.
type Config struct {
	APIKey string
	// Model defaults to DefaultModel.
	Model string
	// BaseURL optionally points at a compatible endpoint.
	BaseURL string
	// JSON asks for a JSON object reply.
	JSON bool
}

// Model generates text with OpenAI.
//
// Pattern: Strategy -- implements llm.Model.
type Model struct {
	client oa.Client
	name   string
	json   bool
}

var _ llm.Model = (*Model)(nil)

// New validates cfg and returns a Model.
func New(cfg Config) (*Model, error) {
	const errCtx = "creating openai model"

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: api key must be set", errCtx)
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Model{
		client: oa.NewClient(opts...),
		name:   cfg.Model,
		json:   cfg.JSON,
	}, nil
}

// Generate implements llm.Model.
func (m *Model) Generate(
	ctx context.Context,
	prompt string,
) (string, error) {
	const errCtx = "openai generate"

	params := oa.ChatCompletionNewParams{
		Model: oa.ChatModel(m.name),
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.UserMessage(prompt),
		},
	}

	if m.json {
		params.ResponseFormat = oa.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &oa.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", errCtx, llm.ErrEmptyResponse)
	}

	text, err := llm.JoinText(
		[]string{resp.Choices[0].Message.Content},
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Debug(
		"openai response",
		"model", m.name,
		"length", len(text),
	)

	return text, nil
}
