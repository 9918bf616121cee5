// Package anthropic implements llm.Model on the Anthropic messages
// API.
package anthropic

import (
	"context"
	"fmt"
	"log/slog"

	ant "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/byte4ever/repo_assistant/llm"
)

// Defaults used when Config leaves a field empty.
const (
	DefaultModel     = "claude-sonnet-4-5"
	DefaultMaxTokens = 1024
)

// Config holds the settings needed to create an Anthropic model.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int64
	// BaseURL optionally points at a proxy.
	BaseURL string
}

// Model generates text with Anthropic.
//
// Pattern: Strategy -- implements llm.Model.
type Model struct {
	client    ant.Client
	name      string
	maxTokens int64
}

var _ llm.Model = (*Model)(nil)

// New validates cfg and returns a Model.
func New(cfg Config) (*Model, error) {
	const errCtx = "creating anthropic model"

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: api key must be set", errCtx)
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Model{
		client:    ant.NewClient(opts...),
		name:      cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Generate implements llm.Model.
func (m *Model) Generate(
	ctx context.Context,
	prompt string,
) (string, error) {
	const errCtx = "anthropic generate"

	resp, err := m.client.Messages.New(ctx, ant.MessageNewParams{
		Model:     ant.Model(m.name),
		MaxTokens: m.maxTokens,
		Messages: []ant.MessageParam{
			ant.NewUserMessage(ant.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	var parts []string

	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(ant.TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}

	text, err := llm.JoinText(parts)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Debug(
		"anthropic response",
		"model", m.name,
		"stop_reason", string(resp.StopReason),
		"length", len(text),
	)

	return text, nil
}
