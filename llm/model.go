package llm

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("empty model response")

// Model generates a completion for a single prompt. One request, one
// response, no streaming.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(ctx context.Context, prompt string) (string, error)

// Generate implements Model.
func (f ModelFunc) Generate(
	ctx context.Context,
	prompt string,
) (string, error) {
	return f(ctx, prompt)
}

// JoinText concatenates text parts and fails with ErrEmptyResponse
// when nothing but whitespace remains.
func JoinText(parts []string) (string, error) {
	text := strings.Join(parts, "")
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}

	return text, nil
}
