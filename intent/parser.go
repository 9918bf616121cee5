package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/repo_assistant/catalog"
	"github.com/byte4ever/repo_assistant/llm"
	"github.com/byte4ever/repo_assistant/templating"
)

const promptText = `You are a source-control hosting assistant that converts natural language requests into structured JSON commands.
{{instructions}}
Respond with only valid JSON of the form {"action": "<operation>", "parameters": {...}}.

User: {{request}}`

var promptTemplate = templating.Engine{}.MustCompile(
	"intent prompt", promptText,
)

// Parser reads requests through a language model.
type Parser struct {
	model        llm.Model
	instructions string
}

// NewParser returns a Parser prompting model with the operations
// described by registry.
func NewParser(
	model llm.Model,
	registry *catalog.Registry,
) (*Parser, error) {
	const errCtx = "creating intent parser"

	if model == nil {
		return nil, fmt.Errorf("%s: model must be set", errCtx)
	}

	if registry == nil {
		return nil, fmt.Errorf("%s: registry must be set", errCtx)
	}

	return &Parser{
		model:        model,
		instructions: registry.Instructions(),
	}, nil
}

// Prompt returns the prompt sent to the model for text.
func (p *Parser) Prompt(text string) (string, error) {
	return promptTemplate.Render(map[string]any{
		"instructions": p.instructions,
		"request":      text,
	})
}

// Parse reads text into an Intent with one model call. It never
// fails: model errors and unreadable replies yield an unknown Intent
// carrying the reason.
func (p *Parser) Parse(ctx context.Context, text string) Intent {
	prompt, err := p.Prompt(text)
	if err != nil {
		return Unknown(err.Error())
	}

	reply, err := p.model.Generate(ctx, prompt)
	if err != nil {
		slog.Warn("model call failed", "error", err)

		return Unknown(err.Error())
	}

	in, ok := decode(reply)
	if !ok {
		slog.Warn("unparsable model reply", "reply", reply)

		return Unknown(ErrUnparsable)
	}

	slog.Debug(
		"parsed intent",
		"action", in.Action,
		"parameters", in.Parameters,
	)

	return in
}

type wireIntent struct {
	Action     any `json:"action"`
	Parameters any `json:"parameters"`
}

// decode strips an optional code fence from reply and
// decodes the JSON object inside.
func decode(reply string) (Intent, bool) {
	var raw wireIntent

	if err := json.Unmarshal([]byte(StripFence(reply)), &raw); err != nil {
		return Intent{}, false
	}

	action, ok := raw.Action.(string)
	if !ok || strings.TrimSpace(action) == "" {
		return Intent{}, false
	}

	params := map[string]any{}

	switch v := raw.Parameters.(type) {
	case nil:
	case map[string]any:
		params = v
	default:
		return Intent{}, false
	}

	return Intent{Action: action, Parameters: params}, true
}

// StripFence removes a leading ```json or ``` fence and a
// trailing ``` fence, with surrounding whitespace.
func StripFence(reply string) string {
	s := strings.TrimSpace(reply)

	switch {
	case strings.HasPrefix(s, "```json"):
		s = s[len("```json"):]
	case strings.HasPrefix(s, "```"):
		s = s[len("```"):]
	}

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}
