package narrator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/byte4ever/repo_assistant/executor"
	"github.com/byte4ever/repo_assistant/llm"
	"github.com/byte4ever/repo_assistant/templating"
)

const promptText = `You are a friendly source-control hosting assistant.
The user made a request. Write a short, helpful and encouraging reply that
acknowledges the request, explains what was done, says whether it worked
and includes links or tips when useful.

User input: {{request}}
Operation result: {{result}}
`

var (
	engine = templating.Engine{}

	promptTemplate  = engine.MustCompile("narrator prompt", promptText)
	successTemplate = engine.MustCompile(
		"narrator success",
		"Operation completed successfully! {{message}}",
	)
	failureTemplate = engine.MustCompile(
		"narrator failure",
		"Operation failed: {{error}}",
	)
)

// Narrator writes replies, through a model when one is
// configured and a fixed template otherwise.
type Narrator struct {
	model llm.Model
}

// New returns a Narrator. A nil model always uses the
// fixed template.
func New(model llm.Model) *Narrator {
	return &Narrator{model: model}
}

// Narrate returns the reply for env. It never fails: a
// model error or empty reply falls back to Fallback.
func (n *Narrator) Narrate(
	ctx context.Context,
	request string,
	env executor.Envelope,
) string {
	if n == nil || n.model == nil {
		return Fallback(env)
	}

	prompt, err := promptTemplate.Render(map[string]any{
		"request": request,
		"result":  env.Indent(),
	})
	if err != nil {
		slog.Warn("narrator prompt failed", "error", err)

		return Fallback(env)
	}

	reply, err := n.model.Generate(ctx, prompt)
	if err != nil {
		slog.Warn(
			"narration failed, using fallback",
			"error", err,
		)

		return Fallback(env)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return Fallback(env)
	}

	return reply
}

// Fallback returns the fixed reply for env.
func Fallback(env executor.Envelope) string {
	tpl, vars := failureTemplate, map[string]any{"error": env.Err()}

	if env.Success() {
		tpl, vars = successTemplate, map[string]any{
			"message": message(env.Result()),
		}
	}

	out, err := tpl.Render(vars)
	if err != nil {
		return env.Summary()
	}

	return strings.TrimSpace(out)
}

// message returns the message of results that carry one.
func message(r executor.Result) string {
	switch v := r.(type) {
	case executor.RepositoryCreated:
		return v.Message
	case executor.IssueCreated:
		return v.Message
	case executor.BranchCreated:
		return v.Message
	case executor.PullRequestCreated:
		return v.Message
	}

	return ""
}
