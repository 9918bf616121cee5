package intent_test

import (
	"context"
	"errors"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/repo_assistant/catalog"
	"github.com/byte4ever/repo_assistant/intent"
	"github.com/byte4ever/repo_assistant/llm"
)

func newParser(
	t *testing.T,
	reply string,
	err error,
) (*intent.Parser, *[]string) {
	t.Helper()

	var prompts []string

	model := llm.ModelFunc(
		func(_ context.Context, prompt string) (string, error) {
			prompts = append(prompts, prompt)

			return reply, err
		},
	)

	p, perr := intent.NewParser(model, catalog.MustNew())
	require.NoError(t, perr)

	return p, &prompts
}

func TestNewParser_requires_dependencies(t *testing.T) {
	t.Parallel()

	_, err := intent.NewParser(nil, catalog.MustNew())
	assert.ErrorContains(t, err, "model must be set")

	_, err = intent.NewParser(
		llm.ModelFunc(func(context.Context, string) (string, error) {
			return "", nil
		}),
		nil,
	)
	assert.ErrorContains(t, err, "registry must be set")
}

func TestParse_create_repository(t *testing.T) {
	t.Parallel()

	p, prompts := newParser(t, `{"action": "create_repository", `+
		`"parameters": {"name": "demo-project", "description": "", `+
		`"private": false}}`, nil)

	got := p.Parse(
		context.Background(),
		"Create a repository called demo-project",
	)

	assert.Equal(t, intent.Intent{
		Action: "create_repository",
		Parameters: map[string]any{
			"name":        "demo-project",
			"description": "",
			"private":     false,
		},
	}, got)
	assert.False(t, got.Failed())

	require.Len(t, *prompts, 1)
	prompt := (*prompts)[0]
	assert.Contains(t, prompt, "- create_pull_request: ")
	assert.Contains(
		t, prompt, "User: Create a repository called demo-project",
	)
}

func TestParse_fence_variants_round_trip(t *testing.T) {
	t.Parallel()

	want := intent.Intent{
		Action: "create_branch",
		Parameters: map[string]any{
			"repo_name":     "demo",
			"branch_name":   "feature",
			"source_branch": "main",
		},
	}

	body, err := json.Marshal(want)
	require.NoError(t, err)

	tests := []struct {
		name  string
		reply string
	}{
		{name: "bare", reply: string(body)},
		{name: "json fence", reply: "```json\n" + string(body) + "\n```"},
		{name: "plain fence", reply: "```\n" + string(body) + "\n```"},
		{name: "padded", reply: "\n\n  " + string(body) + "  \n"},
		{name: "leading fence only", reply: "```json " + string(body)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, _ := newParser(t, tt.reply, nil)

			assert.Equal(t, want, p.Parse(context.Background(), "x"))
		})
	}
}

func TestParse_unparsable_replies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reply string
	}{
		{name: "prose", reply: "Sure! I will create it."},
		{name: "truncated", reply: `{"action": "list_`},
		{name: "no action", reply: `{"parameters": {}}`},
		{name: "numeric action", reply: `{"action": 3}`},
		{name: "empty action", reply: `{"action": ""}`},
		{name: "array", reply: `["list_repositories"]`},
		{name: "scalar parameters", reply: `{"action": "x", "parameters": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, _ := newParser(t, tt.reply, nil)

			got := p.Parse(context.Background(), "x")

			assert.Equal(
				t,
				intent.Unknown("Failed to parse LLM response"),
				got,
			)
			assert.True(t, got.Unknown())
			assert.True(t, got.Failed())
		})
	}
}

func TestParse_model_error(t *testing.T) {
	t.Parallel()

	p, _ := newParser(t, "", errors.New("quota exceeded"))

	got := p.Parse(context.Background(), "x")

	assert.Equal(t, catalog.UnknownAction, got.Action)
	assert.Equal(t, "quota exceeded", got.Err)
	assert.Empty(t, got.Parameters)
}

func TestParse_missing_parameters_become_empty(t *testing.T) {
	t.Parallel()

	p, _ := newParser(t, `{"action": "list_repositories"}`, nil)

	got := p.Parse(context.Background(), "x")

	assert.Equal(t, "list_repositories", got.Action)
	assert.NotNil(t, got.Parameters)
	assert.Empty(t, got.Parameters)
}

func TestParse_hallucinated_action_passes_through(t *testing.T) {
	t.Parallel()

	p, _ := newParser(
		t, `{"action": "delete_repository", "parameters": {}}`, nil,
	)

	got := p.Parse(context.Background(), "x")

	assert.Equal(t, "delete_repository", got.Action)
	assert.False(t, got.Failed())
	assert.False(t, got.Unknown())
}

func TestStripFence(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "{}", intent.StripFence("```json\n{}\n```"))
	assert.Equal(t, "{}", intent.StripFence("```{}```"))
	assert.Equal(t, "{}", intent.StripFence("  {}  "))
	assert.Equal(t, "", intent.StripFence("```json```"))
}
