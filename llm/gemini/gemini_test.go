package gemini_test

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/repo_assistant/llm"
	"github.com/byte4ever/repo_assistant/llm/gemini"
)

func TestNew_missing_key(t *testing.T) {
	t.Parallel()

	m, err := gemini.New(context.Background(), gemini.Config{})

	assert.Nil(t, m)
	assert.ErrorContains(t, err, "api key")
}

func TestNew_valid(t *testing.T) {
	t.Parallel()

	m, err := gemini.New(
		context.Background(),
		gemini.Config{APIKey: "key", JSON: true},
	)
	require.NoError(t, err)

	t.Cleanup(func() { _ = m.Close() })
}

func TestTextOf(t *testing.T) {
	t.Parallel()

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []genai.Part{
					genai.Text(`{"action": `),
					genai.Text(`"list_repositories"}`),
				},
			},
		}},
	}

	text, err := gemini.TextOf(resp)

	require.NoError(t, err)
	assert.Equal(t, `{"action": "list_repositories"}`, text)
}

func TestTextOf_empty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{name: "nil", resp: nil},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}},
		{
			name: "no content",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := gemini.TextOf(tt.resp)
			assert.ErrorIs(t, err, llm.ErrEmptyResponse)
		})
	}
}
