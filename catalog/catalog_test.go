package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/repo_assistant/catalog"
)

func TestNew_describes_every_action(t *testing.T) {
	t.Parallel()

	reg, err := catalog.New()
	require.NoError(t, err)

	ops := reg.Describe()
	require.Len(t, ops, 8)

	want := []string{
		"create_repository",
		"list_repositories",
		"get_repository_info",
		"create_issue",
		"list_issues",
		"create_branch",
		"get_repository_stats",
		"create_pull_request",
	}

	got := make([]string, 0, len(ops))
	for _, op := range ops {
		got = append(got, op.Name)
		assert.Equal(t, op.Name, op.Action.String())
	}

	assert.Equal(t, want, got)
}

func TestRegistry_Lookup(t *testing.T) {
	t.Parallel()

	reg := catalog.MustNew()

	desc, ok := reg.Lookup("create_branch")
	require.True(t, ok)
	assert.Equal(t, catalog.ActionCreateBranch, desc.Action)
	assert.Equal(
		t,
		[]string{"repo_name", "branch_name"},
		desc.Required(),
	)

	_, ok = reg.Lookup(catalog.UnknownAction)
	assert.False(t, ok)

	_, ok = reg.Lookup("delete_repository")
	assert.False(t, ok)
}

func TestParseAction(t *testing.T) {
	t.Parallel()

	for _, action := range catalog.Actions() {
		assert.Equal(
			t, action, catalog.ParseAction(action.String()),
		)
	}

	assert.Equal(
		t, catalog.ActionUnknown, catalog.ParseAction("unknown"),
	)
	assert.Equal(
		t, catalog.ActionUnknown, catalog.ParseAction(""),
	)
	assert.Equal(t, "unknown", catalog.Action(99).String())
}

func TestParse_rejects_unknown_operation(t *testing.T) {
	t.Parallel()

	reg, err := catalog.Parse([]byte(`
operations:
  - name: delete_everything
    description: nope
    parameters: []
`))

	assert.Nil(t, reg)
	assert.ErrorContains(t, err, "unknown operation")
}

func TestParse_rejects_missing_operation(t *testing.T) {
	t.Parallel()

	reg, err := catalog.Parse([]byte(`
operations:
  - name: list_repositories
    description: List user repositories
    parameters: []
`))

	assert.Nil(t, reg)
	assert.ErrorContains(t, err, "is not described")
}

func TestParse_rejects_bad_parameter_type(t *testing.T) {
	t.Parallel()

	reg, err := catalog.Parse([]byte(`
operations:
  - name: list_repositories
    description: List user repositories
    parameters:
      - name: limit
        type: integer
`))

	assert.Nil(t, reg)
	assert.ErrorContains(t, err, "unsupported type")
}

func TestRegistry_Instructions(t *testing.T) {
	t.Parallel()

	reg := catalog.MustNew()
	text := reg.Instructions()

	for _, op := range reg.Describe() {
		assert.Contains(t, text, "- "+op.Name+": ")
	}

	assert.Contains(
		t, text,
		`create_issue: {"repo_name": string, "title": string, `+
			`"body": string (optional)}`,
	)
	assert.Contains(t, text, `User: "Show me my repositories"`)
	assert.Contains(
		t, text,
		`{"action": "list_repositories", "parameters": {}}`,
	)
}

func TestOperationDescriptor_InputSchema(t *testing.T) {
	t.Parallel()

	desc, ok := catalog.MustNew().Lookup("create_repository")
	require.True(t, ok)

	schema := desc.InputSchema()
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"name"}, schema["required"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, props, 3)

	private, ok := props["private"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "boolean", private["type"])
	assert.Equal(t, false, private["default"])
}
