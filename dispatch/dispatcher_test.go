package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/repo_assistant/catalog"
	"github.com/byte4ever/repo_assistant/dispatch"
	"github.com/byte4ever/repo_assistant/executor"
	"github.com/byte4ever/repo_assistant/hosting"
	"github.com/byte4ever/repo_assistant/hosting/hostingtest"
)

// spy counts handler invocations around the real
// executor handlers.
type spy struct {
	calls atomic.Int32
}

func (s *spy) wrap(
	handlers map[catalog.Action]executor.Handler,
) map[catalog.Action]executor.Handler {
	out := make(map[catalog.Action]executor.Handler, len(handlers))

	for action, h := range handlers {
		out[action] = func(
			ctx context.Context,
			p catalog.Params,
		) (executor.Result, error) {
			s.calls.Add(1)

			return h(ctx, p)
		}
	}

	return out
}

func newDispatcher(
	t *testing.T,
	repos ...hosting.Repository,
) (*dispatch.Dispatcher, *hostingtest.Fake, *spy) {
	t.Helper()

	fake := hostingtest.NewFake(repos...)

	ex, err := executor.New(fake)
	require.NoError(t, err)

	sp := &spy{}

	d, err := dispatch.New(dispatch.Config{
		Registry: catalog.MustNew(),
		Handlers: sp.wrap(ex.Handlers()),
	})
	require.NoError(t, err)

	return d, fake, sp
}

func TestNew_requires_every_handler(t *testing.T) {
	t.Parallel()

	ex, err := executor.New(hostingtest.NewFake())
	require.NoError(t, err)

	handlers := ex.Handlers()
	delete(handlers, catalog.ActionListIssues)

	d, err := dispatch.New(dispatch.Config{
		Registry: catalog.MustNew(),
		Handlers: handlers,
	})

	assert.Nil(t, d)
	assert.ErrorContains(t, err, "no handler for list_issues")
}

func TestNew_requires_registry(t *testing.T) {
	t.Parallel()

	d, err := dispatch.New(dispatch.Config{})

	assert.Nil(t, d)
	assert.ErrorContains(t, err, "registry must be set")
}

func TestDispatch_unknown_action(t *testing.T) {
	t.Parallel()

	d, fake, sp := newDispatcher(t)

	env := d.Dispatch(context.Background(), "unknown", map[string]any{})

	assert.False(t, env.Success())
	assert.Equal(t, "Unknown tool: unknown", env.Err())
	assert.Zero(t, sp.calls.Load())
	assert.Zero(t, fake.CallCount())
}

func TestDispatch_unknown_names_never_reach_handlers(t *testing.T) {
	t.Parallel()

	d, fake, sp := newDispatcher(t)
	reg := d.Registry()

	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property(
		"names outside the catalog fail without a call",
		prop.ForAll(
			func(name string) bool {
				if _, ok := reg.Lookup(name); ok {
					return true
				}

				env := d.Dispatch(
					context.Background(), name, map[string]any{},
				)

				return !env.Success() &&
					env.Err() == "Unknown tool: "+name &&
					sp.calls.Load() == 0 &&
					fake.CallCount() == 0
			},
			gen.AlphaString(),
		),
	)

	properties.TestingRun(t)
}

func TestDispatch_empty_parameters_rejected(t *testing.T) {
	t.Parallel()

	reg := catalog.MustNew()

	for _, desc := range reg.Describe() {
		required := desc.Required()
		if len(required) == 0 {
			continue
		}

		t.Run(desc.Name, func(t *testing.T) {
			t.Parallel()

			d, fake, sp := newDispatcher(t)

			env := d.Dispatch(
				context.Background(), desc.Name, map[string]any{},
			)

			assert.False(t, env.Success())
			assert.Equal(
				t,
				fmt.Sprintf(
					"missing required parameter '%s' for %s",
					required[0], desc.Name,
				),
				env.Err(),
			)
			assert.Zero(t, sp.calls.Load())
			assert.Zero(t, fake.CallCount())
		})
	}
}

func TestDispatch_wrong_parameter_type(t *testing.T) {
	t.Parallel()

	d, fake, _ := newDispatcher(t)

	env := d.Dispatch(
		context.Background(),
		"create_repository",
		map[string]any{"name": "demo", "private": "yes"},
	)

	assert.False(t, env.Success())
	assert.Contains(
		t, env.Err(), "invalid parameters for create_repository",
	)
	assert.Zero(t, fake.CallCount())
}

func TestDispatch_create_repository(t *testing.T) {
	t.Parallel()

	d, fake, _ := newDispatcher(t)

	env := d.Dispatch(
		context.Background(),
		"create_repository",
		map[string]any{
			"name":        "demo-project",
			"description": "",
			"private":     false,
		},
	)

	require.True(t, env.Success(), env.Err())

	created, ok := env.Result().(executor.RepositoryCreated)
	require.True(t, ok)
	assert.Equal(t, "https://example/demo-project", created.URL)
	assert.Equal(t, 1, fake.CallCount())
	assert.Contains(t, fake.Repos, "demo-project")
}

func TestDispatch_applies_defaults(t *testing.T) {
	t.Parallel()

	d, fake, _ := newDispatcher(t)

	env := d.Dispatch(
		context.Background(),
		"create_repository",
		map[string]any{"name": "quiet", "private": nil},
	)

	require.True(t, env.Success(), env.Err())
	assert.False(t, fake.Repos["quiet"].Private)
	assert.Equal(t, "", fake.Repos["quiet"].Description)
}

func TestDispatch_caps_repository_listing(t *testing.T) {
	t.Parallel()

	repos := make([]hosting.Repository, 0, 25)
	for i := range 25 {
		name := fmt.Sprintf("repo-%02d", i)
		repos = append(repos, hosting.Repository{
			Name: name,
			URL:  "https://example/" + name,
		})
	}

	d, _, _ := newDispatcher(t, repos...)

	env := d.Dispatch(
		context.Background(), "list_repositories", nil,
	)
	require.True(t, env.Success(), env.Err())

	list, ok := env.Result().(executor.RepositoryList)
	require.True(t, ok)
	assert.Len(t, list.Repositories, 10)
	assert.Equal(t, 25, list.Count)
	assert.Equal(t, "repo-00", list.Repositories[0].Name)
}

func TestDispatch_custom_limits(t *testing.T) {
	t.Parallel()

	fake := hostingtest.NewFake(hosting.Repository{Name: "demo"})
	fake.Issues["demo"] = []hosting.Issue{
		{Title: "a"}, {Title: "b"}, {Title: "c"},
	}

	ex, err := executor.New(fake)
	require.NoError(t, err)

	d, err := dispatch.New(dispatch.Config{
		Registry: catalog.MustNew(),
		Handlers: ex.Handlers(),
		Limits:   &dispatch.Limits{Issues: 2},
	})
	require.NoError(t, err)

	env := d.Dispatch(
		context.Background(),
		"list_issues",
		map[string]any{"repo_name": "demo"},
	)
	require.True(t, env.Success(), env.Err())

	list, ok := env.Result().(executor.IssueList)
	require.True(t, ok)
	assert.Len(t, list.Issues, 2)
	assert.Equal(t, 3, list.Count)
}

func TestDispatch_issue_listing_unbounded_by_default(t *testing.T) {
	t.Parallel()

	d, fake, _ := newDispatcher(t, hosting.Repository{Name: "demo"})

	for i := range 30 {
		fake.Issues["demo"] = append(
			fake.Issues["demo"],
			hosting.Issue{Number: i + 1, Title: fmt.Sprint(i)},
		)
	}

	env := d.Dispatch(
		context.Background(),
		"list_issues",
		map[string]any{"repo_name": "demo"},
	)
	require.True(t, env.Success(), env.Err())

	list, ok := env.Result().(executor.IssueList)
	require.True(t, ok)
	assert.Len(t, list.Issues, 30)
}

func TestDispatch_reads_are_idempotent(t *testing.T) {
	t.Parallel()

	d, _, _ := newDispatcher(t,
		hosting.Repository{Name: "demo", Stars: 4, Language: "Go"},
		hosting.Repository{Name: "other"},
	)

	reads := []struct {
		action string
		params map[string]any
	}{
		{action: "list_repositories", params: map[string]any{}},
		{
			action: "get_repository_info",
			params: map[string]any{"repo_name": "demo"},
		},
		{
			action: "get_repository_stats",
			params: map[string]any{"repo_name": "demo"},
		},
		{
			action: "list_issues",
			params: map[string]any{"repo_name": "demo"},
		},
	}

	for _, rd := range reads {
		first, err := json.Marshal(
			d.Dispatch(context.Background(), rd.action, rd.params),
		)
		require.NoError(t, err)

		second, err := json.Marshal(
			d.Dispatch(context.Background(), rd.action, rd.params),
		)
		require.NoError(t, err)

		assert.Equal(t, string(first), string(second), rd.action)
	}
}

func TestDispatch_pull_request_on_missing_repository(t *testing.T) {
	t.Parallel()

	d, fake, _ := newDispatcher(t)

	env := d.Dispatch(
		context.Background(),
		"create_pull_request",
		map[string]any{
			"repo_name": "ghost",
			"title":     "t",
			"head":      "h",
			"base":      "main",
		},
	)

	assert.False(t, env.Success())
	assert.Equal(t, "Repository 'ghost' not found", env.Err())
	assert.NotContains(t, fake.Calls(), "CreatePullRequest")
}

func TestDispatch_remote_error_verbatim(t *testing.T) {
	t.Parallel()

	d, fake, _ := newDispatcher(t)
	fake.Err = errors.New("API rate limit exceeded for user")

	env := d.Dispatch(context.Background(), "list_repositories", nil)

	assert.False(t, env.Success())
	assert.Equal(t, "API rate limit exceeded for user", env.Err())
}

func TestDispatch_recovers_from_panics(t *testing.T) {
	t.Parallel()

	ex, err := executor.New(hostingtest.NewFake())
	require.NoError(t, err)

	handlers := ex.Handlers()
	handlers[catalog.ActionListRepositories] = func(
		context.Context,
		catalog.Params,
	) (executor.Result, error) {
		panic("boom")
	}

	d, err := dispatch.New(dispatch.Config{
		Registry: catalog.MustNew(),
		Handlers: handlers,
	})
	require.NoError(t, err)

	var env executor.Envelope

	assert.NotPanics(t, func() {
		env = d.Dispatch(context.Background(), "list_repositories", nil)
	})
	assert.False(t, env.Success())
	assert.Equal(t, "tool execution failed: boom", env.Err())
}

func TestDispatch_nil_result_is_failure(t *testing.T) {
	t.Parallel()

	ex, err := executor.New(hostingtest.NewFake())
	require.NoError(t, err)

	handlers := ex.Handlers()
	handlers[catalog.ActionListRepositories] = func(
		context.Context,
		catalog.Params,
	) (executor.Result, error) {
		return nil, nil //nolint:nilnil // exercising a faulty handler
	}

	d, err := dispatch.New(dispatch.Config{
		Registry: catalog.MustNew(),
		Handlers: handlers,
	})
	require.NoError(t, err)

	env := d.Dispatch(context.Background(), "list_repositories", nil)

	assert.False(t, env.Success())
}
