package gitlab_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/repo_assistant/hosting"
	glprov "github.com/byte4ever/repo_assistant/hosting/gitlab"
)

func TestNewProvider_valid(t *testing.T) {
	t.Parallel()

	pv, err := glprov.NewProvider(glprov.Config{
		Host:        "https://gitlab.example.com",
		Namespace:   "org",
		AccessToken: "tok",
	})

	require.NoError(t, err)
	assert.NotNil(t, pv)
}

func TestNewProvider_default_host(t *testing.T) {
	t.Parallel()

	pv, err := glprov.NewProvider(glprov.Config{
		AccessToken: "tok",
	})

	require.NoError(t, err)
	assert.NotNil(t, pv)
}

func TestNewProvider_missing_token(t *testing.T) {
	t.Parallel()

	pv, err := glprov.NewProvider(glprov.Config{
		Namespace: "org",
	})

	assert.Nil(t, pv)
	assert.ErrorContains(t, err, "access token")
}

func newServer(
	t *testing.T,
	handler http.HandlerFunc,
) *glprov.Provider {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	pv, err := glprov.NewProvider(glprov.Config{
		Host:        ts.URL,
		Namespace:   "octo",
		AccessToken: "tok",
	})
	require.NoError(t, err)

	return pv
}

func TestProvider_GetRepository_not_found(t *testing.T) {
	t.Parallel()

	pv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"404 Project Not Found"}`)
	})

	repo, err := pv.GetRepository(context.Background(), "ghost")

	assert.Nil(t, repo)
	assert.ErrorIs(t, err, hosting.ErrNotFound)
}

func TestProvider_ListIssues_maps_open_state(t *testing.T) {
	t.Parallel()

	var gotState string

	pv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotState = r.URL.Query().Get("state")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(
			w,
			`[{"iid":4,"title":"bug","web_url":"https://gl/i/4"}]`,
		)
	})

	issues, err := pv.ListIssues(
		context.Background(), "demo", hosting.IssueStateOpen,
	)
	require.NoError(t, err)

	assert.Equal(t, "opened", gotState)
	require.Len(t, issues, 1)
	assert.Equal(t, 4, issues[0].Number)
	assert.Equal(t, "https://gl/i/4", issues[0].URL)
}

// recorder is a fake GitLab API routing on method and
// escaped path, and recording every request it sees.
type recorder struct {
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	seen   []string
	bodies map[string]string
}

func (rc *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.EscapedPath()
	body, _ := io.ReadAll(r.Body)

	rc.mu.Lock()
	rc.seen = append(rc.seen, key)
	rc.bodies[key] = string(body)
	h, ok := rc.routes[key]
	rc.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"404 Not Found"}`)

		return
	}

	h(w, r)
}

func (rc *recorder) requests() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	return append([]string(nil), rc.seen...)
}

func (rc *recorder) body(key string) string {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	return rc.bodies[key]
}

func newRecorder(
	t *testing.T,
	namespace string,
	routes map[string]http.HandlerFunc,
) (*glprov.Provider, *recorder) {
	t.Helper()

	rc := &recorder{routes: routes, bodies: map[string]string{}}

	ts := httptest.NewServer(rc)
	t.Cleanup(ts.Close)

	pv, err := glprov.NewProvider(glprov.Config{
		Host:        ts.URL,
		Namespace:   namespace,
		AccessToken: "tok",
	})
	require.NoError(t, err)

	return pv, rc
}

func reply(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, body)
	}
}

const teamGroup = `{
	"id": 42,
	"path": "team",
	"full_path": "team",
	"kind": "group"
}`

func TestProvider_CreateRepository_user_namespace(t *testing.T) {
	t.Parallel()

	pv, rc := newRecorder(t, "", map[string]http.HandlerFunc{
		"POST /api/v4/projects": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{
				"id": 1,
				"name": "Demo Project",
				"path": "demo-project",
				"web_url": "https://gl/octo/demo-project",
				"visibility": "private",
				"namespace": {"full_path": "octo"}
			}`)
		},
	})

	repo, err := pv.CreateRepository(
		context.Background(),
		hosting.NewRepository{Name: "Demo Project", Private: true},
	)
	require.NoError(t, err)

	assert.Equal(t, "demo-project", repo.Name)
	assert.Equal(t, "octo", repo.Owner)
	assert.True(t, repo.Private)
	assert.Equal(t, "https://gl/octo/demo-project", repo.URL)

	body := rc.body("POST /api/v4/projects")
	assert.Contains(t, body, `"visibility":"private"`)
	assert.Contains(t, body, `"name":"Demo Project"`)
	assert.NotContains(t, body, "namespace_id")
}

func TestProvider_CreateRepository_public(t *testing.T) {
	t.Parallel()

	pv, rc := newRecorder(t, "", map[string]http.HandlerFunc{
		"POST /api/v4/projects": reply(
			`{"id": 1, "path": "demo", "visibility": "public"}`,
		),
	})

	repo, err := pv.CreateRepository(
		context.Background(),
		hosting.NewRepository{Name: "demo"},
	)
	require.NoError(t, err)

	assert.False(t, repo.Private)
	assert.Contains(
		t, rc.body("POST /api/v4/projects"), `"visibility":"public"`,
	)
}

func TestProvider_configured_group_is_used_everywhere(t *testing.T) {
	t.Parallel()

	pv, rc := newRecorder(t, "team", map[string]http.HandlerFunc{
		"GET /api/v4/namespaces/team": reply(teamGroup),
		"POST /api/v4/projects": reply(`{
			"id": 7,
			"path": "demo",
			"namespace": {"full_path": "team"}
		}`),
		"GET /api/v4/groups/team/projects": reply(`[
			{"id": 7, "path": "demo", "namespace": {"full_path": "team"}}
		]`),
		"GET /api/v4/projects/team%2Fdemo": reply(`{
			"id": 7,
			"path": "demo",
			"namespace": {"full_path": "team"}
		}`),
	})

	ctx := context.Background()

	created, err := pv.CreateRepository(
		ctx, hosting.NewRepository{Name: "demo"},
	)
	require.NoError(t, err)
	assert.Equal(t, "team", created.Owner)
	assert.Contains(
		t, rc.body("POST /api/v4/projects"), `"namespace_id":42`,
	)

	repos, err := pv.ListRepositories(ctx)
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, "demo", repos[0].Name)

	got, err := pv.GetRepository(ctx, repos[0].Name)
	require.NoError(t, err)
	assert.Equal(t, "team", got.Owner)

	// The namespace is looked up once.
	assert.Equal(
		t,
		[]string{
			"GET /api/v4/namespaces/team",
			"POST /api/v4/projects",
			"GET /api/v4/groups/team/projects",
			"GET /api/v4/projects/team%2Fdemo",
		},
		rc.requests(),
	)
}

func TestProvider_ListRepositories_user_namespace(t *testing.T) {
	t.Parallel()

	pv, rc := newRecorder(t, "someone", map[string]http.HandlerFunc{
		"GET /api/v4/namespaces/someone": reply(`{
			"id": 9,
			"path": "someone",
			"full_path": "someone",
			"kind": "user"
		}`),
		"GET /api/v4/users/someone/projects": reply(
			`[{"id": 1, "path": "dotfiles"}]`,
		),
	})

	repos, err := pv.ListRepositories(context.Background())
	require.NoError(t, err)

	require.Len(t, repos, 1)
	assert.Equal(t, "dotfiles", repos[0].Name)
	assert.Contains(
		t, rc.requests(), "GET /api/v4/users/someone/projects",
	)
}

func TestProvider_ListRepositories_unknown_namespace(t *testing.T) {
	t.Parallel()

	pv, _ := newRecorder(t, "ghost", map[string]http.HandlerFunc{})

	repos, err := pv.ListRepositories(context.Background())

	assert.Nil(t, repos)
	assert.ErrorIs(t, err, hosting.ErrNotFound)
	assert.ErrorContains(t, err, "ghost")
}

func TestProvider_ListRepositories_follows_pages(t *testing.T) {
	t.Parallel()

	var owned []string

	pv, _ := newRecorder(t, "", map[string]http.HandlerFunc{
		"GET /api/v4/projects": func(w http.ResponseWriter, r *http.Request) {
			owned = append(owned, r.URL.Query().Get("owned"))

			if r.URL.Query().Get("page") == "2" {
				fmt.Fprint(w, `[{"id": 3, "path": "c"}]`)

				return
			}

			w.Header().Set("X-Next-Page", "2")
			fmt.Fprint(
				w, `[{"id": 1, "path": "a"}, {"id": 2, "path": "b"}]`,
			)
		},
	})

	repos, err := pv.ListRepositories(context.Background())
	require.NoError(t, err)

	require.Len(t, repos, 3)
	assert.Equal(t, "a", repos[0].Name)
	assert.Equal(t, "c", repos[2].Name)
	assert.Equal(t, []string{"true", "true"}, owned)
}

func TestProvider_CreateBranch(t *testing.T) {
	t.Parallel()

	const key = "POST /api/v4/projects/octo%2Fdemo/repository/branches"

	pv, rc := newRecorder(t, "octo", map[string]http.HandlerFunc{
		key: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{
				"name": "feature",
				"web_url": "https://gl/octo/demo/-/tree/feature",
				"commit": {"id": "abc123"}
			}`)
		},
	})

	br, err := pv.CreateBranch(
		context.Background(),
		"demo",
		hosting.NewBranch{Name: "feature", Source: "develop"},
	)
	require.NoError(t, err)

	assert.Equal(t, "feature", br.Name)
	assert.Equal(t, "abc123", br.SHA)
	assert.Equal(t, "https://gl/octo/demo/-/tree/feature", br.URL)
	assert.Contains(t, rc.body(key), `"branch":"feature"`)
	assert.Contains(t, rc.body(key), `"ref":"develop"`)
}

func TestProvider_CreatePullRequest(t *testing.T) {
	t.Parallel()

	mr := reply(`{
		"iid": 5,
		"title": "Add feature",
		"web_url": "https://gl/mr/5"
	}`)

	tests := []struct {
		name string
		repo hosting.Repository
		key  string
	}{
		{
			name: "owner from repository",
			repo: hosting.Repository{Owner: "team/sub", Name: "demo"},
			key:  "POST /api/v4/projects/team%2Fsub%2Fdemo/merge_requests",
		},
		{
			name: "configured namespace",
			repo: hosting.Repository{Name: "demo"},
			key:  "POST /api/v4/projects/octo%2Fdemo/merge_requests",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pv, rc := newRecorder(t, "octo", map[string]http.HandlerFunc{
				tt.key: mr,
			})

			pr, err := pv.CreatePullRequest(
				context.Background(),
				&tt.repo,
				hosting.NewPullRequest{
					Title: "Add feature",
					Head:  "feature",
					Base:  "main",
					Body:  "details",
				},
			)
			require.NoError(t, err)

			assert.Equal(t, 5, pr.Number)
			assert.Equal(t, "https://gl/mr/5", pr.URL)

			body := rc.body(tt.key)
			assert.Contains(t, body, `"source_branch":"feature"`)
			assert.Contains(t, body, `"target_branch":"main"`)
			assert.Contains(t, body, `"description":"details"`)
		})
	}
}
