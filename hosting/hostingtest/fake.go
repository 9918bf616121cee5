package hostingtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/byte4ever/repo_assistant/hosting"
)

// Fake is an in-memory hosting.Provider. Repositories
// and issues are seeded through the exported fields
// before use; Err, when set, is returned by every call.
// It is safe for concurrent use.
type Fake struct {
	// Owner is reported as the owner of every
	// repository. Defaults to "octo".
	Owner string
	// BaseURL prefixes generated URLs. Defaults to
	// "https://example".
	BaseURL string
	// Repos maps repository name to repository.
	Repos map[string]hosting.Repository
	// Issues maps repository name to its open issues.
	Issues map[string][]hosting.Issue
	// Err is returned by every operation when set.
	Err error

	mu    sync.Mutex
	calls []string
}

var _ hosting.Provider = (*Fake)(nil)

// NewFake returns a Fake seeded with repos.
func NewFake(repos ...hosting.Repository) *Fake {
	f := &Fake{
		Repos:  make(map[string]hosting.Repository),
		Issues: make(map[string][]hosting.Issue),
	}

	for _, r := range repos {
		f.Repos[r.Name] = r
	}

	return f
}

// Calls returns the names of the operations invoked so
// far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

// CallCount returns how many operations were invoked.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

func (f *Fake) record(op string) error {
	f.calls = append(f.calls, op)

	return f.Err
}

func (f *Fake) owner() string {
	if f.Owner == "" {
		return "octo"
	}

	return f.Owner
}

func (f *Fake) url(parts ...string) string {
	u := f.BaseURL
	if u == "" {
		u = "https://example"
	}

	for _, p := range parts {
		u += "/" + p
	}

	return u
}

func (f *Fake) lookup(name string) (hosting.Repository, error) {
	r, ok := f.Repos[name]
	if !ok {
		return hosting.Repository{}, fmt.Errorf(
			"repository %s: %w", name, hosting.ErrNotFound,
		)
	}

	return r, nil
}

// CreateRepository implements hosting.Provider.
func (f *Fake) CreateRepository(
	_ context.Context,
	repo hosting.NewRepository,
) (*hosting.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record("CreateRepository"); err != nil {
		return nil, err
	}

	if _, exists := f.Repos[repo.Name]; exists {
		return nil, fmt.Errorf(
			"name already exists on this account",
		)
	}

	created := hosting.Repository{
		Owner:       f.owner(),
		Name:        repo.Name,
		Description: repo.Description,
		Private:     repo.Private,
		URL:         f.url(repo.Name),
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if f.Repos == nil {
		f.Repos = make(map[string]hosting.Repository)
	}

	f.Repos[repo.Name] = created

	return &created, nil
}

// ListRepositories implements hosting.Provider.
// Repositories are returned in name order.
func (f *Fake) ListRepositories(
	_ context.Context,
) ([]hosting.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record("ListRepositories"); err != nil {
		return nil, err
	}

	out := make([]hosting.Repository, 0, len(f.Repos))
	for _, r := range f.Repos {
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})

	return out, nil
}

// GetRepository implements hosting.Provider.
func (f *Fake) GetRepository(
	_ context.Context,
	name string,
) (*hosting.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record("GetRepository"); err != nil {
		return nil, err
	}

	r, err := f.lookup(name)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// CreateIssue implements hosting.Provider.
func (f *Fake) CreateIssue(
	_ context.Context,
	repo string,
	issue hosting.NewIssue,
) (*hosting.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record("CreateIssue"); err != nil {
		return nil, err
	}

	if _, err := f.lookup(repo); err != nil {
		return nil, err
	}

	if f.Issues == nil {
		f.Issues = make(map[string][]hosting.Issue)
	}

	num := len(f.Issues[repo]) + 1
	created := hosting.Issue{
		Number: num,
		Title:  issue.Title,
		URL:    f.url(repo, "issues", fmt.Sprint(num)),
	}

	f.Issues[repo] = append(f.Issues[repo], created)

	return &created, nil
}

// ListIssues implements hosting.Provider. Every seeded
// issue is considered open.
func (f *Fake) ListIssues(
	_ context.Context,
	repo string,
	_ hosting.IssueState,
) ([]hosting.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record("ListIssues"); err != nil {
		return nil, err
	}

	if _, err := f.lookup(repo); err != nil {
		return nil, err
	}

	return append([]hosting.Issue(nil), f.Issues[repo]...), nil
}

// CreateBranch implements hosting.Provider.
func (f *Fake) CreateBranch(
	_ context.Context,
	repo string,
	branch hosting.NewBranch,
) (*hosting.Branch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record("CreateBranch"); err != nil {
		return nil, err
	}

	if _, err := f.lookup(repo); err != nil {
		return nil, err
	}

	return &hosting.Branch{
		Name: branch.Name,
		SHA:  "0123456789abcdef",
		URL:  f.url(repo, "tree", branch.Name),
	}, nil
}

// CreatePullRequest implements hosting.Provider.
func (f *Fake) CreatePullRequest(
	_ context.Context,
	repo *hosting.Repository,
	pr hosting.NewPullRequest,
) (*hosting.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record("CreatePullRequest"); err != nil {
		return nil, err
	}

	return &hosting.PullRequest{
		Number: 1,
		Title:  pr.Title,
		URL:    f.url(repo.Name, "pull", "1"),
	}, nil
}
