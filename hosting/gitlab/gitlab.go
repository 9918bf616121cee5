package gitlab

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/byte4ever/repo_assistant/hosting"
)

const perPage = 100

// namespaceKindGroup is the kind GitLab reports for
// group namespaces.
const namespaceKindGroup = "group"

// Config holds the settings needed to create a GitLab
// provider.
type Config struct {
	// Host is the base URL of the GitLab instance
	// (e.g. "https://gitlab.com").
	Host string
	// Namespace is the group or user path owning the
	// projects. Leave empty for the authenticated
	// user.
	Namespace string
	// AccessToken is a personal or project access
	// token used for authentication.
	AccessToken string
}

// Provider performs repository operations on GitLab.
//
// Pattern: Strategy -- implements hosting.Provider.
type Provider struct {
	client *gl.Client

	// configured is set when Config.Namespace names
	// the owner; projects are then created and listed
	// there instead of under the authenticated user.
	configured bool

	mu        sync.Mutex
	namespace string
	resolved  *gl.Namespace
}

var _ hosting.Provider = (*Provider)(nil)

// NewProvider validates cfg and returns a Provider.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating gitlab provider"

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	host := cfg.Host
	if host == "" {
		host = "https://gitlab.com"
	}

	client, err := gl.NewClient(
		cfg.AccessToken,
		gl.WithBaseURL(host),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: new client: %w", errCtx, err,
		)
	}

	return &Provider{
		client:     client,
		configured: cfg.Namespace != "",
		namespace:  cfg.Namespace,
	}, nil
}

// owner returns the configured namespace, or the
// username of the authenticated user, fetched once.
func (p *Provider) owner(ctx context.Context) (string, error) {
	const errCtx = "resolving gitlab namespace"

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.namespace != "" {
		return p.namespace, nil
	}

	user, _, err := p.client.Users.CurrentUser(
		gl.WithContext(ctx),
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	p.namespace = user.Username

	slog.Info("connected to gitlab", "user", p.namespace)

	return p.namespace, nil
}

// configuredNamespace looks up the configured
// namespace once and caches it.
func (p *Provider) configuredNamespace(
	ctx context.Context,
) (*gl.Namespace, error) {
	const errCtx = "resolving gitlab namespace"

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.resolved != nil {
		return p.resolved, nil
	}

	ns, resp, err := p.client.Namespaces.GetNamespace(
		p.namespace, gl.WithContext(ctx),
	)
	if err != nil {
		return nil, wrap(
			errCtx+" "+p.namespace, resp, err,
		)
	}

	p.resolved = ns

	slog.Info(
		"resolved gitlab namespace",
		"namespace", ns.FullPath,
		"kind", ns.Kind,
		"id", ns.ID,
	)

	return ns, nil
}

func (p *Provider) projectPath(
	ctx context.Context,
	name string,
) (string, error) {
	owner, err := p.owner(ctx)
	if err != nil {
		return "", err
	}

	return owner + "/" + name, nil
}

// CreateRepository creates a project in the
// configured namespace, or the authenticated user's.
func (p *Provider) CreateRepository(
	ctx context.Context,
	repo hosting.NewRepository,
) (*hosting.Repository, error) {
	const errCtx = "creating gitlab project"

	visibility := gl.PublicVisibility
	if repo.Private {
		visibility = gl.PrivateVisibility
	}

	opts := &gl.CreateProjectOptions{
		Name:        gl.Ptr(repo.Name),
		Description: gl.Ptr(repo.Description),
		Visibility:  gl.Ptr(visibility),
	}

	if p.configured {
		ns, err := p.configuredNamespace(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		opts.NamespaceID = gl.Ptr(ns.ID)
	}

	created, resp, err := p.client.Projects.CreateProject(
		opts, gl.WithContext(ctx),
	)
	if err != nil {
		return nil, wrap(errCtx, resp, err)
	}

	slog.Info("created project", "url", created.WebURL)

	out := toRepository(created)

	return &out, nil
}

// ListRepositories returns every project of the
// configured namespace, or those owned by the
// authenticated user.
func (p *Provider) ListRepositories(
	ctx context.Context,
) ([]hosting.Repository, error) {
	const errCtx = "listing gitlab projects"

	opts := &gl.ListProjectsOptions{Owned: gl.Ptr(true)}
	opts.PerPage = perPage

	list := listPage(func(page int64) ([]*gl.Project, *gl.Response, error) {
		opts.Page = page

		return p.client.Projects.ListProjects(
			opts, gl.WithContext(ctx),
		)
	})

	if p.configured {
		ns, err := p.configuredNamespace(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		list = p.namespaceLister(ctx, ns)
	}

	out, err := collect(list)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return out, nil
}

// listPage fetches one page of projects.
type listPage func(page int64) ([]*gl.Project, *gl.Response, error)

func (p *Provider) namespaceLister(
	ctx context.Context,
	ns *gl.Namespace,
) listPage {
	if ns.Kind == namespaceKindGroup {
		opts := &gl.ListGroupProjectsOptions{}
		opts.PerPage = perPage

		return func(page int64) ([]*gl.Project, *gl.Response, error) {
			opts.Page = page

			return p.client.Groups.ListGroupProjects(
				ns.FullPath, opts, gl.WithContext(ctx),
			)
		}
	}

	opts := &gl.ListProjectsOptions{}
	opts.PerPage = perPage

	return func(page int64) ([]*gl.Project, *gl.Response, error) {
		opts.Page = page

		return p.client.Projects.ListUserProjects(
			ns.Path, opts, gl.WithContext(ctx),
		)
	}
}

// collect follows pages until GitLab reports no next
// page.
func collect(list listPage) ([]hosting.Repository, error) {
	var (
		out  []hosting.Repository
		page int64
	)

	for {
		projects, resp, err := list(page)
		if err != nil {
			return nil, wrap("fetching page", resp, err)
		}

		for _, pr := range projects {
			out = append(out, toRepository(pr))
		}

		if resp.NextPage == 0 {
			return out, nil
		}

		page = resp.NextPage
	}
}

// GetRepository fetches a project by name within the
// namespace.
func (p *Provider) GetRepository(
	ctx context.Context,
	name string,
) (*hosting.Repository, error) {
	const errCtx = "getting gitlab project"

	pid, err := p.projectPath(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	project, resp, err := p.client.Projects.GetProject(
		pid, nil, gl.WithContext(ctx),
	)
	if err != nil {
		return nil, wrap(errCtx, resp, err)
	}

	out := toRepository(project)

	return &out, nil
}

// CreateIssue opens an issue in the project.
func (p *Provider) CreateIssue(
	ctx context.Context,
	repo string,
	issue hosting.NewIssue,
) (*hosting.Issue, error) {
	const errCtx = "creating gitlab issue"

	pid, err := p.projectPath(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	created, resp, err := p.client.Issues.CreateIssue(
		pid,
		&gl.CreateIssueOptions{
			Title:       gl.Ptr(issue.Title),
			Description: gl.Ptr(issue.Body),
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, wrap(errCtx, resp, err)
	}

	slog.Info("created issue", "url", created.WebURL)

	return &hosting.Issue{
		Number: int(created.IID),
		Title:  created.Title,
		URL:    created.WebURL,
	}, nil
}

// ListIssues lists project issues in the given state.
func (p *Provider) ListIssues(
	ctx context.Context,
	repo string,
	state hosting.IssueState,
) ([]hosting.Issue, error) {
	const errCtx = "listing gitlab issues"

	pid, err := p.projectPath(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	opts := &gl.ListProjectIssuesOptions{}
	opts.PerPage = perPage

	// GitLab calls open issues "opened" and has no
	// "all" filter; omitting the state lists all.
	switch state {
	case hosting.IssueStateOpen:
		opts.State = gl.Ptr("opened")
	case hosting.IssueStateClosed:
		opts.State = gl.Ptr("closed")
	case hosting.IssueStateAll:
	}

	var out []hosting.Issue

	for {
		page, resp, err := p.client.Issues.ListProjectIssues(
			pid, opts, gl.WithContext(ctx),
		)
		if err != nil {
			return nil, wrap(errCtx, resp, err)
		}

		for _, is := range page {
			out = append(out, hosting.Issue{
				Number: int(is.IID),
				Title:  is.Title,
				URL:    is.WebURL,
			})
		}

		if resp.NextPage == 0 {
			return out, nil
		}

		opts.Page = resp.NextPage
	}
}

// CreateBranch creates a branch from the source
// branch.
func (p *Provider) CreateBranch(
	ctx context.Context,
	repo string,
	branch hosting.NewBranch,
) (*hosting.Branch, error) {
	const errCtx = "creating gitlab branch"

	pid, err := p.projectPath(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	created, resp, err := p.client.Branches.CreateBranch(
		pid,
		&gl.CreateBranchOptions{
			Branch: gl.Ptr(branch.Name),
			Ref:    gl.Ptr(branch.Source),
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, wrap(errCtx, resp, err)
	}

	out := &hosting.Branch{
		Name: created.Name,
		URL:  created.WebURL,
	}

	if created.Commit != nil {
		out.SHA = created.Commit.ID
	}

	slog.Info(
		"created branch",
		"repo", repo,
		"branch", branch.Name,
	)

	return out, nil
}

// CreatePullRequest opens a merge request from
// pr.Head into pr.Base.
func (p *Provider) CreatePullRequest(
	ctx context.Context,
	repo *hosting.Repository,
	pr hosting.NewPullRequest,
) (*hosting.PullRequest, error) {
	const errCtx = "creating gitlab merge request"

	pid := repo.Owner + "/" + repo.Name
	if repo.Owner == "" {
		var err error

		pid, err = p.projectPath(ctx, repo.Name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	created, resp, err := p.client.MergeRequests.CreateMergeRequest(
		pid,
		&gl.CreateMergeRequestOptions{
			Title:        gl.Ptr(pr.Title),
			Description:  gl.Ptr(pr.Body),
			SourceBranch: gl.Ptr(pr.Head),
			TargetBranch: gl.Ptr(pr.Base),
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, wrap(errCtx, resp, err)
	}

	slog.Info(
		"created merge request",
		"url", created.WebURL,
	)

	return &hosting.PullRequest{
		Number: int(created.IID),
		Title:  created.Title,
		URL:    created.WebURL,
	}, nil
}

// wrap adds context to err and marks 404 responses
// with hosting.ErrNotFound.
func wrap(errCtx string, resp *gl.Response, err error) error {
	if resp != nil && resp.Response != nil &&
		resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf(
			"%s: %w: %w", errCtx, hosting.ErrNotFound, err,
		)
	}

	return fmt.Errorf("%s: %w", errCtx, err)
}

// toRepository names the repository by its path,
// which is how GitLab addresses projects.
func toRepository(p *gl.Project) hosting.Repository {
	out := hosting.Repository{
		Name:        p.Path,
		Description: p.Description,
		URL:         p.WebURL,
		Private:     p.Visibility == gl.PrivateVisibility,
		Stars:       int(p.StarCount),
		Forks:       int(p.ForksCount),
		OpenIssues:  int(p.OpenIssuesCount),
		CreatedAt:   timeOf(p.CreatedAt),
		UpdatedAt:   timeOf(p.LastActivityAt),
	}

	if out.Name == "" {
		out.Name = p.Name
	}

	if p.Namespace != nil {
		out.Owner = p.Namespace.FullPath
	}

	return out
}

func timeOf(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}

	return *t
}
