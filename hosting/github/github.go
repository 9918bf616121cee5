package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/repo_assistant/hosting"
)

const perPage = 100

// Config holds the settings needed to create a GitHub
// provider.
type Config struct {
	// AccessToken is a personal access token or
	// GitHub App token used for authentication.
	AccessToken string
	// Organization scopes every operation to this
	// organisation. Leave empty to act on the
	// authenticated user's own repositories.
	Organization string
	// EnterpriseHost is an optional GitHub Enterprise
	// hostname (e.g. "git.corp.example.com"). Leave
	// empty for github.com.
	EnterpriseHost string
	// BaseURL overrides the REST endpoint entirely
	// (e.g. a proxy). Takes precedence over
	// EnterpriseHost.
	BaseURL string
}

// Provider performs repository operations on GitHub.
//
// Pattern: Strategy -- implements hosting.Provider.
type Provider struct {
	client *gh.Client
	org    string

	mu    sync.Mutex
	login string
}

var _ hosting.Provider = (*Provider)(nil)

// NewProvider validates cfg and returns a Provider.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating github provider"

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	client := gh.NewClient(nil).
		WithAuthToken(cfg.AccessToken)

	switch {
	case cfg.BaseURL != "":
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: base url: %w", errCtx, err,
			)
		}

		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}

		client.BaseURL = u
		client.UploadURL = u

	case cfg.EnterpriseHost != "":
		baseURL := "https://" +
			cfg.EnterpriseHost + "/api/v3/"
		uploadURL := "https://" +
			cfg.EnterpriseHost + "/api/uploads/"

		var err error

		client, err = client.WithEnterpriseURLs(
			baseURL, uploadURL,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: enterprise urls: %w",
				errCtx, err,
			)
		}
	}

	return &Provider{
		client: client,
		org:    cfg.Organization,
	}, nil
}

// owner returns the organisation, or the login of the
// authenticated user, fetched once and cached.
func (p *Provider) owner(ctx context.Context) (string, error) {
	const errCtx = "resolving github owner"

	if p.org != "" {
		return p.org, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.login != "" {
		return p.login, nil
	}

	user, _, err := p.client.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	p.login = user.GetLogin()

	slog.Info("connected to github", "login", p.login)

	return p.login, nil
}

// CreateRepository creates a repository under the
// organisation, or the authenticated user.
func (p *Provider) CreateRepository(
	ctx context.Context,
	repo hosting.NewRepository,
) (*hosting.Repository, error) {
	const errCtx = "creating github repository"

	created, resp, err := p.client.Repositories.Create(
		ctx,
		p.org,
		&gh.Repository{
			Name:        gh.Ptr(repo.Name),
			Description: gh.Ptr(repo.Description),
			Private:     gh.Ptr(repo.Private),
		},
	)
	if err != nil {
		return nil, wrap(errCtx, resp, err)
	}

	slog.Info(
		"created repository",
		"url", created.GetHTMLURL(),
	)

	out := toRepository(created)

	return &out, nil
}

// ListRepositories returns every repository of the
// owner.
func (p *Provider) ListRepositories(
	ctx context.Context,
) ([]hosting.Repository, error) {
	const errCtx = "listing github repositories"

	if p.org != "" {
		return p.listOrgRepositories(ctx)
	}

	opts := &gh.RepositoryListByAuthenticatedUserOptions{
		Affiliation: "owner",
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	var out []hosting.Repository

	for {
		page, resp, err := p.client.Repositories.
			ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, wrap(errCtx, resp, err)
		}

		for _, r := range page {
			out = append(out, toRepository(r))
		}

		if resp.NextPage == 0 {
			return out, nil
		}

		opts.Page = resp.NextPage
	}
}

func (p *Provider) listOrgRepositories(
	ctx context.Context,
) ([]hosting.Repository, error) {
	const errCtx = "listing github organisation repositories"

	opts := &gh.RepositoryListByOrgOptions{
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	var out []hosting.Repository

	for {
		page, resp, err := p.client.Repositories.ListByOrg(
			ctx, p.org, opts,
		)
		if err != nil {
			return nil, wrap(errCtx, resp, err)
		}

		for _, r := range page {
			out = append(out, toRepository(r))
		}

		if resp.NextPage == 0 {
			return out, nil
		}

		opts.Page = resp.NextPage
	}
}

// GetRepository fetches a single repository of the
// owner.
func (p *Provider) GetRepository(
	ctx context.Context,
	name string,
) (*hosting.Repository, error) {
	const errCtx = "getting github repository"

	owner, err := p.owner(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	repo, resp, err := p.client.Repositories.Get(
		ctx, owner, name,
	)
	if err != nil {
		return nil, wrap(errCtx, resp, err)
	}

	out := toRepository(repo)

	return &out, nil
}

// CreateIssue opens an issue in repo.
func (p *Provider) CreateIssue(
	ctx context.Context,
	repo string,
	issue hosting.NewIssue,
) (*hosting.Issue, error) {
	const errCtx = "creating github issue"

	owner, err := p.owner(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	created, resp, err := p.client.Issues.Create(
		ctx, owner, repo,
		&gh.IssueRequest{
			Title: gh.Ptr(issue.Title),
			Body:  gh.Ptr(issue.Body),
		},
	)
	if err != nil {
		return nil, wrap(errCtx, resp, err)
	}

	slog.Info(
		"created issue",
		"url", created.GetHTMLURL(),
	)

	return &hosting.Issue{
		Number: created.GetNumber(),
		Title:  created.GetTitle(),
		URL:    created.GetHTMLURL(),
	}, nil
}

// ListIssues lists issues of repo in the given state.
// Pull requests, which GitHub reports as issues, are
// skipped.
func (p *Provider) ListIssues(
	ctx context.Context,
	repo string,
	state hosting.IssueState,
) ([]hosting.Issue, error) {
	const errCtx = "listing github issues"

	owner, err := p.owner(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	opts := &gh.IssueListByRepoOptions{
		State:       string(state),
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	var out []hosting.Issue

	for {
		page, resp, err := p.client.Issues.ListByRepo(
			ctx, owner, repo, opts,
		)
		if err != nil {
			return nil, wrap(errCtx, resp, err)
		}

		for _, is := range page {
			if is.IsPullRequest() {
				continue
			}

			out = append(out, hosting.Issue{
				Number: is.GetNumber(),
				Title:  is.GetTitle(),
				URL:    is.GetHTMLURL(),
			})
		}

		if resp.NextPage == 0 {
			return out, nil
		}

		opts.Page = resp.NextPage
	}
}

// CreateBranch creates a branch pointing at the head
// commit of the source branch.
func (p *Provider) CreateBranch(
	ctx context.Context,
	repo string,
	branch hosting.NewBranch,
) (*hosting.Branch, error) {
	const errCtx = "creating github branch"

	owner, err := p.owner(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	src, resp, err := p.client.Repositories.GetBranch(
		ctx, owner, repo, branch.Source, 1,
	)
	if err != nil {
		return nil, wrap(
			errCtx+": source branch "+branch.Source,
			resp, err,
		)
	}

	sha := src.GetCommit().GetSHA()

	ref, resp, err := p.client.Git.CreateRef(
		ctx, owner, repo,
		&gh.Reference{
			Ref:    gh.Ptr("refs/heads/" + branch.Name),
			Object: &gh.GitObject{SHA: gh.Ptr(sha)},
		},
	)
	if err != nil {
		return nil, wrap(errCtx, resp, err)
	}

	slog.Info(
		"created branch",
		"repo", repo,
		"branch", branch.Name,
		"sha", sha,
	)

	return &hosting.Branch{
		Name: branch.Name,
		SHA:  sha,
		URL:  ref.GetURL(),
	}, nil
}

// CreatePullRequest opens a pull request from pr.Head
// into pr.Base.
func (p *Provider) CreatePullRequest(
	ctx context.Context,
	repo *hosting.Repository,
	pr hosting.NewPullRequest,
) (*hosting.PullRequest, error) {
	const errCtx = "creating github pull request"

	owner := repo.Owner
	if owner == "" {
		var err error

		owner, err = p.owner(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	created, resp, err := p.client.PullRequests.Create(
		ctx, owner, repo.Name,
		&gh.NewPullRequest{
			Title: gh.Ptr(pr.Title),
			Head:  gh.Ptr(pr.Head),
			Base:  gh.Ptr(pr.Base),
			Body:  gh.Ptr(pr.Body),
		},
	)
	if err != nil {
		return nil, wrap(errCtx, resp, err)
	}

	slog.Info(
		"created pull request",
		"url", created.GetHTMLURL(),
	)

	return &hosting.PullRequest{
		Number: created.GetNumber(),
		Title:  created.GetTitle(),
		URL:    created.GetHTMLURL(),
	}, nil
}

// wrap adds context to err and marks 404 responses
// with hosting.ErrNotFound.
func wrap(errCtx string, resp *gh.Response, err error) error {
	if resp != nil &&
		resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf(
			"%s: %w: %w", errCtx, hosting.ErrNotFound, err,
		)
	}

	if resp != nil {
		slog.Warn(
			"github request failed",
			"status", resp.StatusCode,
			"error", err,
		)
	}

	return fmt.Errorf("%s: %w", errCtx, err)
}

func toRepository(r *gh.Repository) hosting.Repository {
	return hosting.Repository{
		Owner:       r.GetOwner().GetLogin(),
		Name:        r.GetName(),
		Description: r.GetDescription(),
		URL:         r.GetHTMLURL(),
		Language:    r.GetLanguage(),
		Private:     r.GetPrivate(),
		Stars:       r.GetStargazersCount(),
		Forks:       r.GetForksCount(),
		Watchers:    r.GetWatchersCount(),
		OpenIssues:  r.GetOpenIssuesCount(),
		Size:        r.GetSize(),
		CreatedAt:   r.GetCreatedAt().Time,
		UpdatedAt:   r.GetUpdatedAt().Time,
	}
}
