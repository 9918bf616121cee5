package bitbucket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/repo_assistant/hosting"
)

const pageLimit = 100

// ErrNoIssueTracker is returned (wrapped with
// errors.ErrUnsupported) by issue operations.
var ErrNoIssueTracker = errors.New(
	"bitbucket server has no issue tracker",
)

// Config holds the settings needed to create a
// Bitbucket provider.
type Config struct {
	// BaseURL is the root URL of the Bitbucket Server
	// instance (e.g. "https://bb.example.com").
	BaseURL string
	// Project is the key of the project owning the
	// repositories (e.g. "PROJ").
	Project string
	// User is the Bitbucket API username.
	User string
	// Password is the Bitbucket API password (or
	// personal access token).
	Password string
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Provider performs repository operations on Bitbucket
// Server.
//
// Pattern: Strategy -- implements hosting.Provider.
type Provider struct {
	base     *url.URL
	project  string
	user     string
	password string
	client   *http.Client
}

var _ hosting.Provider = (*Provider)(nil)

type project struct {
	Key string `json:"key,omitempty"`
}

type link struct {
	Href string `json:"href"`
}

type links struct {
	Self []link `json:"self,omitempty"`
}

func (l links) href() string {
	if len(l.Self) == 0 {
		return ""
	}

	return l.Self[0].Href
}

type repository struct {
	Slug        string  `json:"slug,omitempty"`
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`
	ScmID       string  `json:"scmId,omitempty"`
	Public      bool    `json:"public"`
	Project     project `json:"project"`
	Links       links   `json:"links"`
}

type repositoryPage struct {
	Values        []repository `json:"values"`
	IsLastPage    bool         `json:"isLastPage"`
	NextPageStart int          `json:"nextPageStart"`
}

type ref struct {
	ID         string      `json:"id,omitempty"`
	Repository *repository `json:"repository,omitempty"`
}

type pullRequest struct {
	ID          int    `json:"id,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	State       string `json:"state,omitempty"`
	Open        bool   `json:"open"`
	Closed      bool   `json:"closed"`
	FromRef     *ref   `json:"fromRef,omitempty"`
	ToRef       *ref   `json:"toRef,omitempty"`
	Locked      bool   `json:"locked"`
	Links       links  `json:"links"`
}

type newBranch struct {
	Name       string `json:"name"`
	StartPoint string `json:"startPoint"`
}

type branch struct {
	ID           string `json:"id"`
	DisplayID    string `json:"displayId"`
	LatestCommit string `json:"latestCommit"`
}

type apiErrors struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// NewProvider validates cfg and returns a Provider.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating bitbucket provider"

	switch {
	case cfg.BaseURL == "":
		return nil, fmt.Errorf(
			"%s: base url must be set", errCtx,
		)
	case cfg.Project == "":
		return nil, fmt.Errorf(
			"%s: project must be set", errCtx,
		)
	case cfg.User == "":
		return nil, fmt.Errorf(
			"%s: user must be set", errCtx,
		)
	case cfg.Password == "":
		return nil, fmt.Errorf(
			"%s: password must be set", errCtx,
		)
	}

	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: base url: %w", errCtx, err)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &Provider{
		base:     base,
		project:  cfg.Project,
		user:     cfg.User,
		password: cfg.Password,
		client:   client,
	}, nil
}

// CreateRepository creates a repository in the project.
func (p *Provider) CreateRepository(
	ctx context.Context,
	repo hosting.NewRepository,
) (*hosting.Repository, error) {
	const errCtx = "creating bitbucket repository"

	var created repository

	if err := p.do(
		ctx, http.MethodPost, p.reposPath(),
		repository{
			Name:        repo.Name,
			Description: repo.Description,
			ScmID:       "git",
			Public:      !repo.Private,
		},
		&created,
	); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"created repository",
		"url", created.Links.href(),
	)

	out := toRepository(created)

	return &out, nil
}

// ListRepositories returns every repository of the
// project.
func (p *Provider) ListRepositories(
	ctx context.Context,
) ([]hosting.Repository, error) {
	const errCtx = "listing bitbucket repositories"

	var (
		out   []hosting.Repository
		start int
	)

	for {
		var page repositoryPage

		if err := p.do(
			ctx, http.MethodGet,
			fmt.Sprintf(
				"%s?start=%d&limit=%d",
				p.reposPath(), start, pageLimit,
			),
			nil, &page,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		for _, r := range page.Values {
			out = append(out, toRepository(r))
		}

		if page.IsLastPage || len(page.Values) == 0 {
			return out, nil
		}

		start = page.NextPageStart
	}
}

// GetRepository fetches a repository by slug.
func (p *Provider) GetRepository(
	ctx context.Context,
	name string,
) (*hosting.Repository, error) {
	const errCtx = "getting bitbucket repository"

	var repo repository

	if err := p.do(
		ctx, http.MethodGet, p.repoPath(name), nil, &repo,
	); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	out := toRepository(repo)

	return &out, nil
}

// CreateIssue is not supported by Bitbucket Server.
func (p *Provider) CreateIssue(
	context.Context,
	string,
	hosting.NewIssue,
) (*hosting.Issue, error) {
	return nil, fmt.Errorf(
		"creating bitbucket issue: %w: %w",
		ErrNoIssueTracker, errors.ErrUnsupported,
	)
}

// ListIssues is not supported by Bitbucket Server.
func (p *Provider) ListIssues(
	context.Context,
	string,
	hosting.IssueState,
) ([]hosting.Issue, error) {
	return nil, fmt.Errorf(
		"listing bitbucket issues: %w: %w",
		ErrNoIssueTracker, errors.ErrUnsupported,
	)
}

// CreateBranch creates a branch starting at the head of
// the source branch.
func (p *Provider) CreateBranch(
	ctx context.Context,
	repo string,
	br hosting.NewBranch,
) (*hosting.Branch, error) {
	const errCtx = "creating bitbucket branch"

	var created branch

	if err := p.do(
		ctx, http.MethodPost,
		fmt.Sprintf(
			"/rest/branch-utils/1.0/projects/%s/repos/%s/branches",
			url.PathEscape(p.project), url.PathEscape(repo),
		),
		newBranch{
			Name:       br.Name,
			StartPoint: "refs/heads/" + br.Source,
		},
		&created,
	); err != nil {
		return nil, fmt.Errorf(
			"%s: source branch %s: %w", errCtx, br.Source, err,
		)
	}

	slog.Info(
		"created branch",
		"repo", repo,
		"branch", created.DisplayID,
		"sha", created.LatestCommit,
	)

	return &hosting.Branch{
		Name: created.DisplayID,
		SHA:  created.LatestCommit,
		URL: p.base.String() + fmt.Sprintf(
			"/projects/%s/repos/%s/browse?at=%s",
			p.project, repo, url.QueryEscape(created.ID),
		),
	}, nil
}

// CreatePullRequest opens a pull request from pr.Head
// into pr.Base.
func (p *Provider) CreatePullRequest(
	ctx context.Context,
	repo *hosting.Repository,
	pr hosting.NewPullRequest,
) (*hosting.PullRequest, error) {
	const errCtx = "creating bitbucket pull request"

	target := &repository{
		Slug:    repo.Name,
		Project: project{Key: p.project},
	}

	if repo.Owner != "" {
		target.Project.Key = repo.Owner
	}

	var created pullRequest

	if err := p.do(
		ctx, http.MethodPost,
		p.repoPath(repo.Name)+"/pull-requests",
		pullRequest{
			Title:       pr.Title,
			Description: pr.Body,
			State:       "OPEN",
			Open:        true,
			FromRef: &ref{
				ID:         "refs/heads/" + pr.Head,
				Repository: target,
			},
			ToRef: &ref{
				ID:         "refs/heads/" + pr.Base,
				Repository: target,
			},
		},
		&created,
	); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"created pull request",
		"url", created.Links.href(),
	)

	return &hosting.PullRequest{
		Number: created.ID,
		Title:  created.Title,
		URL:    created.Links.href(),
	}, nil
}

func (p *Provider) reposPath() string {
	return fmt.Sprintf(
		"/rest/api/1.0/projects/%s/repos",
		url.PathEscape(p.project),
	)
}

func (p *Provider) repoPath(slug string) string {
	return p.reposPath() + "/" + url.PathEscape(slug)
}

// do sends a JSON request to path and decodes the reply
// into out. 404 responses wrap hosting.ErrNotFound.
func (p *Provider) do(
	ctx context.Context,
	method string,
	path string,
	in any,
	out any,
) error {
	var body io.Reader

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}

		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(
		ctx, method, p.base.String()+path, body,
	)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if in != nil {
		req.Header.Set(
			"Content-Type", "application/json; charset=utf-8",
		)
	}

	req.SetBasicAuth(p.user, p.password)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	defer resp.Body.Close() //nolint:errcheck

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp.StatusCode, rb)
	}

	if out == nil || len(rb) == 0 {
		return nil
	}

	if err := json.Unmarshal(rb, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func statusError(status int, body []byte) error {
	msg := http.StatusText(status)

	var ae apiErrors
	if json.Unmarshal(body, &ae) == nil && len(ae.Errors) > 0 {
		msg = ae.Errors[0].Message
	}

	if status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", hosting.ErrNotFound, msg)
	}

	slog.Warn(
		"bitbucket request failed",
		"status", status,
		"message", msg,
	)

	return fmt.Errorf("unexpected status %d: %s", status, msg)
}

func toRepository(r repository) hosting.Repository {
	return hosting.Repository{
		Owner:       r.Project.Key,
		Name:        r.Slug,
		Description: r.Description,
		URL:         r.Links.href(),
		Private:     !r.Public,
	}
}
