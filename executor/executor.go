package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/byte4ever/repo_assistant/catalog"
	"github.com/byte4ever/repo_assistant/hosting"
)

// Handler performs one catalog operation with validated
// parameters.
type Handler func(
	ctx context.Context,
	params catalog.Params,
) (Result, error)

// RepositoryNotFoundError is returned when an operation
// needs a repository handle that cannot be resolved.
type RepositoryNotFoundError struct {
	Name string
	Err  error
}

func (e *RepositoryNotFoundError) Error() string {
	return fmt.Sprintf("Repository '%s' not found", e.Name)
}

func (e *RepositoryNotFoundError) Unwrap() error {
	return e.Err
}

// Executor maps catalog operations onto hosting calls.
type Executor struct {
	provider hosting.Provider
}

// New returns an Executor backed by provider.
func New(provider hosting.Provider) (*Executor, error) {
	const errCtx = "creating executor"

	if provider == nil {
		return nil, fmt.Errorf(
			"%s: hosting provider must be set", errCtx,
		)
	}

	return &Executor{provider: provider}, nil
}

// Handlers returns the handler of every catalog action.
func (e *Executor) Handlers() map[catalog.Action]Handler {
	return map[catalog.Action]Handler{
		catalog.ActionCreateRepository:   e.createRepository,
		catalog.ActionListRepositories:   e.listRepositories,
		catalog.ActionGetRepositoryInfo:  e.getRepositoryInfo,
		catalog.ActionCreateIssue:        e.createIssue,
		catalog.ActionListIssues:         e.listIssues,
		catalog.ActionCreateBranch:       e.createBranch,
		catalog.ActionGetRepositoryStats: e.getRepositoryStats,
		catalog.ActionCreatePullRequest:  e.createPullRequest,
	}
}

func (e *Executor) createRepository(
	ctx context.Context,
	p catalog.Params,
) (Result, error) {
	name := p.String("name")

	repo, err := e.provider.CreateRepository(
		ctx,
		hosting.NewRepository{
			Name:        name,
			Description: p.String("description"),
			Private:     p.Bool("private"),
		},
	)
	if err != nil {
		return nil, err
	}

	return RepositoryCreated{
		Message: fmt.Sprintf(
			"Repository '%s' created successfully", name,
		),
		URL: repo.URL,
	}, nil
}

func (e *Executor) listRepositories(
	ctx context.Context,
	_ catalog.Params,
) (Result, error) {
	repos, err := e.provider.ListRepositories(ctx)
	if err != nil {
		return nil, err
	}

	out := RepositoryList{
		Repositories: make([]RepositorySummary, 0, len(repos)),
		Count:        len(repos),
	}

	for _, r := range repos {
		out.Repositories = append(
			out.Repositories,
			RepositorySummary{Name: r.Name, URL: r.URL},
		)
	}

	return out, nil
}

func (e *Executor) getRepositoryInfo(
	ctx context.Context,
	p catalog.Params,
) (Result, error) {
	repo, err := e.provider.GetRepository(
		ctx, p.String("repo_name"),
	)
	if err != nil {
		return nil, err
	}

	return RepositoryInfo{
		Name:        repo.Name,
		Description: repo.Description,
		Stars:       repo.Stars,
		Forks:       repo.Forks,
		Language:    repo.Language,
		URL:         repo.URL,
	}, nil
}

func (e *Executor) createIssue(
	ctx context.Context,
	p catalog.Params,
) (Result, error) {
	title := p.String("title")

	issue, err := e.provider.CreateIssue(
		ctx,
		p.String("repo_name"),
		hosting.NewIssue{
			Title: title,
			Body:  p.String("body"),
		},
	)
	if err != nil {
		return nil, err
	}

	return IssueCreated{
		Message: fmt.Sprintf(
			"Issue '%s' created successfully", title,
		),
		URL: issue.URL,
	}, nil
}

func (e *Executor) listIssues(
	ctx context.Context,
	p catalog.Params,
) (Result, error) {
	issues, err := e.provider.ListIssues(
		ctx, p.String("repo_name"), hosting.IssueStateOpen,
	)
	if err != nil {
		return nil, err
	}

	out := IssueList{
		Issues: make([]IssueSummary, 0, len(issues)),
		Count:  len(issues),
	}

	for _, is := range issues {
		out.Issues = append(
			out.Issues,
			IssueSummary{Title: is.Title, URL: is.URL},
		)
	}

	return out, nil
}

func (e *Executor) createBranch(
	ctx context.Context,
	p catalog.Params,
) (Result, error) {
	name := p.String("branch_name")

	branch, err := e.provider.CreateBranch(
		ctx,
		p.String("repo_name"),
		hosting.NewBranch{
			Name:   name,
			Source: p.String("source_branch"),
		},
	)
	if err != nil {
		return nil, err
	}

	return BranchCreated{
		Message: fmt.Sprintf(
			"Branch '%s' created successfully", name,
		),
		Branch: branch.Name,
	}, nil
}

func (e *Executor) getRepositoryStats(
	ctx context.Context,
	p catalog.Params,
) (Result, error) {
	repo, err := e.provider.GetRepository(
		ctx, p.String("repo_name"),
	)
	if err != nil {
		return nil, err
	}

	return RepositoryStats{
		Name:       repo.Name,
		Stars:      repo.Stars,
		Forks:      repo.Forks,
		Watchers:   repo.Watchers,
		OpenIssues: repo.OpenIssues,
		Language:   repo.Language,
		Size:       repo.Size,
		CreatedAt:  isoTime(repo.CreatedAt),
		UpdatedAt:  isoTime(repo.UpdatedAt),
	}, nil
}

// createPullRequest resolves the repository before
// creating the pull request. Any resolution failure is
// reported as a missing repository.
func (e *Executor) createPullRequest(
	ctx context.Context,
	p catalog.Params,
) (Result, error) {
	name := p.String("repo_name")

	repo, err := e.provider.GetRepository(ctx, name)
	if err != nil {
		slog.Debug(
			"repository resolution failed",
			"repo", name,
			"error", err,
		)

		return nil, &RepositoryNotFoundError{Name: name, Err: err}
	}

	title := p.String("title")

	pr, err := e.provider.CreatePullRequest(
		ctx,
		repo,
		hosting.NewPullRequest{
			Title: title,
			Head:  p.String("head"),
			Base:  p.String("base"),
			Body:  p.String("body"),
		},
	)
	if err != nil {
		return nil, err
	}

	return PullRequestCreated{
		Message: fmt.Sprintf(
			"Pull request created successfully: %s", title,
		),
		URL: pr.URL,
	}, nil
}

func isoTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339)
}
