package hosting

import (
	"context"
	"errors"
	"time"
)

// Pattern: Strategy -- swap hosting platform without
// changing dispatch logic.

// ErrNotFound is returned (wrapped) when a repository or
// branch does not exist or is not visible to the caller.
var ErrNotFound = errors.New("not found")

// IssueState filters issue listings.
type IssueState string

// Issue states understood by every provider.
const (
	IssueStateOpen   IssueState = "open"
	IssueStateClosed IssueState = "closed"
	IssueStateAll    IssueState = "all"
)

// Repository is a hosted repository as seen by the
// assistant.
type Repository struct {
	// Owner is the account or namespace that owns the
	// repository.
	Owner       string
	Name        string
	Description string
	URL         string
	Language    string
	Private     bool
	Stars       int
	Forks       int
	Watchers    int
	OpenIssues  int
	// Size is the repository size as reported by the
	// platform (kilobytes on GitHub).
	Size      int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRepository holds the fields of a repository to
// create.
type NewRepository struct {
	Name        string
	Description string
	Private     bool
}

// Issue is a hosted issue.
type Issue struct {
	Number int
	Title  string
	URL    string
}

// NewIssue holds the fields of an issue to create.
type NewIssue struct {
	Title string
	Body  string
}

// Branch is a branch reference.
type Branch struct {
	Name string
	SHA  string
	URL  string
}

// NewBranch names a branch to create and the branch
// whose head commit it starts from.
type NewBranch struct {
	Name   string
	Source string
}

// PullRequest is a pull (or merge) request.
type PullRequest struct {
	Number int
	Title  string
	URL    string
}

// NewPullRequest holds the fields of a pull request to
// open from Head into Base.
type NewPullRequest struct {
	Title string
	Head  string
	Base  string
	Body  string
}

// Provider performs repository operations on a hosting
// platform. Repository names are relative to the
// provider's owner (the authenticated account unless
// configured otherwise). Implementations must be safe
// for concurrent use.
type Provider interface {
	CreateRepository(
		ctx context.Context,
		repo NewRepository,
	) (*Repository, error)

	// ListRepositories returns every repository of the
	// owner, across all pages.
	ListRepositories(
		ctx context.Context,
	) ([]Repository, error)

	// GetRepository returns ErrNotFound (wrapped) when
	// the repository does not exist.
	GetRepository(
		ctx context.Context,
		name string,
	) (*Repository, error)

	CreateIssue(
		ctx context.Context,
		repo string,
		issue NewIssue,
	) (*Issue, error)

	ListIssues(
		ctx context.Context,
		repo string,
		state IssueState,
	) ([]Issue, error)

	// CreateBranch creates branch.Name at the current
	// head commit of branch.Source.
	CreateBranch(
		ctx context.Context,
		repo string,
		branch NewBranch,
	) (*Branch, error)

	// CreatePullRequest opens a pull request on a
	// repository previously resolved with
	// GetRepository.
	CreatePullRequest(
		ctx context.Context,
		repo *Repository,
		pr NewPullRequest,
	) (*PullRequest, error)
}
