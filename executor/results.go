package executor

import "fmt"

// Result is the success payload of one operation. The set
// of implementations is closed to this package.
type Result interface {
	// Summary is a one-line human description.
	Summary() string

	isResult()
}

// Listing is a Result holding a collection that callers
// may trim for display. Truncate keeps at most n items
// (n <= 0 keeps all) and leaves the total count intact.
type Listing interface {
	Result
	Truncate(n int) Result
}

// RepositoryCreated reports a created repository.
type RepositoryCreated struct {
	Message string `json:"message"`
	URL     string `json:"url"`
}

// RepositorySummary is one entry of a repository listing.
type RepositorySummary struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// RepositoryList reports the owner's repositories. Count
// is the total number available, which may exceed
// len(Repositories) once truncated.
type RepositoryList struct {
	Repositories []RepositorySummary `json:"repositories"`
	Count        int                 `json:"count"`
}

// RepositoryInfo reports repository details.
type RepositoryInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Stars       int    `json:"stars"`
	Forks       int    `json:"forks"`
	Language    string `json:"language"`
	URL         string `json:"url"`
}

// IssueCreated reports a created issue.
type IssueCreated struct {
	Message string `json:"message"`
	URL     string `json:"url"`
}

// IssueSummary is one entry of an issue listing.
type IssueSummary struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// IssueList reports the open issues of a repository.
type IssueList struct {
	Issues []IssueSummary `json:"issues"`
	Count  int            `json:"count"`
}

// BranchCreated reports a created branch.
type BranchCreated struct {
	Message string `json:"message"`
	Branch  string `json:"branch"`
}

// RepositoryStats reports repository statistics.
// Timestamps are ISO-8601.
type RepositoryStats struct {
	Name       string `json:"name"`
	Stars      int    `json:"stars"`
	Forks      int    `json:"forks"`
	Watchers   int    `json:"watchers"`
	OpenIssues int    `json:"open_issues"`
	Language   string `json:"language"`
	Size       int    `json:"size"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// PullRequestCreated reports a created pull request.
type PullRequestCreated struct {
	Message string `json:"message"`
	URL     string `json:"url"`
}

func (RepositoryCreated) isResult()  {}
func (RepositoryList) isResult()     {}
func (RepositoryInfo) isResult()     {}
func (IssueCreated) isResult()       {}
func (IssueList) isResult()          {}
func (BranchCreated) isResult()      {}
func (RepositoryStats) isResult()    {}
func (PullRequestCreated) isResult() {}

func (r RepositoryCreated) Summary() string  { return r.Message }
func (r IssueCreated) Summary() string       { return r.Message }
func (r BranchCreated) Summary() string      { return r.Message }
func (r PullRequestCreated) Summary() string { return r.Message }

func (r RepositoryList) Summary() string {
	return fmt.Sprintf("Found %d repositories", r.Count)
}

func (r IssueList) Summary() string {
	return fmt.Sprintf("Found %d open issues", r.Count)
}

func (r RepositoryInfo) Summary() string {
	return fmt.Sprintf(
		"%s: %d stars, %d forks", r.Name, r.Stars, r.Forks,
	)
}

func (r RepositoryStats) Summary() string {
	return fmt.Sprintf(
		"%s: %d stars, %d forks, %d watchers, %d open issues",
		r.Name, r.Stars, r.Forks, r.Watchers, r.OpenIssues,
	)
}

// Truncate implements Listing.
func (r RepositoryList) Truncate(n int) Result {
	if n > 0 && len(r.Repositories) > n {
		r.Repositories = r.Repositories[:n:n]
	}

	return r
}

// Truncate implements Listing.
func (r IssueList) Truncate(n int) Result {
	if n > 0 && len(r.Issues) > n {
		r.Issues = r.Issues[:n:n]
	}

	return r
}
