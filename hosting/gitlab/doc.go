// Package gitlab implements a hosting.Provider backed by the GitLab
// REST API. Repositories map to projects inside a namespace (the
// authenticated user's unless Namespace is set) and pull requests map
// to merge requests.
package gitlab
