// Package bitbucket implements a hosting.Provider backed by the
// Bitbucket Server (Data Center) REST API, authenticating with a user
// name and a password or personal access token. Repositories live in a
// single project. Bitbucket Server has no issue tracker: issue
// operations fail with errors.ErrUnsupported.
package bitbucket
