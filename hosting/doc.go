// Package hosting defines the strategy interface the assistant uses to
// talk to a source-control hosting platform, and the platform-neutral
// types that flow through it.
//
// Implementations exist for GitHub, GitLab and Bitbucket Server in
// sub-packages. Bitbucket Server has no issue tracker, so its issue
// operations fail with errors.ErrUnsupported. The
// hostingtest sub-package provides an in-memory Provider that records
// every call, for tests.
package hosting
