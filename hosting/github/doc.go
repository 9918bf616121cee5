// Package github implements a hosting.Provider backed by the GitHub
// REST API (cloud or enterprise). Configure with a Config containing a
// personal access token. Set Organization to scope every operation to
// an organisation instead of the authenticated user, and EnterpriseHost
// for GitHub Enterprise installations.
package github
