package github

import "strings"

// BaseURLForTest returns the REST endpoint of p without
// its trailing slash.
func BaseURLForTest(p *Provider) string {
	return strings.TrimSuffix(p.client.BaseURL.String(), "/")
}
