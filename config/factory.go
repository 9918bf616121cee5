package config

import (
	"context"
	"fmt"

	"github.com/byte4ever/repo_assistant/hosting"
	"github.com/byte4ever/repo_assistant/hosting/bitbucket"
	"github.com/byte4ever/repo_assistant/hosting/github"
	"github.com/byte4ever/repo_assistant/hosting/gitlab"
	"github.com/byte4ever/repo_assistant/llm"
	"github.com/byte4ever/repo_assistant/llm/anthropic"
	"github.com/byte4ever/repo_assistant/llm/gemini"
	"github.com/byte4ever/repo_assistant/llm/openai"
)

// NewProvider builds the hosting provider selected by
// GitServer.
func (c *Config) NewProvider() (hosting.Provider, error) {
	const errCtx = "creating hosting provider"

	var (
		pv  hosting.Provider
		err error
	)

	switch c.GitServer {
	case GitServerGitHub:
		pv, err = github.NewProvider(github.Config{
			AccessToken:    c.GitHubToken,
			Organization:   c.GitHubOwner,
			EnterpriseHost: c.GitHubEnterpriseHost,
		})
	case GitServerGitLab:
		pv, err = gitlab.NewProvider(gitlab.Config{
			Host:        c.GitLabHost,
			Namespace:   c.GitLabNamespace,
			AccessToken: c.GitLabToken,
		})
	case GitServerBitbucket:
		pv, err = bitbucket.NewProvider(bitbucket.Config{
			BaseURL:  c.BitbucketURL,
			Project:  c.BitbucketProject,
			User:     c.BitbucketUser,
			Password: c.BitbucketPassword,
		})
	default:
		return nil, fmt.Errorf(
			"%s: unsupported git server %q", errCtx, c.GitServer,
		)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return pv, nil
}

// NewModel builds the language model selected by
// LLMVendor. JSON asks vendors that support it for
// JSON-only output. Models holding connections also
// implement io.Closer.
func (c *Config) NewModel(
	ctx context.Context,
	json bool,
) (llm.Model, error) {
	const errCtx = "creating language model"

	var (
		m   llm.Model
		err error
	)

	switch c.LLMVendor {
	case VendorGemini:
		m, err = gemini.New(ctx, gemini.Config{
			APIKey: c.LLMAPIKey,
			Model:  c.LLMModel,
			JSON:   json,
		})
	case VendorOpenAI:
		m, err = openai.New(openai.Config{
			APIKey: c.LLMAPIKey,
			Model:  c.LLMModel,
			JSON:   json,
		})
	case VendorAnthropic:
		m, err = anthropic.New(anthropic.Config{
			APIKey: c.LLMAPIKey,
			Model:  c.LLMModel,
		})
	default:
		return nil, fmt.Errorf(
			"%s: unsupported vendor %q", errCtx, c.LLMVendor,
		)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return m, nil
}
