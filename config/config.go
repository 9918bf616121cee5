package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Git servers.
const (
	GitServerGitHub    = "github"
	GitServerGitLab    = "gitlab"
	GitServerBitbucket = "bitbucket"
)

// Language model vendors.
const (
	VendorGemini    = "gemini"
	VendorOpenAI    = "openai"
	VendorAnthropic = "anthropic"
)

// DefaultRequestTimeout bounds one request when
// ASSISTANT_REQUEST_TIMEOUT is unset.
const DefaultRequestTimeout = 2 * time.Minute

// Config holds the assistant settings.
type Config struct {
	GitServer string

	GitHubToken          string
	GitHubOwner          string
	GitHubEnterpriseHost string

	GitLabToken     string
	GitLabHost      string
	GitLabNamespace string

	BitbucketURL      string
	BitbucketProject  string
	BitbucketUser     string
	BitbucketPassword string

	LLMVendor string
	// LLMModel is empty when the vendor default applies.
	LLMModel  string
	LLMAPIKey string

	RequestTimeout time.Duration
	Debug          bool
}

// Error lists every missing or invalid setting found
// while loading the configuration.
type Error struct {
	Missing []string
	Invalid []string
}

func (e *Error) Error() string {
	var parts []string

	if len(e.Missing) > 0 {
		parts = append(
			parts, "missing "+strings.Join(e.Missing, ", "),
		)
	}

	if len(e.Invalid) > 0 {
		parts = append(
			parts, "invalid "+strings.Join(e.Invalid, ", "),
		)
	}

	return "configuration: " + strings.Join(parts, "; ")
}

// Option adjusts what Load and FromLookup require.
type Option func(*options)

type options struct {
	skipModel bool
}

// WithoutModel skips the language model settings, for
// commands that never call a model.
func WithoutModel() Option {
	return func(o *options) {
		o.skipModel = true
	}
}

func (e *Error) empty() bool {
	return len(e.Missing) == 0 && len(e.Invalid) == 0
}

// Load seeds the environment from envFile when it exists,
// without overriding variables already set, then reads
// the configuration from the environment.
func Load(envFile string, opts ...Option) (*Config, error) {
	const errCtx = "loading configuration"

	if envFile != "" {
		err := godotenv.Load(envFile)

		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Debug("no env file", "path", envFile)
		case err != nil:
			return nil, fmt.Errorf(
				"%s: env file %s: %w", errCtx, envFile, err,
			)
		}
	}

	return FromLookup(os.LookupEnv, opts...)
}

// FromLookup reads the configuration through lookup.
// Missing and invalid settings are all reported in one
// *Error.
func FromLookup(
	lookup func(string) (string, bool),
	opts ...Option,
) (*Config, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	get := func(key string) string {
		v, _ := lookup(key)

		return strings.TrimSpace(v)
	}

	cerr := &Error{}

	cfg := &Config{
		GitServer: strings.ToLower(
			orDefault(get("ASSISTANT_GIT_SERVER"), GitServerGitHub),
		),
		GitHubToken:          get("GITHUB_TOKEN"),
		GitHubOwner:          get("GITHUB_OWNER"),
		GitHubEnterpriseHost: get("GITHUB_ENTERPRISE_HOST"),
		GitLabToken:          get("GITLAB_TOKEN"),
		GitLabHost:           get("GITLAB_HOST"),
		GitLabNamespace:      get("GITLAB_NAMESPACE"),
		BitbucketURL:         get("BITBUCKET_URL"),
		BitbucketProject:     get("BITBUCKET_PROJECT"),
		BitbucketUser:        get("BITBUCKET_USER"),
		BitbucketPassword:    get("BITBUCKET_TOKEN"),
		LLMVendor: strings.ToLower(
			orDefault(get("ASSISTANT_LLM_PROVIDER"), VendorGemini),
		),
		LLMModel:       get("ASSISTANT_LLM_MODEL"),
		RequestTimeout: DefaultRequestTimeout,
	}

	switch cfg.GitServer {
	case GitServerGitHub:
		if cfg.GitHubToken == "" {
			cerr.Missing = append(cerr.Missing, "GITHUB_TOKEN")
		}
	case GitServerGitLab:
		if cfg.GitLabToken == "" {
			cerr.Missing = append(cerr.Missing, "GITLAB_TOKEN")
		}
	case GitServerBitbucket:
		for _, kv := range [][2]string{
			{"BITBUCKET_URL", cfg.BitbucketURL},
			{"BITBUCKET_PROJECT", cfg.BitbucketProject},
			{"BITBUCKET_USER", cfg.BitbucketUser},
			{"BITBUCKET_TOKEN", cfg.BitbucketPassword},
		} {
			if kv[1] == "" {
				cerr.Missing = append(cerr.Missing, kv[0])
			}
		}
	default:
		cerr.Invalid = append(
			cerr.Invalid,
			fmt.Sprintf("ASSISTANT_GIT_SERVER %q", cfg.GitServer),
		)
	}

	switch {
	case o.skipModel:
	case cfg.LLMVendor == VendorGemini:
		cfg.LLMAPIKey = orDefault(
			get("GOOGLE_API_KEY"), get("GEMINI_API_KEY"),
		)
		if cfg.LLMAPIKey == "" {
			cerr.Missing = append(
				cerr.Missing, "GOOGLE_API_KEY or GEMINI_API_KEY",
			)
		}
	case cfg.LLMVendor == VendorOpenAI:
		cfg.LLMAPIKey = get("OPENAI_API_KEY")
		if cfg.LLMAPIKey == "" {
			cerr.Missing = append(cerr.Missing, "OPENAI_API_KEY")
		}
	case cfg.LLMVendor == VendorAnthropic:
		cfg.LLMAPIKey = get("ANTHROPIC_API_KEY")
		if cfg.LLMAPIKey == "" {
			cerr.Missing = append(cerr.Missing, "ANTHROPIC_API_KEY")
		}
	default:
		cerr.Invalid = append(
			cerr.Invalid,
			fmt.Sprintf("ASSISTANT_LLM_PROVIDER %q", cfg.LLMVendor),
		)
	}

	if raw := get("ASSISTANT_REQUEST_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			cerr.Invalid = append(
				cerr.Invalid,
				fmt.Sprintf("ASSISTANT_REQUEST_TIMEOUT %q", raw),
			)
		}

		cfg.RequestTimeout = d
	}

	if raw := get("DEBUG"); raw != "" {
		debug, err := strconv.ParseBool(raw)
		if err != nil {
			cerr.Invalid = append(
				cerr.Invalid, fmt.Sprintf("DEBUG %q", raw),
			)
		}

		cfg.Debug = debug
	}

	if !cerr.empty() {
		return nil, cerr
	}

	return cfg, nil
}

// LogLevel returns the slog level implied by Debug.
func (c *Config) LogLevel() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}

	return slog.LevelInfo
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}

	return v
}
