// Command repo_assistant_rpc serves the repository
// operations as JSON-RPC tools over stdin and stdout.
// Logs go to stderr.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/byte4ever/repo_assistant/catalog"
	"github.com/byte4ever/repo_assistant/config"
	"github.com/byte4ever/repo_assistant/dispatch"
	"github.com/byte4ever/repo_assistant/executor"
	"github.com/byte4ever/repo_assistant/rpc"
)

// version is set at link time.
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	const errCtx = "running repo_assistant_rpc"

	envFile := flag.String(
		"env_file", ".env",
		"Optional env file loaded before reading the environment",
	)
	repoLimit := flag.Int(
		"repository_limit", dispatch.DefaultLimits().Repositories,
		"Maximum repositories returned by list_repositories (0 = all)",
	)
	issueLimit := flag.Int(
		"issue_limit", dispatch.DefaultLimits().Issues,
		"Maximum issues returned by list_issues (0 = all)",
	)

	flag.Parse()

	cfg, err := config.Load(*envFile, config.WithoutModel())
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(
		os.Stderr,
		&slog.HandlerOptions{Level: cfg.LogLevel()},
	)))

	provider, err := cfg.NewProvider()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	reg, err := catalog.New()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	ex, err := executor.New(provider)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	disp, err := dispatch.New(dispatch.Config{
		Registry: reg,
		Handlers: ex.Handlers(),
		Limits: &dispatch.Limits{
			Repositories: *repoLimit,
			Issues:       *issueLimit,
		},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	srv, err := rpc.NewServer(rpc.Config{
		Registry:   reg,
		Dispatcher: disp,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt,
	)
	defer stop()

	slog.Info(
		"serving json-rpc on stdio",
		"git_server", cfg.GitServer,
		"version", version,
	)

	if err := srv.Serve(ctx, os.Stdin, os.Stdout); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}
