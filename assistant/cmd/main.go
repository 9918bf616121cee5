// Command repo_assistant is an interactive assistant that
// turns natural-language requests into source-control
// hosting operations.
//
// By default it reads requests from stdin until "quit".
// With -demo it runs a short scripted session, and with
// -batch it processes every line of a file concurrently.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/byte4ever/repo_assistant/assistant"
	"github.com/byte4ever/repo_assistant/catalog"
	"github.com/byte4ever/repo_assistant/config"
	"github.com/byte4ever/repo_assistant/dispatch"
	"github.com/byte4ever/repo_assistant/executor"
	"github.com/byte4ever/repo_assistant/intent"
	"github.com/byte4ever/repo_assistant/narrator"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	const errCtx = "running repo_assistant"

	envFile := flag.String(
		"env_file", ".env",
		"Optional env file loaded before reading the environment",
	)
	demo := flag.Bool(
		"demo", false,
		"Run the scripted demonstration and exit",
	)
	demoRepo := flag.String(
		"demo_repo", "hello-world",
		"Existing repository queried by the demonstration",
	)
	batch := flag.String(
		"batch", "",
		"File with one request per line to process and exit",
	)
	parallelism := flag.Int(
		"parallelism", 4,
		"Number of concurrent requests in batch mode",
	)
	debug := flag.Bool(
		"debug", false,
		"Print parsed intents and debug logs (same as DEBUG=true)",
	)

	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if *debug {
		cfg.Debug = true
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(
		os.Stderr,
		&slog.HandlerOptions{Level: cfg.LogLevel()},
	)))

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt,
	)
	defer stop()

	asst, closeModels, err := build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}
	defer closeModels()

	sess := session{
		assistant: asst,
		out:       os.Stdout,
		debug:     cfg.Debug,
	}

	switch {
	case *demo:
		return sess.demo(ctx, *demoRepo)
	case *batch != "":
		return sess.batch(ctx, *batch, *parallelism)
	}

	return sess.interactive(ctx, os.Stdin)
}

// build wires the pipeline described by cfg. The returned
// function releases model connections.
func build(
	ctx context.Context,
	cfg *config.Config,
) (*assistant.Assistant, func(), error) {
	const errCtx = "building assistant"

	provider, err := cfg.NewProvider()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	reg, err := catalog.New()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	ex, err := executor.New(provider)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	disp, err := dispatch.New(dispatch.Config{
		Registry: reg,
		Handlers: ex.Handlers(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	parseModel, err := cfg.NewModel(ctx, true)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	replyModel, err := cfg.NewModel(ctx, false)
	if err != nil {
		closeModel(parseModel)

		return nil, nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	cleanup := func() {
		closeModel(parseModel)
		closeModel(replyModel)
	}

	parser, err := intent.NewParser(parseModel, reg)
	if err != nil {
		cleanup()

		return nil, nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	asst, err := assistant.New(assistant.Config{
		Parser:     parser,
		Dispatcher: disp,
		Narrator:   narrator.New(replyModel),
		Timeout:    cfg.RequestTimeout,
	})
	if err != nil {
		cleanup()

		return nil, nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"assistant ready",
		"git_server", cfg.GitServer,
		"llm", cfg.LLMVendor,
	)

	return asst, cleanup, nil
}

func closeModel(m any) {
	if c, ok := m.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Warn("closing model", "error", err)
		}
	}
}

type session struct {
	assistant *assistant.Assistant
	out       io.Writer
	debug     bool
}

func (s session) show(o assistant.Outcome) {
	if err := assistant.Render(s.out, o, s.debug); err != nil {
		slog.Warn("rendering outcome", "error", err)
	}
}

// interactive reads requests from in until quit, exit,
// q, end of input or interrupt. Failed requests never
// end the loop.
func (s session) interactive(ctx context.Context, in io.Reader) error {
	const errCtx = "interactive session"

	fmt.Fprintln(s.out, "Repository assistant")
	fmt.Fprintln(
		s.out,
		"Try: 'list my repos', 'create a repo called x', "+
			"'open an issue in x'. Type 'quit' to leave.",
	)

	sc := bufio.NewScanner(in)

	for {
		fmt.Fprint(s.out, "\nWhat would you like to do? ")

		if !sc.Scan() {
			break
		}

		text := strings.TrimSpace(sc.Text())

		switch strings.ToLower(text) {
		case "":
			continue
		case "quit", "exit", "q":
			fmt.Fprintln(s.out, "Goodbye!")

			return nil
		}

		s.show(s.assistant.Process(ctx, text))

		if ctx.Err() != nil {
			break
		}
	}

	fmt.Fprintln(s.out, "\nGoodbye!")

	if err := sc.Err(); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// demo runs the scripted requests in order and stops at
// the first failure.
func (s session) demo(ctx context.Context, repo string) error {
	commands := []string{
		"Show me all my repositories",
		"Get information about " + repo,
		"Create a repository called demo-project",
		"Create an issue in demo-project about adding README",
	}

	fmt.Fprintln(s.out, "Demo mode")

	for i, text := range commands {
		fmt.Fprintf(s.out, "\nDemo %d: %s\n", i+1, text)

		out := s.assistant.Process(ctx, text)
		s.show(out)

		if !out.Success() {
			fmt.Fprintln(s.out, "Demo stopped due to error")

			break
		}
	}

	fmt.Fprintln(s.out, "Demo completed!")

	return nil
}

// batch processes every non-blank line of path.
func (s session) batch(
	ctx context.Context,
	path string,
	parallelism int,
) error {
	const errCtx = "batch session"

	raw, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	var texts []string

	for _, line := range strings.Split(string(raw), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			texts = append(texts, line)
		}
	}

	failed := 0

	for i, out := range s.assistant.ProcessAll(ctx, texts, parallelism) {
		fmt.Fprintf(s.out, "\n[%d] %s\n", i+1, out.Request)
		s.show(out)

		if !out.Success() {
			failed++
		}
	}

	slog.Info(
		"batch done",
		"requests", len(texts),
		"failed", failed,
	)

	return nil
}
