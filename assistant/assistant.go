package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/byte4ever/repo_assistant/executor"
	"github.com/byte4ever/repo_assistant/intent"
)

// Fixed texts used when a request cannot be read.
const (
	ErrNotUnderstood   = "Could not understand the request"
	NotUnderstoodReply = "Sorry, I could not understand that request. " +
		"Try rephrasing it, for example \"Show me my repositories\"."
)

// IntentParser reads a request into an Intent.
type IntentParser interface {
	Parse(ctx context.Context, text string) intent.Intent
}

// Dispatcher executes an operation by name.
type Dispatcher interface {
	Dispatch(
		ctx context.Context,
		action string,
		params map[string]any,
	) executor.Envelope
}

// Narrator writes the reply for an outcome.
type Narrator interface {
	Narrate(
		ctx context.Context,
		request string,
		env executor.Envelope,
	) string
}

// Config holds the dependencies of an Assistant.
type Config struct {
	Parser     IntentParser
	Dispatcher Dispatcher
	Narrator   Narrator
	// Timeout bounds each request. Zero means no
	// timeout.
	Timeout time.Duration
}

// Outcome is the result of processing one request.
type Outcome struct {
	RequestID string
	Request   string
	Intent    intent.Intent
	Envelope  executor.Envelope
	Reply     string
}

// Success reports whether the operation succeeded.
func (o Outcome) Success() bool {
	return o.Envelope.Success()
}

// Assistant processes natural-language requests.
type Assistant struct {
	parser     IntentParser
	dispatcher Dispatcher
	narrator   Narrator
	timeout    time.Duration
}

// New validates cfg and returns an Assistant.
func New(cfg Config) (*Assistant, error) {
	const errCtx = "creating assistant"

	switch {
	case cfg.Parser == nil:
		return nil, fmt.Errorf("%s: parser must be set", errCtx)
	case cfg.Dispatcher == nil:
		return nil, fmt.Errorf("%s: dispatcher must be set", errCtx)
	case cfg.Narrator == nil:
		return nil, fmt.Errorf("%s: narrator must be set", errCtx)
	case cfg.Timeout < 0:
		return nil, fmt.Errorf(
			"%s: timeout must not be negative", errCtx,
		)
	}

	return &Assistant{
		parser:     cfg.Parser,
		dispatcher: cfg.Dispatcher,
		narrator:   cfg.Narrator,
		timeout:    cfg.Timeout,
	}, nil
}

// Process runs one request through the pipeline. It
// never fails; problems are reported in the Outcome.
func (a *Assistant) Process(ctx context.Context, text string) Outcome {
	out := Outcome{
		RequestID: uuid.NewString(),
		Request:   text,
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()

	out.Intent = a.parser.Parse(ctx, text)

	switch {
	case out.Intent.Failed():
		out.Envelope = executor.Fail(out.Intent.Err)
		out.Reply = NotUnderstoodReply
	case out.Intent.Unknown():
		out.Envelope = executor.Fail(ErrNotUnderstood)
		out.Reply = NotUnderstoodReply
	default:
		out.Envelope = a.dispatcher.Dispatch(
			ctx, out.Intent.Action, out.Intent.Parameters,
		)
		out.Reply = a.narrator.Narrate(ctx, text, out.Envelope)
	}

	slog.Info(
		"processed request",
		"request_id", out.RequestID,
		"action", out.Intent.Action,
		"success", out.Envelope.Success(),
		"duration", time.Since(start),
	)

	return out
}

// ProcessAll runs texts through Process with at most
// parallelism requests in flight. Outcomes are returned
// in input order. Requests not started before ctx is
// done fail with the context error.
func (a *Assistant) ProcessAll(
	ctx context.Context,
	texts []string,
	parallelism int,
) []Outcome {
	if parallelism <= 0 {
		parallelism = 1
	}

	outcomes := make([]Outcome, len(texts))

	var wg sync.WaitGroup

	sem := make(chan struct{}, parallelism)

	for i, text := range texts {
		select {
		case <-ctx.Done():
			outcomes[i] = cancelled(ctx.Err(), text)

			continue
		case sem <- struct{}{}:
		}

		// Both cases are ready when a slot frees up as
		// ctx is cancelled.
		if err := ctx.Err(); err != nil {
			<-sem

			outcomes[i] = cancelled(err, text)

			continue
		}

		wg.Add(1)

		go func(idx int, txt string) {
			defer wg.Done()
			defer func() { <-sem }()

			outcomes[idx] = a.Process(ctx, txt)
		}(i, text)
	}

	wg.Wait()

	return outcomes
}

// cancelled is the outcome of a request never started.
func cancelled(err error, text string) Outcome {
	return Outcome{
		RequestID: uuid.NewString(),
		Request:   text,
		Intent:    intent.Unknown(err.Error()),
		Envelope:  executor.Fail(err.Error()),
	}
}
