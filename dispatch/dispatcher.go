package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/byte4ever/repo_assistant/catalog"
	"github.com/byte4ever/repo_assistant/executor"
)

// Limits caps listing sizes in dispatched results. Zero
// means unbounded. Counts always report the full size.
type Limits struct {
	Repositories int
	Issues       int
}

// DefaultLimits returns the display limits used when
// Config.Limits is nil.
func DefaultLimits() Limits {
	return Limits{Repositories: 10}
}

// Config holds the dependencies of a Dispatcher.
type Config struct {
	Registry *catalog.Registry
	Handlers map[catalog.Action]executor.Handler
	// Limits defaults to DefaultLimits.
	Limits *Limits
}

// Dispatcher routes operations to their handlers.
type Dispatcher struct {
	registry *catalog.Registry
	handlers map[catalog.Action]executor.Handler
	limits   Limits
}

// New validates cfg and returns a Dispatcher. Every
// catalog action must have a handler.
func New(cfg Config) (*Dispatcher, error) {
	const errCtx = "creating dispatcher"

	if cfg.Registry == nil {
		return nil, fmt.Errorf("%s: registry must be set", errCtx)
	}

	handlers := make(
		map[catalog.Action]executor.Handler, len(cfg.Handlers),
	)

	for _, desc := range cfg.Registry.Describe() {
		h, ok := cfg.Handlers[desc.Action]
		if !ok || h == nil {
			return nil, fmt.Errorf(
				"%s: no handler for %s", errCtx, desc.Name,
			)
		}

		handlers[desc.Action] = h
	}

	limits := DefaultLimits()
	if cfg.Limits != nil {
		limits = *cfg.Limits
	}

	return &Dispatcher{
		registry: cfg.Registry,
		handlers: handlers,
		limits:   limits,
	}, nil
}

// Registry returns the catalog operations are resolved
// against.
func (d *Dispatcher) Registry() *catalog.Registry {
	return d.registry
}

// Dispatch runs the operation named action with params.
// Unknown actions and invalid parameters fail without
// calling the handler.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	action string,
	params map[string]any,
) executor.Envelope {
	desc, ok := d.registry.Lookup(action)
	if !ok {
		slog.Debug("unknown tool", "action", action)

		return executor.Failf("Unknown tool: %s", action)
	}

	bound, err := desc.Bind(params)
	if err != nil {
		slog.Debug(
			"rejected parameters",
			"action", action,
			"error", err,
		)

		return executor.Fail(err.Error())
	}

	start := time.Now()

	result, err := d.call(ctx, d.handlers[desc.Action], bound)

	slog.Debug(
		"tool call",
		"action", action,
		"parameters", map[string]any(bound),
		"duration", time.Since(start),
		"error", err,
	)

	if err != nil {
		return executor.Fail(err.Error())
	}

	return executor.Succeed(d.present(result))
}

// call runs h, turning a panic into an error.
func (d *Dispatcher) call(
	ctx context.Context,
	h executor.Handler,
	params catalog.Params,
) (result executor.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tool panicked", "panic", r)

			result = nil
			err = fmt.Errorf("tool execution failed: %v", r)
		}
	}()

	return h(ctx, params)
}

// present applies display limits.
func (d *Dispatcher) present(result executor.Result) executor.Result {
	switch r := result.(type) {
	case executor.RepositoryList:
		return r.Truncate(d.limits.Repositories)
	case executor.IssueList:
		return r.Truncate(d.limits.Issues)
	}

	return result
}
