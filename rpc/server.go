package rpc

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/byte4ever/repo_assistant/catalog"
	"github.com/byte4ever/repo_assistant/executor"
)

// maxLineSize bounds one request line.
const maxLineSize = 4 << 20

var nullID = json.RawMessage("null")

// Dispatcher executes an operation by name.
type Dispatcher interface {
	Dispatch(
		ctx context.Context,
		action string,
		params map[string]any,
	) executor.Envelope
}

// Config holds the dependencies of a Server.
type Config struct {
	Registry   *catalog.Registry
	Dispatcher Dispatcher
	// Name and Version are reported on initialize.
	Name    string
	Version string
}

// Server answers JSON-RPC requests.
type Server struct {
	registry   *catalog.Registry
	dispatcher Dispatcher
	info       ServerInfo
	tools      []Tool
}

// NewServer validates cfg and returns a Server.
func NewServer(cfg Config) (*Server, error) {
	const errCtx = "creating rpc server"

	if cfg.Registry == nil {
		return nil, fmt.Errorf("%s: registry must be set", errCtx)
	}

	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf(
			"%s: dispatcher must be set", errCtx,
		)
	}

	if cfg.Name == "" {
		cfg.Name = "repo-assistant"
	}

	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	ops := cfg.Registry.Describe()
	tools := make([]Tool, 0, len(ops))

	for _, op := range ops {
		tools = append(tools, Tool{
			Name:        op.Name,
			Description: op.Description,
			InputSchema: op.InputSchema(),
		})
	}

	return &Server{
		registry:   cfg.Registry,
		dispatcher: cfg.Dispatcher,
		info:       ServerInfo{Name: cfg.Name, Version: cfg.Version},
		tools:      tools,
	}, nil
}

// Serve reads requests from r, one per line, and writes
// responses to w until r is exhausted or ctx is done.
// Blank lines are skipped.
func (s *Server) Serve(
	ctx context.Context,
	r io.Reader,
	w io.Writer,
) error {
	const errCtx = "serving json-rpc"

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)

	bw := bufio.NewWriter(w)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		out, ok := s.Handle(ctx, line)
		if !ok {
			continue
		}

		if _, err := bw.Write(append(out, '\n')); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		if err := bw.Flush(); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	if err := sc.Err(); err != nil {
		return fmt.Errorf("%s: reading: %w", errCtx, err)
	}

	return nil
}

// Handle answers one request line. ok is false for
// notifications, which get no response.
func (s *Server) Handle(
	ctx context.Context,
	line []byte,
) (out []byte, ok bool) {
	resp, ok := s.handle(ctx, line)
	if !ok {
		return nil, false
	}

	out, err := json.Marshal(resp)
	if err != nil {
		slog.Error("encoding response", "error", err)

		out, _ = json.Marshal(failure(
			resp.ID, CodeInternalError,
			"Internal error: "+err.Error(),
		))
	}

	return out, true
}

func (s *Server) handle(
	ctx context.Context,
	line []byte,
) (resp Response, ok bool) {
	if !json.Valid(line) {
		return failure(nullID, CodeParseError, "Parse error"), true
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return failure(
			nullID, CodeInvalidRequest, "Invalid Request",
		), true
	}

	id, hasID := fields["id"]
	if !hasID {
		id = nullID
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil ||
		req.JSONRPC != Version || req.Method == "" {
		return failure(id, CodeInvalidRequest, "Invalid Request"), true
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error(
				"rpc handler panicked",
				"method", req.Method,
				"panic", r,
			)

			resp = failure(
				id, CodeInternalError,
				fmt.Sprintf("Internal error: %v", r),
			)
			ok = hasID
		}
	}()

	result, rerr := s.call(ctx, req)

	if !hasID {
		return Response{}, false
	}

	if rerr != nil {
		return failure(id, rerr.Code, rerr.Message), true
	}

	return Response{JSONRPC: Version, ID: id, Result: result}, true
}

func (s *Server) call(ctx context.Context, req Request) (any, *Error) {
	switch req.Method {
	case "initialize":
		return InitializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    map[string]any{"tools": map[string]any{}},
			ServerInfo:      s.info,
		}, nil
	case "ping", "notifications/initialized":
		return map[string]any{}, nil
	case "tools/list":
		return ToolList{Tools: s.tools}, nil
	case "tools/call":
		return s.callTool(ctx, req.Params)
	}

	return nil, &Error{
		Code:    CodeMethodNotFound,
		Message: "Method not found: " + req.Method,
	}
}

func (s *Server) callTool(
	ctx context.Context,
	raw json.RawMessage,
) (any, *Error) {
	var params CallParams

	if len(raw) == 0 || json.Unmarshal(raw, &params) != nil ||
		params.Name == "" {
		return nil, &Error{
			Code:    CodeInvalidParams,
			Message: "Invalid params: tools/call needs a tool name",
		}
	}

	if params.Arguments == nil {
		params.Arguments = map[string]any{}
	}

	callID := uuid.NewString()

	slog.Debug(
		"tool call",
		"call_id", callID,
		"tool", params.Name,
	)

	env := s.dispatcher.Dispatch(ctx, params.Name, params.Arguments)

	slog.Info(
		"tool call done",
		"call_id", callID,
		"tool", params.Name,
		"success", env.Success(),
	)

	return CallResult{
		Content: []Content{{Type: "text", Text: env.Indent()}},
		IsError: !env.Success(),
	}, nil
}

func failure(id json.RawMessage, code int, msg string) Response {
	return Response{
		JSONRPC: Version,
		ID:      id,
		Error:   &Error{Code: code, Message: msg},
	}
}
