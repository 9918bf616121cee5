package executor

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// Envelope is the uniform outcome of an operation: either
// a success carrying a Result, or a failure carrying an
// error message. The zero value is a failure with an
// empty message; build envelopes with Succeed or Fail.
type Envelope struct {
	result Result
	err    string
}

// Succeed wraps r in a success envelope. A nil r yields a
// failure.
func Succeed(r Result) Envelope {
	if r == nil {
		return Fail("operation returned no result")
	}

	return Envelope{result: r}
}

// Fail returns a failure envelope carrying msg.
func Fail(msg string) Envelope {
	return Envelope{err: msg}
}

// Failf is Fail with fmt.Sprintf formatting.
func Failf(format string, args ...any) Envelope {
	return Fail(fmt.Sprintf(format, args...))
}

// Success reports whether the envelope is a success.
func (e Envelope) Success() bool {
	return e.result != nil
}

// Result returns the success payload, or nil on failure.
func (e Envelope) Result() Result {
	return e.result
}

// Err returns the failure message, or "" on success.
func (e Envelope) Err() string {
	return e.err
}

// Summary returns a one-line description of the
// envelope: the result summary on success, the error
// otherwise.
func (e Envelope) Summary() string {
	if e.result != nil {
		return e.result.Summary()
	}

	return e.err
}

type failureJSON struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// MarshalJSON renders {"success": true, ...result fields}
// or {"success": false, "error": "..."}.
func (e Envelope) MarshalJSON() ([]byte, error) {
	const errCtx = "marshaling envelope"

	if e.result == nil {
		return json.Marshal(failureJSON{Error: e.err})
	}

	body, err := json.Marshal(e.result)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	body = bytes.TrimSpace(body)
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf(
			"%s: result %T is not an object", errCtx, e.result,
		)
	}

	var buf bytes.Buffer

	buf.WriteString(`{"success":true`)

	if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// Indent renders the envelope as indented JSON, the form
// shown to people and to the narrating model.
func (e Envelope) Indent() string {
	out, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Sprintf(
			`{"success": false, "error": %q}`, err.Error(),
		)
	}

	return string(out)
}
