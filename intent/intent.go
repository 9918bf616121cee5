package intent

import "github.com/byte4ever/repo_assistant/catalog"

// ErrUnparsable is the Intent error used when the model reply is not
// a JSON object with a string action.
const ErrUnparsable = "Failed to parse LLM response"

// Intent is the structured reading of one request. Action may name an
// operation the catalog does not know; the dispatcher rejects it.
type Intent struct {
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters"`
	// Err is set when the request could not be read. Action is then
	// catalog.UnknownAction.
	Err string `json:"error,omitempty"`
}

// Unknown returns the Intent reported when a request could not be
// read.
func Unknown(err string) Intent {
	return Intent{
		Action:     catalog.UnknownAction,
		Parameters: map[string]any{},
		Err:        err,
	}
}

// Failed reports whether the request could not be read.
func (i Intent) Failed() bool {
	return i.Err != ""
}

// Unknown reports whether the action is the unknown sentinel.
func (i Intent) Unknown() bool {
	return i.Action == catalog.UnknownAction
}
