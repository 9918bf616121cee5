// Package executor holds one handler per catalog operation and the
// Envelope type every operation result is normalized into.
//
// Handlers take validated catalog.Params, perform the remote calls
// through a hosting.Provider and return a typed Result. They never
// trim collections: display limits are applied by the caller through
// the Listing interface.
package executor
