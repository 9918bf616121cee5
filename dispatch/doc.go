// Package dispatch is the single entry point for executing an
// operation by name. It validates parameters against the catalog,
// runs the handler, recovers from handler panics and trims listings
// for display. Dispatch never returns an error and never panics: every
// outcome is an executor.Envelope.
package dispatch
