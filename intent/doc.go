// Package intent turns a free-text request into a structured Intent
// with a single language model call.
package intent
