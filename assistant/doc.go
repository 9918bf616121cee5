// Package assistant runs the request pipeline: parse the request into
// an intent, dispatch it, and narrate the outcome. It also renders
// outcomes for a terminal.
package assistant
