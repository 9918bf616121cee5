// Package templating compiles and renders text templates for the
// prompts sent to language models and the fixed replies built without
// one. It uses valyala/fasttemplate with configurable delimiters
// (default "{{" and "}}").
//
// Rendering is strict: a tag with no matching variable is an error,
// so a prompt never reaches a model with a silently blank slot.
package templating
