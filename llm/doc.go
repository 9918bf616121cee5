// Package llm defines the single-call text generation contract used
// to parse requests and narrate results. Vendor clients live in the
// sub-packages.
package llm
