package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed operations.yaml
var operationsYAML []byte

// ParamType is the JSON type of a parameter.
type ParamType string

// Supported parameter types.
const (
	TypeString  ParamType = "string"
	TypeBoolean ParamType = "boolean"
	TypeObject  ParamType = "object"
)

// ParameterSpec describes one named parameter of an operation.
type ParameterSpec struct {
	Name        string    `yaml:"name"`
	Type        ParamType `yaml:"type"`
	Required    bool      `yaml:"required"`
	Description string    `yaml:"description"`
	// Default is applied when an optional parameter is absent. Nil
	// means no default.
	Default any `yaml:"default"`
}

// OperationDescriptor describes one catalog operation.
type OperationDescriptor struct {
	Action      Action
	Name        string
	Description string
	Parameters  []ParameterSpec

	schema *gojsonschema.Schema
}

// Example maps a natural-language request to the JSON the model is
// expected to produce for it.
type Example struct {
	Request  string `yaml:"request"`
	Response string `yaml:"response"`
}

// document mirrors operations.yaml.
type document struct {
	Operations []operationEntry `yaml:"operations"`
	Examples   []Example        `yaml:"examples"`
}

type operationEntry struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Parameters  []ParameterSpec `yaml:"parameters"`
}

// Registry is the realized catalog. It is immutable once built and
// safe for concurrent use.
type Registry struct {
	ops      []*OperationDescriptor
	byAction map[Action]*OperationDescriptor
	examples []Example
}

// New parses the embedded operation catalog.
func New() (*Registry, error) {
	return Parse(operationsYAML)
}

// MustNew is like New but panics on error. The embedded catalog is
// fixed at build time, so an error here is a programming error.
func MustNew() *Registry {
	reg, err := New()
	if err != nil {
		panic(err)
	}

	return reg
}

// Parse builds a Registry from a YAML catalog document. Every Action
// must be described exactly once and every described operation must
// be a known Action.
func Parse(data []byte) (*Registry, error) {
	const errCtx = "parsing operation catalog"

	var doc document
	if err := yaml.UnmarshalWithOptions(
		data, &doc, yaml.DisallowUnknownField(),
	); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	reg := &Registry{
		byAction: make(map[Action]*OperationDescriptor),
		examples: doc.Examples,
	}

	for _, entry := range doc.Operations {
		action := ParseAction(entry.Name)
		if action == ActionUnknown {
			return nil, fmt.Errorf(
				"%s: unknown operation %q",
				errCtx, entry.Name,
			)
		}

		if _, dup := reg.byAction[action]; dup {
			return nil, fmt.Errorf(
				"%s: duplicate operation %q",
				errCtx, entry.Name,
			)
		}

		desc, err := newDescriptor(action, entry)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		reg.ops = append(reg.ops, desc)
		reg.byAction[action] = desc
	}

	for _, action := range Actions() {
		if _, ok := reg.byAction[action]; !ok {
			return nil, fmt.Errorf(
				"%s: operation %q is not described",
				errCtx, action,
			)
		}
	}

	return reg, nil
}

func newDescriptor(
	action Action,
	entry operationEntry,
) (*OperationDescriptor, error) {
	const errCtx = "building descriptor"

	seen := make(map[string]struct{}, len(entry.Parameters))

	for _, p := range entry.Parameters {
		if p.Name == "" {
			return nil, fmt.Errorf(
				"%s: %s: parameter without name",
				errCtx, entry.Name,
			)
		}

		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf(
				"%s: %s: duplicate parameter %q",
				errCtx, entry.Name, p.Name,
			)
		}

		seen[p.Name] = struct{}{}

		switch p.Type {
		case TypeString, TypeBoolean, TypeObject:
		default:
			return nil, fmt.Errorf(
				"%s: %s: parameter %q has unsupported type %q",
				errCtx, entry.Name, p.Name, p.Type,
			)
		}
	}

	desc := &OperationDescriptor{
		Action:      action,
		Name:        entry.Name,
		Description: entry.Description,
		Parameters:  entry.Parameters,
	}

	schema, err := gojsonschema.NewSchema(
		gojsonschema.NewGoLoader(desc.InputSchema()),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %s: compile schema: %w",
			errCtx, entry.Name, err,
		)
	}

	desc.schema = schema

	return desc, nil
}

// Describe returns every operation in catalog order.
func (r *Registry) Describe() []OperationDescriptor {
	out := make([]OperationDescriptor, 0, len(r.ops))

	for _, op := range r.ops {
		out = append(out, *op)
	}

	return out
}

// Lookup returns the descriptor registered under name. The sentinel
// "unknown" is never found.
func (r *Registry) Lookup(
	name string,
) (*OperationDescriptor, bool) {
	return r.Get(ParseAction(name))
}

// Get returns the descriptor of action.
func (r *Registry) Get(
	action Action,
) (*OperationDescriptor, bool) {
	desc, ok := r.byAction[action]

	return desc, ok
}

// Examples returns the worked request examples.
func (r *Registry) Examples() []Example {
	return append([]Example(nil), r.examples...)
}

// Instructions renders the catalog as the textual schema handed to
// the language model: one line per operation with its parameter
// shape, followed by the worked examples.
func (r *Registry) Instructions() string {
	var sb strings.Builder

	sb.WriteString("Available operations:\n")

	for _, op := range r.ops {
		sb.WriteString("- ")
		sb.WriteString(op.Name)
		sb.WriteString(": ")
		sb.WriteString(op.Signature())
		sb.WriteString(" - ")
		sb.WriteString(op.Description)
		sb.WriteByte('\n')
	}

	if len(r.examples) > 0 {
		sb.WriteString("\nExamples:\n")

		for _, ex := range r.examples {
			sb.WriteString("User: \"")
			sb.WriteString(ex.Request)
			sb.WriteString("\"\nResponse: ")
			sb.WriteString(ex.Response)
			sb.WriteByte('\n')
		}
	}

	return sb.String()
}

// Signature renders the parameter shape of the operation, for example
// {"repo_name": string, "body": string (optional)}.
func (d *OperationDescriptor) Signature() string {
	parts := make([]string, 0, len(d.Parameters))

	for _, p := range d.Parameters {
		part := fmt.Sprintf("%q: %s", p.Name, p.Type)
		if !p.Required {
			part += " (optional)"
		}

		parts = append(parts, part)
	}

	return "{" + strings.Join(parts, ", ") + "}"
}

// Required returns the names of the required parameters.
func (d *OperationDescriptor) Required() []string {
	var names []string

	for _, p := range d.Parameters {
		if p.Required {
			names = append(names, p.Name)
		}
	}

	return names
}

// InputSchema renders the descriptor as a JSON Schema object.
func (d *OperationDescriptor) InputSchema() map[string]any {
	props := make(map[string]any, len(d.Parameters))

	for _, p := range d.Parameters {
		prop := map[string]any{
			"type":        string(p.Type),
			"description": p.Description,
		}

		if p.Default != nil {
			prop["default"] = p.Default
		}

		props[p.Name] = prop
	}

	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}

	if req := d.Required(); len(req) > 0 {
		schema["required"] = req
	}

	return schema
}
