package templating

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/valyala/fasttemplate"
)

// ErrMissingVariable is returned (wrapped) when a template
// references a variable that was not supplied.
var ErrMissingVariable = errors.New("missing template variable")

// Engine compiles templates with a given pair of tags.
type Engine struct {
	StartTag string
	EndTag   string
}

// Template is a compiled template, safe for concurrent
// use.
type Template struct {
	name string
	tpl  *fasttemplate.Template
}

// Compile parses text into a Template. Tag names are
// trimmed, so "{{ name }}" and "{{name}}" are the same
// variable.
func (en Engine) Compile(name, text string) (*Template, error) {
	const errCtx = "compiling template"

	startTag, endTag := en.tags()

	tpl, err := fasttemplate.NewTemplate(text, startTag, endTag)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", errCtx, name, err)
	}

	return &Template{name: name, tpl: tpl}, nil
}

// MustCompile is Compile for package-level templates; it
// panics on error.
func (en Engine) MustCompile(name, text string) *Template {
	tpl, err := en.Compile(name, text)
	if err != nil {
		panic(err)
	}

	return tpl
}

// tags returns the configured start/end tags, falling
// back to double-brace defaults.
func (en Engine) tags() (string, string) {
	startTag := en.StartTag
	if startTag == "" {
		startTag = "{{"
	}

	endTag := en.EndTag
	if endTag == "" {
		endTag = "}}"
	}

	return startTag, endTag
}

// Name returns the name given at compile time.
func (t *Template) Name() string {
	return t.name
}

// Execute writes the template to w, substituting vars.
// Strings are written as is, other values with
// fmt.Fprint.
func (t *Template) Execute(
	w io.Writer,
	vars map[string]any,
) error {
	const errCtx = "rendering template"

	_, err := t.tpl.ExecuteFunc(
		w,
		func(w io.Writer, tag string) (int, error) {
			key := strings.TrimSpace(tag)

			val, ok := vars[key]
			if !ok {
				return 0, fmt.Errorf(
					"%w: %s", ErrMissingVariable, key,
				)
			}

			if s, ok := val.(string); ok {
				return io.WriteString(w, s)
			}

			return fmt.Fprint(w, val)
		},
	)
	if err != nil {
		return fmt.Errorf("%s %s: %w", errCtx, t.name, err)
	}

	return nil
}

// Render returns the expanded template as a string.
func (t *Template) Render(vars map[string]any) (string, error) {
	var sb strings.Builder

	if err := t.Execute(&sb, vars); err != nil {
		return "", err
	}

	return sb.String(), nil
}
