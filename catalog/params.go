package catalog

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Params holds the validated, defaulted parameters of one call.
type Params map[string]any

// String returns the string parameter name, or "" when absent.
func (p Params) String(name string) string {
	s, _ := p[name].(string)

	return s
}

// Bool returns the boolean parameter name, or false when absent.
func (p Params) Bool(name string) bool {
	b, _ := p[name].(bool)

	return b
}

// MissingParameterError reports a required parameter that was absent,
// null or blank.
type MissingParameterError struct {
	Operation string
	Parameter string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf(
		"missing required parameter '%s' for %s",
		e.Parameter, e.Operation,
	)
}

// InvalidParametersError reports parameters that do not match the
// declared types.
type InvalidParametersError struct {
	Operation string
	Problems  []string
}

func (e *InvalidParametersError) Error() string {
	return fmt.Sprintf(
		"invalid parameters for %s: %s",
		e.Operation, strings.Join(e.Problems, "; "),
	)
}

// Bind validates raw against the descriptor and returns a fresh
// parameter set with defaults applied. Null values are treated as
// absent. A required string that is blank counts as missing. raw is
// never modified.
func (d *OperationDescriptor) Bind(raw map[string]any) (Params, error) {
	params := make(Params, len(d.Parameters))

	for k, v := range raw {
		if v != nil {
			params[k] = v
		}
	}

	for _, spec := range d.Parameters {
		val, ok := params[spec.Name]

		if spec.Required {
			if !ok || isBlank(val) {
				return nil, &MissingParameterError{
					Operation: d.Name,
					Parameter: spec.Name,
				}
			}

			continue
		}

		if !ok && spec.Default != nil {
			params[spec.Name] = spec.Default
		}
	}

	if d.schema == nil {
		return params, nil
	}

	res, err := d.schema.Validate(
		gojsonschema.NewGoLoader(map[string]any(params)),
	)
	if err != nil {
		return nil, &InvalidParametersError{
			Operation: d.Name,
			Problems:  []string{err.Error()},
		}
	}

	if !res.Valid() {
		problems := make([]string, 0, len(res.Errors()))
		for _, re := range res.Errors() {
			problems = append(problems, re.String())
		}

		return nil, &InvalidParametersError{
			Operation: d.Name,
			Problems:  problems,
		}
	}

	return params, nil
}

func isBlank(v any) bool {
	s, ok := v.(string)

	return ok && strings.TrimSpace(s) == ""
}
