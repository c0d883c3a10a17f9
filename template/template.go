// Package template holds the validated definition of a log template: its
// output format, pattern text, and ordered field specs. Field declaration
// order is significant: it is the generation order, and conditions may only
// look backwards.
package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lance0/logsynth/condition"
	"github.com/lance0/logsynth/fields"
	"github.com/lance0/logsynth/render"
)

// A FieldSpec describes one field of a template. Cond is non-nil only when
// a 'when' expression was configured, and is parsed once at validation.
type FieldSpec struct {
	Name   string
	Type   string
	Params fields.Params
	When   string
	Cond   *condition.Expr
}

// A Template is immutable once validated.
type Template struct {
	Name    string
	Format  string
	Pattern string
	Fields  []FieldSpec
}

// FieldNames returns the field names in declaration order.
func (t *Template) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

// A ValidationError carries every problem found in a template so the caller
// can surface them all at once.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf(
		"template validation failed with %d error(s): %s",
		len(e.Errors), strings.Join(e.Errors, "; "),
	)
}

var patternRefs = regexp.MustCompile(`\$\{?(\w+)\}?`)

// Validate checks the template and compiles its condition expressions.
// Every failure is collected; generation never starts on a template that
// produced errors here.
func (t *Template) Validate() error {
	var errs []string

	if t.Name == "" {
		errs = append(errs, "missing required field: 'name'")
	}
	if t.Pattern == "" && t.Format == render.FormatPlain {
		errs = append(errs, "missing required field: 'pattern'")
	}
	if len(t.Fields) == 0 {
		errs = append(errs, "'fields' cannot be empty")
	}

	if !render.Valid(t.Format) {
		errs = append(errs, fmt.Sprintf(
			"invalid format '%s'. Must be one of: %s", t.Format, strings.Join(render.Formats(), ", "),
		))
	}

	declared := make(map[string]bool, len(t.Fields))
	for i := range t.Fields {
		spec := &t.Fields[i]

		if !fields.Exists(spec.Type) {
			errs = append(errs, fmt.Sprintf(
				"field '%s': unknown type '%s'. Valid types: %s",
				spec.Name, spec.Type, strings.Join(fields.List(), ", "),
			))
		} else if err := fields.Validate(spec.Type, spec.Params); err != nil {
			errs = append(errs, fmt.Sprintf("field '%s': %s", spec.Name, err))
		}

		if spec.When != "" {
			cond, err := condition.Parse(spec.When)
			if err != nil {
				errs = append(errs, fmt.Sprintf("field '%s': bad condition: %s", spec.Name, err))
			} else {
				// Forward references are rejected outright, never
				// silently treated as false
				for _, ref := range cond.Fields() {
					if !declared[ref] {
						errs = append(errs, fmt.Sprintf(
							"field '%s': condition references '%s' which is not declared earlier",
							spec.Name, ref,
						))
					}
				}
				spec.Cond = cond
			}
		}

		declared[spec.Name] = true
	}

	if t.Pattern != "" {
		var undefined []string
		for _, match := range patternRefs.FindAllStringSubmatch(t.Pattern, -1) {
			if !declared[match[1]] {
				undefined = append(undefined, match[1])
			}
		}
		if len(undefined) > 0 {
			errs = append(errs, fmt.Sprintf(
				"pattern references undefined fields: %s", strings.Join(undefined, ", "),
			))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}

	return nil
}
