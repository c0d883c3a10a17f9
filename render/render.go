// Package render turns a generated record into one line of output text.
package render

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	texttemplate "text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/lance0/logsynth/fields"
)

const (
	FormatPlain    = "plain"
	FormatJSON     = "json"
	FormatLogfmt   = "logfmt"
	FormatTemplate = "template"
)

// A Renderer formats records for one stream. Renderers are stateless after
// construction and never mutate the record.
type Renderer interface {
	Render(rec *fields.Record) (string, error)
}

// Valid reports whether the format name is known.
func Valid(format string) bool {
	switch format {
	case FormatPlain, FormatJSON, FormatLogfmt, FormatTemplate:
		return true
	}
	return false
}

// Formats lists the supported format names.
func Formats() []string {
	return []string{FormatJSON, FormatLogfmt, FormatPlain, FormatTemplate}
}

// New builds a renderer for the given format. The pattern is the plain
// substitution pattern or, for the template format, the template text.
func New(format, pattern string) (Renderer, error) {
	switch format {
	case FormatPlain:
		return &plainRenderer{pattern: pattern}, nil
	case FormatJSON:
		return &jsonRenderer{}, nil
	case FormatLogfmt:
		return &logfmtRenderer{}, nil
	case FormatTemplate:
		tmpl, err := texttemplate.New("line").
			Funcs(sprig.TxtFuncMap()).
			Option("missingkey=zero").
			Parse(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad template pattern: %s", err)
		}
		return &templateRenderer{tmpl: tmpl}, nil
	}

	return nil, fmt.Errorf("unknown format '%s'. Available: %s", format, strings.Join(Formats(), ", "))
}

var placeholder = regexp.MustCompile(`\$\{(\w+)\}|\$(\w+)`)

// plainRenderer substitutes $name and ${name} placeholders. A placeholder
// whose field is absent (skipped by a condition) renders as empty text.
type plainRenderer struct {
	pattern string
}

func (r *plainRenderer) Render(rec *fields.Record) (string, error) {
	line := placeholder.ReplaceAllStringFunc(r.pattern, func(match string) string {
		groups := placeholder.FindStringSubmatch(match)
		name := groups[1]
		if name == "" {
			name = groups[2]
		}

		value, ok := rec.Get(name)
		if !ok {
			return ""
		}
		return Stringify(value)
	})

	return strings.TrimSpace(line), nil
}

// jsonRenderer serializes the record as a flat object. The object is
// assembled by hand because field order must be preserved and values keep
// their types, so numbers stay numeric.
type jsonRenderer struct{}

func (r *jsonRenderer) Render(rec *fields.Record) (string, error) {
	var buf strings.Builder
	buf.WriteByte('{')

	for i, name := range rec.Names() {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(name)
		if err != nil {
			return "", fmt.Errorf("failed to encode field name '%s': %s", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')

		value, _ := rec.Get(name)
		encoded, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("failed to encode field '%s': %s", name, err)
		}
		buf.Write(encoded)
	}

	buf.WriteByte('}')
	return buf.String(), nil
}

// logfmtRenderer writes key=value pairs in field order, quoting values that
// contain whitespace or an '=' character.
type logfmtRenderer struct{}

func (r *logfmtRenderer) Render(rec *fields.Record) (string, error) {
	parts := make([]string, 0, rec.Len())

	for _, name := range rec.Names() {
		value, _ := rec.Get(name)
		s := Stringify(value)

		if strings.ContainsAny(s, " \t=\"") {
			s = strconv.Quote(s)
		}

		parts = append(parts, name+"="+s)
	}

	return strings.Join(parts, " "), nil
}

type templateRenderer struct {
	tmpl *texttemplate.Template
}

func (r *templateRenderer) Render(rec *fields.Record) (string, error) {
	var buf strings.Builder
	if err := r.tmpl.Execute(&buf, rec.Map()); err != nil {
		return "", fmt.Errorf("failed to execute template: %s", err)
	}

	return buf.String(), nil
}

// Stringify renders a single generated value as text.
func Stringify(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case int64:
		return strconv.FormatInt(value, 10)
	case int:
		return strconv.Itoa(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	}
	return fmt.Sprintf("%v", v)
}
