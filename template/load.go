package template

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lance0/logsynth/fields"
	"github.com/lance0/logsynth/render"
)

// Load parses and validates a template from YAML. The yaml.Node API is used
// directly because field declaration order must survive decoding; a plain
// map would shuffle it.
func Load(data []byte) (*Template, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ValidationError{Errors: []string{fmt.Sprintf("bad YAML: %s", err)}}
	}

	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, &ValidationError{Errors: []string{"template must be a YAML mapping"}}
	}
	root := doc.Content[0]

	tmpl := &Template{Format: render.FormatPlain}

	var errs []string
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		value := root.Content[i+1]

		switch key {
		case "name":
			tmpl.Name = value.Value
		case "format":
			tmpl.Format = value.Value
		case "pattern":
			tmpl.Pattern = value.Value
		case "fields":
			specs, fieldErrs := decodeFields(value)
			tmpl.Fields = specs
			errs = append(errs, fieldErrs...)
		}
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	if err := tmpl.Validate(); err != nil {
		return nil, err
	}

	return tmpl, nil
}

// LoadFile reads and validates a template from a YAML file.
func LoadFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", path, err)
	}

	tmpl, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load template %s: %w", path, err)
	}

	return tmpl, nil
}

func decodeFields(node *yaml.Node) ([]FieldSpec, []string) {
	if node.Kind != yaml.MappingNode {
		return nil, []string{"'fields' must be a mapping"}
	}

	var (
		specs []FieldSpec
		errs  []string
	)

	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		cfg := node.Content[i+1]

		if cfg.Kind != yaml.MappingNode {
			errs = append(errs, fmt.Sprintf("field '%s': configuration must be a mapping", name))
			continue
		}

		var params fields.Params
		if err := cfg.Decode(&params); err != nil {
			errs = append(errs, fmt.Sprintf("field '%s': %s", name, err))
			continue
		}

		spec := FieldSpec{Name: name, Params: params}

		if typeName, ok := params["type"].(string); ok {
			spec.Type = typeName
		} else {
			errs = append(errs, fmt.Sprintf("field '%s': missing required 'type'", name))
			continue
		}

		if when, ok := params["when"].(string); ok {
			spec.When = when
		}

		specs = append(specs, spec)
	}

	return specs, errs
}

// ToYAML renders the template back out as YAML, preserving field order.
func (t *Template) ToYAML() ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}

	appendPair := func(key string, value *yaml.Node) {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key}, value)
	}

	appendPair("name", &yaml.Node{Kind: yaml.ScalarNode, Value: t.Name})
	appendPair("format", &yaml.Node{Kind: yaml.ScalarNode, Value: t.Format})
	appendPair("pattern", &yaml.Node{Kind: yaml.ScalarNode, Value: t.Pattern})

	fieldsNode := &yaml.Node{Kind: yaml.MappingNode}
	for _, spec := range t.Fields {
		var cfg yaml.Node
		if err := cfg.Encode(map[string]any(spec.Params)); err != nil {
			return nil, fmt.Errorf("failed to encode field '%s': %s", spec.Name, err)
		}
		fieldsNode.Content = append(fieldsNode.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: spec.Name}, &cfg)
	}
	appendPair("fields", fieldsNode)

	return yaml.Marshal(root)
}
