package fields

import (
	"fmt"
	"time"
)

// Params holds the type-specific configuration for one field, as decoded
// from the template. Keys the generator doesn't know about are ignored.
type Params map[string]any

func (p Params) String(key, def string) (string, error) {
	raw, ok := p[key]
	if !ok {
		return def, nil
	}

	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("'%s' must be a string, got %T", key, raw)
	}
	return s, nil
}

func (p Params) Bool(key string, def bool) (bool, error) {
	raw, ok := p[key]
	if !ok {
		return def, nil
	}

	b, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("'%s' must be a boolean, got %T", key, raw)
	}
	return b, nil
}

// Int accepts any integer-valued number. YAML hands us int most of the time
// but JSON-sourced configs arrive as float64.
func (p Params) Int(key string, def int64) (int64, error) {
	raw, ok := p[key]
	if !ok {
		return def, nil
	}

	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("'%s' must be an integer, got %v", key, v)
		}
		return int64(v), nil
	default:
		return 0, fmt.Errorf("'%s' must be an integer, got %T", key, raw)
	}
}

func (p Params) Float(key string, def float64) (float64, error) {
	raw, ok := p[key]
	if !ok {
		return def, nil
	}

	switch v := raw.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("'%s' must be a number, got %T", key, raw)
	}
}

// Duration parses a Go duration string like "1s" or "250ms".
func (p Params) Duration(key string, def time.Duration) (time.Duration, error) {
	raw, ok := p[key]
	if !ok {
		return def, nil
	}

	s, ok := raw.(string)
	if !ok {
		return 0, fmt.Errorf("'%s' must be a duration string, got %T", key, raw)
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("'%s' is not a valid duration: %s", key, err)
	}
	return d, nil
}

// List returns a list-valued param, or nil when absent.
func (p Params) List(key string) ([]any, error) {
	raw, ok := p[key]
	if !ok {
		return nil, nil
	}

	l, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("'%s' must be a list, got %T", key, raw)
	}
	return l, nil
}

// Floats returns a numeric list param, or nil when absent.
func (p Params) Floats(key string) ([]float64, error) {
	raw, err := p.List(key)
	if err != nil || raw == nil {
		return nil, err
	}

	out := make([]float64, len(raw))
	for i, item := range raw {
		switch v := item.(type) {
		case int:
			out[i] = float64(v)
		case int64:
			out[i] = float64(v)
		case float64:
			out[i] = v
		default:
			return nil, fmt.Errorf("'%s[%d]' must be a number, got %T", key, i, item)
		}
	}
	return out, nil
}
