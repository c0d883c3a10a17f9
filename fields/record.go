package fields

// A Record holds the generated values for one log line, in the order the
// fields were declared in the template. Conditional fields that were skipped
// are simply not present.
type Record struct {
	names  []string
	values map[string]any
}

// NewRecord returns an empty Record sized for the expected field count.
func NewRecord(size int) *Record {
	return &Record{
		names:  make([]string, 0, size),
		values: make(map[string]any, size),
	}
}

// Set appends a field and its value. Setting the same name twice overwrites
// the value but keeps the original position.
func (r *Record) Set(name string, value any) {
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = value
}

// Get looks up a field by name. The second return reports presence, so
// callers can tell a skipped conditional field from a nil value.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Names returns the field names in declaration order.
func (r *Record) Names() []string {
	return r.names
}

// Len returns the number of fields present.
func (r *Record) Len() int {
	return len(r.names)
}

// Map returns the record as a plain map, losing ordering. Used for handing
// values to templating engines that take a map.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}
