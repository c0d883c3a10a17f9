package fields

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
)

// A Generator produces values for one field of a template. Implementations
// own all of their state and are used by exactly one stream at a time.
type Generator interface {
	// Generate returns the next value. The record built so far is passed
	// in so generators can derive values from earlier fields.
	Generate(rec *Record) (any, error)

	// Reset returns the generator to its initial state so a reseeded
	// stream reproduces the same sequence.
	Reset()
}

// A Factory builds a Generator from its params, drawing all randomness from
// the supplied source. Factories must validate params and fail here, never
// at generation time.
type Factory func(params Params, rng *rand.Rand) (Generator, error)

var (
	regLock  sync.RWMutex
	registry = map[string]Factory{
		"timestamp": newTimestamp,
		"choice":    newChoice,
		"string":    newChoice,
		"int":       newInt,
		"float":     newFloat,
		"uuid":      newUUID,
		"ip":        newIP,
		"sequence":  newSequence,
		"literal":   newLiteral,
	}
)

// Register adds a custom field type. It must be called before any template
// referencing the type is validated. Re-registering a name overwrites it.
func Register(typeName string, factory Factory) {
	regLock.Lock()
	defer regLock.Unlock()

	registry[typeName] = factory
}

// New builds a generator of the named type.
func New(typeName string, params Params, rng *rand.Rand) (Generator, error) {
	regLock.RLock()
	factory, ok := registry[typeName]
	regLock.RUnlock()

	if !ok {
		return nil, fmt.Errorf(
			"unknown field type '%s'. Available: %v", typeName, List(),
		)
	}

	return factory(params, rng)
}

// Validate dry-constructs a generator to surface config errors at template
// load time. The throwaway source is never used for output.
func Validate(typeName string, params Params) error {
	_, err := New(typeName, params, rand.New(rand.NewSource(1)))
	return err
}

// Exists reports whether a type name is registered.
func Exists(typeName string) bool {
	regLock.RLock()
	defer regLock.RUnlock()

	_, ok := registry[typeName]
	return ok
}

// List returns all registered type names, sorted.
func List() []string {
	regLock.RLock()
	defer regLock.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
