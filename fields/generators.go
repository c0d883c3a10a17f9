package fields

import (
	"fmt"
	"math"
	"math/rand"
)

// choiceGen samples from a fixed value list using a cumulative-distribution
// draw. Weights are relative and normalized internally.
type choiceGen struct {
	values []any
	cumul  []float64
	total  float64
	rng    *rand.Rand
}

func newChoice(params Params, rng *rand.Rand) (Generator, error) {
	values, err := params.List("values")
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("'values' is required and must be non-empty")
	}

	weights, err := params.Floats("weights")
	if err != nil {
		return nil, err
	}

	if weights == nil {
		// Default to uniform
		weights = make([]float64, len(values))
		for i := range weights {
			weights[i] = 1
		}
	}

	if len(weights) != len(values) {
		return nil, fmt.Errorf(
			"'weights' length %d does not match 'values' length %d",
			len(weights), len(values),
		)
	}

	g := &choiceGen{values: values, cumul: make([]float64, len(weights)), rng: rng}
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("'weights[%d]' must be non-negative, got %v", i, w)
		}
		g.total += w
		g.cumul[i] = g.total
	}

	if g.total <= 0 {
		return nil, fmt.Errorf("'weights' must not all be zero")
	}

	return g, nil
}

func (g *choiceGen) Generate(_ *Record) (any, error) {
	draw := g.rng.Float64() * g.total
	for i, edge := range g.cumul {
		if draw < edge {
			return g.values[i], nil
		}
	}

	// Float64 returns values in [0,1) so we only land here on zero-weight
	// tail entries
	return g.values[len(g.values)-1], nil
}

func (g *choiceGen) Reset() { /* stateless between draws */ }

type intGen struct {
	min, max int64
	rng      *rand.Rand
}

func newInt(params Params, rng *rand.Rand) (Generator, error) {
	min, err := params.Int("min", 0)
	if err != nil {
		return nil, err
	}
	max, err := params.Int("max", 100)
	if err != nil {
		return nil, err
	}

	if min > max {
		return nil, fmt.Errorf("'min' (%d) must not exceed 'max' (%d)", min, max)
	}

	return &intGen{min: min, max: max, rng: rng}, nil
}

func (g *intGen) Generate(_ *Record) (any, error) {
	// Inclusive on both ends
	return g.min + g.rng.Int63n(g.max-g.min+1), nil
}

func (g *intGen) Reset() {}

type floatGen struct {
	min, max float64
	scale    float64
	rng      *rand.Rand
}

func newFloat(params Params, rng *rand.Rand) (Generator, error) {
	min, err := params.Float("min", 0)
	if err != nil {
		return nil, err
	}
	max, err := params.Float("max", 1)
	if err != nil {
		return nil, err
	}
	precision, err := params.Int("precision", 2)
	if err != nil {
		return nil, err
	}

	if min > max {
		return nil, fmt.Errorf("'min' (%v) must not exceed 'max' (%v)", min, max)
	}
	if precision < 0 || precision > 12 {
		return nil, fmt.Errorf("'precision' must be in 0..12, got %d", precision)
	}

	return &floatGen{
		min:   min,
		max:   max,
		scale: math.Pow(10, float64(precision)),
		rng:   rng,
	}, nil
}

func (g *floatGen) Generate(_ *Record) (any, error) {
	v := g.min + g.rng.Float64()*(g.max-g.min)
	return math.Round(v*g.scale) / g.scale, nil
}

func (g *floatGen) Reset() {}

// sequenceGen is a monotonic counter. It never wraps.
type sequenceGen struct {
	start, step int64
	next        int64
}

func newSequence(params Params, _ *rand.Rand) (Generator, error) {
	start, err := params.Int("start", 0)
	if err != nil {
		return nil, err
	}
	step, err := params.Int("step", 1)
	if err != nil {
		return nil, err
	}

	return &sequenceGen{start: start, step: step, next: start}, nil
}

func (g *sequenceGen) Generate(_ *Record) (any, error) {
	v := g.next
	g.next += g.step
	return v, nil
}

func (g *sequenceGen) Reset() {
	g.next = g.start
}

type literalGen struct {
	value any
}

func newLiteral(params Params, _ *rand.Rand) (Generator, error) {
	value, ok := params["value"]
	if !ok {
		return nil, fmt.Errorf("'value' is required")
	}
	return &literalGen{value: value}, nil
}

func (g *literalGen) Generate(_ *Record) (any, error) {
	return g.value, nil
}

func (g *literalGen) Reset() {}
