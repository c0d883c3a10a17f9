package fields

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/ncruces/go-strftime"
)

const defaultTimestampFormat = "%Y-%m-%dT%H:%M:%S"

// timestampGen keeps a logical clock cursor that advances by a fixed step
// plus optional jitter on every draw. It emits the current cursor, then
// advances, so the first line carries the configured start.
//
// This is the only generator allowed to touch the wall clock, and only at
// construction time when no explicit start is configured.
type timestampGen struct {
	start  time.Time
	cursor time.Time
	step   time.Duration
	jitter time.Duration
	layout string
	loc    *time.Location
	rng    *rand.Rand
}

func newTimestamp(params Params, rng *rand.Rand) (Generator, error) {
	format, err := params.String("format", defaultTimestampFormat)
	if err != nil {
		return nil, err
	}

	layout, err := strftime.Layout(format)
	if err != nil {
		return nil, fmt.Errorf("'format' is not a valid strftime pattern: %s", err)
	}

	tz, err := params.String("tz", "UTC")
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("'tz' is not a valid timezone: %s", err)
	}

	step, err := params.Duration("step", time.Second)
	if err != nil {
		return nil, err
	}

	jitter, err := params.Duration("jitter", 0)
	if err != nil {
		return nil, err
	}
	if jitter < 0 {
		return nil, fmt.Errorf("'jitter' must not be negative")
	}

	startStr, err := params.String("start", "")
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if startStr != "" {
		start, err = time.Parse(time.RFC3339, startStr)
		if err != nil {
			return nil, fmt.Errorf("'start' must be RFC3339: %s", err)
		}
	}

	return &timestampGen{
		start:  start,
		cursor: start,
		step:   step,
		jitter: jitter,
		layout: layout,
		loc:    loc,
		rng:    rng,
	}, nil
}

func (g *timestampGen) Generate(_ *Record) (any, error) {
	formatted := g.cursor.In(g.loc).Format(g.layout)

	advance := g.step
	if g.jitter > 0 {
		// Uniform in [-jitter, +jitter]
		advance += time.Duration(g.rng.Int63n(int64(2*g.jitter)+1) - int64(g.jitter))
	}
	g.cursor = g.cursor.Add(advance)

	return formatted, nil
}

func (g *timestampGen) Reset() {
	g.cursor = g.start
}
