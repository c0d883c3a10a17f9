// Package stream runs the generation pipeline: one independently paced,
// independently seeded stream per template, each a strict ownership island.
package stream

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	director "github.com/relistan/go-director"

	"github.com/lance0/logsynth/corrupt"
	"github.com/lance0/logsynth/fields"
	"github.com/lance0/logsynth/rate"
	"github.com/lance0/logsynth/render"
	"github.com/lance0/logsynth/sink"
	"github.com/lance0/logsynth/template"
)

// Config describes one stream of a RunPlan. Exactly one of Count or
// Duration must be set.
type Config struct {
	Name     string
	Template *template.Template

	Rate     float64
	Burst    rate.Schedule
	Count    int64
	Duration time.Duration

	// Format overrides the template's format when non-empty
	Format         string
	CorruptPercent float64
	Seed           int64
	Sink           sink.Sink
}

// A Counters sink for pipeline stats. Streams tolerate a nil one.
type Counters interface {
	IncrEmitted()
	IncrCorrupted()
}

// errStreamDone ends a pipeline loop cleanly from inside the loop body.
// The orchestrator filters it out of stream results.
var errStreamDone = errors.New("stream done")

// A Stream owns every piece of per-stream state: field generators, RNG,
// rate controller, renderer, and corruptor. Nothing here is shared, so no
// locking is needed.
type Stream struct {
	Name string

	gens      []boundGenerator
	renderer  render.Renderer
	corruptor *corrupt.Corruptor
	ctrl      *rate.Controller
	out       sink.Sink
	counters  Counters

	looper director.Looper
}

// boundGenerator pairs a field spec with its constructed generator.
type boundGenerator struct {
	spec *template.FieldSpec
	gen  fields.Generator
}

// New builds a stream from a validated config. All construction failures
// surface here, before any run starts.
func New(cfg Config, counters Counters) (*Stream, error) {
	if cfg.Template == nil {
		return nil, fmt.Errorf("stream requires a template")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("stream '%s' requires a sink", cfg.Name)
	}

	name := cfg.Name
	if name == "" {
		name = cfg.Template.Name
	}

	ctrl, err := rate.NewController(cfg.Rate, cfg.Burst, cfg.Count, cfg.Duration)
	if err != nil {
		return nil, fmt.Errorf("stream '%s': %w", name, err)
	}

	// One source drives every generator and the corruptor, so a fixed
	// seed reproduces the whole stream byte for byte.
	rng := rand.New(rand.NewSource(cfg.Seed))

	tmpl := cfg.Template
	gens := make([]boundGenerator, 0, len(tmpl.Fields))
	for i := range tmpl.Fields {
		spec := &tmpl.Fields[i]

		gen, err := fields.New(spec.Type, spec.Params, rng)
		if err != nil {
			return nil, fmt.Errorf("stream '%s' field '%s': %w", name, spec.Name, err)
		}

		gens = append(gens, boundGenerator{spec: spec, gen: gen})
	}

	format := tmpl.Format
	if cfg.Format != "" {
		format = cfg.Format
	}

	renderer, err := render.New(format, tmpl.Pattern)
	if err != nil {
		return nil, fmt.Errorf("stream '%s': %w", name, err)
	}

	corruptor, err := corrupt.New(cfg.CorruptPercent, rng)
	if err != nil {
		return nil, fmt.Errorf("stream '%s': %w", name, err)
	}

	// Count-stopped streams let the looper bound the iterations; duration
	// streams loop until the controller reports complete.
	iterations := director.FOREVER
	if cfg.Count > 0 {
		iterations = int(cfg.Count)
	}

	return &Stream{
		Name:      name,
		gens:      gens,
		renderer:  renderer,
		corruptor: corruptor,
		ctrl:      ctrl,
		out:       cfg.Sink,
		counters:  counters,
		looper:    director.NewFreeLooper(iterations, make(chan error)),
	}, nil
}

// Start launches the pipeline loop in the background. Wait collects its
// outcome.
func (s *Stream) Start(ctx context.Context) {
	s.ctrl.Start(time.Now())

	go s.looper.Loop(func() error {
		deadline, ok := s.ctrl.Deadline()
		if !ok {
			return errStreamDone
		}

		// The only suspension point in the pipeline. Wakes promptly on
		// cancellation.
		if err := s.ctrl.Wait(ctx, deadline); err != nil {
			return errStreamDone
		}

		line, err := s.Generate()
		if err != nil {
			return err
		}

		if err := s.out.Write(line); err != nil {
			return &StreamError{
				Stream: s.Name, Phase: PhaseSink, Line: s.ctrl.Emitted(), Err: err,
			}
		}

		s.ctrl.Incr()
		if s.counters != nil {
			s.counters.IncrEmitted()
		}

		return nil
	})
}

// Wait blocks until the pipeline loop finishes and returns its error, if
// any. A cancelled or naturally completed stream returns nil.
func (s *Stream) Wait() error {
	err := s.looper.Wait()
	if errors.Is(err, errStreamDone) {
		return nil
	}
	return err
}

// Emitted returns how many lines this stream has written.
func (s *Stream) Emitted() int64 {
	return s.ctrl.Emitted()
}

// Generate produces the next rendered (and possibly corrupted) line,
// without pacing. Run uses it per iteration; Preview uses it directly.
func (s *Stream) Generate() (string, error) {
	rec, err := s.assemble()
	if err != nil {
		return "", &StreamError{
			Stream: s.Name, Phase: PhaseGenerate, Line: s.ctrl.Emitted(), Err: err,
		}
	}

	line, err := s.renderer.Render(rec)
	if err != nil {
		return "", &StreamError{
			Stream: s.Name, Phase: PhaseRender, Line: s.ctrl.Emitted(), Err: err,
		}
	}

	corrupted := s.corruptor.MaybeCorrupt(line)
	if corrupted != line && s.counters != nil {
		s.counters.IncrCorrupted()
	}

	return corrupted, nil
}

// assemble drives the field generators in declared order, skipping fields
// whose condition evaluates false. Skipped fields are absent from the
// record, not null.
func (s *Stream) assemble() (*fields.Record, error) {
	rec := fields.NewRecord(len(s.gens))

	for _, bound := range s.gens {
		if bound.spec.Cond != nil {
			match, err := bound.spec.Cond.Eval(rec.Get)
			if err != nil {
				return nil, fmt.Errorf("field '%s': %w", bound.spec.Name, err)
			}
			if !match {
				continue
			}
		}

		value, err := bound.gen.Generate(rec)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", bound.spec.Name, err)
		}

		rec.Set(bound.spec.Name, value)
	}

	return rec, nil
}

// Reset rewinds every generator so a reseeded stream reproduces its output.
func (s *Stream) Reset() {
	for _, bound := range s.gens {
		bound.gen.Reset()
	}
}

// Preview builds the stream and renders n lines with no pacing and no
// sink. Handy for checking a template before a run.
func Preview(tmpl *template.Template, format string, seed int64, n int) ([]string, error) {
	cfg := Config{
		Template: tmpl,
		Rate:     1,
		Count:    int64(n),
		Format:   format,
		Seed:     seed,
		Sink:     discardSink{},
	}

	s, err := New(cfg, nil)
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		line, err := s.Generate()
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	return lines, nil
}

type discardSink struct{}

func (discardSink) Write(string) error { return nil }
func (discardSink) Close() error       { return nil }
