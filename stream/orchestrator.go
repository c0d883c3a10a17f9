package stream

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/lance0/logsynth/sink"
)

// seedStride separates derived per-stream seeds. Knuth's multiplicative
// hash constant keeps sibling streams' source states far apart.
const seedStride = 2654435761

// A RunPlan is the sole entry point from the caller into the core: the full
// set of stream configs plus the global seed policy. The caller builds and
// validates it; the core does no further parsing.
type RunPlan struct {
	Streams []Config

	// Seed, when non-zero, derives a deterministic seed for every stream
	// that doesn't carry its own.
	Seed int64
}

// A Result reports one stream's outcome: how many lines it emitted and the
// error that stopped it, if any.
type Result struct {
	Stream  string
	Emitted int64
	Err     error
}

// An Orchestrator runs every stream of a plan concurrently and blocks until
// they all reach their stop condition or the context is cancelled.
type Orchestrator struct {
	streams []*Stream
}

// NewOrchestrator constructs every stream up front so that all validation
// failures are fatal before a single line is emitted.
func NewOrchestrator(plan RunPlan, counters Counters) (*Orchestrator, error) {
	if len(plan.Streams) == 0 {
		return nil, fmt.Errorf("run plan has no streams")
	}

	streams := make([]*Stream, 0, len(plan.Streams))
	for i, cfg := range plan.Streams {
		if plan.Seed != 0 && cfg.Seed == 0 {
			cfg.Seed = plan.Seed + int64(i)*seedStride
		}

		s, err := New(cfg, counters)
		if err != nil {
			return nil, err
		}
		streams = append(streams, s)
	}

	return &Orchestrator{streams: streams}, nil
}

// Run starts every stream and waits for all of them. One stream's failure
// never aborts its siblings; every failure comes back in the results and in
// the joined error. All sinks are flushed and closed before returning, so
// in-flight lines land even on cancellation.
func (o *Orchestrator) Run(ctx context.Context) ([]Result, error) {
	for _, s := range o.streams {
		log.Infof("Starting stream '%s'", s.Name)
		s.Start(ctx)
	}

	results := make([]Result, 0, len(o.streams))
	var errs []error

	for _, s := range o.streams {
		err := s.Wait()
		if err != nil {
			log.Errorf("Stream '%s' failed: %s", s.Name, err)
			errs = append(errs, err)
		} else {
			log.Infof("Stream '%s' complete: %d lines", s.Name, s.Emitted())
		}

		results = append(results, Result{Stream: s.Name, Emitted: s.Emitted(), Err: err})
	}

	o.closeSinks(&errs)

	return results, errors.Join(errs...)
}

// closeSinks flushes and closes each distinct sink exactly once, even when
// streams share one.
func (o *Orchestrator) closeSinks(errs *[]error) {
	closed := make(map[sink.Sink]bool, len(o.streams))

	for _, s := range o.streams {
		if closed[s.out] {
			continue
		}
		closed[s.out] = true

		if err := s.out.Close(); err != nil {
			log.Errorf("Failed to close sink for stream '%s': %s", s.Name, err)
			*errs = append(*errs, err)
		}
	}
}
