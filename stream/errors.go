package stream

import "fmt"

// Pipeline phases a StreamError can point at.
const (
	PhaseGenerate = "generate"
	PhaseRender   = "render"
	PhaseSink     = "sink"
)

// A StreamError scopes a run-time failure to one stream and one pipeline
// phase. A failed stream terminates alone; its siblings keep running.
type StreamError struct {
	Stream string
	Phase  string
	Line   int64
	Err    error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %s: %s failed at line %d: %s", e.Stream, e.Phase, e.Line, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
