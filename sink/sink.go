// Package sink carries finished lines out of the pipeline. Sinks buffer
// internally and must never block a stream indefinitely; a sink shared by
// several streams serializes physical writes so lines are never interleaved
// mid-line.
package sink

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

// Sink is the contract the pipeline hands finished lines to.
type Sink interface {
	Write(line string) error
	Close() error
}

// A WriterSink buffers lines onto any io.Writer. The lock serializes writes
// from concurrent streams sharing the sink.
type WriterSink struct {
	lock   sync.Mutex
	buf    *bufio.Writer
	closer io.Closer
	closed bool
}

// NewWriterSink wraps a writer. The sink takes ownership of closing it when
// the writer is also an io.Closer.
func NewWriterSink(w io.Writer) *WriterSink {
	s := &WriterSink{buf: bufio.NewWriter(w)}
	if closer, ok := w.(io.Closer); ok {
		s.closer = closer
	}
	return s
}

// NewStdoutSink returns a sink on standard output. Stdout is not closed on
// Close, only flushed.
func NewStdoutSink() *WriterSink {
	return &WriterSink{buf: bufio.NewWriter(os.Stdout)}
}

// NewFileSink opens (or creates) a file for appending.
func NewFileSink(path string) (*WriterSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open sink file %s: %w", path, err)
	}

	return &WriterSink{buf: bufio.NewWriter(f), closer: f}, nil
}

func (s *WriterSink) Write(line string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return fmt.Errorf("write to closed sink")
	}

	if _, err := s.buf.WriteString(line); err != nil {
		return fmt.Errorf("sink write failed: %w", err)
	}
	if err := s.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("sink write failed: %w", err)
	}

	return nil
}

// Close flushes the buffer and closes the underlying writer if it can be
// closed. Safe to call more than once.
func (s *WriterSink) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.buf.Flush(); err != nil {
		return fmt.Errorf("sink flush failed: %w", err)
	}

	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			return fmt.Errorf("sink close failed: %w", err)
		}
	}

	return nil
}
