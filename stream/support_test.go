package stream

import (
	"errors"
	"sync"
)

// captureSink records every line written to it, for test assertions.
type captureSink struct {
	sync.Mutex
	lines      []string
	closeCalls int
}

func (c *captureSink) Write(line string) error {
	c.Lock()
	defer c.Unlock()
	c.lines = append(c.lines, line)
	return nil
}

func (c *captureSink) Close() error {
	c.Lock()
	defer c.Unlock()
	c.closeCalls++
	return nil
}

func (c *captureSink) Lines() []string {
	c.Lock()
	defer c.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *captureSink) CloseCalls() int {
	c.Lock()
	defer c.Unlock()
	return c.closeCalls
}

// failingSink errors on every write.
type failingSink struct {
	captureSink
}

func (f *failingSink) Write(string) error {
	return errors.New("disk melted")
}

// mockCounters counts pipeline stats like the run reporter does.
type mockCounters struct {
	sync.Mutex
	emitted   int
	corrupted int
}

func (m *mockCounters) IncrEmitted() {
	m.Lock()
	defer m.Unlock()
	m.emitted++
}

func (m *mockCounters) IncrCorrupted() {
	m.Lock()
	defer m.Unlock()
	m.corrupted++
}
