package sink

import (
	"context"
	"time"

	limiter "github.com/sethvargo/go-limiter"
	"github.com/sethvargo/go-limiter/memorystore"
	log "github.com/sirupsen/logrus"
)

// A DropCounter is told about every line the limiter refused.
type DropCounter interface {
	IncrDropped()
}

// A RateLimitedSink wraps another Sink, dropping lines over a token limit
// instead of letting a downstream consumer fall behind. Drops are counted,
// never retried.
type RateLimitedSink struct {
	limitStore  limiter.Store
	dropCounter DropCounter
	sink        Sink
	limitKey    string
}

// NewRateLimitedSink configures a limit of tokenLimit lines per interval
// over the wrapped sink.
func NewRateLimitedSink(
	dropCounter DropCounter, tokenLimit int,
	interval time.Duration, key string, wrapped Sink) *RateLimitedSink {

	store, err := memorystore.New(&memorystore.Config{
		// Number of tokens allowed per interval.
		Tokens: uint64(tokenLimit),

		// Interval until tokens reset.
		Interval: interval,
	})

	if err != nil {
		log.Errorf("Unable to create memory store: %s", err)
	}

	return &RateLimitedSink{
		limitStore:  store,
		dropCounter: dropCounter,
		sink:        wrapped,
		limitKey:    key,
	}
}

// isRateLimited compares the tracking key to the stored limit and returns
// a boolean value for whether or not it is limited.
func (s *RateLimitedSink) isRateLimited() bool {
	limit, remaining, reset, ok, err := s.limitStore.Take(context.Background(), s.limitKey)
	log.Debugf("Checking rate limit: %d %d %d %t", limit, remaining, reset, ok)
	if err != nil {
		log.Warnf("Unable to fetch rate limit for %v", s.limitKey)
		return true // Rate limit it since we can't track
	}

	return !ok
}

// Write is a pass-through to the wrapped Sink, but checks rate limiting
// status. A dropped line is not an error.
func (s *RateLimitedSink) Write(line string) error {
	if !s.isRateLimited() {
		return s.sink.Write(line)
	}

	if s.dropCounter != nil {
		s.dropCounter.IncrDropped()
	}
	return nil
}

// Close cleans up our resources on shutdown and closes the wrapped sink.
func (s *RateLimitedSink) Close() error {
	if err := s.limitStore.Close(context.Background()); err != nil {
		log.Warnf("Failed to close limiter store: %s", err)
	}

	return s.sink.Close()
}
