// Package rate decides the wall-clock deadline for each successive line of
// a stream. Deadlines are anchored to the stream's start time and the
// emitted count rather than chained sleeps, so scheduling jitter never
// accumulates into long-run drift.
package rate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// A Segment is one step of a cyclic burst schedule: emit at Rate for
// Duration, then move to the next segment, wrapping after the last.
type Segment struct {
	Rate     float64
	Duration time.Duration
}

// A Schedule is an ordered, non-empty list of burst segments.
type Schedule []Segment

// Cycle returns the total duration of one pass through the schedule.
func (s Schedule) Cycle() time.Duration {
	var total time.Duration
	for _, seg := range s {
		total += seg.Duration
	}
	return total
}

// RateAt returns the active rate at the given elapsed time since stream
// start, wrapping cyclically.
func (s Schedule) RateAt(elapsed time.Duration) float64 {
	if len(s) == 0 {
		return 0
	}

	elapsed = elapsed % s.Cycle()
	for _, seg := range s {
		if elapsed < seg.Duration {
			return seg.Rate
		}
		elapsed -= seg.Duration
	}
	return s[0].Rate
}

// ParseBurst parses a burst pattern like "100:5s,10:25s" into a Schedule.
func ParseBurst(pattern string) (Schedule, error) {
	var schedule Schedule

	for _, part := range strings.Split(pattern, ",") {
		rateStr, durStr, found := strings.Cut(strings.TrimSpace(part), ":")
		if !found {
			return nil, fmt.Errorf("bad burst segment '%s': want RATE:DURATION", part)
		}

		r, err := strconv.ParseFloat(rateStr, 64)
		if err != nil {
			return nil, fmt.Errorf("bad burst rate '%s': %s", rateStr, err)
		}

		d, err := time.ParseDuration(durStr)
		if err != nil {
			return nil, fmt.Errorf("bad burst duration '%s': %s", durStr, err)
		}

		schedule = append(schedule, Segment{Rate: r, Duration: d})
	}

	return schedule, nil
}

// A Controller paces one stream. It is owned by exactly one stream and is
// not safe for concurrent use.
type Controller struct {
	rate     float64
	burst    Schedule
	count    int64
	duration time.Duration

	start   time.Time
	emitted int64

	segIndex   int
	segStart   time.Time
	segEmitted int64
}

// NewController validates the pacing config. Exactly one stop condition
// (count or duration) must be set. Supplying both, or neither, is an
// error rather than a silent precedence choice.
func NewController(r float64, burst Schedule, count int64, duration time.Duration) (*Controller, error) {
	if count > 0 && duration > 0 {
		return nil, fmt.Errorf("count and duration stop conditions are mutually exclusive")
	}
	if count <= 0 && duration <= 0 {
		return nil, fmt.Errorf("either a count or a duration stop condition is required")
	}

	if len(burst) == 0 && r <= 0 {
		return nil, fmt.Errorf("rate must be positive, got %v", r)
	}

	for i, seg := range burst {
		if seg.Rate <= 0 {
			return nil, fmt.Errorf("burst segment %d: rate must be positive, got %v", i, seg.Rate)
		}
		if seg.Duration <= 0 {
			return nil, fmt.Errorf("burst segment %d: duration must be positive", i)
		}
	}

	return &Controller{rate: r, burst: burst, count: count, duration: duration}, nil
}

// Start anchors the schedule. Must be called once before the first
// Deadline.
func (c *Controller) Start(now time.Time) {
	c.start = now
	c.segStart = now
}

// Deadline returns the wall-clock deadline for the next line, or false when
// the stop condition says the stream is complete. For burst schedules it
// advances to the next segment when the current one's time is spent,
// rebasing the deadline arithmetic on the anchored segment boundary.
func (c *Controller) Deadline() (time.Time, bool) {
	if c.count > 0 && c.emitted >= c.count {
		return time.Time{}, false
	}

	var deadline time.Time
	if len(c.burst) == 0 {
		deadline = c.start.Add(offsetFor(c.emitted, c.rate))
	} else {
		seg := c.burst[c.segIndex]
		deadline = c.segStart.Add(offsetFor(c.segEmitted, seg.Rate))

		if deadline.Sub(c.segStart) >= seg.Duration {
			// Segment exhausted: wrap to the next anchored boundary
			c.segStart = c.segStart.Add(seg.Duration)
			c.segIndex = (c.segIndex + 1) % len(c.burst)
			c.segEmitted = 0
			deadline = c.segStart
		}
	}

	if c.duration > 0 && deadline.Sub(c.start) >= c.duration {
		return time.Time{}, false
	}

	return deadline, true
}

// Incr records one emitted line.
func (c *Controller) Incr() {
	c.emitted++
	c.segEmitted++
}

// Emitted returns the number of lines recorded so far.
func (c *Controller) Emitted() int64 {
	return c.emitted
}

// Wait blocks until the deadline, or until the context is cancelled. This
// is the only blocking operation in a stream's pipeline.
func (c *Controller) Wait(ctx context.Context, deadline time.Time) error {
	pause := time.Until(deadline)
	if pause <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(pause)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// offsetFor computes the anchored offset of the nth line at the given rate.
func offsetFor(n int64, r float64) time.Duration {
	return time.Duration(float64(n) / r * float64(time.Second))
}
