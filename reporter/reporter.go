// Package reporter tracks per-run emission counters and periodically ships
// them to an optional stats collector endpoint.
package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
	loghttp "github.com/motemen/go-loghttp"
	director "github.com/relistan/go-director"
	log "github.com/sirupsen/logrus"
)

// A RunReporter counts emitted, corrupted, and dropped lines across all
// streams of a run, and reports the deltas to a collector as a JSON event
// on a timed loop. All counters are atomic: every stream increments them.
type RunReporter struct {
	client  *http.Client
	BaseURL string
	RunID   string

	emittedCount   uint64
	corruptedCount uint64
	droppedCount   uint64

	ReportLooper director.Looper
	hostname     string
}

// NewRunReporter returns a properly configured reporter. An empty URL
// yields a counter-only reporter whose Run is a no-op.
func NewRunReporter(url, runID string, interval time.Duration) *RunReporter {
	client := cleanhttp.DefaultClient()
	client.Transport = &loghttp.Transport{
		LogRequest: func(req *http.Request) {
			log.Debugf("stats POST %s", req.URL)
		},
		LogResponse: func(resp *http.Response) {
			log.Debugf("stats response %d from %s", resp.StatusCode, resp.Request.URL)
		},
		Transport: http.DefaultTransport,
	}

	hostname, err := os.Hostname()
	if err != nil {
		log.Fatal("Unable to determine hostname! Can't continue")
	}

	return &RunReporter{
		client:       client,
		BaseURL:      url,
		RunID:        runID,
		ReportLooper: director.NewTimedLooper(director.FOREVER, interval, make(chan error)),
		hostname:     hostname,
	}
}

// IncrEmitted atomically counts one line handed to a sink.
func (r *RunReporter) IncrEmitted() {
	atomic.AddUint64(&r.emittedCount, 1)
}

// IncrCorrupted atomically counts one line the corruption engine mutated.
func (r *RunReporter) IncrCorrupted() {
	atomic.AddUint64(&r.corruptedCount, 1)
}

// IncrDropped atomically counts one line a rate-limited sink refused.
func (r *RunReporter) IncrDropped() {
	atomic.AddUint64(&r.droppedCount, 1)
}

// Snapshot returns the current counter values.
func (r *RunReporter) Snapshot() (emitted, corrupted, dropped uint64) {
	return atomic.LoadUint64(&r.emittedCount),
		atomic.LoadUint64(&r.corruptedCount),
		atomic.LoadUint64(&r.droppedCount)
}

// Run starts a background goroutine that reports deltas to the collector on
// the looper's interval.
func (r *RunReporter) Run() {
	if r.BaseURL == "" {
		return
	}

	log.Infof("Starting up stats reporter for run '%s'", r.RunID)

	go r.ReportLooper.Loop(func() error {
		// Read the current counts and subtract them from the totals using
		// atomic operations so no increments are lost between reports.
		emitted := atomic.LoadUint64(&r.emittedCount)
		atomic.AddUint64(&r.emittedCount, 0-emitted)

		corrupted := atomic.LoadUint64(&r.corruptedCount)
		atomic.AddUint64(&r.corruptedCount, 0-corrupted)

		dropped := atomic.LoadUint64(&r.droppedCount)
		atomic.AddUint64(&r.droppedCount, 0-dropped)

		if emitted > 0 || corrupted > 0 || dropped > 0 {
			err := r.sendEvent(emitted, corrupted, dropped)
			// We _don't_ want to exit on error
			if err != nil {
				log.Errorf("Error reporting run stats: %s", err)
			}
		}

		return nil
	})
}

// Stop halts the report loop.
func (r *RunReporter) Stop() {
	if r.BaseURL == "" {
		return
	}
	r.ReportLooper.Quit()
}

// sendEvent serializes the counters and POSTs them to the collector
func (r *RunReporter) sendEvent(emitted, corrupted, dropped uint64) error {
	data, err := json.Marshal(struct {
		Time      string
		Hostname  string
		RunID     string
		Emitted   uint64
		Corrupted uint64
		Dropped   uint64
		EventType string `json:"eventType"`
	}{
		Time:      time.Now().UTC().Format(time.RFC3339),
		Hostname:  r.hostname,
		RunID:     r.RunID,
		Emitted:   emitted,
		Corrupted: corrupted,
		Dropped:   dropped,
		EventType: "LogSynthRunStats",
	})
	if err != nil {
		return fmt.Errorf("Unable to encode JSON event: %s", err)
	}

	req, err := http.NewRequest("POST", r.BaseURL, bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("Unable to create http request: %s", err)
	}
	req.Header.Add("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("Failed making HTTP request to collector: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Bad response from collector: %s", string(body))
	}

	return nil
}
