package sink

import (
	"fmt"
	"io"
	"strings"

	"github.com/Nitro/sidecar-executor/loghooks"
	log "github.com/sirupsen/logrus"
)

// A UDPSyslogSink relays generated lines over UDP syslog. We relay UDP
// because there is no backpressure issue to deal with, so slow consumers
// can never stall the pipeline.
type UDPSyslogSink struct {
	syslogger *log.Entry
}

// NewUDPSyslogSink returns a sink that ships lines to the given UDP address
// as JSON syslog payloads, tagged with the supplied labels.
func NewUDPSyslogSink(labels map[string]string, address string) (*UDPSyslogSink, error) {
	syslogger := log.New()

	hook, err := loghooks.NewUDPHook(address)
	if err != nil {
		return nil, fmt.Errorf("failed to set up UDP syslog hook for %s: %w", address, err)
	}

	syslogger.Hooks.Add(hook)
	syslogger.SetFormatter(&log.JSONFormatter{
		FieldMap: log.FieldMap{
			log.FieldKeyTime:  "Timestamp",
			log.FieldKeyLevel: "Level",
			log.FieldKeyMsg:   "Payload",
		},
	})
	syslogger.SetOutput(io.Discard)

	// Add one to the labels length to account for hostname
	logFields := make(log.Fields, len(labels)+1)
	for field, val := range labels {
		logFields[field] = val
	}

	return &UDPSyslogSink{
		syslogger: syslogger.WithFields(logFields),
	}, nil
}

// Write ships one line. Lines that look like errors are sent at error
// level so downstream consumers can exercise their severity handling.
func (s *UDPSyslogSink) Write(line string) error {
	if strings.Contains(strings.ToLower(line), "error") {
		s.syslogger.Error(line)
		return nil
	}

	s.syslogger.Info(line)
	return nil
}

// Close would clean up any resources if we needed to manage any
func (s *UDPSyslogSink) Close() error { return nil }
