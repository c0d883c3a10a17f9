package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
	"github.com/relistan/rubberneck"
	log "github.com/sirupsen/logrus"

	"github.com/lance0/logsynth/rate"
	"github.com/lance0/logsynth/reporter"
	"github.com/lance0/logsynth/sink"
	"github.com/lance0/logsynth/stream"
	"github.com/lance0/logsynth/template"
)

type Config struct {
	Templates []string `envconfig:"TEMPLATES" required:"true"`

	Rate      float64       `envconfig:"RATE" default:"10"`
	SplitRate bool          `envconfig:"SPLIT_RATE" default:"false"`
	Count     int64         `envconfig:"COUNT"`
	Duration  time.Duration `envconfig:"DURATION"`
	Burst     string        `envconfig:"BURST"`

	Format  string  `envconfig:"FORMAT"`
	Corrupt float64 `envconfig:"CORRUPT"`
	Seed    int64   `envconfig:"SEED"`

	Output         string        `envconfig:"OUTPUT" default:"-"`
	SyslogAddress  string        `envconfig:"SYSLOG_ADDRESS"`
	RateLimit      int           `envconfig:"RATE_LIMIT"`
	RateLimitEvery time.Duration `envconfig:"RATE_LIMIT_EVERY" default:"1s"`

	ReportURL      string        `envconfig:"REPORT_URL"`
	ReportInterval time.Duration `envconfig:"REPORT_INTERVAL" default:"1m"`

	Preview      bool `envconfig:"PREVIEW"`
	PreviewCount int  `envconfig:"PREVIEW_COUNT" default:"5"`
}

// loadTemplates reads and validates every configured template file.
func loadTemplates(paths []string) ([]*template.Template, error) {
	templates := make([]*template.Template, 0, len(paths))

	for _, path := range paths {
		tmpl, err := template.LoadFile(path)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tmpl)
	}

	return templates, nil
}

// buildSink assembles the output sink for the run, optionally wrapped in a
// rate limiter that counts drops into the reporter.
func buildSink(config *Config, counters *reporter.RunReporter) (sink.Sink, error) {
	var (
		out sink.Sink
		err error
	)

	switch {
	case config.SyslogAddress != "":
		out, err = sink.NewUDPSyslogSink(
			map[string]string{"Source": "logsynth"}, config.SyslogAddress,
		)
		if err != nil {
			return nil, err
		}
	case config.Output == "" || config.Output == "-":
		out = sink.NewStdoutSink()
	default:
		out, err = sink.NewFileSink(config.Output)
		if err != nil {
			return nil, err
		}
	}

	if config.RateLimit > 0 {
		out = sink.NewRateLimitedSink(
			counters, config.RateLimit, config.RateLimitEvery, "logsynth", out,
		)
	}

	return out, nil
}

// buildPlan maps one stream per template. Rate and count splitting mirror
// the behavior of running several templates against a shared budget.
func buildPlan(config *Config, templates []*template.Template, out sink.Sink) (stream.RunPlan, error) {
	var burst rate.Schedule
	if config.Burst != "" {
		var err error
		burst, err = rate.ParseBurst(config.Burst)
		if err != nil {
			return stream.RunPlan{}, err
		}
	}

	perStreamRate := config.Rate
	perStreamCount := config.Count
	if config.SplitRate && len(templates) > 1 {
		perStreamRate = config.Rate / float64(len(templates))
		if config.Count > 0 {
			perStreamCount = config.Count / int64(len(templates))
		}
	}

	// With no explicit stop condition, run for a day rather than forever
	duration := config.Duration
	if perStreamCount == 0 && duration == 0 {
		duration = 24 * time.Hour
	}

	plan := stream.RunPlan{Seed: config.Seed}
	for _, tmpl := range templates {
		plan.Streams = append(plan.Streams, stream.Config{
			Name:           tmpl.Name,
			Template:       tmpl,
			Rate:           perStreamRate,
			Burst:          burst,
			Count:          perStreamCount,
			Duration:       duration,
			Format:         config.Format,
			CorruptPercent: config.Corrupt,
			Sink:           out,
		})
	}

	return plan, nil
}

func main() {
	var config Config
	err := envconfig.Process("logsynth", &config)
	if err != nil {
		log.Fatal(err.Error())
	}
	rubberneck.Print(config)

	templates, err := loadTemplates(config.Templates)
	if err != nil {
		log.Fatal(err.Error())
	}

	if config.Preview {
		for _, tmpl := range templates {
			lines, err := stream.Preview(tmpl, config.Format, config.Seed, config.PreviewCount)
			if err != nil {
				log.Fatal(err.Error())
			}

			fmt.Printf("--- %s ---\n", tmpl.Name)
			for _, line := range lines {
				fmt.Println(line)
			}
		}
		return
	}

	counters := reporter.NewRunReporter(
		config.ReportURL, uuid.New().String(), config.ReportInterval,
	)

	out, err := buildSink(&config, counters)
	if err != nil {
		log.Fatal(err.Error())
	}

	plan, err := buildPlan(&config, templates, out)
	if err != nil {
		log.Fatal(err.Error())
	}

	orch, err := stream.NewOrchestrator(plan, counters)
	if err != nil {
		log.Fatal(err.Error())
	}

	// SIGINT/SIGTERM request a cooperative shutdown: in-flight lines
	// finish, sinks flush, then Run returns.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	counters.Run()
	results, runErr := orch.Run(ctx)
	counters.Stop()

	emitted, corrupted, dropped := counters.Snapshot()
	log.Infof("Run complete: %d emitted, %d corrupted, %d dropped", emitted, corrupted, dropped)
	for _, result := range results {
		log.Infof("  %s: %d lines", result.Stream, result.Emitted)
	}

	if runErr != nil {
		os.Exit(1)
	}
}
