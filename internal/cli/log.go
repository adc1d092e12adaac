// Package cli implements the tracegraph command-line interface.
//
// This package provides commands for rendering regexp matcher traces into
// per-position images, driving the trace-producing engine, checking and
// browsing traces, serving the pipeline over HTTP and managing the image
// cache. The CLI is built using cobra and logs with charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - render: Split a trace into graphs, render each tick and stack each position
//   - trace: Run the matching engine on a pattern and text, then render the trace
//   - check: Parse a trace and validate the DOT of every tick without external tools
//   - browse: Step through positions and ticks interactively
//   - doctor: Report which external tools are available
//   - serve: Expose the pipeline as an HTTP API
//   - cache: Manage the rendered image cache
//   - config: Print or initialize the configuration file
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// replaces the progress spinner with per-tick log lines.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Traced match (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, p.elapsed())
}

// elapsed returns the time since start, rounded to the millisecond.
func (p *progress) elapsed() time.Duration {
	return time.Since(p.start).Round(time.Millisecond)
}
