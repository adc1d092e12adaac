// Package pipeline turns a trace into per-position composite images.
//
// The pipeline is shared by the render, trace and serve commands so that all
// entry points produce the same output layout.
//
// # Stages
//
//  1. Preflight: every external tool used by the renderer and compositor must
//     be on PATH. This runs before anything is written.
//  2. Directories: <target>, <target>/split and <target>/split/graphs are
//     created if missing.
//  3. Parse: the trace is split into positions and ticks.
//  4. Render: the ticks of a position are rendered concurrently, bounded by
//     [Options.Jobs].
//  5. Composite: once every tick of the position is rendered, the images are
//     stacked into <target>/<p>_0.<format>.
//
// Positions are processed in trace order. The first failure stops the run;
// the partially filled [Result] is returned with the error so callers can
// report which positions completed. Nothing is retried.
//
// # Usage
//
//	p, err := pipeline.New(pipeline.Options{
//	    Format:    "png",
//	    TargetDir: "trace",
//	    Logger:    logger,
//	})
//	if err != nil {
//	    return err
//	}
//	result, err := p.Run(ctx, traceText)
package pipeline

import (
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tracegraph/pkg/errors"
	"github.com/matzehuels/tracegraph/pkg/render"
	"github.com/matzehuels/tracegraph/pkg/toolexec"
	"github.com/matzehuels/tracegraph/pkg/trace"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultFormat is the image format passed to the renderer.
	DefaultFormat = "png"

	// DefaultTargetDir is the output directory.
	DefaultTargetDir = "trace"

	// DefaultToolTimeout bounds each external tool invocation.
	DefaultToolTimeout = 30 * time.Second
)

// DefaultJobs returns the default render concurrency.
func DefaultJobs() int {
	return runtime.NumCPU()
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline.
type Options struct {
	Format    string          // Image format, e.g. "png" or "svg"
	TargetDir string          // Output root
	Delimiter trace.Delimiter // Position marker; zero value means trace.DefaultDelimiter

	Jobs        int           // Concurrent renders per position
	ToolTimeout time.Duration // Per-invocation timeout for the default tools

	// RunID identifies the run in the result and manifest. Generated when empty.
	RunID string

	// Renderer and Compositor default to dot and convert, each bounded by
	// ToolTimeout.
	Renderer   render.Renderer
	Compositor render.Compositor

	Logger *log.Logger
}

// ValidateAndSetDefaults checks the options and fills in defaults.
func (o *Options) ValidateAndSetDefaults() error {
	o.Format = strings.TrimSpace(o.Format)
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if err := errors.ValidateFormat(o.Format); err != nil {
		return err
	}
	if strings.TrimSpace(o.TargetDir) == "" {
		o.TargetDir = DefaultTargetDir
	}
	if o.Delimiter.Marker == "" {
		o.Delimiter = trace.DefaultDelimiter
	}
	if err := errors.ValidateMarker(o.Delimiter.Marker); err != nil {
		return err
	}
	if o.Jobs < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "jobs must not be negative, got %d", o.Jobs)
	}
	if o.Jobs == 0 {
		o.Jobs = DefaultJobs()
	}
	if o.ToolTimeout < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "tool timeout must not be negative, got %s", o.ToolTimeout)
	}
	if o.ToolTimeout == 0 {
		o.ToolTimeout = DefaultToolTimeout
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	runner := toolexec.NewExecRunner(o.ToolTimeout)
	if o.Renderer == nil {
		o.Renderer = render.NewDotRenderer(render.WithRunner(runner), render.WithLogger(o.Logger))
	}
	if o.Compositor == nil {
		o.Compositor = render.NewConvertCompositor(render.WithRunner(runner), render.WithLogger(o.Logger))
	}
	return nil
}

// Tools lists the external programs required by the renderer and compositor.
func (o *Options) Tools() []toolexec.Tool {
	var tools []toolexec.Tool
	if o.Renderer != nil {
		tools = append(tools, o.Renderer.Tools()...)
	}
	if o.Compositor != nil {
		tools = append(tools, o.Compositor.Tools()...)
	}
	return tools
}

// =============================================================================
// Result
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies the run.
	RunID string

	// Composites lists the composite image paths in position order.
	Composites []string

	// Positions holds one entry per completed position.
	Positions []PositionResult

	// Manifest is the path of the run manifest, set on success.
	Manifest string

	// Stats contains timing and size information.
	Stats Stats
}

// PositionResult describes the files produced for one position.
type PositionResult struct {
	Index     int
	Graphs    []string // Raw tick graphs, in tick order
	Images    []string // Rendered tick images, in tick order
	Composite string
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Positions     int // Positions found in the trace
	Ticks         int // Ticks found in the trace
	ParseTime     time.Duration
	RenderTime    time.Duration
	CompositeTime time.Duration
	Duration      time.Duration
}

// Completed returns the indexes of the positions that finished.
func (r *Result) Completed() []int {
	out := make([]int, len(r.Positions))
	for i, p := range r.Positions {
		out[i] = p.Index
	}
	return out
}
