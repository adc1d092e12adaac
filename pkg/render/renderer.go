package render

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	apperrors "github.com/matzehuels/tracegraph/pkg/errors"
	"github.com/matzehuels/tracegraph/pkg/toolexec"
	"github.com/matzehuels/tracegraph/pkg/trace"
)

// Renderer draws a single tick graph.
type Renderer interface {
	// Render writes doc.Source to graphPath and the rendered image to
	// imagePath. Failures are returned as *errors.RenderError.
	Render(ctx context.Context, doc trace.GraphDocument, format, graphPath, imagePath string) error

	// Tools lists the external programs the renderer needs.
	Tools() []toolexec.Tool
}

// Option configures a DotRenderer or ConvertCompositor.
type Option func(*options)

type options struct {
	runner toolexec.Runner
	binary string
	logger *log.Logger
}

// WithRunner sets the process runner. The default is an ExecRunner without
// a timeout.
func WithRunner(r toolexec.Runner) Option {
	return func(o *options) { o.runner = r }
}

// WithBinary overrides the tool binary name or path.
func WithBinary(binary string) Option {
	return func(o *options) { o.binary = binary }
}

// WithLogger sets the logger used for per-call debug output.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.runner == nil {
		o.runner = toolexec.NewExecRunner(0)
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard)
	}
	return o
}

// DotRenderer renders through the external Graphviz dot binary.
type DotRenderer struct {
	tool   toolexec.Tool
	runner toolexec.Runner
	logger *log.Logger
}

// NewDotRenderer creates a renderer invoking dot.
func NewDotRenderer(opts ...Option) *DotRenderer {
	o := buildOptions(opts)
	return &DotRenderer{
		tool:   toolexec.Dot.WithBinary(o.binary),
		runner: o.runner,
		logger: o.logger,
	}
}

// Tools returns the dot tool.
func (r *DotRenderer) Tools() []toolexec.Tool {
	return []toolexec.Tool{r.tool}
}

// Render writes the graph file and runs dot -T<format> -o <image> <graph>.
func (r *DotRenderer) Render(ctx context.Context, doc trace.GraphDocument, format, graphPath, imagePath string) error {
	if err := writeGraph(doc, graphPath); err != nil {
		return err
	}

	cmd := toolexec.Command{
		Name: r.tool.Binary,
		Args: []string{"-T" + format, "-o", imagePath, graphPath},
	}
	r.logger.Debug("rendering tick", "position", doc.Position, "tick", doc.Tick, "cmd", cmd)

	out, err := r.runner.Run(ctx, cmd)
	if err != nil {
		return &apperrors.RenderError{
			Position: doc.Position,
			Tick:     doc.Tick,
			Output:   out.Combined(),
			Cause:    err,
		}
	}
	return nil
}

// writeGraph stores the tick source at path.
func writeGraph(doc trace.GraphDocument, path string) error {
	if err := os.WriteFile(path, []byte(doc.Source), 0644); err != nil {
		return &apperrors.RenderError{
			Position: doc.Position,
			Tick:     doc.Tick,
			Cause:    fmt.Errorf("write graph: %w", err),
		}
	}
	return nil
}

var _ Renderer = (*DotRenderer)(nil)
