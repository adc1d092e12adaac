package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tracegraph/pkg/config"
	apperrors "github.com/matzehuels/tracegraph/pkg/errors"
	"github.com/matzehuels/tracegraph/pkg/pipeline"
	"github.com/matzehuels/tracegraph/pkg/trace"
)

// renderFlags holds the command-line overrides shared by render, trace and
// serve. Only flags the user set replace config file values.
type renderFlags struct {
	format    string
	targetDir string
	delimiter string
	marker    string
	renderer  string
	jobs      int
	noCache   bool
}

// register adds the output flags to cmd.
func (f *renderFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.format, "format", "f", "", "image format passed to dot -T (default png)")
	flags.StringVarP(&f.targetDir, "target-dir", "o", "", "output directory (default trace)")
	f.registerDelimiter(cmd)
	flags.StringVar(&f.renderer, "renderer", "", "renderer: dot or embedded (default dot)")
	flags.IntVarP(&f.jobs, "jobs", "j", 0, "concurrent renders per position (default number of CPUs)")
	flags.BoolVar(&f.noCache, "no-cache", false, "render every tick even if a cached image exists")
}

// registerDelimiter adds only the trace format flags.
func (f *renderFlags) registerDelimiter(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.delimiter, "delimiter", "", fmt.Sprintf("position marker profile: %v (default index)", trace.DelimiterNames()))
	flags.StringVar(&f.marker, "marker", "", "custom position marker line, overrides --delimiter")
}

// apply returns a config override for the flags set on cmd.
func (f *renderFlags) apply(cmd *cobra.Command) func(*config.Config) {
	changed := cmd.Flags().Changed
	return func(cfg *config.Config) {
		if changed("format") {
			cfg.Format = f.format
		}
		if changed("target-dir") {
			cfg.TargetDir = f.targetDir
		}
		if changed("delimiter") {
			cfg.Delimiter = f.delimiter
			if !changed("marker") {
				cfg.Marker = ""
			}
		}
		if changed("marker") {
			cfg.Marker = f.marker
		}
		if changed("renderer") {
			cfg.Renderer = f.renderer
		}
		if changed("jobs") {
			cfg.Jobs = f.jobs
		}
	}
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render <trace-file|->",
		Short: "Render a matcher trace into per-position images",
		Long: `Render splits a matcher trace into positions and ticks, renders every tick
with Graphviz and stacks the ticks of each position into one image.

Output layout under the target directory:
  <p>_0.<fmt>               composite image of position p
  split/<p>_<t>.<fmt>       image of tick t
  split/graphs/<p>_<t>.dot  DOT source of tick t
  manifest.json             index of the files above

Use "-" to read the trace from stdin.`,
		Example: `  tracegraph render trace.txt
  tracegraph render --format svg --target-dir out trace.txt
  compinfo --trace_matching 'a+b' aab | tracegraph render -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(flags.apply(cmd))
			if err != nil {
				return err
			}
			raw, err := readTrace(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			_, err = c.render(cmd.Context(), cfg, flags.noCache, raw)
			return err
		},
	}

	flags.register(cmd)
	return cmd
}

// readTrace reads a trace file, or stdin for "-".
func readTrace(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "trace file %s not found", path)
	}
	if err != nil {
		return "", fmt.Errorf("read trace: %w", err)
	}
	return string(data), nil
}

// render runs the pipeline on raw and reports the outcome.
func (c *CLI) render(ctx context.Context, cfg *config.Config, noCache bool, raw string) (*pipeline.Result, error) {
	p, cleanup, err := c.newPipeline(ctx, cfg, noCache)
	defer cleanup()
	if err != nil {
		return nil, err
	}
	return c.run(ctx, p, raw)
}

// newPipeline builds a pipeline from cfg. The cleanup func must always be
// called.
func (c *CLI) newPipeline(ctx context.Context, cfg *config.Config, noCache bool) (*pipeline.Pipeline, func(), error) {
	opts, cleanup, err := c.pipelineOptions(ctx, cfg, noCache)
	if err != nil {
		return nil, cleanup, err
	}
	p, err := pipeline.New(opts)
	if err != nil {
		return nil, cleanup, err
	}
	return p, cleanup, nil
}

// run executes p on raw with progress reporting and prints the outcome.
func (c *CLI) run(ctx context.Context, p *pipeline.Pipeline, raw string) (*pipeline.Result, error) {
	var spinner *Spinner
	if c.interactive() {
		spinner = newSpinnerWithContext(ctx, "Parsing trace")
		spinner.Start()
	}
	c.progress.attach(spinner)

	result, err := p.Run(ctx, raw)

	counts := c.progress.detach()
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		if !isCanceled(err) {
			reportFailure(err, result)
		}
		return result, err
	}

	printRunSummary(p.Layout(), result, counts)
	return result, nil
}

// printRunSummary prints the composites of a successful run.
func printRunSummary(layout pipeline.Layout, result *pipeline.Result, counts runCounts) {
	if len(result.Positions) == 0 {
		printWarning("No complete positions in trace, nothing rendered")
		printDetail("Check the position marker with: %s check <trace-file>", appName)
		return
	}

	printSuccess("Rendered %d positions", len(result.Positions))
	printDetail("%s", runStatsLine(result.Stats.Ticks, counts, result.Stats.Duration))
	for _, pos := range result.Positions {
		printFile(pos.Composite)
	}
	printNewline()
	printKeyValue("Target", layout.Root)
	printKeyValue("Manifest", filepath.Base(layout.ManifestPath()))
	printNextStep("Step through the ticks", appName+" browse --target-dir "+layout.Root+" <trace-file>")
}

// reportFailure prints the failing coordinates, the captured tool output
// and the positions that completed before the failure.
func reportFailure(err error, result *pipeline.Result) {
	var renderErr *apperrors.RenderError
	var compErr *apperrors.CompositeError

	switch {
	case errors.As(err, &renderErr):
		printError("Render failed at position %d, tick %d: %v", renderErr.Position, renderErr.Tick, renderErr.Cause)
		printOutput(renderErr.Output)
	case errors.As(err, &compErr):
		printError("Composite failed at position %d: %v", compErr.Position, compErr.Cause)
		printOutput(compErr.Output)
	default:
		return
	}

	if result == nil {
		return
	}
	if done := result.Completed(); len(done) > 0 {
		printDetail("Completed positions: %s", formatPositions(done))
	} else {
		printDetail("No positions completed")
	}
}
