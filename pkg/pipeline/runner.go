package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/tracegraph/pkg/observability"
	"github.com/matzehuels/tracegraph/pkg/toolexec"
	"github.com/matzehuels/tracegraph/pkg/trace"
)

// Pipeline executes runs with a fixed set of options.
//
// A Pipeline holds no per-run state. Concurrent runs are safe as long as
// they use different target directories.
type Pipeline struct {
	opts   Options
	layout Layout
	parser *trace.Parser
}

// New validates opts and creates a pipeline.
func New(opts Options) (*Pipeline, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return &Pipeline{
		opts:   opts,
		layout: NewLayout(opts.TargetDir),
		parser: trace.NewParser(opts.Delimiter, opts.Logger),
	}, nil
}

// Options returns the effective options.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Layout returns the output layout.
func (p *Pipeline) Layout() Layout {
	return p.layout
}

// Preflight checks that every external tool is available.
// It returns a *errors.ToolUnavailableError for the first missing one.
func (p *Pipeline) Preflight() error {
	return toolexec.Check(p.opts.Tools()...)
}

// Run renders raw into the target directory.
//
// On failure the returned Result lists the positions that completed before
// the error.
func (p *Pipeline) Run(ctx context.Context, raw string) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: p.opts.RunID}
	if result.RunID == "" {
		result.RunID = uuid.NewString()
	}
	logger := p.opts.Logger.With("run", result.RunID)

	if err := p.Preflight(); err != nil {
		return result, err
	}
	if err := p.layout.Ensure(); err != nil {
		return result, fmt.Errorf("prepare output: %w", err)
	}
	// A manifest only describes the run that wrote it.
	if err := os.Remove(p.layout.ManifestPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return result, fmt.Errorf("remove stale manifest: %w", err)
	}

	hooks := observability.Pipeline()

	// Stage 1: Parse
	hooks.OnParseStart(ctx, len(raw))
	parseStart := time.Now()
	positions := p.parser.Parse(raw)
	result.Stats.ParseTime = time.Since(parseStart)
	result.Stats.Positions = len(positions)
	result.Stats.Ticks = trace.CountTicks(positions)
	hooks.OnParseComplete(ctx, result.Stats.Positions, result.Stats.Ticks, result.Stats.ParseTime, nil)

	logger.Info("parsed trace",
		"positions", result.Stats.Positions,
		"ticks", result.Stats.Ticks,
		"delimiter", p.opts.Delimiter.Name)

	// Stage 2: Render and composite, one position at a time
	for _, pos := range positions {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		pr, err := p.runPosition(ctx, pos, &result.Stats)
		if err != nil {
			return result, err
		}
		result.Positions = append(result.Positions, pr)
		result.Composites = append(result.Composites, pr.Composite)
		logger.Info("composited position",
			"position", pos.Index,
			"ticks", pos.TickCount(),
			"file", p.layout.Rel(pr.Composite))
	}

	// Stage 3: Manifest. A trace without positions produces no files.
	if len(result.Positions) > 0 {
		if err := writeManifest(p.layout, p.opts, result); err != nil {
			return result, err
		}
		result.Manifest = p.layout.ManifestPath()
	}
	result.Stats.Duration = time.Since(start)

	logger.Info("run complete",
		"positions", len(result.Positions),
		"duration", result.Stats.Duration)
	return result, nil
}

// runPosition renders every tick of pos, waits for all of them, then
// composites them.
func (p *Pipeline) runPosition(ctx context.Context, pos trace.Position, stats *Stats) (PositionResult, error) {
	hooks := observability.Pipeline()
	format := p.opts.Format

	pr := PositionResult{
		Index:     pos.Index,
		Graphs:    make([]string, len(pos.Ticks)),
		Images:    make([]string, len(pos.Ticks)),
		Composite: p.layout.CompositePath(pos.Index, format),
	}

	renderStart := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Jobs)
	for i, doc := range pos.Ticks {
		pr.Graphs[i] = p.layout.TickGraphPath(doc.Position, doc.Tick)
		pr.Images[i] = p.layout.TickImagePath(doc.Position, doc.Tick, format)
		graphPath, imagePath := pr.Graphs[i], pr.Images[i]

		g.Go(func() error {
			hooks.OnRenderStart(gctx, doc.Position, doc.Tick, format)
			tickStart := time.Now()
			err := p.opts.Renderer.Render(gctx, doc, format, graphPath, imagePath)
			hooks.OnRenderComplete(gctx, doc.Position, doc.Tick, time.Since(tickStart), err)
			if err != nil {
				return err
			}
			p.opts.Logger.Debug("rendered tick", "position", doc.Position, "tick", doc.Tick, "file", p.layout.Rel(imagePath))
			return nil
		})
	}
	err := g.Wait()
	stats.RenderTime += time.Since(renderStart)
	if err != nil {
		return PositionResult{}, err
	}

	hooks.OnCompositeStart(ctx, pos.Index, len(pr.Images))
	compositeStart := time.Now()
	err = p.opts.Compositor.Composite(ctx, pos.Index, pr.Images, pr.Composite)
	elapsed := time.Since(compositeStart)
	stats.CompositeTime += elapsed
	hooks.OnCompositeComplete(ctx, pos.Index, elapsed, err)
	if err != nil {
		return PositionResult{}, err
	}
	return pr, nil
}
