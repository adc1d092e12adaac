// Package cli implements the tracegraph command-line interface.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tracegraph/pkg/buildinfo"
	"github.com/matzehuels/tracegraph/pkg/cache"
	"github.com/matzehuels/tracegraph/pkg/config"
	apperrors "github.com/matzehuels/tracegraph/pkg/errors"
	"github.com/matzehuels/tracegraph/pkg/observability"
	"github.com/matzehuels/tracegraph/pkg/pipeline"
	"github.com/matzehuels/tracegraph/pkg/render"
	"github.com/matzehuels/tracegraph/pkg/toolexec"
)

// =============================================================================
// Constants
// =============================================================================

const appName = "tracegraph"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	progress   *progressHooks
}

// New creates a new CLI instance with a default logger.
// It registers the progress hooks that feed the render spinner.
func New(w io.Writer, level log.Level) *CLI {
	c := &CLI{
		Logger:   newLogger(w, level),
		progress: newProgressHooks(),
	}
	observability.SetPipelineHooks(c.progress)
	observability.SetCacheHooks(c.progress)
	return c
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Tracegraph turns regexp matcher traces into images",
		Long: `Tracegraph splits a regexp matcher trace into per-position DOT graphs,
renders every tick with Graphviz and stacks each position's ticks into one image.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/tracegraph/config.toml)")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.traceCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.doctorCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig loads the config file and applies command-line overrides.
// Each override func runs before normalization and validation.
func (c *CLI) loadConfig(overrides ...func(*config.Config)) (*config.Config, error) {
	cfg, path, exists, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if exists {
		c.Logger.Debug("loaded config", "path", path)
	}
	if len(overrides) == 0 {
		return cfg, nil
	}
	for _, apply := range overrides {
		apply(cfg)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// =============================================================================
// Pipeline Factory
// =============================================================================

// pipelineOptions builds pipeline options from cfg. The returned cleanup
// func releases the renderer and cache and must always be called.
func (c *CLI) pipelineOptions(ctx context.Context, cfg *config.Config, noCache bool) (pipeline.Options, func(), error) {
	var closers []io.Closer
	cleanup := func() {
		for _, cl := range closers {
			if err := cl.Close(); err != nil {
				c.Logger.Debug("close", "error", err)
			}
		}
	}

	delimiter, err := cfg.ResolvedDelimiter()
	if err != nil {
		return pipeline.Options{}, cleanup, err
	}

	runner := toolexec.NewExecRunner(cfg.ToolTimeout.Duration)

	var renderer render.Renderer
	switch cfg.Renderer {
	case config.RendererEmbedded:
		embedded, err := render.NewEmbeddedRenderer(ctx)
		if err != nil {
			return pipeline.Options{}, cleanup, err
		}
		closers = append(closers, embedded)
		renderer = embedded
	default:
		renderer = render.NewDotRenderer(
			render.WithRunner(runner),
			render.WithBinary(cfg.DotBinary),
			render.WithLogger(c.Logger),
		)
	}

	if cfg.Cache.Enabled && !noCache {
		store, err := newCache(ctx, cfg)
		if err != nil {
			c.Logger.Warn("cache disabled", "error", err)
		} else {
			closers = append(closers, store)
			cached := render.NewCachingRenderer(renderer, store, newKeyer(cfg), c.Logger)
			cached.TTL = cfg.Cache.TTL.Duration
			renderer = cached
		}
	}

	opts := pipeline.Options{
		Format:      cfg.Format,
		TargetDir:   cfg.TargetDir,
		Delimiter:   delimiter,
		Jobs:        cfg.Jobs,
		ToolTimeout: cfg.ToolTimeout.Duration,
		Renderer:    renderer,
		Compositor: render.NewConvertCompositor(
			render.WithRunner(runner),
			render.WithBinary(cfg.ConvertBinary),
			render.WithLogger(c.Logger),
		),
		Logger: c.Logger,
	}
	return opts, cleanup, nil
}

// newCache opens the configured image cache: Redis when a URL is set,
// otherwise a file cache.
func newCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if cfg.Cache.RedisURL != "" {
		return cache.NewRedisCache(ctx, cfg.Cache.RedisURL)
	}
	dir, err := cfg.CacheDir()
	if err != nil {
		return nil, err
	}
	return cache.NewFileCache(dir)
}

func newKeyer(cfg *config.Config) cache.Keyer {
	if cfg.Cache.Prefix == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), cfg.Cache.Prefix)
}

// =============================================================================
// Helpers
// =============================================================================

// interactive reports whether progress spinners should be drawn.
// Debug logging and non-terminal stderr disable them.
func (c *CLI) interactive() bool {
	if c.Logger.GetLevel() <= log.DebugLevel {
		return false
	}
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

// ErrorMessage returns the text main prints for an error returned by a
// command. Tool failures were already reported with their captured output,
// so only their first line is kept.
func ErrorMessage(err error) string {
	var renderErr *apperrors.RenderError
	var compErr *apperrors.CompositeError
	if errors.As(err, &renderErr) || errors.As(err, &compErr) {
		msg, _, _ := strings.Cut(err.Error(), "\n")
		return msg
	}
	return err.Error()
}

// isCanceled reports whether err stems from an interrupted context.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
