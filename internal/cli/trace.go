package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tracegraph/pkg/config"
	"github.com/matzehuels/tracegraph/pkg/engine"
	"github.com/matzehuels/tracegraph/pkg/toolexec"
)

// traceFileName is the raw trace written by --save-trace.
const traceFileName = "trace.txt"

// traceCommand creates the trace command, which runs the engine and renders
// its output in one step.
func (c *CLI) traceCommand() *cobra.Command {
	var (
		flags     renderFlags
		root      string
		matchType string
		saveTrace bool
	)

	cmd := &cobra.Command{
		Use:   "trace <regexp> <text>",
		Short: "Trace a regexp match with the engine and render it",
		Long: `Trace runs the engine's matcher in tracing mode on a pattern and an input
text, then renders the resulting trace like "tracegraph render".

The engine binary is looked up below the project root (--root or "root" in
the config file). If it does not exist, the configured build command runs
first. The external render tools are checked before the engine runs.`,
		Example: `  tracegraph trace --root ~/src/regexp 'a(b|c)*d' abcbd
  tracegraph trace --match-type first --format svg 'x+' xxx`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(flags.apply(cmd), func(cfg *config.Config) {
				if cmd.Flags().Changed("root") {
					cfg.Root = root
				}
				if cmd.Flags().Changed("match-type") {
					cfg.Engine.MatchType = matchType
				}
			})
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			// Missing renderer tools fail before the engine builds or runs.
			p, cleanup, err := c.newPipeline(ctx, cfg, flags.noCache)
			defer cleanup()
			if err != nil {
				return err
			}
			if err := p.Preflight(); err != nil {
				return err
			}

			driver, err := engine.NewDriver(cfg.EngineBinary(),
				engine.WithBuildCommand(cfg.EngineBuildCommand()),
				engine.WithMatchType(cfg.Engine.MatchType),
				engine.WithRunner(toolexec.NewExecRunner(cfg.ToolTimeout.Duration)),
				engine.WithLogger(c.Logger),
			)
			if err != nil {
				return err
			}

			prog := newProgress(c.Logger)
			raw, err := driver.Trace(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Traced %q against %q", args[0], args[1]))

			if saveTrace {
				path, err := writeTrace(cfg.TargetDir, raw)
				if err != nil {
					return err
				}
				printInfo("Saved trace to %s", path)
			}

			_, err = c.run(ctx, p, raw)
			return err
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&root, "root", "", "engine project root")
	cmd.Flags().StringVar(&matchType, "match-type", "", "engine match type: full or first (default full)")
	cmd.Flags().BoolVar(&saveTrace, "save-trace", false, "also write the raw trace to <target-dir>/"+traceFileName)
	return cmd
}

// writeTrace stores the raw trace under dir.
func writeTrace(dir, raw string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create target dir: %w", err)
	}
	path := filepath.Join(dir, traceFileName)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		return "", fmt.Errorf("save trace: %w", err)
	}
	return path, nil
}
