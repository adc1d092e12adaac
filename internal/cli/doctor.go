package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/tracegraph/pkg/config"
	"github.com/matzehuels/tracegraph/pkg/engine"
	apperrors "github.com/matzehuels/tracegraph/pkg/errors"
	"github.com/matzehuels/tracegraph/pkg/toolexec"
)

// doctorCommand creates the doctor command.
func (c *CLI) doctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the external tools are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			tools, err := doctorTools(cfg)
			if err != nil {
				return err
			}

			missing := 0
			for _, status := range toolexec.CheckAll(tools) {
				t := status.Tool
				switch {
				case status.Available:
					printSuccess("%-10s %s", t.Name, status.Path)
				case t.Optional:
					printWarning("%-10s %s", t.Name, status.Detail)
					printDetail("%s", t.Hint)
				default:
					missing++
					printError("%-10s %s", t.Name, status.Detail)
					printDetail("%s", t.Hint)
				}
			}

			if missing > 0 {
				return apperrors.New(apperrors.ErrCodeToolUnavailable, "%d required tool(s) missing", missing)
			}
			return nil
		},
	}
}

// doctorTools lists the tools the configuration depends on. The engine is
// optional: render works without it. With the embedded renderer, dot is
// optional too.
func doctorTools(cfg *config.Config) ([]toolexec.Tool, error) {
	dot := toolexec.Dot.WithBinary(cfg.DotBinary)
	dot.Optional = cfg.Renderer == config.RendererEmbedded

	driver, err := engine.NewDriver(cfg.EngineBinary(),
		engine.WithBuildCommand(cfg.EngineBuildCommand()),
		engine.WithMatchType(cfg.Engine.MatchType),
	)
	if err != nil {
		return nil, err
	}

	return []toolexec.Tool{
		dot,
		toolexec.Convert.WithBinary(cfg.ConvertBinary),
		driver.Tool(),
	}, nil
}
