package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	apperrors "github.com/matzehuels/tracegraph/pkg/errors"
	"github.com/matzehuels/tracegraph/pkg/trace"
)

// checkCommand creates the check command, which parses a trace and checks
// every tick's DOT syntax without running external tools.
func (c *CLI) checkCommand() *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "check <trace-file|->",
		Short: "Parse a trace and validate its graphs",
		Long: `Check splits a trace the same way render does and validates the DOT source
of every tick with the embedded Graphviz parser. It needs neither dot nor
convert and writes no files.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(flags.apply(cmd))
			if err != nil {
				return err
			}
			delimiter, err := cfg.ResolvedDelimiter()
			if err != nil {
				return err
			}
			raw, err := readTrace(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			prog := newProgress(c.Logger)
			positions := trace.NewParser(delimiter, c.Logger).Parse(raw)
			ticks := trace.CountTicks(positions)

			validator, err := trace.NewValidator(cmd.Context())
			if err != nil {
				return err
			}
			defer validator.Close()

			invalid := 0
			for _, pos := range positions {
				for _, doc := range pos.Ticks {
					if err := validator.Validate(doc); err != nil {
						invalid++
						printError("%s: %v", doc, err)
					}
				}
			}
			prog.done(fmt.Sprintf("Checked %d ticks", ticks))

			printKeyValue("Delimiter", delimiter.String())
			printKeyValue("Positions", fmt.Sprint(len(positions)))
			printKeyValue("Ticks", fmt.Sprint(ticks))
			if tail := trace.Tail(raw, delimiter); tail != "" {
				printWarning("Trace ends without a marker; the last %d bytes are not a position", len(tail))
			}
			if len(positions) == 0 {
				printWarning("No position markers found")
				printDetail("Try another profile with --delimiter (%v) or set --marker", trace.DelimiterNames())
			}

			if invalid > 0 {
				return apperrors.New(apperrors.ErrCodeInvalidInput, "%d of %d ticks are not valid DOT", invalid, ticks)
			}
			printSuccess("All %d ticks are valid DOT", ticks)
			return nil
		},
	}

	flags.registerDelimiter(cmd)
	return cmd
}
