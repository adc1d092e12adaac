package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tracegraph/pkg/config"
)

// configCommand creates the config command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			return cfg.Encode(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(c.configInitCommand())
	return cmd
}

// configInitCommand creates the "config init" subcommand.
func (c *CLI) configInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file with the default settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if path, err = config.ExpandPath(args[0]); err != nil {
					return err
				}
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create config dir: %w", err)
			}
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create config: %w", err)
			}
			defaults := config.Default()
			if err := defaults.Encode(f); err != nil {
				f.Close()
				return fmt.Errorf("write config: %w", err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("write config: %w", err)
			}

			printSuccess("Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
