package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tracegraph/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the rendered image cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached tick images",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			if cfg.Cache.RedisURL != "" {
				rc, err := cache.NewRedisCache(cmd.Context(), cfg.Cache.RedisURL)
				if err != nil {
					return err
				}
				defer rc.Close()
				pattern := cfg.Cache.Prefix + "image:*"
				count, err := rc.Clear(cmd.Context(), pattern)
				if err != nil {
					return fmt.Errorf("clear redis cache: %w", err)
				}
				printSuccess("Cleared %d cached entries", count)
				printDetail("Redis keys: %s", pattern)
				return nil
			}

			dir, err := cfg.CacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				printInfo("Cache is empty")
				return nil
			}

			fc, err := cache.NewFileCache(dir)
			if err != nil {
				return err
			}
			count, err := fc.Clear()
			if err != nil {
				return err
			}
			printSuccess("Cleared %d cached entries", count)
			printDetail("Directory: %s", dir)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache location",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Cache.RedisURL != "" {
				fmt.Fprintln(cmd.OutOrStdout(), cfg.Cache.RedisURL)
				return nil
			}
			dir, err := cfg.CacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}
