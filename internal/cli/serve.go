package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tracegraph/pkg/config"
	"github.com/matzehuels/tracegraph/pkg/server"
	"github.com/matzehuels/tracegraph/pkg/toolexec"
)

const shutdownTimeout = 10 * time.Second

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		flags renderFlags
		addr  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the render pipeline over HTTP",
		Long: `Serve starts an HTTP API that renders posted traces.

  POST /runs          body is the trace text; query: format, delimiter, marker
  GET  /runs/{id}     manifest of a run
  GET  /runs/{id}/*   output file, e.g. /runs/{id}/0_0.png
  GET  /healthz       liveness probe

Each run is written to <target-dir>/<run-id>/.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(flags.apply(cmd), func(cfg *config.Config) {
				if cmd.Flags().Changed("addr") {
					cfg.Server.Addr = addr
				}
			})
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			opts, cleanup, err := c.pipelineOptions(ctx, cfg, flags.noCache)
			defer cleanup()
			if err != nil {
				return err
			}
			if err := opts.ValidateAndSetDefaults(); err != nil {
				return err
			}
			if err := toolexec.Check(opts.Tools()...); err != nil {
				c.Logger.Warn("runs will fail until the tool is installed", "error", err)
			}

			base, err := filepath.Abs(cfg.TargetDir)
			if err != nil {
				return err
			}
			ln, err := net.Listen("tcp", cfg.Server.Addr)
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			return c.serve(ctx, ln, server.New(base, opts, c.Logger), base)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default 127.0.0.1:7480)")
	return cmd
}

// serve runs handler on ln until ctx is cancelled, then shuts down
// gracefully. A clean shutdown returns nil.
func (c *CLI) serve(ctx context.Context, ln net.Listener, handler http.Handler, base string) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		c.Logger.Info("serving", "addr", ln.Addr().String(), "dir", base)
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
		c.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
