package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/svg2avd/internal/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP conversion API",
		Long: `Run an HTTP server that converts SVG request bodies.

  GET  /healthz              session state
  POST /v1/convert?name=x    SVG body in, vector drawable XML out

Warnings are answered with 422 and a JSON body listing them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			spinner := newSpinner(ctx, os.Stderr, "Starting render session...")
			spinner.Start()
			conv, err := c.openSession(ctx, cfg)
			if err != nil {
				spinner.StopWithError("Render session failed to start")
				return err
			}
			spinner.StopWithSuccess("Render session ready")
			defer conv.End()

			runner, err := c.newRunner(ctx, cfg, conv, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			srv := server.New(server.Options{
				Runner:         runner,
				Session:        conv,
				Logger:         c.Logger,
				MaxBodyBytes:   cfg.Server.MaxBodyBytes,
				RequestTimeout: cfg.Session.RequestTimeout.Duration,
			})
			printInfo("Serving on %s", StyleHighlight.Render(cfg.Server.Addr))
			return srv.ListenAndServe(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the artifact cache")

	return cmd
}
