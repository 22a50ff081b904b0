package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/blog/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Port = port
				if err := a.cfg.Validate(); err != nil {
					return err
				}
			}
			if a.cfg.Path != "" {
				a.logger.Info("loaded config", slog.String("path", a.cfg.Path))
			}

			srv, err := server.New(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			// Start blocks until SIGINT/SIGTERM and closes the stores.
			return srv.Start()
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config and $PORT)")
	return cmd
}
