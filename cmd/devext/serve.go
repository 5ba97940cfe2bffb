package main

import (
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/devext/internal/infrastructure/server"
)

func newServeCmd() *cobra.Command {
	var host, port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tool dispatcher over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port != "" {
				cfg.Server.Port = port
			}

			srv, err := server.NewServer(cfg)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (default $HOST or 127.0.0.1)")
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (default $PORT or 8000)")
	return cmd
}
