package main

import (
	"github.com/spf13/cobra"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/server"
	"github.com/richard-senior/podds/pkg/tools"
	"github.com/richard-senior/podds/pkg/transport"
)

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulation tools over MCP on stdio",
		Long: `Runs a Model Context Protocol server on stdin/stdout. Logs go to stderr or
the log file so stdout carries only JSON-RPC messages.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			predictor, err := a.predictor()
			if err != nil {
				return err
			}
			p := &tools.Podds{
				Config:    a.engine(),
				Predictor: predictor,
			}
			if a.cfg.Store.Enabled {
				s, err := a.openStore()
				if err != nil {
					return err
				}
				defer s.Close()
				p.Store = s
				logger.Info("Recording simulations to", a.cfg.Store.Path)
			}

			srv := server.New("podds", version, transport.NewStdioTransport())
			srv.RegisterTools(p.Tools())
			return srv.Start()
		},
	}
}
