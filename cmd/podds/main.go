package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/richard-senior/podds/internal/logger"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "podds",
		Short:         "Football match probability simulation",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default podds.yaml or $PODDS_CONFIG)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, inform, highlight, warn, error or fatal")

	root.AddCommand(
		simulateCmd(a),
		contextCmd(a),
		batchCmd(a),
		verifyCmd(a),
		serveCmd(a),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger.Error("podds:", err.Error())
		stop()
		os.Exit(1)
	}
}
