package main

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/podds/batch"
	"github.com/richard-senior/podds/pkg/podds/snapshot"
	"github.com/richard-senior/podds/pkg/tools"
)

func batchCmd(a *app) *cobra.Command {
	var (
		dir     string
		workers int
		flags   marketFlags
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Price every fixture snapshot in a directory",
		Example: `  podds batch --dir fixtures/
  podds batch --dir fixtures/ --workers 8 --market goals --line 2.5,3.5 --store`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := checkFormat(flags.format)
			if err != nil {
				return err
			}
			fixtures, err := snapshot.LoadDir(dir)
			if err != nil {
				return err
			}
			if len(fixtures) == 0 {
				return fmt.Errorf("no fixtures found in %s", dir)
			}
			r, err := a.runner(&flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				r.Workers = workers
			}
			reg := prometheus.NewRegistry()
			r.Recorder = batch.NewRecorder(reg)

			// a fixed --now applies to every fixture, otherwise each uses its kickoff
			// and fixtures without one share a single clock reading
			var now time.Time
			if flags.now != "" {
				if now, err = resolveNow(flags.now, nil); err != nil {
					return err
				}
			}

			start := time.Now()
			results, err := r.Run(cmd.Context(), fixtures, now)
			if err != nil {
				return err
			}
			logger.Info("Batch finished in", time.Since(start).String())
			logMetrics(reg)

			outs := make([]simulateOutput, len(results))
			for i, res := range results {
				outs[i] = simulateOutput{Result: res}
			}
			if flags.store {
				s, err := a.openStore()
				if err != nil {
					return err
				}
				defer s.Close()
				for i, f := range fixtures {
					if outs[i].RecordIDs, err = record(s, r, f, results[i]); err != nil {
						return err
					}
				}
			}

			if format == tools.FormatJSON {
				return writeJSON(cmd.OutOrStdout(), outs)
			}
			for _, out := range outs {
				if err := writeResult(cmd.OutOrStdout(), format, out); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory of fixture snapshots")
	cmd.Flags().IntVar(&workers, "workers", batch.DefaultWorkers, "fixtures priced in parallel (default from config)")
	cmd.MarkFlagRequired("dir")
	flags.register(cmd)
	return cmd
}

// logMetrics writes the counters gathered during a batch to the log
func logMetrics(reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		logger.Warn("Could not gather metrics", err.Error())
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := ""
			for _, lp := range m.GetLabel() {
				labels += lp.GetName() + "=" + lp.GetValue() + " "
			}
			switch {
			case m.GetCounter() != nil:
				logger.Info(mf.GetName(), labels, m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				logger.Debug(mf.GetName(), labels, "count", h.GetSampleCount(), "sum", h.GetSampleSum())
			}
		}
	}
}
