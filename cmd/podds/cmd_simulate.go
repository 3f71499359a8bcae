package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/podds/batch"
	"github.com/richard-senior/podds/pkg/podds/snapshot"
	"github.com/richard-senior/podds/pkg/podds/store"
	"github.com/richard-senior/podds/pkg/tools"
)

type simulateOutput struct {
	batch.Result
	RecordIDs []string `json:"recordIds,omitempty"`
}

// marketFlags are shared by simulate and batch
type marketFlags struct {
	market string
	lines  []float64
	format string
	now    string
	store  bool
	sanity bool
}

func (m *marketFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&m.market, "market", "all", "match, goals, btts, firsthalf, a comma separated list or all")
	cmd.Flags().Float64SliceVar(&m.lines, "line", []float64{2.5}, "total goals lines")
	cmd.Flags().StringVar(&m.format, "format", tools.FormatJSON, "json or markdown")
	cmd.Flags().StringVar(&m.now, "now", "", "RFC3339 evaluation time (default fixture kickoff)")
	cmd.Flags().BoolVar(&m.store, "store", false, "record every simulation in the audit store")
	cmd.Flags().BoolVar(&m.sanity, "sanity", true, "run the sanity checks")
}

func (a *app) runner(m *marketFlags) (*batch.Runner, error) {
	markets, err := batch.ParseMarkets(m.market)
	if err != nil {
		return nil, err
	}
	predictor, err := a.predictor()
	if err != nil {
		return nil, err
	}
	return &batch.Runner{
		Workers:   a.cfg.Batch.Workers,
		Config:    a.engine(),
		Predictor: predictor,
		Markets:   markets,
		Lines:     m.lines,
		Sanity:    m.sanity,
	}, nil
}

// record stores every simulation of res and returns the record ids. The input
// hash uses the time the fixture was actually evaluated at.
func record(s *store.Store, r *batch.Runner, f *snapshot.Fixture, res batch.Result) ([]string, error) {
	input := r.Input(f, res.EvaluatedAt)
	ids := make([]string, 0, len(res.Simulations))
	for _, sim := range res.Simulations {
		rec, err := s.Record(f.ID, input, sim)
		if err != nil {
			return nil, err
		}
		ids = append(ids, rec.ID)
	}
	logger.Info("Recorded", len(ids), "simulations for", f.ID)
	return ids, nil
}

func writeResult(w io.Writer, format string, out simulateOutput) error {
	if format == tools.FormatJSON {
		return writeJSON(w, out)
	}
	title := fmt.Sprintf("%s vs %s", out.Home, out.Away)
	ctx, err := tools.ContextReport(title, out.Context)
	if err != nil {
		return err
	}
	sims, err := tools.SimulationReport("Markets", out.Simulations, out.Warnings)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, ctx, "\n", sims); err != nil {
		return err
	}
	for _, id := range out.RecordIDs {
		fmt.Fprintln(w, "Record:", id)
	}
	return nil
}

func simulateCmd(a *app) *cobra.Command {
	var (
		fixturePath string
		flags       marketFlags
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Price one fixture",
		Example: `  podds simulate --fixture fixtures/elclasico.json
  podds simulate --fixture fixtures/nld.html.br --market goals --line 1.5,2.5,3.5 --format markdown
  podds simulate --fixture fixtures/relegation.yaml --market match --store`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := checkFormat(flags.format)
			if err != nil {
				return err
			}
			f, err := snapshot.Load(fixturePath)
			if err != nil {
				return err
			}
			r, err := a.runner(&flags)
			if err != nil {
				return err
			}
			now, err := resolveNow(flags.now, f)
			if err != nil {
				return err
			}
			res, err := r.Simulate(f, now)
			if err != nil {
				return err
			}

			out := simulateOutput{Result: res}
			if flags.store {
				s, err := a.openStore()
				if err != nil {
					return err
				}
				defer s.Close()
				if out.RecordIDs, err = record(s, r, f, res); err != nil {
					return err
				}
			}
			return writeResult(cmd.OutOrStdout(), format, out)
		},
	}
	cmd.Flags().StringVar(&fixturePath, "fixture", "", "fixture snapshot file")
	cmd.MarkFlagRequired("fixture")
	flags.register(cmd)
	return cmd
}

func contextCmd(a *app) *cobra.Command {
	var fixturePath, now, formatFlag string
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Show the detected match context of a fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := checkFormat(formatFlag)
			if err != nil {
				return err
			}
			f, err := snapshot.Load(fixturePath)
			if err != nil {
				return err
			}
			at, err := resolveNow(now, f)
			if err != nil {
				return err
			}
			mc := f.Context(at)
			if format == tools.FormatJSON {
				return writeJSON(cmd.OutOrStdout(), mc)
			}
			md, err := tools.ContextReport(fmt.Sprintf("%s vs %s", f.Home.Name, f.Away.Name), mc)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), md)
			return err
		},
	}
	cmd.Flags().StringVar(&fixturePath, "fixture", "", "fixture snapshot file")
	cmd.Flags().StringVar(&now, "now", "", "RFC3339 evaluation time (default fixture kickoff)")
	cmd.Flags().StringVar(&formatFlag, "format", tools.FormatJSON, "json or markdown")
	cmd.MarkFlagRequired("fixture")
	return cmd
}
