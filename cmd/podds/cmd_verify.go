package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/podds"
	"github.com/richard-senior/podds/pkg/podds/batch"
	"github.com/richard-senior/podds/pkg/podds/snapshot"
	"github.com/richard-senior/podds/pkg/podds/store"
)

var errNotReproduced = errors.New("simulation not reproduced")

type verifyOutput struct {
	ID         string `json:"id"`
	FixtureID  string `json:"fixtureId"`
	Scenario   string `json:"scenario"`
	SameInput  bool   `json:"sameInput"`
	Reproduced bool   `json:"reproduced"`
}

func verifyCmd(a *app) *cobra.Command {
	var id, fixturePath, now string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Recompute a stored simulation and compare it byte for byte",
		Long: `Loads a simulation from the audit store, prices the fixture again with the
current configuration and models, and checks the result matches the stored
payload exactly. For a fixture without a kickoff pass the evaluatedAt reported
when the simulation was produced as --now.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.FindByID(id)
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
			sim, sameInput, err := recompute(a, rec, f, at)
			if err != nil {
				return err
			}
			ok, err := store.Verify(rec, sim)
			if err != nil {
				return err
			}

			out := verifyOutput{ID: rec.ID, FixtureID: rec.FixtureID, Scenario: rec.Scenario, SameInput: sameInput, Reproduced: ok}
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if !ok {
				if !sameInput {
					logger.Warn("Inputs differ from the recorded run", rec.InputHash)
				}
				return fmt.Errorf("%w: %s", errNotReproduced, rec.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "record id")
	cmd.Flags().StringVar(&fixturePath, "fixture", "", "fixture snapshot the record was produced from")
	cmd.Flags().StringVar(&now, "now", "", "RFC3339 evaluation time (default fixture kickoff)")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("fixture")
	return cmd
}

// recompute prices the record's market again
func recompute(a *app, rec *store.SimulationRecord, f *snapshot.Fixture, now time.Time) (podds.Simulation, bool, error) {
	market, ok := batch.MarketFor(podds.ScenarioType(rec.Scenario))
	if !ok {
		return podds.Simulation{}, false, fmt.Errorf("record %s has unknown scenario %q", rec.ID, rec.Scenario)
	}
	r, err := a.runner(&marketFlags{market: string(market)})
	if err != nil {
		return podds.Simulation{}, false, err
	}
	if rec.Line != nil {
		r.Lines = []float64{*rec.Line}
	}
	res, err := r.Simulate(f, now)
	if err != nil {
		return podds.Simulation{}, false, err
	}
	same, err := rec.SameInput(r.Input(f, now))
	if err != nil {
		return podds.Simulation{}, false, err
	}
	return res.Simulations[0], same, nil
}
