// Package batch prices many fixtures in parallel.
package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/podds"
	"github.com/richard-senior/podds/pkg/podds/sanity"
	"github.com/richard-senior/podds/pkg/podds/snapshot"
)

const DefaultWorkers = 4

type Market string

const (
	MarketMatch     Market = "match"
	MarketGoals     Market = "goals"
	MarketBTTS      Market = "btts"
	MarketFirstHalf Market = "firsthalf"
)

var AllMarkets = []Market{MarketMatch, MarketGoals, MarketBTTS, MarketFirstHalf}

// ParseMarkets reads "all" or a comma separated list of markets
func ParseMarkets(s string) ([]Market, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "all" {
		return AllMarkets, nil
	}
	var out []Market
	for _, part := range strings.Split(s, ",") {
		m := Market(strings.TrimSpace(part))
		switch m {
		case MarketMatch, MarketGoals, MarketBTTS, MarketFirstHalf:
			out = append(out, m)
		default:
			return nil, fmt.Errorf("unknown market %q (want match, goals, btts, firsthalf or all)", part)
		}
	}
	return out, nil
}

// MarketFor maps a scenario back to the market that produces it
func MarketFor(s podds.ScenarioType) (Market, bool) {
	switch s {
	case podds.ScenarioMatchResult:
		return MarketMatch, true
	case podds.ScenarioTotalGoals:
		return MarketGoals, true
	case podds.ScenarioBTTS:
		return MarketBTTS, true
	case podds.ScenarioFirstHalf:
		return MarketFirstHalf, true
	}
	return "", false
}

// Result is everything produced for one fixture
type Result struct {
	FixtureID   string             `json:"fixtureId"`
	Home        string             `json:"home"`
	Away        string             `json:"away"`
	Context     podds.MatchContext `json:"context"`
	EvaluatedAt time.Time          `json:"evaluatedAt"`
	Simulations []podds.Simulation `json:"simulations"`
	Warnings    []sanity.Warning   `json:"warnings,omitempty"`
}

// Input is what a simulation depends on, for hashing into the audit store
type Input struct {
	Fixture *snapshot.Fixture       `json:"fixture"`
	Now     time.Time               `json:"now"`
	Config  *podds.SimulationConfig `json:"config,omitempty"`
}

// Runner prices fixtures. The zero value prices every market at the 2.5
// line with default configuration.
type Runner struct {
	Workers   int
	Config    *podds.SimulationConfig
	Predictor podds.OverUnderPredictor
	Recorder  *Recorder
	Markets   []Market
	Lines     []float64
	Sanity    bool
	Clock     func() time.Time // fallback for fixtures without a kickoff, time.Now when nil
}

func (r *Runner) workers() int {
	if r.Workers < 1 {
		return DefaultWorkers
	}
	return r.Workers
}

func (r *Runner) markets() []Market {
	if len(r.Markets) == 0 {
		return AllMarkets
	}
	return r.Markets
}

func (r *Runner) lines() []float64 {
	if len(r.Lines) == 0 {
		return []float64{2.5}
	}
	return r.Lines
}

func (r *Runner) validate() error {
	if r.Config != nil {
		if err := podds.ValidateConfig(*r.Config); err != nil {
			return err
		}
	}
	for _, l := range r.lines() {
		if !podds.IsGoalLine(l) {
			return fmt.Errorf("%w: %v", podds.ErrUnsupportedLine, l)
		}
	}
	return nil
}

func (r *Runner) clock() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now()
}

// evaluationTime is now when set, else the kickoff, else fallback
func evaluationTime(f *snapshot.Fixture, now, fallback time.Time) time.Time {
	switch {
	case !now.IsZero():
		return now.UTC()
	case !f.Kickoff.IsZero():
		return f.Kickoff.UTC()
	}
	return fallback.UTC()
}

// Input describes the inputs of a fixture run for the audit store. Pass the
// result's EvaluatedAt so the hash matches what was simulated.
func (r *Runner) Input(f *snapshot.Fixture, now time.Time) Input {
	return Input{Fixture: f, Now: evaluationTime(f, now, time.Time{}), Config: r.Config}
}

// Simulate prices one fixture. A zero now means the fixture's kickoff, or
// the clock when there is none.
func (r *Runner) Simulate(f *snapshot.Fixture, now time.Time) (Result, error) {
	if err := r.validate(); err != nil {
		return Result{}, err
	}
	return r.simulate(f, evaluationTime(f, now, r.clock()))
}

func (r *Runner) simulate(f *snapshot.Fixture, at time.Time) (Result, error) {
	mc := f.Context(at)
	res := Result{FixtureID: f.ID, Home: f.Home.Name, Away: f.Away.Name, Context: mc, EvaluatedAt: at}
	opts := &podds.SimulationOptions{
		Predictor: r.Predictor,
		Meta:      podds.FeatureMeta{LeagueID: f.League.ID, Season: f.League.Season},
		Injuries:  f.Injuries,
	}

	run := func(sim podds.Simulation, start time.Time) {
		r.Recorder.Observe(sim, time.Since(start))
		if r.Sanity {
			res.Warnings = append(res.Warnings, sanity.CheckSimulation(sim)...)
		}
		res.Simulations = append(res.Simulations, sim)
	}

	for _, m := range r.markets() {
		start := time.Now()
		switch m {
		case MarketMatch:
			run(podds.SimulateMatchOutcome(f.Home, f.Away, f.H2H, &mc, r.Config, f.Injuries, nil), start)
		case MarketGoals:
			for _, line := range r.lines() {
				start = time.Now()
				sim, err := podds.SimulateTotalGoalsOverUnder(f.Home, f.Away, f.H2H, &mc, line, r.Config, nil, opts)
				if err != nil {
					return Result{}, err
				}
				run(sim, start)
			}
		case MarketBTTS:
			run(podds.SimulateBTTS(f.Home, f.Away, f.H2H, &mc, r.Config, nil, opts), start)
		case MarketFirstHalf:
			run(podds.SimulateFirstHalfActivity(f.Home, f.Away, f.H2H, &mc, r.Config, nil, opts), start)
		default:
			return Result{}, fmt.Errorf("unknown market %q", m)
		}
	}
	return res, nil
}

// Run prices fixtures with at most Workers in flight. A zero now means each
// fixture's kickoff, or one clock reading for fixtures without one. Results
// keep the input order. The first error cancels the remaining work; so does ctx.
func (r *Runner) Run(ctx context.Context, fixtures []*snapshot.Fixture, now time.Time) ([]Result, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	logger.Info("Running batch", len(fixtures), "fixtures on", r.workers(), "workers")

	// one clock reading for the whole batch
	fallback := r.clock()
	results := make([]Result, len(fixtures))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for i, f := range fixtures {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := r.simulate(f, evaluationTime(f, now, fallback))
			if err != nil {
				return fmt.Errorf("fixture %s: %w", f.ID, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
