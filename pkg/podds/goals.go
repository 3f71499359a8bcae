package podds

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnsupportedLine is returned for a goal line outside the fixed set
var ErrUnsupportedLine = errors.New("unsupported goal line")

// OverUnderPredictor is a trained model that can price some goal lines.
// PredictOver returns a probability in 0..1.
type OverUnderPredictor interface {
	SupportsLine(line float64) bool
	PredictOver(line float64, features map[string]float64) (float64, error)
}

// SimulationOptions carries the optional collaborators of the goals markets
type SimulationOptions struct {
	Predictor OverUnderPredictor
	Features  map[string]float64 // built from the inputs when nil
	Meta      FeatureMeta
	Injuries  *InjuryReport
}

// SimulateTotalGoalsOverUnder prices Over/Under at one of the fixed lines.
// Lines the predictor supports use the model base and only the adjustments
// the model cannot know about; every other line uses the rule signals.
func SimulateTotalGoalsOverUnder(home, away TeamData, h2h *H2HData, ctx *MatchContext, line float64,
	config *SimulationConfig, modifiers *GoalDistributionModifiers, opts *SimulationOptions) (Simulation, error) {

	if !IsGoalLine(line) {
		return Simulation{}, fmt.Errorf("%w: %v", ErrUnsupportedLine, line)
	}
	if opts == nil {
		opts = &SimulationOptions{}
	}
	in := prepareSimulation(home, away, h2h, ctx, config, opts.Injuries, modifiers, goalsWeights)

	var warnings []string
	if opts.Predictor != nil && opts.Predictor.SupportsLine(line) {
		features := opts.Features
		if features == nil {
			features = BuildMLFeatures(home, away, h2h, opts.Meta)
		}
		p, err := opts.Predictor.PredictOver(line, features)
		if err == nil && !math.IsNaN(p) {
			return mlOverUnder(in, line, p*100), nil
		}
		warnings = append(warnings, fmt.Sprintf("predictor failed for line %v, fell back to rules: %v", line, err))
	}
	sim := rulesOverUnder(in, line)
	sim.Warnings = warnings
	return sim, nil
}

func mlOverUnder(in simulationInput, line, base float64) Simulation {
	adj := adjustmentList{}
	if in.ctx.IsSixPointer {
		adj.add("six_pointer_suppression", -3, "both sides chase the same objective")
	}
	caps := in.cfg.Caps
	ml := caps.TotalGoals
	ml.Up, ml.Down = caps.MLCap, caps.MLCap
	caps.TotalGoals = ml
	caps.HighScale, caps.MediumScale, caps.LowScale = 1, 1, 1

	res := ApplyAdjustments(in.cfg.AdjustmentMode, base, adj.items, ScenarioTotalGoals, caps, in.confidence)
	return twoLegSimulation(in, ScenarioTotalGoals, StrategyML, &line, KeyOver, KeyUnder, res, res.FinalProbability)
}

func rulesOverUnder(in simulationInput, line float64) Simulation {
	base := in.dist.OverAt(line)
	adj := overUnderSignals(in, line, base)
	res := ApplyAdjustments(in.cfg.AdjustmentMode, base, adj, ScenarioTotalGoals, in.cfg.Caps, in.confidence)
	over := TemperatureCalibration{Temperature: in.cfg.CalibrationTemperature}.Apply(res.FinalProbability)
	return twoLegSimulation(in, ScenarioTotalGoals, StrategyRules, &line, KeyOver, KeyUnder, res, over)
}

// lineSensitivity damps the rate based signals on the extreme lines
func lineSensitivity(line float64) float64 {
	if line >= 1.5 && line <= 3.5 {
		return 1
	}
	return 0.5
}

func overUnderSignals(in simulationInput, line, base float64) []Adjustment {
	h, a := in.home, in.away
	adj := adjustmentList{}
	sens := lineSensitivity(line)

	expectedTotal := (h.avgScored + a.avgScored + h.avgConceded + a.avgConceded) / 2
	adj.add("avg_goals_vs_line", clamp((expectedTotal-line)*4, -6, 6)*0.5*sens, "season scoring rates against the line")
	adj.add("defensive_weakness", clamp(((h.avgConceded+a.avgConceded)/2-1.3)*5, -4, 4)*0.6*sens, "goals conceded by both sides")

	if share, ok := recentShare(in, func(m RecentMatch) bool { return float64(m.GoalsFor+m.GoalsAgainst) > line }); ok {
		adj.add("recent_form_tendency", clamp((share*100-base)*0.1, -5, 5), "recent matches over the line")
	}
	if in.h2h.SufficientSample() {
		if pct, ok := in.h2h.OverAt(line); ok {
			weight := math.Min(1, float64(in.h2h.Matches)/10)
			adj.add("h2h_vs_line", clamp((pct-base)*0.1*weight, -4, 4), "previous meetings over the line")
		}
	}
	if avg, ok := averageDNAOver(h, a, line); ok {
		adj.add("dna_line_tendency", clamp((avg-base)*0.08, -3, 3), "team style over the line")
	}
	if tierGap(h, a) >= 2 && !in.sameZone && line <= 3.5 {
		adj.add("tier_gap_mismatch", 2.5, "strong side expected to run up the score")
	}
	if in.ctx.IsSixPointer {
		adj.add("six_pointer_suppression", -3, "both sides chase the same objective")
	}
	return adj.items
}

// recentShare is the share of both teams' recent matches satisfying pred
func recentShare(in simulationInput, pred func(RecentMatch) bool) (float64, bool) {
	hits, n := 0, 0
	for _, t := range []resolvedTeam{in.home, in.away} {
		for _, m := range t.recentWindow(in.cfg.RecentMatchesCount) {
			n++
			if pred(m) {
				hits++
			}
		}
	}
	if n == 0 {
		return 0, false
	}
	return float64(hits) / float64(n), true
}

// twoLegSimulation normalizes a yes/no style market and assembles the result
func twoLegSimulation(in simulationInput, scenario ScenarioType, strategy Strategy, line *float64,
	yesKey, noKey string, res AdjustmentResult, yes float64) Simulation {

	legs := roundLegs(normalizeLegs([]float64{yes, 100 - yes}, in.cfg.LegFloor))
	var capsHit []string
	if res.WasCapped {
		capsHit = append(capsHit, yesKey)
	}
	return Simulation{
		ScenarioType: scenario,
		Line:         line,
		Strategy:     strategy,
		ProbabilityDistribution: map[string]float64{
			yesKey: legs[0],
			noKey:  legs[1],
		},
		ModelReliability:      res.Confidence,
		ReliabilityScore:      in.reliability,
		AdjustmentsApplied:    res.Adjustments,
		TotalAdjustment:       roundValue(res.TotalAdjustment),
		CapsHit:               nonNil(capsHit),
		OvercorrectionWarning: res.OvercorrectionWarning,
	}
}
