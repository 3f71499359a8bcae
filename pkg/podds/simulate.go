package podds

import (
	"math"
	"strings"
)

// simulationInput is shared, fully resolved state for one simulator call
type simulationInput struct {
	home        resolvedTeam
	away        resolvedTeam
	h2h         *H2HData
	ctx         MatchContext
	cfg         SimulationConfig
	injuries    InjuryReport
	scores      FactorScores
	mods        GoalDistributionModifiers
	sameZone    bool
	dist        GoalDistributionResult
	confidence  Confidence
	reliability float64
}

func prepareSimulation(home, away TeamData, h2h *H2HData, ctx *MatchContext, config *SimulationConfig,
	injuries *InjuryReport, modifiers *GoalDistributionModifiers, weights func(SimulationConfig) FactorWeights) simulationInput {

	cfg := resolveConfig(config)
	in := simulationInput{
		home: resolveTeam(home),
		away: resolveTeam(away),
		h2h:  h2h,
		cfg:  cfg,
	}
	if ctx != nil {
		in.ctx = *ctx
	} else {
		in.ctx = NeutralContext()
	}
	if injuries != nil {
		in.injuries = *injuries
	}
	in.scores = factorScores(in.home, in.away, h2h, &in.ctx)
	in.sameZone = sameCompetitiveZone(in.home.standing, in.away.standing)

	if modifiers != nil {
		in.mods = *modifiers
	} else {
		w := weights(cfg)
		in.mods = BuildGoalDistributionModifiers(ModifierParams{
			Home:         home,
			Away:         away,
			H2H:          h2h,
			Context:      &in.ctx,
			Injuries:     injuries,
			FactorScores: &in.scores,
			Weights:      &w,
			LegacyClamp:  cfg.LegacyModifierClamp,
		})
	}
	in.dist = buildDistribution(in.home, in.away, cfg, in.mods)
	in.confidence, in.reliability = baseReliability(in.home, in.away, h2h, in.ctx)
	return in
}

func matchWeights(c SimulationConfig) FactorWeights { return c.MatchOutcomeWeights }
func goalsWeights(c SimulationConfig) FactorWeights { return c.GoalsWeights }

// baseReliability grades the input data before any adjustment runs
func baseReliability(home, away resolvedTeam, h2h *H2HData, ctx MatchContext) (Confidence, float64) {
	gp := min(home.gamesPlayed, away.gamesPlayed)
	conf := ConfidenceLow
	switch {
	case gp >= 10 && h2h.SufficientSample():
		conf = ConfidenceHigh
	case gp >= 5:
		conf = ConfidenceMedium
	}
	reduction := ctx.Adjustments.ConfidenceReduction
	if reduction >= 15 {
		conf = conf.Downgrade()
	}
	return conf, clamp(reliabilityBase(conf)-reduction, 20, 95)
}

func reliabilityBase(c Confidence) float64 {
	switch c {
	case ConfidenceHigh:
		return 80
	case ConfidenceMedium:
		return 65
	}
	return 50
}

// lowestConfidence returns the weakest of the levels
func lowestConfidence(levels ...Confidence) Confidence {
	rank := map[Confidence]int{ConfidenceHigh: 3, ConfidenceMedium: 2, ConfidenceLow: 1}
	out := ConfidenceHigh
	for _, c := range levels {
		if rank[c] < rank[out] {
			out = c
		}
	}
	return out
}

// adjustmentList builds a leg's adjustments, dropping zero valued entries
type adjustmentList struct {
	prefix string
	items  []Adjustment
}

func (l *adjustmentList) add(name string, value float64, reason string) {
	if value == 0 || math.IsNaN(value) {
		return
	}
	if l.prefix != "" {
		name = l.prefix + "_" + name
	}
	l.items = append(l.items, Adjustment{Name: name, Value: value, Reason: reason})
}

// SimulateMatchOutcome prices home win, draw and away win
func SimulateMatchOutcome(home, away TeamData, h2h *H2HData, ctx *MatchContext, config *SimulationConfig,
	injuries *InjuryReport, modifiers *GoalDistributionModifiers) Simulation {

	in := prepareSimulation(home, away, h2h, ctx, config, injuries, modifiers, matchWeights)
	cfg := in.cfg

	// blend the factor composite into the decisive mass of the distribution
	composite := in.scores.Weighted(cfg.MatchOutcomeWeights)
	decisive := in.dist.HomeWin + in.dist.AwayWin
	share := 0.5 + composite*0.35
	baseHome := 0.8*in.dist.HomeWin + 0.2*decisive*share
	baseAway := 0.8*in.dist.AwayWin + 0.2*decisive*(1-share)
	baseDraw := in.dist.Draw

	homeAdj, awayAdj := matchOutcomeAdjustments(in)
	hr := ApplyAdjustments(cfg.AdjustmentMode, baseHome, homeAdj, ScenarioMatchResult, cfg.Caps, in.confidence)
	ar := ApplyAdjustments(cfg.AdjustmentMode, baseAway, awayAdj, ScenarioMatchResult, cfg.Caps, in.confidence)

	legs := normalizeLegs([]float64{hr.FinalProbability, baseDraw, ar.FinalProbability}, cfg.LegFloor)

	applied := append(append([]Adjustment{}, hr.Adjustments...), ar.Adjustments...)
	if in.away.liveDog && in.away.tier > in.home.tier && cfg.LiveDogShift > 0 {
		shift := math.Min(cfg.LiveDogShift, legs[0]-cfg.LegFloor)
		if shift > 0 {
			legs[0] -= shift
			legs[1] += shift / 2
			legs[2] += shift / 2
			applied = append(applied, Adjustment{Name: "live_dog_shift", Value: -shift, Reason: "away side flagged as a live underdog"})
		}
	}
	legs = roundLegs(legs)

	var capsHit []string
	if hr.WasCapped {
		capsHit = append(capsHit, KeyHomeWin)
	}
	if ar.WasCapped {
		capsHit = append(capsHit, KeyAwayWin)
	}

	return Simulation{
		ScenarioType: ScenarioMatchResult,
		Strategy:     StrategyRules,
		ProbabilityDistribution: map[string]float64{
			KeyHomeWin: legs[0],
			KeyDraw:    legs[1],
			KeyAwayWin: legs[2],
		},
		ModelReliability:      lowestConfidence(hr.Confidence, ar.Confidence),
		ReliabilityScore:      in.reliability,
		AdjustmentsApplied:    applied,
		TotalAdjustment:       sumAdjustments(applied),
		CapsHit:               nonNil(capsHit),
		OvercorrectionWarning: hr.OvercorrectionWarning || ar.OvercorrectionWarning,
	}
}

func sumAdjustments(adjs []Adjustment) float64 {
	total := 0.0
	for _, a := range adjs {
		total += a.Value
	}
	return roundValue(total)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// matchOutcomeAdjustments builds the independent home and away leg lists
func matchOutcomeAdjustments(in simulationInput) ([]Adjustment, []Adjustment) {
	home := adjustmentList{prefix: "home"}
	away := adjustmentList{prefix: "away"}

	if d := float64(in.away.mindTier - in.home.mindTier); d != 0 {
		home.add("mind_gap", d*2.5, "long horizon strength gap")
		away.add("mind_gap", -d*2.5, "long horizon strength gap")
	}
	if d := float64(in.away.moodTier - in.home.moodTier); d != 0 {
		home.add("mood_gap", d*2.0, "recent form gap")
		away.add("mood_gap", -d*2.0, "recent form gap")
	}

	teamLegAdjustments(&home, in.home, in.injuries.HomeAttack, in.injuries.HomeDefense)
	teamLegAdjustments(&away, in.away, in.injuries.AwayAttack, in.injuries.AwayDefense)

	home.add("context_home_advantage", (in.ctx.Adjustments.HomeAdvantageMultiplier-1)*10, "derby, venue and competition effect on home advantage")
	if in.ctx.SeasonStakes.IsEndOfSeason && in.ctx.SeasonStakes.MotivationGap != 0 {
		v := float64(in.ctx.SeasonStakes.MotivationGap) / 100 * 6
		home.add("motivation_gap", v, "end of season stakes")
		away.add("motivation_gap", -v, "end of season stakes")
	}
	return home.items, away.items
}

var europeanCompetitions = []string{"champions league", "europa league", "conference league"}

// teamLegAdjustments adds the adjustments that depend on one team only
func teamLegAdjustments(l *adjustmentList, t resolvedTeam, injAttack, injDefense float64) {
	if t.sleepingGiant {
		l.add("sleeping_giant", 2, "long term quality above current form")
	}
	if t.overPerformer || t.regressionRisk {
		l.add("regression_risk", -2.5, "results running ahead of underlying numbers")
	}
	if t.hasFormationUsage {
		switch {
		case t.formationUsage < 25:
			l.add("formation_instability", -3, "no settled formation")
		case t.formationUsage < 40:
			l.add("formation_instability", -2, "formation changes often")
		}
	}
	l.add("injuries", clamp((injAttack+injDefense)/2*0.3, -6, 0), "missing players")
	if t.restDays <= 3 {
		l.add("midweek_load", -2, "short turnaround")
		if len(t.recent) > 0 && containsAny(strings.ToLower(t.recent[0].Competition), europeanCompetitions) {
			l.add("european_midweek", -1.5, "played in Europe midweek")
		}
	}
	if len(t.recent) > 0 && t.recent[0].WasDerby && t.restDays <= 7 {
		l.add("post_derby_hangover", -1.5, "previous match was a derby")
	}
}
