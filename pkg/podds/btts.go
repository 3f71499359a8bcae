package podds

import "math"

// SimulateBTTS prices both teams to score
func SimulateBTTS(home, away TeamData, h2h *H2HData, ctx *MatchContext, config *SimulationConfig,
	modifiers *GoalDistributionModifiers, opts *SimulationOptions) Simulation {

	if opts == nil {
		opts = &SimulationOptions{}
	}
	in := prepareSimulation(home, away, h2h, ctx, config, opts.Injuries, modifiers, goalsWeights)
	base := in.dist.BTTSYes
	h, a := in.home, in.away

	adj := adjustmentList{}
	adj.add("attack_reliability", clamp((math.Min(h.homeScored, a.awayScored)-1.0)*6, -5, 5), "weaker attack of the two")
	adj.add("defensive_leak", clamp(((h.homeConceded+a.awayConceded)/2-1.2)*5, -4, 4), "both defences concede")
	if share, ok := recentShare(in, func(m RecentMatch) bool { return m.GoalsFor > 0 && m.GoalsAgainst > 0 }); ok {
		adj.add("recent_btts", clamp((share*100-base)*0.1, -4, 4), "recent matches where both scored")
	}
	if in.h2h.SufficientSample() && in.h2h.BTTSPct != nil {
		weight := math.Min(1, float64(in.h2h.Matches)/10)
		adj.add("h2h_btts", clamp((*in.h2h.BTTSPct-base)*0.1*weight, -4, 4), "previous meetings where both scored")
	}
	if avg, ok := averageDNA(h.dnaBTTS, h.hasDNABTTS, a.dnaBTTS, a.hasDNABTTS); ok {
		adj.add("dna_btts", clamp((avg-base)*0.08, -3, 3), "team style")
	}
	if tierGap(h, a) >= 2 && !in.sameZone {
		adj.add("tier_gap_mismatch", -3, "weaker side likely to blank")
	}
	if in.ctx.IsSixPointer {
		adj.add("six_pointer_suppression", -2.5, "both sides chase the same objective")
	}

	res := ApplyAdjustments(in.cfg.AdjustmentMode, base, adj.items, ScenarioBTTS, in.cfg.Caps, in.confidence)
	return twoLegSimulation(in, ScenarioBTTS, StrategyRules, nil, KeyYes, KeyNo, res, res.FinalProbability)
}

// SimulateFirstHalfActivity prices at least one goal before half time
func SimulateFirstHalfActivity(home, away TeamData, h2h *H2HData, ctx *MatchContext, config *SimulationConfig,
	modifiers *GoalDistributionModifiers, opts *SimulationOptions) Simulation {

	if opts == nil {
		opts = &SimulationOptions{}
	}
	in := prepareSimulation(home, away, h2h, ctx, config, opts.Injuries, modifiers, goalsWeights)
	share := in.cfg.FirstHalfGoalShare
	half := distributionFromLambdas(in.dist.LambdaHome*share, in.dist.LambdaAway*share, in.cfg, in.mods)
	base := (1 - half.Matrix[0][0]) * 100

	adj := adjustmentList{}
	if avg, ok := averageDNA(in.home.dnaFirstHalf, in.home.hasDNAFirstHalf, in.away.dnaFirstHalf, in.away.hasDNAFirstHalf); ok {
		adj.add("dna_first_half", clamp((avg-45)*0.2, -4, 4), "share of goals before half time")
	}
	if in.ctx.Derby.Intensity == IntensityExtreme || in.ctx.Derby.Intensity == IntensityHigh {
		adj.add("derby_cagey_start", -2, "heated derbies start slowly")
	}
	if in.ctx.MatchType.IsKnockout {
		adj.add("knockout_caution", -2, "knockout ties start cautiously")
	}
	if in.ctx.IsSixPointer {
		adj.add("six_pointer_suppression", -2, "both sides chase the same objective")
	}
	if tierGap(in.home, in.away) >= 2 && !in.sameZone {
		adj.add("tier_gap_mismatch", 2, "strong side expected to score early")
	}
	if in.ctx.IsPostInternationalBreak {
		adj.add("post_break_rust", -1, "first match after an international break")
	}

	res := ApplyAdjustments(in.cfg.AdjustmentMode, base, adj.items, ScenarioFirstHalf, in.cfg.Caps, in.confidence)
	return twoLegSimulation(in, ScenarioFirstHalf, StrategyRules, nil, KeyYes, KeyNo, res, res.FinalProbability)
}

func averageDNA(h float64, hok bool, a float64, aok bool) (float64, bool) {
	switch {
	case hok && aok:
		return (h + a) / 2, true
	case hok:
		return h, true
	case aok:
		return a, true
	}
	return 0, false
}
