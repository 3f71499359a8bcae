package podds

import "math"

// FactorScores are the six independent balance signals. Each lies in
// [-100,100] and a positive value favours the home side.
type FactorScores struct {
	Form          float64 `json:"form"`
	H2H           float64 `json:"h2h"`
	HomeAdvantage float64 `json:"homeAdvantage"`
	Motivation    float64 `json:"motivation"`
	Rest          float64 `json:"rest"`
	Position      float64 `json:"position"`
}

// Weighted blends the scores with w and normalizes the result to [-1,1]
func (f FactorScores) Weighted(w FactorWeights) float64 {
	sum := w.Sum()
	if sum <= 0 {
		return 0
	}
	total := f.Form*w.Form + f.H2H*w.H2H + f.HomeAdvantage*w.HomeAdvantage +
		f.Motivation*w.Motivation + f.Rest*w.Rest + f.Position*w.Position
	return clamp(total/sum/100, -1, 1)
}

// CalculateFactorScores runs all six calculators. Stakes come from ctx when present.
func CalculateFactorScores(home, away TeamData, h2h *H2HData, ctx *MatchContext) FactorScores {
	return factorScores(resolveTeam(home), resolveTeam(away), h2h, ctx)
}

func factorScores(home, away resolvedTeam, h2h *H2HData, ctx *MatchContext) FactorScores {
	homeStakes, awayStakes := StakesUnknown, StakesUnknown
	if ctx != nil {
		homeStakes, awayStakes = ctx.SeasonStakes.Home, ctx.SeasonStakes.Away
	}
	return FactorScores{
		Form:          FormScore(home.tier, away.tier, home.last10Points, away.last10Points),
		H2H:           H2HScore(h2h),
		HomeAdvantage: HomeAdvantageScore(home.homePPG-home.ppg, away.ppg-away.awayPPG),
		Motivation:    MotivationScore(homeStakes, awayStakes),
		Rest:          RestScore(home.restDays, away.restDays),
		Position:      positionScore(home, away),
	}
}

// FormScore is tierDiff*30 plus the last-10 points gap scaled to 40
func FormScore(homeTier, awayTier Tier, homeLast10, awayLast10 int) float64 {
	tierDiff := float64(resolveTier(awayTier) - resolveTier(homeTier))
	return clamp(tierDiff*30+float64(homeLast10-awayLast10)/30*40, -100, 100)
}

// H2HScore is the win percentage gap weighted by sample size. Fewer than
// three meetings carry no signal.
func H2HScore(h2h *H2HData) float64 {
	if !h2h.SufficientSample() {
		return 0
	}
	n := float64(h2h.Matches)
	homePct := float64(h2h.HomeWins) / n * 100
	awayPct := float64(h2h.AwayWins) / n * 100
	weight := math.Min(1, n/10)
	return clamp((homePct-awayPct)*weight, -100, 100)
}

// HomeAdvantageScore starts from a baseline of 18 and moves with how much
// better the home side is at home and how much worse the visitor is on the road
func HomeAdvantageScore(homeBoost, awayRoadPenalty float64) float64 {
	return clamp(18+(homeBoost+awayRoadPenalty)/2*15, -30, 100)
}

// MotivationScore compares the stakes levels of the two teams
func MotivationScore(home, away Stakes) float64 {
	return clamp(float64(home.level()-away.level())*25, -100, 100)
}

// RestScore compares rest quality. Four to seven days is optimal.
func RestScore(homeDays, awayDays int) float64 {
	return clamp(float64(RestQuality(homeDays)-RestQuality(awayDays))*20, -100, 100)
}

// RestQuality buckets days since the last match into 1 (exhausted) to 5 (optimal)
func RestQuality(days int) int {
	switch {
	case days <= 2:
		return 1
	case days == 3:
		return 2
	case days <= 7:
		return 5
	case days <= 10:
		return 4
	case days <= 14:
		return 3
	}
	return 2
}

// positionScore mixes the tier gap, the table gap and the efficiency gap
func positionScore(home, away resolvedTeam) float64 {
	tierDiff := float64(away.tier - home.tier)
	posDiff := 0.0
	if home.standing != nil && away.standing != nil && home.standing.Position > 0 && away.standing.Position > 0 {
		posDiff = clamp(float64(away.standing.Position-home.standing.Position), -25, 25)
	}
	return clamp(tierDiff*25+posDiff+(home.efficiency-away.efficiency)*20, -100, 100)
}
