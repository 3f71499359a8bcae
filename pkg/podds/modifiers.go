package podds

import "math"

const (
	modifierMin       = 0.7
	modifierMax       = 1.35
	legacyModifierMin = 0.85
	legacyModifierMax = 1.15

	baselineMaxShift  = 0.18
	mismatchMaxShift  = 0.35
	sameZoneMaxShift  = 0.12
	tierBoostPerTier  = 0.07
	tierBoostCap      = 0.15
	lowScoringMaxCut  = 0.15
	leagueProfileCap  = 0.10
	contextGoalsScale = 0.35
)

// EloShiftFunc converts an Elo gap into a balance shift bounded by maxShift
type EloShiftFunc func(gap, confidence, maxShift float64) float64

// DefaultEloBalanceShift saturates smoothly: a 400 point gap at full
// confidence is worth about three quarters of maxShift
func DefaultEloBalanceShift(gap, confidence, maxShift float64) float64 {
	return clamp(maxShift*math.Tanh(gap/400)*clamp(confidence, 0, 1), -maxShift, maxShift)
}

// ModifierParams is everything the composer can take into account
type ModifierParams struct {
	Home         TeamData
	Away         TeamData
	H2H          *H2HData
	Context      *MatchContext
	Injuries     *InjuryReport
	FactorScores *FactorScores  // computed from the teams when nil
	Weights      *FactorWeights // match outcome weights when nil
	LegacyClamp  bool
	EloShift     EloShiftFunc // DefaultEloBalanceShift when nil
}

// StageTrace records the running modifiers after one composer stage
type StageTrace struct {
	Stage     string                    `json:"stage"`
	Applied   bool                      `json:"applied"`
	Modifiers GoalDistributionModifiers `json:"modifiers"`
}

// ModifierComposition is the composer result plus an audit trail
type ModifierComposition struct {
	Modifiers         GoalDistributionModifiers `json:"modifiers"`
	Stages            []StageTrace              `json:"stages"`
	BalanceShift      float64                   `json:"balanceShift"`
	MaxShift          float64                   `json:"maxShift"`
	SameZone          bool                      `json:"sameZone"`
	TierBoostApplied  bool                      `json:"tierBoostApplied"`
	LowScoringApplied bool                      `json:"lowScoringApplied"`
}

// modifierInput is ModifierParams with every default settled
type modifierInput struct {
	home     resolvedTeam
	away     resolvedTeam
	h2h      *H2HData
	ctx      MatchContext
	injuries InjuryReport
	scores   FactorScores
	weights  FactorWeights
	legacy   bool
	eloShift EloShiftFunc
	sameZone bool
	tierGap  int
}

type modifierState struct {
	mods              GoalDistributionModifiers
	applied           bool // set by the stage that just ran
	balanceShift      float64
	maxShift          float64
	tierBoostApplied  bool
	lowScoringApplied bool
}

// ModifierStage is one named pure transform of the running modifiers
type ModifierStage struct {
	Name  string
	apply func(in modifierInput, st modifierState) modifierState
}

// modifierPipeline runs in this order; later stages read flags set by earlier ones
var modifierPipeline = []ModifierStage{
	{"contextGoalExpectation", contextStage},
	{"injuries", injuryStage},
	{"balanceShift", balanceStage},
	{"tierGapBoost", tierGapStage},
	{"lowScoringSuppression", lowScoringStage},
	{"leagueProfile", leagueProfileStage},
	{"clamp", clampStage},
}

// BuildGoalDistributionModifiers composes the multipliers for the goal distribution
func BuildGoalDistributionModifiers(p ModifierParams) GoalDistributionModifiers {
	return ComposeModifiers(p).Modifiers
}

// ComposeModifiers runs the pipeline and keeps a trace of every stage
func ComposeModifiers(p ModifierParams) ModifierComposition {
	in := resolveModifierInput(p)
	st := modifierState{mods: NeutralModifiers()}
	trace := make([]StageTrace, 0, len(modifierPipeline))
	for _, stage := range modifierPipeline {
		st.applied = false
		st = stage.apply(in, st)
		trace = append(trace, StageTrace{Stage: stage.Name, Applied: st.applied, Modifiers: st.mods})
	}
	return ModifierComposition{
		Modifiers:         st.mods,
		Stages:            trace,
		BalanceShift:      st.balanceShift,
		MaxShift:          st.maxShift,
		SameZone:          in.sameZone,
		TierBoostApplied:  st.tierBoostApplied,
		LowScoringApplied: st.lowScoringApplied,
	}
}

func resolveModifierInput(p ModifierParams) modifierInput {
	in := modifierInput{
		home:     resolveTeam(p.Home),
		away:     resolveTeam(p.Away),
		h2h:      p.H2H,
		legacy:   p.LegacyClamp,
		eloShift: p.EloShift,
		weights:  MatchOutcomeWeights(),
	}
	if p.Context != nil {
		in.ctx = *p.Context
	} else {
		in.ctx = NeutralContext()
	}
	if p.Injuries != nil {
		in.injuries = *p.Injuries
	}
	if p.Weights != nil && p.Weights.Sum() > 0 {
		in.weights = *p.Weights
	}
	if in.eloShift == nil {
		in.eloShift = DefaultEloBalanceShift
	}
	if p.FactorScores != nil {
		in.scores = *p.FactorScores
	} else {
		in.scores = factorScores(in.home, in.away, p.H2H, &in.ctx)
	}
	in.sameZone = sameCompetitiveZone(in.home.standing, in.away.standing)
	in.tierGap = tierGap(in.home, in.away)
	return in
}

func contextStage(in modifierInput, st modifierState) modifierState {
	adj := in.ctx.Adjustments.GoalExpectationAdjustment
	if adj == 0 {
		return st
	}
	st.mods.GlobalGoals *= 1 + (adj/100)*contextGoalsScale
	st.applied = true
	return st
}

// opponentTierAdvantage is 0..1, how much stronger the opponent is
func opponentTierAdvantage(own, opp Tier) float64 {
	return math.Max(0, float64(own-opp)) / 3
}

func injuryStage(in modifierInput, st modifierState) modifierState {
	inj := in.injuries
	if inj == (InjuryReport{}) {
		return st
	}
	st.mods.AttackHome *= 1 + (inj.HomeAttack/100)*0.35
	st.mods.AttackAway *= 1 + (inj.AwayAttack/100)*0.35
	st.mods.DefenseHome *= 1 - (inj.HomeDefense/100)*(0.25+0.15*opponentTierAdvantage(in.home.tier, in.away.tier))
	st.mods.DefenseAway *= 1 - (inj.AwayDefense/100)*(0.25+0.15*opponentTierAdvantage(in.away.tier, in.home.tier))
	st.applied = true
	return st
}

func balanceStage(in modifierInput, st modifierState) modifierState {
	maxShift := baselineMaxShift
	switch {
	case in.tierGap >= 2 && !in.sameZone:
		maxShift = mismatchMaxShift
	case in.sameZone:
		maxShift = sameZoneMaxShift
	}
	shift := in.scores.Weighted(in.weights) * maxShift
	if in.home.hasElo && in.away.hasElo {
		conf := math.Min(in.home.eloConf, in.away.eloConf)
		shift += clamp(in.eloShift(in.home.elo-in.away.elo, conf, maxShift), -maxShift, maxShift)
	}
	shift = clamp(shift, -maxShift, maxShift)

	st.maxShift = maxShift
	st.balanceShift = shift
	if shift == 0 {
		return st
	}
	st.mods.AttackHome *= 1 + shift
	st.mods.DefenseAway *= 1 + shift
	st.mods.AttackAway *= 1 - shift
	st.mods.DefenseHome *= 1 - shift
	st.applied = true
	return st
}

func tierGapStage(in modifierInput, st modifierState) modifierState {
	if in.tierGap < 2 || in.sameZone {
		return st
	}
	st.mods.GlobalGoals *= 1 + math.Min(float64(in.tierGap)*tierBoostPerTier, tierBoostCap)
	st.tierBoostApplied = true
	st.applied = true
	return st
}

// lowScoringConditions counts the signals pointing at a tight game
func lowScoringConditions(in modifierInput) int {
	n := 0
	if in.home.avgScored+in.away.avgScored < 2.0 {
		n++
	}
	if in.h2h.SufficientSample() {
		if pct, ok := in.h2h.OverAt(2.5); ok && pct < 35 {
			n++
		}
	}
	if avg, ok := averageDNAOver(in.home, in.away, 2.5); ok && avg < 45 {
		n++
	}
	if in.ctx.IsSixPointer && in.sameZone {
		n++
	}
	return n
}

func averageDNAOver(home, away resolvedTeam, line float64) (float64, bool) {
	sum, n := 0.0, 0
	for _, t := range []resolvedTeam{home, away} {
		if v, ok := t.dnaOverAt(line); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func lowScoringStage(in modifierInput, st modifierState) modifierState {
	if st.tierBoostApplied {
		return st
	}
	n := lowScoringConditions(in)
	if n < 2 {
		return st
	}
	st.mods.GlobalGoals *= 1 - lowScoringMaxCut*float64(n)/4
	st.lowScoringApplied = true
	st.applied = true
	return st
}

func leagueProfileStage(in modifierInput, st modifierState) modifierState {
	if in.ctx.LeagueAvgGoals == nil || *in.ctx.LeagueAvgGoals <= 0 {
		return st
	}
	shift := clamp(*in.ctx.LeagueAvgGoals/neutralLeagueAvg-1, -leagueProfileCap, leagueProfileCap)
	st.mods.GlobalGoals *= 1 + shift
	st.applied = shift != 0
	return st
}

func clampStage(in modifierInput, st modifierState) modifierState {
	lo, hi := modifierMin, modifierMax
	if in.legacy {
		lo, hi = legacyModifierMin, legacyModifierMax
	}
	before := st.mods
	st.mods = GoalDistributionModifiers{
		AttackHome:  clamp(st.mods.AttackHome, lo, hi),
		DefenseHome: clamp(st.mods.DefenseHome, lo, hi),
		AttackAway:  clamp(st.mods.AttackAway, lo, hi),
		DefenseAway: clamp(st.mods.DefenseAway, lo, hi),
		GlobalGoals: clamp(st.mods.GlobalGoals, lo, hi),
	}
	st.applied = before != st.mods
	return st
}

// competitiveZone buckets a table position into top, middle or bottom fifth
type competitiveZone string

const (
	zoneUnknown competitiveZone = ""
	zoneTop     competitiveZone = "TOP"
	zoneMiddle  competitiveZone = "MID"
	zoneBottom  competitiveZone = "BOTTOM"
)

func zoneOf(st *Standing) competitiveZone {
	if st == nil || st.Position <= 0 {
		return zoneUnknown
	}
	size := st.LeagueSize
	if size <= 0 {
		size = 20
	}
	band := int(math.Ceil(float64(size) * 0.2))
	switch {
	case st.Position <= band:
		return zoneTop
	case st.Position > size-band:
		return zoneBottom
	}
	return zoneMiddle
}

// sameCompetitiveZone is false whenever either zone is unknown
func sameCompetitiveZone(home, away *Standing) bool {
	zh, za := zoneOf(home), zoneOf(away)
	return zh != zoneUnknown && zh == za
}
