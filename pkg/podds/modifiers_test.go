package podds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lowScoringTeams() (TeamData, TeamData) {
	return team(20, "Catenaccio", TierAverage, 0.8, 0.9, 0.7, 1.0),
		team(21, "Parked Bus", TierAverage, 0.8, 0.8, 0.6, 1.0)
}

func tightH2H() *H2HData {
	return &H2HData{Matches: 6, HomeWins: 2, Draws: 3, AwayWins: 1, OverPct: map[string]float64{"2.5": 20}}
}

func TestComposeModifiersNeutral(t *testing.T) {
	home, away := evenTeams()
	comp := ComposeModifiers(ModifierParams{Home: home, Away: away, FactorScores: &FactorScores{}})

	assert.Equal(t, NeutralModifiers(), comp.Modifiers)
	require.Len(t, comp.Stages, 7)
	names := make([]string, 0, len(comp.Stages))
	for _, s := range comp.Stages {
		names = append(names, s.Stage)
		assert.False(t, s.Applied, s.Stage)
	}
	assert.Equal(t, []string{"contextGoalExpectation", "injuries", "balanceShift", "tierGapBoost",
		"lowScoringSuppression", "leagueProfile", "clamp"}, names)
}

func TestContextStage(t *testing.T) {
	home, away := evenTeams()
	ctx := NeutralContext()
	ctx.Adjustments.GoalExpectationAdjustment = 10
	mods := BuildGoalDistributionModifiers(ModifierParams{Home: home, Away: away, Context: &ctx, FactorScores: &FactorScores{}})
	assert.InDelta(t, 1.035, mods.GlobalGoals, 1e-12)
}

func TestInjuryStage(t *testing.T) {
	home, away := evenTeams()
	mods := BuildGoalDistributionModifiers(ModifierParams{
		Home:         home,
		Away:         away,
		FactorScores: &FactorScores{},
		Injuries:     &InjuryReport{HomeAttack: -20, AwayDefense: -20},
	})
	assert.InDelta(t, 0.93, mods.AttackHome, 1e-12)
	assert.InDelta(t, 1.05, mods.DefenseAway, 1e-12)
	assert.Equal(t, 1.0, mods.AttackAway)
}

func TestBalanceShiftFavoursStrongerSide(t *testing.T) {
	home, away := mismatchTeams()
	comp := ComposeModifiers(ModifierParams{Home: home, Away: away})
	assert.Equal(t, mismatchMaxShift, comp.MaxShift)
	assert.Greater(t, comp.BalanceShift, 0.0)
	assert.Greater(t, comp.Modifiers.AttackHome, 1.0)
	assert.Less(t, comp.Modifiers.AttackAway, 1.0)

	flipped := ComposeModifiers(ModifierParams{Home: away, Away: home})
	assert.Less(t, flipped.BalanceShift, 0.0)
}

func TestEloShift(t *testing.T) {
	assert.Equal(t, 0.0, DefaultEloBalanceShift(0, 1, 0.18))
	assert.InDelta(t, 0.18*0.7615941559557649, DefaultEloBalanceShift(400, 1, 0.18), 1e-12)
	assert.Less(t, DefaultEloBalanceShift(-5000, 1, 0.18), 0.0)
	assert.GreaterOrEqual(t, DefaultEloBalanceShift(-5000, 1, 0.18), -0.18)
	assert.Equal(t, 0.0, DefaultEloBalanceShift(400, 0, 0.18))

	home, away := evenTeams()
	home.Elo = &EloRating{Rating: 1800, Confidence: 1}
	away.Elo = &EloRating{Rating: 1500, Confidence: 0.5}
	called := false
	comp := ComposeModifiers(ModifierParams{
		Home:         home,
		Away:         away,
		FactorScores: &FactorScores{},
		EloShift: func(gap, conf, maxShift float64) float64 {
			called = true
			assert.Equal(t, 300.0, gap)
			assert.Equal(t, 0.5, conf)
			return 0.05
		},
	})
	assert.True(t, called)
	assert.InDelta(t, 0.05, comp.BalanceShift, 1e-12)
}

func TestClampStage(t *testing.T) {
	home, away := mismatchTeams()
	full := &FactorScores{Form: 100, H2H: 100, HomeAdvantage: 100, Motivation: 100, Rest: 100, Position: 100}

	mods := BuildGoalDistributionModifiers(ModifierParams{Home: home, Away: away, FactorScores: full})
	assert.InDelta(t, modifierMax, mods.AttackHome, 1e-9)
	assert.InDelta(t, modifierMin, mods.AttackAway, 1e-9)

	legacy := BuildGoalDistributionModifiers(ModifierParams{Home: home, Away: away, FactorScores: full, LegacyClamp: true})
	assert.Equal(t, legacyModifierMax, legacy.AttackHome)
	assert.InDelta(t, legacyModifierMax, legacy.GlobalGoals, 1e-12)
	assert.Equal(t, legacyModifierMin, legacy.AttackAway)
}

func TestTierGapBoost(t *testing.T) {
	home, away := mismatchTeams()
	comp := ComposeModifiers(ModifierParams{Home: home, Away: away})
	assert.True(t, comp.TierBoostApplied)
	assert.False(t, comp.LowScoringApplied)
	assert.InDelta(t, 1+tierBoostCap, comp.Modifiers.GlobalGoals, 1e-12)
}

func TestLowScoringSuppression(t *testing.T) {
	home, away := lowScoringTeams()
	comp := ComposeModifiers(ModifierParams{Home: home, Away: away, H2H: tightH2H()})
	assert.True(t, comp.LowScoringApplied)
	assert.False(t, comp.TierBoostApplied)
	assert.InDelta(t, 1-lowScoringMaxCut*2/4, comp.Modifiers.GlobalGoals, 1e-12)

	// one signal alone is not enough
	comp = ComposeModifiers(ModifierParams{Home: home, Away: away})
	assert.False(t, comp.LowScoringApplied)
}

func TestTierBoostAndLowScoringAreExclusive(t *testing.T) {
	home, away := mismatchTeams()
	home.DNA = &TeamDNA{OverPct: map[string]float64{"2.5": 30}}
	away.DNA = &TeamDNA{OverPct: map[string]float64{"2.5": 30}}
	h2h := tightH2H()

	comp := ComposeModifiers(ModifierParams{Home: home, Away: away, H2H: h2h})
	assert.True(t, comp.TierBoostApplied)
	assert.False(t, comp.LowScoringApplied)

	// same zone disables the tier boost and lets the suppression through
	home.Standing = &Standing{Position: 1, LeagueSize: 20}
	away.Standing = &Standing{Position: 3, LeagueSize: 20}
	comp = ComposeModifiers(ModifierParams{Home: home, Away: away, H2H: h2h})
	assert.True(t, comp.SameZone)
	assert.False(t, comp.TierBoostApplied)
	assert.True(t, comp.LowScoringApplied)
	assert.Equal(t, sameZoneMaxShift, comp.MaxShift)
}

func TestLeagueProfileStage(t *testing.T) {
	home, away := evenTeams()
	ctx := NeutralContext()
	ctx.LeagueAvgGoals = Float(3.5)
	mods := BuildGoalDistributionModifiers(ModifierParams{Home: home, Away: away, Context: &ctx, FactorScores: &FactorScores{}})
	assert.InDelta(t, 1+leagueProfileCap, mods.GlobalGoals, 1e-12)

	ctx.LeagueAvgGoals = Float(2.47)
	mods = BuildGoalDistributionModifiers(ModifierParams{Home: home, Away: away, Context: &ctx, FactorScores: &FactorScores{}})
	assert.InDelta(t, 0.95, mods.GlobalGoals, 1e-9)
}

func TestCompetitiveZone(t *testing.T) {
	assert.Equal(t, zoneTop, zoneOf(&Standing{Position: 4, LeagueSize: 20}))
	assert.Equal(t, zoneMiddle, zoneOf(&Standing{Position: 5, LeagueSize: 20}))
	assert.Equal(t, zoneBottom, zoneOf(&Standing{Position: 17, LeagueSize: 20}))
	assert.Equal(t, zoneTop, zoneOf(&Standing{Position: 4, LeagueSize: 18}))
	assert.Equal(t, zoneUnknown, zoneOf(nil))
	assert.Equal(t, zoneUnknown, zoneOf(&Standing{}))

	assert.True(t, sameCompetitiveZone(&Standing{Position: 1}, &Standing{Position: 2}))
	assert.False(t, sameCompetitiveZone(&Standing{Position: 1}, &Standing{Position: 12}))
	assert.False(t, sameCompetitiveZone(nil, nil))
}
