package podds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeutralContext(t *testing.T) {
	ctx := NeutralContext()
	assert.Equal(t, 1.0, ctx.Adjustments.GoalsMultiplier)
	assert.Equal(t, 1.0, ctx.Adjustments.HomeAdvantageMultiplier)
	assert.Equal(t, 0.0, ctx.Adjustments.GoalExpectationAdjustment)
	assert.Equal(t, 0.0, ctx.Adjustments.ConfidenceReduction)
	assert.False(t, ctx.Derby.IsDerby)
	assert.False(t, ctx.IsSixPointer)
}

func TestCombineContextOrderAndCaps(t *testing.T) {
	mt := DetectMatchType("Club Friendlies", "")
	mt.Adjustments.ConfidenceReduction = 35
	derby := DetectDerby(TeamRef{ID: 529}, TeamRef{ID: 541})
	eos := DetectEndOfSeason(EndOfSeasonInput{})
	eos.Adjustments = EndOfSeasonAdjustments{GoalsMultiplier: 1, ConfidenceReduction: 30}

	ctx := CombineContext(mt, derby, eos, true, nil)
	require.Len(t, ctx.Adjustments.Sources, 4)
	names := make([]string, 0, 4)
	for _, s := range ctx.Adjustments.Sources {
		names = append(names, s.Source)
	}
	assert.Equal(t, []string{"matchType", "derby", "endOfSeason", "postInternationalBreak"}, names)

	assert.Equal(t, 20.0, ctx.Adjustments.Sources[0].ConfidenceReduction)
	assert.Equal(t, 12.0, ctx.Adjustments.Sources[1].ConfidenceReduction)
	assert.Equal(t, 10.0, ctx.Adjustments.Sources[2].ConfidenceReduction)
	assert.Equal(t, 4.0, ctx.Adjustments.Sources[3].ConfidenceReduction)
	assert.Equal(t, 46.0, ctx.Adjustments.ConfidenceReduction)

	assert.InDelta(t, 1.10*0.9*0.97, ctx.Adjustments.GoalsMultiplier, 1e-12)
	assert.InDelta(t, 0.5*0.75, ctx.Adjustments.HomeAdvantageMultiplier, 1e-12)
	assert.Equal(t, 1.4, ctx.Adjustments.CardsMultiplier)
	assert.True(t, ctx.IsPostInternationalBreak)
}

func TestGoalExpectationAdjustmentIsBounded(t *testing.T) {
	mt := DetectMatchType("", "")
	mt.Adjustments.GoalsMultiplier = 1.5
	ctx := CombineContext(mt, noDerby(), DetectEndOfSeason(EndOfSeasonInput{}), false, nil)
	assert.Equal(t, 10.0, ctx.Adjustments.GoalExpectationAdjustment)

	mt.Adjustments.GoalsMultiplier = 0.5
	ctx = CombineContext(mt, noDerby(), DetectEndOfSeason(EndOfSeasonInput{}), false, nil)
	assert.Equal(t, -10.0, ctx.Adjustments.GoalExpectationAdjustment)
}

func TestBuildMatchContext(t *testing.T) {
	now := time.Date(2025, 5, 18, 15, 0, 0, 0, time.UTC)
	ctx := BuildMatchContext(ContextInput{
		Home:       TeamRef{ID: 541, Name: "Real Madrid"},
		Away:       TeamRef{ID: 529, Name: "Barcelona"},
		LeagueName: "La Liga",
		Round:      "Regular Season - 36",
		Season: EndOfSeasonInput{
			Round:       36,
			TotalRounds: 38,
			Home:        &Standing{Position: 2, PointsFromFirst: 3, PointsFromCL: 0},
			Away:        &Standing{Position: 1, PointsFromFirst: 0, PointsClearOfSecond: Int(3)},
		},
		Now: now,
	})
	assert.Equal(t, "El Clásico", ctx.Derby.Name)
	assert.Equal(t, MatchTypeLeague, ctx.MatchType.Type)
	assert.True(t, ctx.SeasonStakes.IsEndOfSeason)
	assert.Equal(t, StakesTitleRace, ctx.SeasonStakes.Home)
	assert.Equal(t, StakesTitleRace, ctx.SeasonStakes.Away)
	assert.True(t, ctx.IsSixPointer)
	assert.False(t, ctx.IsPostInternationalBreak)
}

func TestPostInternationalBreakFromDates(t *testing.T) {
	now := time.Date(2025, 10, 18, 15, 0, 0, 0, time.UTC)
	last := now.AddDate(0, 0, -15)
	in := ContextInput{HomeLastMatch: &last, AwayDaysSinceLastMatch: Int(16), Now: now}
	assert.True(t, BuildMatchContext(in).IsPostInternationalBreak)

	in.AwayDaysSinceLastMatch = Int(6)
	assert.False(t, BuildMatchContext(in).IsPostInternationalBreak)

	// without a clock the dates cannot be used
	in = ContextInput{HomeLastMatch: &last, AwayDaysSinceLastMatch: Int(16)}
	assert.False(t, BuildMatchContext(in).IsPostInternationalBreak)
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, 3, DaysBetween(a, a.Add(80*time.Hour)))
	assert.Equal(t, 0, DaysBetween(a, a.Add(23*time.Hour)))
}

func TestNewContextInputPullsTeamFields(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	home, away := evenTeams()
	home.LastMatches = []RecentMatch{{Date: now.AddDate(0, 0, -4)}}
	home.Standing = &Standing{Position: 5}
	away.Safety = &SafetyFlags{Motivation: "survival"}

	in := NewContextInput(home, away, "Premier League", "Regular Season - 27", EndOfSeasonInput{Round: 27}, now)
	require.NotNil(t, in.HomeLastMatch)
	assert.Nil(t, in.AwayLastMatch)
	assert.Equal(t, home.Standing, in.Season.Home)
	assert.Equal(t, "survival", in.Season.AwayMotivation)
	assert.Equal(t, home.Ref(), in.Home)
}
