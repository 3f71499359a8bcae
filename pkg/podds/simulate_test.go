package podds

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePredictor struct {
	lines map[float64]float64
	err   error
	calls int
}

func (f *fakePredictor) SupportsLine(line float64) bool {
	_, ok := f.lines[line]
	return ok
}

func (f *fakePredictor) PredictOver(line float64, features map[string]float64) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.lines[line], nil
}

func streak(n, goalsFor, goalsAgainst int) []RecentMatch {
	start := time.Date(2025, 4, 1, 15, 0, 0, 0, time.UTC)
	out := make([]RecentMatch, n)
	for i := range out {
		out[i] = RecentMatch{Date: start.AddDate(0, 0, -7*i), GoalsFor: goalsFor, GoalsAgainst: goalsAgainst}
	}
	return out
}

func simulateAll(t *testing.T, home, away TeamData, h2h *H2HData, ctx *MatchContext, cfg *SimulationConfig) []Simulation {
	t.Helper()
	sims := []Simulation{
		SimulateMatchOutcome(home, away, h2h, ctx, cfg, nil, nil),
		SimulateBTTS(home, away, h2h, ctx, cfg, nil, nil),
		SimulateFirstHalfActivity(home, away, h2h, ctx, cfg, nil, nil),
	}
	for _, line := range GoalLines {
		sim, err := SimulateTotalGoalsOverUnder(home, away, h2h, ctx, line, cfg, nil, nil)
		require.NoError(t, err)
		sims = append(sims, sim)
	}
	return sims
}

func TestSimulationsSumToHundred(t *testing.T) {
	even1, even2 := evenTeams()
	strong, weak := mismatchTeams()
	fixtures := [][2]TeamData{{even1, even2}, {strong, weak}, {weak, strong}, {{}, {}}}
	for _, f := range fixtures {
		for _, sim := range simulateAll(t, f[0], f[1], nil, nil, nil) {
			assert.InDelta(t, 100, sumLegs(t, sim), 1e-9, "%s %s vs %s", sim.ScenarioType, f[0].Name, f[1].Name)
			assert.NotNil(t, sim.CapsHit)
			assert.Contains(t, []Confidence{ConfidenceHigh, ConfidenceMedium, ConfidenceLow}, sim.ModelReliability)
			assert.GreaterOrEqual(t, sim.ReliabilityScore, 20.0)
			assert.LessOrEqual(t, sim.ReliabilityScore, 95.0)
		}
	}
}

func TestExtremeMismatchKeepsBothSidesAlive(t *testing.T) {
	home := team(1, "Juggernaut", TierElite, 3.0, 0.5, 2.6, 0.7)
	home.Stats.GamesPlayed = Int(100)
	home.LastMatches = streak(10, 4, 0)
	away := team(2, "Whipping Boys", TierWeak, 0.6, 2.8, 0.4, 3.2)
	away.LastMatches = streak(10, 0, 3)
	h2h := &H2HData{Matches: 10, HomeWins: 10}

	sim := SimulateMatchOutcome(home, away, h2h, nil, nil, nil, nil)
	assert.Greater(t, sim.ProbabilityDistribution[KeyAwayWin], 0.0)
	assert.GreaterOrEqual(t, sim.ProbabilityDistribution[KeyAwayWin], 5.0)
	assert.Less(t, sim.ProbabilityDistribution[KeyHomeWin], 100.0)
	assert.Greater(t, sim.ProbabilityDistribution[KeyHomeWin], sim.ProbabilityDistribution[KeyAwayWin])
}

func TestSimulationIsDeterministic(t *testing.T) {
	home, away := mismatchTeams()
	home.LastMatches = streak(6, 2, 1)
	ctx := BuildMatchContext(NewContextInput(home, away, "Premier League", "Regular Season - 30", EndOfSeasonInput{}, time.Time{}))
	first := simulateAll(t, home, away, tightH2H(), &ctx, nil)
	second := simulateAll(t, home, away, tightH2H(), &ctx, nil)
	assert.Equal(t, first, second)
}

func TestMatchOutcomeFavoursStrongerSide(t *testing.T) {
	strong, weak := mismatchTeams()
	sim := SimulateMatchOutcome(strong, weak, nil, nil, nil, nil, nil)
	assert.Equal(t, ScenarioMatchResult, sim.ScenarioType)
	assert.Equal(t, StrategyRules, sim.Strategy)
	assert.Nil(t, sim.Line)
	assert.Greater(t, sim.ProbabilityDistribution[KeyHomeWin], 60.0)
}

func TestLiveDogShift(t *testing.T) {
	home, away := mismatchTeams()
	away.Safety = &SafetyFlags{LiveDog: true}
	sim := SimulateMatchOutcome(home, away, nil, nil, nil, nil, nil)
	cfg := DefaultConfig()
	cfg.LiveDogShift = 0
	plain := SimulateMatchOutcome(home, away, nil, nil, &cfg, nil, nil)

	var found bool
	for _, a := range sim.AdjustmentsApplied {
		if a.Name == "live_dog_shift" {
			found = true
			assert.Less(t, a.Value, 0.0)
		}
	}
	assert.True(t, found)
	assert.Less(t, sim.ProbabilityDistribution[KeyHomeWin], plain.ProbabilityDistribution[KeyHomeWin])
}

func TestOverUnderRejectsUnknownLine(t *testing.T) {
	home, away := evenTeams()
	_, err := SimulateTotalGoalsOverUnder(home, away, nil, nil, 2.75, nil, nil, nil)
	assert.ErrorIs(t, err, ErrUnsupportedLine)
}

func TestOverUnderMonotoneAcrossLines(t *testing.T) {
	home, away := evenTeams()
	prev := 101.0
	for _, line := range GoalLines {
		sim, err := SimulateTotalGoalsOverUnder(home, away, nil, nil, line, nil, nil, nil)
		require.NoError(t, err)
		require.NotNil(t, sim.Line)
		assert.Equal(t, line, *sim.Line)
		over := sim.ProbabilityDistribution[KeyOver]
		assert.LessOrEqual(t, over, prev)
		prev = over
	}
}

func TestOverUnderUsesPredictor(t *testing.T) {
	home, away := evenTeams()
	p := &fakePredictor{lines: map[float64]float64{2.5: 0.6}}
	sim, err := SimulateTotalGoalsOverUnder(home, away, nil, nil, 2.5, nil, nil, &SimulationOptions{Predictor: p})
	require.NoError(t, err)
	assert.Equal(t, StrategyML, sim.Strategy)
	assert.Equal(t, 1, p.calls)
	assert.InDelta(t, 60, sim.ProbabilityDistribution[KeyOver], 1e-9)
	assert.InDelta(t, 40, sim.ProbabilityDistribution[KeyUnder], 1e-9)
	assert.Empty(t, sim.AdjustmentsApplied)

	// lines without a model use the rules
	sim, err = SimulateTotalGoalsOverUnder(home, away, nil, nil, 3.5, nil, nil, &SimulationOptions{Predictor: p})
	require.NoError(t, err)
	assert.Equal(t, StrategyRules, sim.Strategy)
	assert.Equal(t, 1, p.calls)
}

func TestOverUnderMLSixPointerOnly(t *testing.T) {
	home, away := evenTeams()
	ctx := NeutralContext()
	ctx.IsSixPointer = true
	p := &fakePredictor{lines: map[float64]float64{2.5: 0.55}}
	sim, err := SimulateTotalGoalsOverUnder(home, away, nil, &ctx, 2.5, nil, nil, &SimulationOptions{Predictor: p})
	require.NoError(t, err)
	require.Len(t, sim.AdjustmentsApplied, 1)
	assert.Equal(t, "six_pointer_suppression", sim.AdjustmentsApplied[0].Name)
	assert.InDelta(t, 52, sim.ProbabilityDistribution[KeyOver], 1e-9)
}

func TestOverUnderPredictorFailureFallsBack(t *testing.T) {
	home, away := evenTeams()
	p := &fakePredictor{lines: map[float64]float64{2.5: 0.6}, err: errors.New("model exploded")}
	sim, err := SimulateTotalGoalsOverUnder(home, away, nil, nil, 2.5, nil, nil, &SimulationOptions{Predictor: p})
	require.NoError(t, err)
	assert.Equal(t, StrategyRules, sim.Strategy)
	require.Len(t, sim.Warnings, 1)
	assert.Contains(t, sim.Warnings[0], "model exploded")
}

func TestBTTSRespondsToAttack(t *testing.T) {
	shy1, shy2 := lowScoringTeams()
	even1, even2 := evenTeams()
	shy := SimulateBTTS(shy1, shy2, nil, nil, nil, nil, nil)
	even := SimulateBTTS(even1, even2, nil, nil, nil, nil, nil)
	assert.Equal(t, ScenarioBTTS, shy.ScenarioType)
	assert.Less(t, shy.ProbabilityDistribution[KeyYes], even.ProbabilityDistribution[KeyYes])
}

func TestFirstHalfActivity(t *testing.T) {
	home, away := evenTeams()
	sim := SimulateFirstHalfActivity(home, away, nil, nil, nil, nil, nil)
	assert.Equal(t, ScenarioFirstHalf, sim.ScenarioType)
	// about 1.15 first half goals are expected, so a goal is more likely than not
	assert.Greater(t, sim.ProbabilityDistribution[KeyYes], 50.0)
	assert.Less(t, sim.ProbabilityDistribution[KeyYes], 80.0)
}

func TestUncappedModeCanMoveFurther(t *testing.T) {
	home, away := mismatchTeams()
	home.Mood.IsSleepingGiant = true
	away.Mood.IsOverPerformer = true
	away.DaysSinceLastMatch = Int(2)
	away.DNA = &TeamDNA{FormationUsage: Float(10)}
	inj := &InjuryReport{AwayAttack: -40, AwayDefense: -40}

	capped := SimulateMatchOutcome(home, away, nil, nil, nil, inj, nil)
	cfg := DefaultConfig()
	cfg.AdjustmentMode = ModeUncapped
	uncapped := SimulateMatchOutcome(home, away, nil, nil, &cfg, inj, nil)
	assert.Contains(t, capped.CapsHit, KeyAwayWin)
	assert.LessOrEqual(t, uncapped.ProbabilityDistribution[KeyAwayWin], capped.ProbabilityDistribution[KeyAwayWin])
}

func TestBuildMLFeatures(t *testing.T) {
	home, away := mismatchTeams()
	home.LastMatches = streak(4, 2, 0)
	f := BuildMLFeatures(home, away, tightH2H(), FeatureMeta{LeagueID: Int(140)})
	assert.Equal(t, 100.0, f["homeFormScore"])
	assert.Equal(t, 2.0, f["homeGF10"])
	assert.Equal(t, 20.0, f["h2h_overall_over_2_5_pct"])
	assert.Equal(t, 140.0, f["leagueId"])
	_, ok := f["awayFormScore"]
	assert.False(t, ok, "no recent matches leaves the form columns out")
	_, ok = f["h2h_venue_matches"]
	assert.False(t, ok)
	_, ok = f["season"]
	assert.False(t, ok)
}
