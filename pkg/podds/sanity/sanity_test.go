package sanity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richard-senior/podds/pkg/podds"
)

func codes(ws []Warning) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

func TestRealResultsAreClean(t *testing.T) {
	home := podds.TeamData{ID: 1, Name: "Home", Tier: podds.TierStrong}
	away := podds.TeamData{ID: 2, Name: "Away", Tier: podds.TierAverage}

	assert.Empty(t, CheckSimulation(podds.SimulateMatchOutcome(home, away, nil, nil, nil, nil, nil)))
	assert.Empty(t, CheckSimulation(podds.SimulateBTTS(home, away, nil, nil, nil, nil, nil)))
	assert.Empty(t, CheckFactorScores(podds.CalculateFactorScores(home, away, nil, nil)))
	assert.Empty(t, CheckDistribution(podds.BuildGoalDistribution(home, away, podds.DefaultConfig(), nil)))
}

func TestCheckSimulationFlagsBrokenLegs(t *testing.T) {
	sim := podds.Simulation{
		ScenarioType:            podds.ScenarioMatchResult,
		ProbabilityDistribution: map[string]float64{podds.KeyHomeWin: 60, podds.KeyDraw: 30, podds.KeyAwayWin: 20},
		AdjustmentsApplied:      []podds.Adjustment{{Name: "huge", Value: 25}, {Name: "small", Value: 2}},
	}
	ws := CheckSimulation(sim)
	assert.Equal(t, []string{CodeLegSum, CodeLargeAdjustment}, codes(ws))
	assert.Contains(t, ws[1].Message, "huge")

	// leaves the input alone
	assert.Equal(t, 60.0, sim.ProbabilityDistribution[podds.KeyHomeWin])
}

func TestCheckSimulationNonFinite(t *testing.T) {
	sim := podds.Simulation{
		ProbabilityDistribution: map[string]float64{podds.KeyYes: math.NaN(), podds.KeyNo: 110},
		TotalAdjustment:         math.Inf(1),
	}
	ws := CheckSimulation(sim)
	assert.Equal(t, []string{CodeLegRange, CodeNonFinite, CodeNonFinite}, codes(ws))
}

func TestCheckFactorScores(t *testing.T) {
	ws := CheckFactorScores(podds.FactorScores{Form: 130, Rest: math.NaN()})
	assert.Equal(t, []string{CodeFactorRange, CodeNonFinite}, codes(ws))
}

func TestCheckDistribution(t *testing.T) {
	d := podds.GoalDistributionResult{
		LambdaHome: 5,
		LambdaAway: 1,
		Matrix:     [][]float64{{0.5, 0.2}, {0.2, 0.2}},
		HomeWin:    40,
		Draw:       40,
		AwayWin:    20,
		Modifiers:  podds.GoalDistributionModifiers{AttackHome: 1.5, DefenseHome: 1, AttackAway: 1, DefenseAway: 1, GlobalGoals: 1},
	}
	ws := CheckDistribution(d)
	require.Len(t, ws, 3)
	assert.Equal(t, []string{CodeLambdaRange, CodeModifierRange, CodeMatrixSum}, codes(ws))
}
