package podds

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func team(id int, name string, tier Tier, homeFor, homeAgainst, awayFor, awayAgainst float64) TeamData {
	return TeamData{
		ID:   id,
		Name: name,
		Tier: tier,
		Stats: TeamStats{
			GamesPlayed:       Int(20),
			HomeGoalsScored:   Float(homeFor),
			HomeGoalsConceded: Float(homeAgainst),
			AwayGoalsScored:   Float(awayFor),
			AwayGoalsConceded: Float(awayAgainst),
		},
	}
}

func evenTeams() (TeamData, TeamData) {
	return team(1, "Alpha Rovers", TierAverage, 1.4, 1.2, 1.1, 1.4),
		team(2, "Beta Athletic", TierAverage, 1.4, 1.2, 1.1, 1.4)
}

func mismatchTeams() (TeamData, TeamData) {
	home := team(10, "Elite Side", TierElite, 3.2, 0.4, 2.8, 0.6)
	away := team(11, "Strugglers", TierWeak, 0.5, 2.6, 0.4, 3.0)
	home.Mood = &Mood{MindTier: TierElite, MoodTier: TierElite}
	away.Mood = &Mood{MindTier: TierWeak, MoodTier: TierWeak}
	home.Stats.Last10Points = Int(28)
	away.Stats.Last10Points = Int(3)
	return home, away
}

func sumLegs(t *testing.T, sim Simulation) float64 {
	t.Helper()
	total := 0.0
	for _, v := range sim.ProbabilityDistribution {
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 100.0)
		total += v
	}
	return total
}

func matrixSum(m [][]float64) float64 {
	total := 0.0
	for _, row := range m {
		for _, p := range row {
			total += p
		}
	}
	return total
}
