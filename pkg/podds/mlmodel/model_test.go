package mlmodel

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richard-senior/podds/pkg/podds"
	"github.com/richard-senior/podds/pkg/transport"
)

const binaryModel = `{"metadata":{"market":"ou_2_5","num_trees":2,"num_class":1,"feature_names":["homeFormScore","h2h_overall_over_2_5_pct"],"objective":"binary"},
"tree_info":[
 {"tree_index":0,"shrinkage":1,"tree_structure":{"split_feature":0,"threshold":50,"default_left":true,
   "left_child":{"leaf_value":-0.5},"right_child":{"leaf_value":0.5}}},
 {"tree_index":1,"shrinkage":0.1,"tree_structure":{"leaf_value":0.2}}],
"feature_names":["homeFormScore","h2h_overall_over_2_5_pct"]}`

const multiclassModel = `{"metadata":{"market":"1x2","num_trees":3,"num_class":3,"feature_names":["homePPG10"],"objective":"multiclass"},
"tree_info":[
 {"tree_index":0,"tree_structure":{"leaf_value":1}},
 {"tree_index":1,"tree_structure":{"leaf_value":0}},
 {"tree_index":2,"tree_structure":{"leaf_value":0}}],
"feature_names":["homePPG10"]}`

func sig(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func TestBinaryPrediction(t *testing.T) {
	m, err := Parse([]byte(binaryModel))
	require.NoError(t, err)

	assert.InDelta(t, sig(0.7), m.Predict(map[string]float64{"homeFormScore": 80})[0], 1e-12)
	assert.InDelta(t, sig(-0.3), m.Predict(map[string]float64{"homeFormScore": 50})[0], 1e-12, "threshold goes left")
	assert.InDelta(t, sig(-0.3), m.Predict(map[string]float64{})[0], 1e-12, "missing follows default_left")
}

func TestMulticlassSoftmax(t *testing.T) {
	m, err := Parse([]byte(multiclassModel))
	require.NoError(t, err)
	p := m.Predict(nil)
	require.Len(t, p, 3)
	e := math.E
	assert.InDelta(t, e/(e+2), p[0], 1e-12)
	assert.InDelta(t, 1/(e+2), p[1], 1e-12)
	assert.InDelta(t, 1.0, p[0]+p[1]+p[2], 1e-12)
}

func TestParseRejectsBrokenModels(t *testing.T) {
	for _, doc := range []string{
		`{`,
		`{"metadata":{},"tree_info":[],"feature_names":["a"]}`,
		`{"tree_info":[{"tree_structure":{"split_feature":3,"threshold":1,"left_child":{"leaf_value":1},"right_child":{"leaf_value":0}}}],"feature_names":["a"]}`,
		`{"tree_info":[{"tree_structure":{"split_feature":0,"threshold":1,"left_child":{"leaf_value":1}}}],"feature_names":["a"]}`,
	} {
		_, err := Parse([]byte(doc))
		assert.ErrorIs(t, err, ErrBadModel, doc)
	}
}

func writeModels(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "ou_2_5"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ou_2_5", "model.json"), []byte(binaryModel), 0o644))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "1x2"), 0o755))
	br, err := transport.CompressBrotli([]byte(multiclassModel))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1x2", "model.json.br"), br, 0o644))
	return dir
}

func TestLoadRegistry(t *testing.T) {
	r, err := LoadRegistry(writeModels(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"1x2", "ou_2_5"}, r.Markets())

	assert.True(t, r.SupportsLine(2.5))
	assert.False(t, r.SupportsLine(3.5))

	over, err := r.PredictOver(2.5, map[string]float64{"homeFormScore": 80})
	require.NoError(t, err)
	assert.InDelta(t, sig(0.7), over, 1e-12)

	_, err = r.PredictOver(3.5, nil)
	assert.ErrorIs(t, err, ErrUnknownMarket)
	_, err = r.PredictBTTS(nil)
	assert.ErrorIs(t, err, ErrUnknownMarket)

	h, d, a, err := r.Predict1X2(nil)
	require.NoError(t, err)
	assert.InDelta(t, 1, h+d+a, 1e-12)
	assert.Greater(t, h, d)
}

func TestLoadRegistryFailsOnCorruptModel(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "btts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "btts", "model.json"), []byte("{"), 0o644))
	_, err := LoadRegistry(dir)
	assert.ErrorIs(t, err, ErrBadModel)
}

func TestRegistryDrivesOverUnder(t *testing.T) {
	r, err := LoadRegistry(writeModels(t))
	require.NoError(t, err)
	home := podds.TeamData{ID: 1, Name: "Home", Tier: podds.TierElite, LastMatches: results(3, 2, 0)}
	away := podds.TeamData{ID: 2, Name: "Away", Tier: podds.TierWeak}

	sim, err := podds.SimulateTotalGoalsOverUnder(home, away, nil, nil, 2.5, nil, nil, &podds.SimulationOptions{Predictor: r})
	require.NoError(t, err)
	assert.Equal(t, podds.StrategyML, sim.Strategy)
	assert.InDelta(t, 100*sig(0.7), sim.ProbabilityDistribution[podds.KeyOver], 0.06)

	sim, err = podds.SimulateTotalGoalsOverUnder(home, away, nil, nil, 3.5, nil, nil, &podds.SimulationOptions{Predictor: r})
	require.NoError(t, err)
	assert.Equal(t, podds.StrategyRules, sim.Strategy)
}

func TestOverUnderMarket(t *testing.T) {
	assert.Equal(t, "ou_0_5", OverUnderMarket(0.5))
	assert.Equal(t, "ou_5_5", OverUnderMarket(5.5))
}

// results builds n newest-first matches with the same score, alternating venue
func results(n, goalsFor, goalsAgainst int) []podds.RecentMatch {
	out := make([]podds.RecentMatch, n)
	day := time.Date(2025, 4, 26, 15, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = podds.RecentMatch{
			Date:         day.AddDate(0, 0, -7*i),
			IsHome:       i%2 == 0,
			GoalsFor:     goalsFor,
			GoalsAgainst: goalsAgainst,
		}
	}
	return out
}

// trainingColumns are the feature columns of the exported LightGBM models
var trainingColumns = []string{
	"homeFormScore", "awayFormScore", "homePPG10", "awayPPG10",
	"homeGF10", "awayGF10", "homeGA10", "awayGA10",
	"homeHomeFormScore", "awayAwayFormScore", "homeDaysSince", "awayDaysSince",
	"h2h_overall_matches", "h2h_overall_home_win_pct", "h2h_overall_away_win_pct", "h2h_overall_draw_pct",
	"h2h_overall_avg_goals", "h2h_overall_btts_pct", "h2h_overall_over_2_5_pct",
	"h2h_venue_matches", "h2h_venue_home_win_pct", "h2h_venue_away_win_pct", "h2h_venue_draw_pct",
	"h2h_venue_avg_goals", "h2h_venue_btts_pct", "h2h_venue_over_2_5_pct",
	"season", "leagueId",
}

func TestFeaturesCoverTrainingColumns(t *testing.T) {
	m := &Model{FeatureNames: trainingColumns}
	home := podds.TeamData{ID: 1, Name: "Home", DaysSinceLastMatch: podds.Int(6), LastMatches: results(10, 2, 1)}
	away := podds.TeamData{ID: 2, Name: "Away", DaysSinceLastMatch: podds.Int(3), LastMatches: results(10, 1, 1)}
	h2h := &podds.H2HData{
		Matches: 5, HomeWins: 2, Draws: 1, AwayWins: 2,
		OverPct: map[string]float64{"2.5": 60}, BTTSPct: podds.Float(40), AvgGoals: podds.Float(2.8),
		Venue: &podds.H2HData{
			Matches: 3, HomeWins: 2, Draws: 1,
			OverPct: map[string]float64{"2.5": 33.3}, BTTSPct: podds.Float(33.3), AvgGoals: podds.Float(2.3),
		},
	}
	meta := podds.FeatureMeta{LeagueID: podds.Int(39), Season: podds.Int(2024)}

	features := podds.BuildMLFeatures(home, away, h2h, meta)
	x := m.Vector(features)
	for i, v := range x {
		assert.False(t, math.IsNaN(v), "%s is missing", trainingColumns[i])
	}

	assert.Equal(t, 100.0, features["homeFormScore"])
	assert.Equal(t, 3.0, features["homePPG10"])
	assert.Equal(t, 2.0, features["homeGF10"])
	assert.Equal(t, 1.0, features["homeGA10"])
	assert.InDelta(t, 100/3.0, features["awayAwayFormScore"], 1e-9)
	assert.Equal(t, 6.0, features["homeDaysSince"])
	assert.Equal(t, 40.0, features["h2h_overall_home_win_pct"])
	assert.Equal(t, 60.0, features["h2h_overall_over_2_5_pct"])
	assert.Equal(t, 3.0, features["h2h_venue_matches"])
	assert.Equal(t, 2024.0, features["season"])
}
