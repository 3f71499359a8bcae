package store

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richard-senior/podds/pkg/podds"
)

type matchInput struct {
	Home podds.TeamData `json:"home"`
	Away podds.TeamData `json:"away"`
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate())
	return s
}

func sampleInput() matchInput {
	return matchInput{
		Home: podds.TeamData{ID: 40, Name: "Liverpool", Tier: podds.TierElite},
		Away: podds.TeamData{ID: 41, Name: "Southampton", Tier: podds.TierWeak},
	}
}

func TestGenerateSQL(t *testing.T) {
	r := &SimulationRecord{}
	create := generateCreateTableSQL(r, r.GetTableName())
	assert.Contains(t, create, "CREATE TABLE IF NOT EXISTS simulations (id TEXT NOT NULL, fixture_id TEXT NOT NULL")
	assert.Contains(t, create, "PRIMARY KEY (id)")
	assert.NotContains(t, create, "db:")

	idx := generateIndexSQL(r, r.GetTableName())
	assert.Equal(t, []string{
		"CREATE INDEX IF NOT EXISTS idx_simulations_fixture_id ON simulations(fixture_id)",
		"CREATE INDEX IF NOT EXISTS idx_simulations_scenario ON simulations(scenario)",
		"CREATE INDEX IF NOT EXISTS idx_simulations_input_hash ON simulations(input_hash)",
	}, idx)

	where, values := buildWhereClause(map[string]any{"b": 2, "a": 1})
	assert.Equal(t, "a = ? AND b = ?", where)
	assert.Equal(t, []any{1, 2}, values)
}

func TestRecordRoundTrip(t *testing.T) {
	s := openStore(t)
	in := sampleInput()
	sim := podds.SimulateMatchOutcome(in.Home, in.Away, nil, nil, nil, nil, nil)

	saved, err := s.Record("lfc-sou", in, sim)
	require.NoError(t, err)
	_, err = uuid.Parse(saved.ID)
	require.NoError(t, err)
	assert.NotZero(t, saved.CreatedAt)

	got, err := s.FindByID(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "lfc-sou", got.FixtureID)
	assert.Equal(t, string(podds.ScenarioMatchResult), got.Scenario)
	assert.Nil(t, got.Line)
	assert.Nil(t, got.Over)
	require.NotNil(t, got.HomeWin)
	assert.Equal(t, sim.ProbabilityDistribution[podds.KeyHomeWin], *got.HomeWin)
	assert.Equal(t, saved.InputHash, got.InputHash)
	assert.Equal(t, saved.CreatedAt, got.CreatedAt)

	decoded, err := got.Simulation()
	require.NoError(t, err)
	assert.Equal(t, sim.ProbabilityDistribution, decoded.ProbabilityDistribution)

	same, err := got.SameInput(in)
	require.NoError(t, err)
	assert.True(t, same)
}

func TestVerify(t *testing.T) {
	s := openStore(t)
	in := sampleInput()
	cfg := podds.DefaultConfig()

	sim, err := podds.SimulateTotalGoalsOverUnder(in.Home, in.Away, nil, nil, 2.5, &cfg, nil, nil)
	require.NoError(t, err)
	saved, err := s.Record("lfc-sou", in, sim)
	require.NoError(t, err)
	require.NotNil(t, saved.Line)
	assert.Equal(t, 2.5, *saved.Line)

	again, err := podds.SimulateTotalGoalsOverUnder(in.Home, in.Away, nil, nil, 2.5, &cfg, nil, nil)
	require.NoError(t, err)
	ok, err := Verify(saved, again)
	require.NoError(t, err)
	assert.True(t, ok, "same inputs reproduce the stored payload")

	in.Home.Stats.HomeGoalsScored = podds.Float(3.1)
	changed, err := podds.SimulateTotalGoalsOverUnder(in.Home, in.Away, nil, nil, 2.5, &cfg, nil, nil)
	require.NoError(t, err)
	ok, err = Verify(saved, changed)
	require.NoError(t, err)
	assert.False(t, ok)

	same, err := saved.SameInput(in)
	require.NoError(t, err)
	assert.False(t, same)
}

func TestFindByFixtureAndDelete(t *testing.T) {
	s := openStore(t)
	in := sampleInput()
	for _, sim := range []podds.Simulation{
		podds.SimulateBTTS(in.Home, in.Away, nil, nil, nil, nil, nil),
		podds.SimulateFirstHalfActivity(in.Home, in.Away, nil, nil, nil, nil, nil),
	} {
		_, err := s.Record("lfc-sou", in, sim)
		require.NoError(t, err)
	}
	_, err := s.Record("other", in, podds.SimulateBTTS(in.Home, in.Away, nil, nil, nil, nil, nil))
	require.NoError(t, err)

	records, err := s.FindByFixture("lfc-sou")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.NotNil(t, records[0].Yes)

	require.NoError(t, s.Delete(records[0]))
	_, err = s.FindByID(records[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	records, err = s.FindByFixture("lfc-sou")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSaveUpdatesExisting(t *testing.T) {
	s := openStore(t)
	in := sampleInput()
	r, err := s.Record("lfc-sou", in, podds.SimulateBTTS(in.Home, in.Away, nil, nil, nil, nil, nil))
	require.NoError(t, err)

	r.FixtureID = "renamed"
	require.NoError(t, s.Save(r))

	got, err := s.FindByID(r.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.FixtureID)

	all, err := s.FindWhere(&SimulationRecord{}, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSaveRejectsBadRecords(t *testing.T) {
	s := openStore(t)
	assert.Error(t, s.Save(&SimulationRecord{ID: "not-a-uuid", Payload: []byte{1}}))
	assert.Error(t, s.Save(&SimulationRecord{}))
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	in := sampleInput()
	r, err := s.Record("f", in, podds.SimulateBTTS(in.Home, in.Away, nil, nil, nil, nil, nil))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.FindByID(r.ID)
	assert.NoError(t, err)
}
