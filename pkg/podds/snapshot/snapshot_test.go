package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richard-senior/podds/pkg/podds"
	"github.com/richard-senior/podds/pkg/transport"
)

func TestLoadJSON(t *testing.T) {
	f, err := Load("testdata/elclasico.json")
	require.NoError(t, err)
	assert.Equal(t, "laliga-2025-36-elclasico", f.ID)
	assert.Equal(t, 529, f.Home.ID)
	assert.Equal(t, podds.TierElite, f.Away.Tier)
	require.NotNil(t, f.H2H)
	assert.Equal(t, 10, f.H2H.Matches)
	require.NotNil(t, f.H2H.Venue)
	assert.Equal(t, 3, f.H2H.Venue.HomeWins)
	require.NotNil(t, f.League.ID)
	assert.Equal(t, 140, *f.League.ID)
	assert.Equal(t, 2024, *f.League.Season)
	require.Len(t, f.Home.LastMatches, 2)
	assert.Equal(t, 3, f.Home.LastMatches[0].GoalsFor)

	ctx := f.Context(time.Time{})
	assert.Equal(t, "El Clásico", ctx.Derby.Name)
	assert.Equal(t, podds.IntensityExtreme, ctx.Derby.Intensity)
	assert.True(t, ctx.SeasonStakes.IsEndOfSeason)
	require.NotNil(t, ctx.LeagueAvgGoals)
	assert.Equal(t, 2.7, *ctx.LeagueAvgGoals)
}

func TestLoadYAMLEndOfSeason(t *testing.T) {
	f, err := Load("testdata/relegation.yaml")
	require.NoError(t, err)
	assert.Equal(t, "relegation", f.ID, "id falls back to the file name")
	require.NotNil(t, f.Injuries)
	assert.Equal(t, -20.0, f.Injuries.AwayDefense)

	in := f.ContextInput(time.Time{})
	assert.Equal(t, 36, in.Season.Round)
	assert.Equal(t, f.Kickoff, in.Now)

	ctx := podds.BuildMatchContext(in)
	assert.Equal(t, podds.StakesTitleRace, ctx.SeasonStakes.Home)
	assert.Equal(t, podds.StakesRelegationBattle, ctx.SeasonStakes.Away)
	assert.False(t, ctx.IsSixPointer)
	assert.Greater(t, ctx.SeasonStakes.MotivationGap, 0)
}

func TestLoadHTMLNextData(t *testing.T) {
	f, err := Load("testdata/matchcentre.html")
	require.NoError(t, err)
	assert.Equal(t, "nld", f.ID)
	assert.Equal(t, "Arsenal", f.Home.Name)
	ctx := f.Context(time.Time{})
	assert.Equal(t, "North London Derby", ctx.Derby.Name)

	_, err = Decode([]byte("<html><body>nothing here</body></html>"), ".html")
	assert.ErrorIs(t, err, ErrInvalidFixture)
	_, err = Decode([]byte(`<script id="__NEXT_DATA__">{"props":{"pageProps":{}}}</script>`), ".html")
	assert.ErrorIs(t, err, ErrInvalidFixture)
}

func TestLoadCompressed(t *testing.T) {
	raw, err := os.ReadFile("testdata/elclasico.json")
	require.NoError(t, err)
	br, err := transport.CompressBrotli(raw)
	require.NoError(t, err)
	p := filepath.Join(t.TempDir(), "clasico.json.br")
	require.NoError(t, os.WriteFile(p, br, 0o644))

	f, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "Barcelona", f.Home.Name)
}

func TestDecodeRejects(t *testing.T) {
	_, err := Decode([]byte(`{"home":{"name":"A"},"away":{"name":"B"},"venue":"x"}`), ".json")
	assert.ErrorIs(t, err, ErrInvalidFixture, "unknown fields are typos")

	_, err = Decode([]byte(`{"home":{"name":"A"},"away":{}}`), ".json")
	assert.ErrorIs(t, err, ErrInvalidFixture)

	_, err = Decode([]byte(`{"home":{"name":"A","tier":7},"away":{"name":"B"}}`), ".json")
	assert.ErrorIs(t, err, ErrInvalidFixture)

	_, err = Decode([]byte(`a,b`), ".csv")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadDirSortedAndFiltered(t *testing.T) {
	fixtures, err := LoadDir("testdata")
	require.NoError(t, err)
	require.Len(t, fixtures, 3)
	assert.Equal(t, "laliga-2025-36-elclasico", fixtures[0].ID)
	assert.Equal(t, "nld", fixtures[1].ID)
	assert.Equal(t, "relegation", fixtures[2].ID)

	_, err = LoadDir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestRoundNumber(t *testing.T) {
	assert.Equal(t, 36, League{Round: "Regular Season - 36"}.roundNumber())
	assert.Equal(t, 5, League{Round: "Regular Season - 36", RoundNumber: 5}.roundNumber())
	assert.Equal(t, 0, League{Round: "Semi-finals"}.roundNumber())
	assert.Equal(t, 0, League{}.roundNumber())
}
