package podds

import "math"

// Field level defaults used when the data layer could not supply a value
const (
	defaultGoalRate      = 1.2
	defaultRestDays      = 7
	defaultTier          = TierAverage
	defaultPointsPerGame = 1.35
	neutralLeagueAvg     = 2.6
	minH2HMatches        = 3
	minXGMatches         = 3
	minLambda            = 0.2
	maxLambda            = 4.5
)

// resolvedTeam is TeamData with every optional field settled.
// All defaulting for a team happens here and nowhere else.
type resolvedTeam struct {
	id   int
	name string
	city string
	tier Tier

	gamesPlayed  int
	homeScored   float64
	homeConceded float64
	awayScored   float64
	awayConceded float64
	avgScored    float64
	avgConceded  float64
	ppg          float64
	homePPG      float64
	awayPPG      float64
	last10Points int
	efficiency   float64
	restDays     int

	mindTier       Tier
	moodTier       Tier
	sleepingGiant  bool
	overPerformer  bool
	regressionRisk bool
	liveDog        bool
	motivation     string

	formationUsage    float64
	hasFormationUsage bool
	dnaOver           map[string]float64
	dnaBTTS           float64
	hasDNABTTS        bool
	dnaFirstHalf      float64
	hasDNAFirstHalf   bool

	elo     float64
	eloConf float64
	hasElo  bool

	recent   []RecentMatch
	standing *Standing
}

func orFloat(p *float64, fallback float64) float64 {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return fallback
	}
	return *p
}

func orInt(p *int, fallback int) int {
	if p == nil {
		return fallback
	}
	return *p
}

func resolveTier(t Tier) Tier {
	if t.Valid() {
		return t
	}
	return defaultTier
}

func resolveTeam(t TeamData) resolvedTeam {
	s := t.Stats
	r := resolvedTeam{
		id:       t.ID,
		name:     t.Name,
		city:     t.City,
		tier:     resolveTier(t.Tier),
		recent:   t.LastMatches,
		standing: t.Standing,
		restDays: orInt(t.DaysSinceLastMatch, defaultRestDays),
	}

	// overall rates fall back to the venue split, then to the league-ish default
	r.avgScored = orFloat(s.AvgGoalsScored, meanOf(s.HomeGoalsScored, s.AwayGoalsScored, defaultGoalRate))
	r.avgConceded = orFloat(s.AvgGoalsConceded, meanOf(s.HomeGoalsConceded, s.AwayGoalsConceded, defaultGoalRate))
	r.homeScored = orFloat(s.HomeGoalsScored, r.avgScored)
	r.homeConceded = orFloat(s.HomeGoalsConceded, r.avgConceded)
	r.awayScored = orFloat(s.AwayGoalsScored, r.avgScored)
	r.awayConceded = orFloat(s.AwayGoalsConceded, r.avgConceded)

	r.gamesPlayed = orInt(s.GamesPlayed, len(t.LastMatches))
	r.ppg = orFloat(s.PointsPerGame, recentPointsPerGame(t.LastMatches, defaultPointsPerGame))
	r.homePPG = orFloat(s.HomePointsPerGame, r.ppg)
	r.awayPPG = orFloat(s.AwayPointsPerGame, r.ppg)
	r.last10Points = orInt(s.Last10Points, last10Points(t.LastMatches, r.ppg))
	r.efficiency = clamp(orFloat(s.EfficiencyIndex, safeDiv(r.avgScored-r.avgConceded, r.avgScored+r.avgConceded, 0)), -1, 1)

	r.mindTier, r.moodTier = r.tier, r.tier
	if t.Mood != nil {
		if t.Mood.MindTier.Valid() {
			r.mindTier = t.Mood.MindTier
		}
		if t.Mood.MoodTier.Valid() {
			r.moodTier = t.Mood.MoodTier
		}
		r.sleepingGiant = t.Mood.IsSleepingGiant
		r.overPerformer = t.Mood.IsOverPerformer
	}
	if t.Safety != nil {
		r.regressionRisk = t.Safety.RegressionRisk
		r.liveDog = t.Safety.LiveDog
		r.motivation = t.Safety.Motivation
	}
	if t.DNA != nil {
		if t.DNA.FormationUsage != nil {
			r.formationUsage, r.hasFormationUsage = clamp(*t.DNA.FormationUsage, 0, 100), true
		}
		r.dnaOver = t.DNA.OverPct
		if t.DNA.BTTSPct != nil {
			r.dnaBTTS, r.hasDNABTTS = *t.DNA.BTTSPct, true
		}
		if t.DNA.FirstHalfGoalPct != nil {
			r.dnaFirstHalf, r.hasDNAFirstHalf = *t.DNA.FirstHalfGoalPct, true
		}
	}
	if t.Elo != nil && t.Elo.Rating > 0 {
		r.elo, r.eloConf, r.hasElo = t.Elo.Rating, clamp(t.Elo.Confidence, 0, 1), true
	}
	return r
}

func meanOf(a, b *float64, fallback float64) float64 {
	switch {
	case a != nil && b != nil:
		return (*a + *b) / 2
	case a != nil:
		return *a
	case b != nil:
		return *b
	}
	return fallback
}

func recentPointsPerGame(matches []RecentMatch, fallback float64) float64 {
	if len(matches) == 0 {
		return fallback
	}
	total := 0
	for _, m := range matches {
		total += m.Points()
	}
	return float64(total) / float64(len(matches))
}

// last10Points sums points over up to ten recent matches, scaling a shorter
// history up to a ten match equivalent
func last10Points(matches []RecentMatch, ppg float64) int {
	if len(matches) == 0 {
		return int(math.Round(ppg * 10))
	}
	n := min(len(matches), 10)
	total := 0
	for _, m := range matches[:n] {
		total += m.Points()
	}
	return int(math.Round(float64(total) * 10 / float64(n)))
}

// dnaOverAt returns the DNA over percentage for a line
func (r resolvedTeam) dnaOverAt(line float64) (float64, bool) {
	if r.dnaOver == nil {
		return 0, false
	}
	v, ok := r.dnaOver[LineKey(line)]
	return v, ok
}

// recentWindow returns at most n of the newest matches
func (r resolvedTeam) recentWindow(n int) []RecentMatch {
	if len(r.recent) <= n {
		return r.recent
	}
	return r.recent[:n]
}

// tierGap is the absolute tier distance between two teams
func tierGap(home, away resolvedTeam) int {
	return absInt(int(home.tier) - int(away.tier))
}
