package podds

import "time"

// FeatureMeta identifies the competition for the models. Nil fields are left
// out of the feature vector.
type FeatureMeta struct {
	LeagueID *int
	Season   *int
}

// formWindow is the number of recent matches behind the *10 features
const formWindow = 10

// BuildMLFeatures flattens the inputs into the columns the tree models were
// trained on. Absent values are left out so the model follows its default
// branch.
func BuildMLFeatures(home, away TeamData, h2h *H2HData, meta FeatureMeta) map[string]float64 {
	h, a := resolveTeam(home), resolveTeam(away)
	f := map[string]float64{
		"homeDaysSince": float64(h.restDays),
		"awayDaysSince": float64(a.restDays),
	}
	formFeatures(f, "home", h.recentWindow(formWindow), func(m RecentMatch) bool { return m.IsHome })
	formFeatures(f, "away", a.recentWindow(formWindow), func(m RecentMatch) bool { return !m.IsHome })
	h2hFeatures(f, "h2h_overall_", h2h)
	if h2h != nil {
		h2hFeatures(f, "h2h_venue_", h2h.Venue)
	}
	if meta.LeagueID != nil {
		f["leagueId"] = float64(*meta.LeagueID)
	}
	if meta.Season != nil {
		f["season"] = float64(*meta.Season)
	}
	return f
}

// formFeatures writes <side>FormScore, <side>PPG10, <side>GF10, <side>GA10 and
// the venue form score (homeHomeFormScore, awayAwayFormScore)
func formFeatures(f map[string]float64, side string, matches []RecentMatch, atVenue func(RecentMatch) bool) {
	if len(matches) == 0 {
		return
	}
	var points, scored, conceded int
	var venuePoints, venueGames int
	for _, m := range matches {
		points += m.Points()
		scored += m.GoalsFor
		conceded += m.GoalsAgainst
		if atVenue(m) {
			venuePoints += m.Points()
			venueGames++
		}
	}
	n := float64(len(matches))
	f[side+"FormScore"] = formScore(points, len(matches))
	f[side+"PPG10"] = float64(points) / n
	f[side+"GF10"] = float64(scored) / n
	f[side+"GA10"] = float64(conceded) / n
	if venueGames > 0 {
		venue := "Home"
		if side == "away" {
			venue = "Away"
		}
		f[side+venue+"FormScore"] = formScore(venuePoints, venueGames)
	}
}

// formScore is the share of available points won, 0..100
func formScore(points, games int) float64 {
	return float64(points) / float64(3*games) * 100
}

// h2hFeatures writes the meeting record under prefix. Percentages are 0..100.
func h2hFeatures(f map[string]float64, prefix string, h *H2HData) {
	if h == nil || h.Matches <= 0 {
		return
	}
	n := float64(h.Matches)
	f[prefix+"matches"] = n
	f[prefix+"home_win_pct"] = float64(h.HomeWins) / n * 100
	f[prefix+"draw_pct"] = float64(h.Draws) / n * 100
	f[prefix+"away_win_pct"] = float64(h.AwayWins) / n * 100
	if h.AvgGoals != nil {
		f[prefix+"avg_goals"] = *h.AvgGoals
	}
	if h.BTTSPct != nil {
		f[prefix+"btts_pct"] = *h.BTTSPct
	}
	if v, ok := h.OverAt(2.5); ok {
		f[prefix+"over_2_5_pct"] = v
	}
}

// NewContextInput fills the team derived parts of a ContextInput: refs, rest
// gaps, standings and explicit motivation flags
func NewContextInput(home, away TeamData, leagueName, round string, season EndOfSeasonInput, now time.Time) ContextInput {
	in := ContextInput{
		Home:                   home.Ref(),
		Away:                   away.Ref(),
		LeagueName:             leagueName,
		Round:                  round,
		Season:                 season,
		HomeDaysSinceLastMatch: home.DaysSinceLastMatch,
		AwayDaysSinceLastMatch: away.DaysSinceLastMatch,
		Now:                    now,
	}
	if len(home.LastMatches) > 0 {
		d := home.LastMatches[0].Date
		in.HomeLastMatch = &d
	}
	if len(away.LastMatches) > 0 {
		d := away.LastMatches[0].Date
		in.AwayLastMatch = &d
	}
	if in.Season.Home == nil {
		in.Season.Home = home.Standing
	}
	if in.Season.Away == nil {
		in.Season.Away = away.Standing
	}
	if in.Season.HomeMotivation == "" && home.Safety != nil {
		in.Season.HomeMotivation = home.Safety.Motivation
	}
	if in.Season.AwayMotivation == "" && away.Safety != nil {
		in.Season.AwayMotivation = away.Safety.Motivation
	}
	return in
}
