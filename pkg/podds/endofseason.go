package podds

import (
	"math"
	"strings"
)

// Stakes is what a team is still playing for
type Stakes string

const (
	StakesTitleRace        Stakes = "TITLE_RACE"
	StakesCLQualification  Stakes = "CL_QUALIFICATION"
	StakesEuropaRace       Stakes = "EUROPA_RACE"
	StakesConferenceRace   Stakes = "CONFERENCE_RACE"
	StakesRelegationBattle Stakes = "RELEGATION_BATTLE"
	StakesNothingToPlay    Stakes = "NOTHING_TO_PLAY"
	StakesAlreadyRelegated Stakes = "ALREADY_RELEGATED"
	StakesAlreadyChampion  Stakes = "ALREADY_CHAMPION"
	StakesUnknown          Stakes = "UNKNOWN"
)

var stakesPriority = map[Stakes]int{
	StakesTitleRace:        100,
	StakesRelegationBattle: 95,
	StakesCLQualification:  80,
	StakesEuropaRace:       60,
	StakesConferenceRace:   50,
	StakesNothingToPlay:    20,
	StakesAlreadyChampion:  15,
	StakesAlreadyRelegated: 10,
}

// Priority returns the fixed motivation priority. Unknown stakes sit in the middle.
func (s Stakes) Priority() int {
	if p, ok := stakesPriority[s]; ok {
		return p
	}
	return 50
}

// level is the coarse 0..4 scale used by the motivation factor
func (s Stakes) level() int {
	switch s {
	case StakesTitleRace, StakesRelegationBattle:
		return 4
	case StakesCLQualification:
		return 3
	case StakesEuropaRace, StakesConferenceRace:
		return 2
	case StakesAlreadyChampion, StakesAlreadyRelegated:
		return 0
	}
	return 1
}

// neutral stakes give a team nothing concrete to chase
func (s Stakes) neutral() bool {
	switch s {
	case StakesNothingToPlay, StakesAlreadyChampion, StakesAlreadyRelegated, StakesUnknown, "":
		return true
	}
	return false
}

func (s Stakes) european() bool {
	return s == StakesCLQualification || s == StakesEuropaRace || s == StakesConferenceRace
}

func (s Stakes) relegation() bool {
	return s == StakesRelegationBattle || s == StakesAlreadyRelegated
}

var stakesAliases = map[string]Stakes{
	"TITLE": StakesTitleRace, "TITLE_RACE": StakesTitleRace,
	"CL": StakesCLQualification, "CHAMPIONS_LEAGUE": StakesCLQualification, "CL_QUALIFICATION": StakesCLQualification,
	"EUROPA": StakesEuropaRace, "EUROPA_RACE": StakesEuropaRace, "EUROPA_LEAGUE": StakesEuropaRace,
	"CONFERENCE": StakesConferenceRace, "CONFERENCE_RACE": StakesConferenceRace, "CONFERENCE_LEAGUE": StakesConferenceRace,
	"RELEGATION": StakesRelegationBattle, "RELEGATION_BATTLE": StakesRelegationBattle, "SURVIVAL": StakesRelegationBattle,
	"NOTHING": StakesNothingToPlay, "NOTHING_TO_PLAY": StakesNothingToPlay, "MID_TABLE": StakesNothingToPlay,
	"ALREADY_RELEGATED": StakesAlreadyRelegated, "RELEGATED": StakesAlreadyRelegated,
	"ALREADY_CHAMPION": StakesAlreadyChampion, "CHAMPION": StakesAlreadyChampion, "CHAMPIONS": StakesAlreadyChampion,
}

// ParseStakes maps a motivation label onto Stakes
func ParseStakes(label string) (Stakes, bool) {
	key := strings.ToUpper(strings.TrimSpace(label))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	s, ok := stakesAliases[key]
	return s, ok
}

// EndOfSeasonInput is what the end-of-season detector needs from the fixture
type EndOfSeasonInput struct {
	Round          int       `json:"round"`
	TotalRounds    int       `json:"totalRounds"`
	LeagueSize     int       `json:"leagueSize"`
	Home           *Standing `json:"home,omitempty"`
	Away           *Standing `json:"away,omitempty"`
	HomeMotivation string    `json:"homeMotivation,omitempty"` // explicit flag wins over derivation
	AwayMotivation string    `json:"awayMotivation,omitempty"`
}

// EndOfSeasonAdjustments are applied only in the run-in
type EndOfSeasonAdjustments struct {
	GoalsMultiplier     float64 `json:"goalsMultiplier"`
	ConfidenceReduction float64 `json:"confidenceReduction"`
}

// EndOfSeasonInfo is the end-of-season detector's verdict
type EndOfSeasonInfo struct {
	IsEndOfSeason   bool                   `json:"isEndOfSeason"`
	RemainingRounds int                    `json:"remainingRounds"`
	Progress        float64                `json:"progress"`
	HomeStakes      Stakes                 `json:"homeStakes"`
	AwayStakes      Stakes                 `json:"awayStakes"`
	MotivationGap   int                    `json:"motivationGap"`
	IsSixPointer    bool                   `json:"isSixPointer"`
	Adjustments     EndOfSeasonAdjustments `json:"adjustments"`
}

// DetectEndOfSeason works out whether the fixture is in the run-in and what
// each side is playing for
func DetectEndOfSeason(in EndOfSeasonInput) EndOfSeasonInfo {
	size := in.LeagueSize
	if size <= 0 {
		size = leagueSizeFrom(in.Home, in.Away)
	}
	total := in.TotalRounds
	if total <= 0 && size > 1 {
		total = (size - 1) * 2
	}

	info := EndOfSeasonInfo{
		HomeStakes:  StakesUnknown,
		AwayStakes:  StakesUnknown,
		Adjustments: EndOfSeasonAdjustments{GoalsMultiplier: 1},
	}
	if total > 0 && in.Round > 0 {
		info.RemainingRounds = max(total-in.Round, 0)
		info.Progress = float64(in.Round) / float64(total)
		info.IsEndOfSeason = info.RemainingRounds < 5 || info.Progress > 0.85
	}

	info.HomeStakes = teamStakes(in.HomeMotivation, in.Home, size, info)
	info.AwayStakes = teamStakes(in.AwayMotivation, in.Away, size, info)
	info.MotivationGap = info.HomeStakes.Priority() - info.AwayStakes.Priority()
	info.IsSixPointer = IsSixPointer(info.HomeStakes, info.AwayStakes)

	if info.IsEndOfSeason {
		switch {
		case info.IsSixPointer:
			info.Adjustments = EndOfSeasonAdjustments{GoalsMultiplier: 0.92, ConfidenceReduction: 5}
		case info.HomeStakes.neutral() && info.AwayStakes.neutral():
			info.Adjustments = EndOfSeasonAdjustments{GoalsMultiplier: 1.06, ConfidenceReduction: 6}
		case absInt(info.MotivationGap) >= 60:
			info.Adjustments = EndOfSeasonAdjustments{GoalsMultiplier: 1, ConfidenceReduction: 3}
		}
	}
	return info
}

// IsSixPointer is true when both teams chase the same objective
func IsSixPointer(home, away Stakes) bool {
	if home.neutral() && away.neutral() {
		return false
	}
	switch {
	case home == away:
		return true
	case home.relegation() && away.relegation():
		return true
	case home.european() && away.european():
		return true
	}
	return false
}

func teamStakes(label string, st *Standing, size int, info EndOfSeasonInfo) Stakes {
	if s, ok := ParseStakes(label); ok {
		return s
	}
	if !info.IsEndOfSeason {
		return StakesUnknown
	}
	return deriveStakes(st, size, info.RemainingRounds)
}

func leagueSizeFrom(standings ...*Standing) int {
	for _, st := range standings {
		if st != nil && st.LeagueSize > 0 {
			return st.LeagueSize
		}
	}
	return 20
}

func scaled(base float64, size int) int {
	return int(math.Round(base * float64(size) / 20))
}

// deriveStakes reads a team's objective off its standing. Thresholds scale
// with league size and never exceed the points still available.
func deriveStakes(st *Standing, size, remaining int) Stakes {
	if st == nil || st.Position <= 0 {
		return StakesUnknown
	}
	if size <= 0 {
		size = 20
	}
	available := remaining * 3
	threshold := min(available, max(1, scaled(6, size)))
	relSpots := max(2, scaled(3, size))
	clSpots := max(2, scaled(4, size))
	europaEnd := clSpots + max(1, scaled(2, size))
	conferenceEnd := europaEnd + 1
	relZoneStart := size - relSpots + 1
	pos := st.Position

	switch {
	case pos == 1 && st.PointsClearOfSecond != nil && *st.PointsClearOfSecond > available:
		return StakesAlreadyChampion
	case pos >= relZoneStart && st.PointsFromRelegation > available:
		return StakesAlreadyRelegated
	case pos <= clSpots && st.PointsFromFirst <= threshold:
		return StakesTitleRace
	case pos > size/2 && st.PointsFromRelegation <= threshold:
		return StakesRelegationBattle
	case pos <= clSpots+3 && st.PointsFromCL <= threshold:
		return StakesCLQualification
	}

	if st.PointsFromEuropa != nil {
		if pos <= europaEnd+3 && *st.PointsFromEuropa <= threshold {
			return StakesEuropaRace
		}
	} else if pos > clSpots && pos <= europaEnd+1 {
		return StakesEuropaRace
	}
	if st.PointsFromConference != nil {
		if pos <= conferenceEnd+3 && *st.PointsFromConference <= threshold {
			return StakesConferenceRace
		}
	} else if pos > europaEnd && pos <= conferenceEnd+1 {
		return StakesConferenceRace
	}
	return StakesNothingToPlay
}
