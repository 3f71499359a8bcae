package podds

import (
	"strconv"
	"time"
)

// Tier is the ordinal team strength bucket, 1 (elite) to 4 (weak)
type Tier int

const (
	TierUnknown Tier = 0
	TierElite   Tier = 1
	TierStrong  Tier = 2
	TierAverage Tier = 3
	TierWeak    Tier = 4
)

// Valid reports whether the tier is inside 1..4
func (t Tier) Valid() bool {
	return t >= TierElite && t <= TierWeak
}

// Confidence is the coarse reliability level attached to a simulation
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Downgrade returns the next lower confidence level. LOW stays LOW.
func (c Confidence) Downgrade() Confidence {
	switch c {
	case ConfidenceHigh:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// GoalLines is the fixed set of total-goals lines the engine prices
var GoalLines = [...]float64{0.5, 1.5, 2.5, 3.5, 4.5, 5.5}

// IsGoalLine reports whether line is one of the fixed goal lines
func IsGoalLine(line float64) bool {
	for _, l := range GoalLines {
		if l == line {
			return true
		}
	}
	return false
}

// LineKey renders a goal line the way per-line percentage maps are keyed ("2.5")
func LineKey(line float64) string {
	return strconv.FormatFloat(line, 'f', 1, 64)
}

// TeamData is everything the engine knows about one side of a fixture
type TeamData struct {
	ID                 int           `json:"id" yaml:"id"`
	Name               string        `json:"name" yaml:"name"`
	City               string        `json:"city,omitempty" yaml:"city,omitempty"`
	Tier               Tier          `json:"tier,omitempty" yaml:"tier,omitempty"`
	Stats              TeamStats     `json:"stats" yaml:"stats"`
	Mood               *Mood         `json:"mood,omitempty" yaml:"mood,omitempty"`
	DNA                *TeamDNA      `json:"dna,omitempty" yaml:"dna,omitempty"`
	Safety             *SafetyFlags  `json:"safety,omitempty" yaml:"safety,omitempty"`
	Elo                *EloRating    `json:"elo,omitempty" yaml:"elo,omitempty"`
	DaysSinceLastMatch *int          `json:"daysSinceLastMatch,omitempty" yaml:"daysSinceLastMatch,omitempty"`
	LastMatches        []RecentMatch `json:"lastMatches,omitempty" yaml:"lastMatches,omitempty"` // newest first
	Standing           *Standing     `json:"standing,omitempty" yaml:"standing,omitempty"`
}

// TeamStats holds season aggregates. All goal and points values are per game.
type TeamStats struct {
	GamesPlayed       *int     `json:"gamesPlayed,omitempty" yaml:"gamesPlayed,omitempty"`
	HomeGoalsScored   *float64 `json:"homeGoalsScored,omitempty" yaml:"homeGoalsScored,omitempty"`
	HomeGoalsConceded *float64 `json:"homeGoalsConceded,omitempty" yaml:"homeGoalsConceded,omitempty"`
	AwayGoalsScored   *float64 `json:"awayGoalsScored,omitempty" yaml:"awayGoalsScored,omitempty"`
	AwayGoalsConceded *float64 `json:"awayGoalsConceded,omitempty" yaml:"awayGoalsConceded,omitempty"`
	AvgGoalsScored    *float64 `json:"avgGoalsScored,omitempty" yaml:"avgGoalsScored,omitempty"`
	AvgGoalsConceded  *float64 `json:"avgGoalsConceded,omitempty" yaml:"avgGoalsConceded,omitempty"`
	PointsPerGame     *float64 `json:"pointsPerGame,omitempty" yaml:"pointsPerGame,omitempty"`
	HomePointsPerGame *float64 `json:"homePointsPerGame,omitempty" yaml:"homePointsPerGame,omitempty"`
	AwayPointsPerGame *float64 `json:"awayPointsPerGame,omitempty" yaml:"awayPointsPerGame,omitempty"`
	Last10Points      *int     `json:"last10Points,omitempty" yaml:"last10Points,omitempty"`
	EfficiencyIndex   *float64 `json:"efficiencyIndex,omitempty" yaml:"efficiencyIndex,omitempty"` // -1..1
}

// RecentMatch is one entry of a team's match history
type RecentMatch struct {
	Date         time.Time `json:"date" yaml:"date"`
	IsHome       bool      `json:"isHome" yaml:"isHome"`
	GoalsFor     int       `json:"goalsFor" yaml:"goalsFor"`
	GoalsAgainst int       `json:"goalsAgainst" yaml:"goalsAgainst"`
	XGFor        *float64  `json:"xgFor,omitempty" yaml:"xgFor,omitempty"`
	XGAgainst    *float64  `json:"xgAgainst,omitempty" yaml:"xgAgainst,omitempty"`
	Competition  string    `json:"competition,omitempty" yaml:"competition,omitempty"`
	WasDerby     bool      `json:"wasDerby,omitempty" yaml:"wasDerby,omitempty"`
}

// Points returns 3, 1 or 0 for a win, draw or defeat
func (m RecentMatch) Points() int {
	switch {
	case m.GoalsFor > m.GoalsAgainst:
		return 3
	case m.GoalsFor == m.GoalsAgainst:
		return 1
	}
	return 0
}

// HasXG reports whether the match carries expected-goals data for both sides
func (m RecentMatch) HasXG() bool {
	return m.XGFor != nil && m.XGAgainst != nil
}

// Mood contrasts long-horizon strength (mind) with recent form (mood)
type Mood struct {
	MindTier        Tier `json:"mindTier,omitempty" yaml:"mindTier,omitempty"` // from the last 50 matches
	MoodTier        Tier `json:"moodTier,omitempty" yaml:"moodTier,omitempty"` // from the last 10 matches
	IsSleepingGiant bool `json:"isSleepingGiant,omitempty" yaml:"isSleepingGiant,omitempty"`
	IsOverPerformer bool `json:"isOverPerformer,omitempty" yaml:"isOverPerformer,omitempty"`
}

// TeamDNA captures stylistic tendencies
type TeamDNA struct {
	MostPlayedFormation string             `json:"mostPlayedFormation,omitempty" yaml:"mostPlayedFormation,omitempty"`
	FormationUsage      *float64           `json:"formationUsage,omitempty" yaml:"formationUsage,omitempty"` // share 0..100
	OverPct             map[string]float64 `json:"overPct,omitempty" yaml:"overPct,omitempty"`               // keyed by LineKey
	BTTSPct             *float64           `json:"bttsPct,omitempty" yaml:"bttsPct,omitempty"`
	FirstHalfGoalPct    *float64           `json:"firstHalfGoalPct,omitempty" yaml:"firstHalfGoalPct,omitempty"`
}

// SafetyFlags are pre-computed warnings supplied by the data layer
type SafetyFlags struct {
	Motivation     string `json:"motivation,omitempty" yaml:"motivation,omitempty"` // explicit stakes label
	RegressionRisk bool   `json:"regressionRisk,omitempty" yaml:"regressionRisk,omitempty"`
	LiveDog        bool   `json:"liveDog,omitempty" yaml:"liveDog,omitempty"`
}

// EloRating is a rating plus how much we trust it (0..1)
type EloRating struct {
	Rating     float64 `json:"rating" yaml:"rating"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Standing is a team's league table row as seen by the end-of-season detector.
// Distances are non-negative point gaps to the named boundary.
type Standing struct {
	Position             int  `json:"position" yaml:"position"`
	LeagueSize           int  `json:"leagueSize,omitempty" yaml:"leagueSize,omitempty"`
	Points               int  `json:"points,omitempty" yaml:"points,omitempty"`
	PointsFromFirst      int  `json:"pointsFromFirst" yaml:"pointsFromFirst"`
	PointsFromCL         int  `json:"pointsFromCL" yaml:"pointsFromCL"`
	PointsFromEuropa     *int `json:"pointsFromEuropa,omitempty" yaml:"pointsFromEuropa,omitempty"`
	PointsFromConference *int `json:"pointsFromConference,omitempty" yaml:"pointsFromConference,omitempty"`
	PointsFromRelegation int  `json:"pointsFromRelegation" yaml:"pointsFromRelegation"`
	PointsClearOfSecond  *int `json:"pointsClearOfSecond,omitempty" yaml:"pointsClearOfSecond,omitempty"`
}

// H2HData aggregates previous meetings from the current home team's point of view
type H2HData struct {
	Matches  int                `json:"matches" yaml:"matches"`
	HomeWins int                `json:"homeWins" yaml:"homeWins"`
	Draws    int                `json:"draws" yaml:"draws"`
	AwayWins int                `json:"awayWins" yaml:"awayWins"`
	OverPct  map[string]float64 `json:"overPct,omitempty" yaml:"overPct,omitempty"` // keyed by LineKey
	BTTSPct  *float64           `json:"bttsPct,omitempty" yaml:"bttsPct,omitempty"`
	AvgGoals *float64           `json:"avgGoals,omitempty" yaml:"avgGoals,omitempty"`
	Venue    *H2HData           `json:"venue,omitempty" yaml:"venue,omitempty"` // meetings at this ground only
}

// SufficientSample is true when there are enough meetings to trust the record
func (h *H2HData) SufficientSample() bool {
	return h != nil && h.Matches >= minH2HMatches
}

// OverAt returns the over percentage recorded for a line
func (h *H2HData) OverAt(line float64) (float64, bool) {
	if h == nil || h.OverPct == nil {
		return 0, false
	}
	v, ok := h.OverPct[LineKey(line)]
	return v, ok
}

// InjuryReport holds signed impacts in percent; negative values weaken the unit
type InjuryReport struct {
	HomeAttack  float64 `json:"homeAttack" yaml:"homeAttack"`
	HomeDefense float64 `json:"homeDefense" yaml:"homeDefense"`
	AwayAttack  float64 `json:"awayAttack" yaml:"awayAttack"`
	AwayDefense float64 `json:"awayDefense" yaml:"awayDefense"`
}

// Adjustment is one named nudge in percentage points
type Adjustment struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Reason string  `json:"reason"`
}

// GoalDistributionModifiers scale the Poisson rates. Neutral is 1.
type GoalDistributionModifiers struct {
	AttackHome  float64 `json:"attackHomeMult"`
	DefenseHome float64 `json:"defenseHomeMult"`
	AttackAway  float64 `json:"attackAwayMult"`
	DefenseAway float64 `json:"defenseAwayMult"`
	GlobalGoals float64 `json:"globalGoalsMult"`
}

// NeutralModifiers returns the identity modifiers
func NeutralModifiers() GoalDistributionModifiers {
	return GoalDistributionModifiers{AttackHome: 1, DefenseHome: 1, AttackAway: 1, DefenseAway: 1, GlobalGoals: 1}
}

// ScenarioType names a simulated market
type ScenarioType string

const (
	ScenarioMatchResult ScenarioType = "MATCH_RESULT"
	ScenarioTotalGoals  ScenarioType = "TOTAL_GOALS_OVER_UNDER"
	ScenarioBTTS        ScenarioType = "BTTS"
	ScenarioFirstHalf   ScenarioType = "FIRST_HALF_ACTIVITY"
)

// Probability distribution keys
const (
	KeyHomeWin = "homeWin"
	KeyDraw    = "draw"
	KeyAwayWin = "awayWin"
	KeyOver    = "over"
	KeyUnder   = "under"
	KeyYes     = "yes"
	KeyNo      = "no"
)

// Strategy records which base probability source priced a simulation
type Strategy string

const (
	StrategyRules Strategy = "rules"
	StrategyML    Strategy = "ml"
)

// Simulation is the immutable result of one market simulation
type Simulation struct {
	ScenarioType            ScenarioType       `json:"scenarioType"`
	Line                    *float64           `json:"line,omitempty"`
	Strategy                Strategy           `json:"strategy"`
	ProbabilityDistribution map[string]float64 `json:"probabilityDistribution"`
	ModelReliability        Confidence         `json:"modelReliability"`
	ReliabilityScore        float64            `json:"reliabilityScore"`
	AdjustmentsApplied      []Adjustment       `json:"adjustmentsApplied"`
	TotalAdjustment         float64            `json:"totalAdjustment"`
	CapsHit                 []string           `json:"capsHit"`
	OvercorrectionWarning   bool               `json:"overcorrectionWarning"`
	Warnings                []string           `json:"warnings,omitempty"`
}

// Float returns a pointer to v, for building optional inputs
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for building optional inputs
func Int(v int) *int { return &v }

// Published bounds of the model, checked by the sanity layer
const (
	LambdaMin   = minLambda
	LambdaMax   = maxLambda
	ModifierMin = modifierMin
	ModifierMax = modifierMax
)
