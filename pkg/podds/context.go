package podds

import (
	"math"
	"time"
)

// per source caps on the confidence reduction
const (
	capMatchTypeConfidence   = 20
	capDerbyConfidence       = 12
	capEndOfSeasonConfidence = 10
	capBreakConfidence       = 5

	internationalBreakDays = 14
)

// ContextInput is everything the combiner needs to classify a fixture.
// Now is supplied by the caller so the result never depends on the wall clock.
type ContextInput struct {
	Home                   TeamRef          `json:"home"`
	Away                   TeamRef          `json:"away"`
	LeagueName             string           `json:"leagueName"`
	Round                  string           `json:"round"`
	Season                 EndOfSeasonInput `json:"season"`
	HomeLastMatch          *time.Time       `json:"homeLastMatch,omitempty"`
	AwayLastMatch          *time.Time       `json:"awayLastMatch,omitempty"`
	HomeDaysSinceLastMatch *int             `json:"homeDaysSinceLastMatch,omitempty"`
	AwayDaysSinceLastMatch *int             `json:"awayDaysSinceLastMatch,omitempty"`
	PostInternationalBreak bool             `json:"postInternationalBreak,omitempty"`
	LeagueAvgGoals         *float64         `json:"leagueAvgGoals,omitempty"`
	Now                    time.Time        `json:"now"`
}

// SeasonStakes is what each side is playing for
type SeasonStakes struct {
	Home          Stakes `json:"home"`
	Away          Stakes `json:"away"`
	IsEndOfSeason bool   `json:"isEndOfSeason"`
	MotivationGap int    `json:"motivationGap"`
}

// ContextSource is one detector's contribution, kept for audits
type ContextSource struct {
	Source                  string  `json:"source"`
	GoalsMultiplier         float64 `json:"goalsMultiplier"`
	HomeAdvantageMultiplier float64 `json:"homeAdvantageMultiplier"`
	ConfidenceReduction     float64 `json:"confidenceReduction"`
}

// ContextAdjustments is the stacked effect of every detector
type ContextAdjustments struct {
	GoalsMultiplier           float64         `json:"goalsMultiplier"`
	HomeAdvantageMultiplier   float64         `json:"homeAdvantageMultiplier"`
	CardsMultiplier           float64         `json:"cardsMultiplier"`
	GoalExpectationAdjustment float64         `json:"goalExpectationAdjustment"` // -10..10
	ConfidenceReduction       float64         `json:"confidenceReduction"`
	Sources                   []ContextSource `json:"sources"`
}

// MatchContext is built once per fixture and only read afterwards
type MatchContext struct {
	MatchType                MatchTypeInfo      `json:"matchType"`
	Derby                    DerbyInfo          `json:"derby"`
	SeasonStakes             SeasonStakes       `json:"seasonStakes"`
	EndOfSeason              EndOfSeasonInfo    `json:"endOfSeason"`
	IsSixPointer             bool               `json:"isSixPointer"`
	IsPostInternationalBreak bool               `json:"isPostInternationalBreak"`
	LeagueAvgGoals           *float64           `json:"leagueAvgGoals,omitempty"`
	Adjustments              ContextAdjustments `json:"adjustments"`
}

// BuildMatchContext runs the three detectors and stacks their adjustments in
// a fixed order: match type, derby, end of season, post international break
func BuildMatchContext(in ContextInput) MatchContext {
	mt := DetectMatchType(in.LeagueName, in.Round)
	derby := DetectDerby(in.Home, in.Away)
	eos := DetectEndOfSeason(in.Season)
	postBreak := in.PostInternationalBreak || afterBreak(in)
	return CombineContext(mt, derby, eos, postBreak, in.LeagueAvgGoals)
}

// CombineContext stacks already computed detector results
func CombineContext(mt MatchTypeInfo, derby DerbyInfo, eos EndOfSeasonInfo, postBreak bool, leagueAvg *float64) MatchContext {
	adj := ContextAdjustments{GoalsMultiplier: 1, HomeAdvantageMultiplier: 1, CardsMultiplier: 1}
	stack := func(src ContextSource, limit float64) {
		src.ConfidenceReduction = clamp(src.ConfidenceReduction, 0, limit)
		adj.GoalsMultiplier *= src.GoalsMultiplier
		adj.HomeAdvantageMultiplier *= src.HomeAdvantageMultiplier
		adj.ConfidenceReduction += src.ConfidenceReduction
		adj.Sources = append(adj.Sources, src)
	}

	stack(ContextSource{
		Source:                  "matchType",
		GoalsMultiplier:         mt.Adjustments.GoalsMultiplier,
		HomeAdvantageMultiplier: mt.Adjustments.HomeAdvantageMultiplier,
		ConfidenceReduction:     mt.Adjustments.ConfidenceReduction,
	}, capMatchTypeConfidence)

	stack(ContextSource{
		Source:                  "derby",
		GoalsMultiplier:         derby.Adjustments.GoalsMultiplier,
		HomeAdvantageMultiplier: derby.Adjustments.HomeAdvantageMultiplier,
		ConfidenceReduction:     derby.Adjustments.ConfidenceReduction,
	}, capDerbyConfidence)
	adj.CardsMultiplier *= derby.Adjustments.CardsMultiplier

	stack(ContextSource{
		Source:                  "endOfSeason",
		GoalsMultiplier:         eos.Adjustments.GoalsMultiplier,
		HomeAdvantageMultiplier: 1,
		ConfidenceReduction:     eos.Adjustments.ConfidenceReduction,
	}, capEndOfSeasonConfidence)

	if postBreak {
		stack(ContextSource{
			Source:                  "postInternationalBreak",
			GoalsMultiplier:         0.97,
			HomeAdvantageMultiplier: 1,
			ConfidenceReduction:     4,
		}, capBreakConfidence)
	}

	adj.GoalExpectationAdjustment = clamp((adj.GoalsMultiplier-1)*100, -10, 10)

	return MatchContext{
		MatchType: mt,
		Derby:     derby,
		SeasonStakes: SeasonStakes{
			Home:          eos.HomeStakes,
			Away:          eos.AwayStakes,
			IsEndOfSeason: eos.IsEndOfSeason,
			MotivationGap: eos.MotivationGap,
		},
		EndOfSeason:              eos,
		IsSixPointer:             eos.IsSixPointer,
		IsPostInternationalBreak: postBreak,
		LeagueAvgGoals:           leagueAvg,
		Adjustments:              adj,
	}
}

// NeutralContext is the context of an ordinary league fixture with no extra information
func NeutralContext() MatchContext {
	return CombineContext(DetectMatchType("", ""), noDerby(), DetectEndOfSeason(EndOfSeasonInput{}), false, nil)
}

// afterBreak is true when both teams have gone more than two weeks without a match
func afterBreak(in ContextInput) bool {
	hd, hok := restGap(in.HomeDaysSinceLastMatch, in.HomeLastMatch, in.Now)
	ad, aok := restGap(in.AwayDaysSinceLastMatch, in.AwayLastMatch, in.Now)
	return hok && aok && hd > internationalBreakDays && ad > internationalBreakDays
}

func restGap(days *int, last *time.Time, now time.Time) (int, bool) {
	if days != nil {
		return *days, true
	}
	if last != nil && !now.IsZero() {
		return DaysBetween(*last, now), true
	}
	return 0, false
}

// DaysBetween counts whole days from a to b
func DaysBetween(a, b time.Time) int {
	return int(math.Floor(b.Sub(a).Hours() / 24))
}
