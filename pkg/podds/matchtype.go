package podds

import (
	"regexp"
	"strings"
)

// MatchType is the competition category of a fixture
type MatchType string

const (
	MatchTypeLeague        MatchType = "LEAGUE"
	MatchTypeCup           MatchType = "CUP"
	MatchTypeInternational MatchType = "INTERNATIONAL"
	MatchTypeFriendly      MatchType = "FRIENDLY"
)

// Importance grades how much is riding on a fixture
type Importance string

const (
	ImportanceCritical Importance = "CRITICAL"
	ImportanceHigh     Importance = "HIGH"
	ImportanceMedium   Importance = "MEDIUM"
	ImportanceLow      Importance = "LOW"
)

// MatchTypeAdjustments are the multipliers a competition type applies
type MatchTypeAdjustments struct {
	GoalsMultiplier         float64 `json:"goalsMultiplier"`
	HomeAdvantageMultiplier float64 `json:"homeAdvantageMultiplier"`
	ConfidenceReduction     float64 `json:"confidenceReduction"`
}

// MatchTypeInfo is the match-type detector's verdict
type MatchTypeInfo struct {
	Type           MatchType            `json:"type"`
	IsKnockout     bool                 `json:"isKnockout"`
	Importance     Importance           `json:"importance"`
	IsNeutralVenue bool                 `json:"isNeutralVenue"`
	Stage          string               `json:"stage"`
	Adjustments    MatchTypeAdjustments `json:"adjustments"`
}

// ordered keyword sets, checked against accent-normalized lowercase text
var (
	friendlyKeywords      = []string{"friendly", "friendlies", "amistoso", "test match", "pre-season", "preseason", "testspiel"}
	internationalKeywords = []string{"world cup", "nations league", "copa america", "africa cup of nations", "african nations",
		"asian cup", "gold cup", "european championship", "euro 20", "international", "olympic"}
	cupKeywords = []string{"cup", "copa", "coupe", "pokal", "coppa", "taca", "beker", "trophy", "shield", "super cup",
		"supercopa", "supercoppa", "champions league", "europa league", "conference league", "libertadores", "sudamericana"}
	knockoutKeywords = []string{"final", "round of", "1/8", "1/4", "1/2", "1/16", "knockout", "play-off", "playoff",
		"play-offs", "playoffs", "elimination", "preliminary"}
	groupKeywords    = []string{"group", "league stage", "league phase", "regular season", "matchday"}
	neutralKeywords  = []string{"world cup", "european championship", "euro 20", "copa america",
		"africa cup of nations", "asian cup", "gold cup", "club world cup", "super cup", "supercopa", "supercoppa", "community shield"}
	qualifierKeywords = []string{"qualif", "qualifying", "qualifiers"}
)

var (
	// "final" as a whole word that is not part of quarter-final or semi-final
	finalRe     = regexp.MustCompile(`(^|[^a-z-])final(s)?($|[^a-z])`)
	semiRe      = regexp.MustCompile(`semi[- ]?finals?`)
	quarterRe   = regexp.MustCompile(`quarter[- ]?finals?`)
	roundOfRe   = regexp.MustCompile(`round of (\d+)`)
	groupNameRe = regexp.MustCompile(`group ([a-z0-9])\b`)
)

var matchTypeAdjustments = map[MatchType]MatchTypeAdjustments{
	MatchTypeFriendly:      {GoalsMultiplier: 1.10, HomeAdvantageMultiplier: 0.5, ConfidenceReduction: 20},
	MatchTypeInternational: {GoalsMultiplier: 0.95, HomeAdvantageMultiplier: 0.8, ConfidenceReduction: 8},
	MatchTypeCup:           {GoalsMultiplier: 1.0, HomeAdvantageMultiplier: 0.95, ConfidenceReduction: 3},
	MatchTypeLeague:        {GoalsMultiplier: 1.0, HomeAdvantageMultiplier: 1.0, ConfidenceReduction: 0},
}

var cupKnockoutAdjustments = MatchTypeAdjustments{GoalsMultiplier: 0.95, HomeAdvantageMultiplier: 0.9, ConfidenceReduction: 6}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// DetectMatchType classifies a fixture from its competition name and round label
func DetectMatchType(leagueName, round string) MatchTypeInfo {
	league := normalizeText(leagueName)
	r := normalizeText(round)
	both := league + " " + r

	info := MatchTypeInfo{Type: classifyCompetition(league, both)}
	info.Stage = canonicalStage(r)
	info.IsKnockout = isKnockout(info.Type, r)
	info.Importance = importance(info.Type, info.IsKnockout, r)
	info.IsNeutralVenue = isNeutralVenue(info.Type, league, r)

	adj := matchTypeAdjustments[info.Type]
	if info.Type == MatchTypeCup && info.IsKnockout {
		adj = cupKnockoutAdjustments
	}
	if info.IsNeutralVenue {
		adj.HomeAdvantageMultiplier = 0.2
	}
	if info.Importance == ImportanceCritical {
		adj.GoalsMultiplier *= 0.95
	}
	info.Adjustments = adj
	return info
}

func classifyCompetition(league, both string) MatchType {
	switch {
	case containsAny(both, friendlyKeywords):
		return MatchTypeFriendly
	case containsAny(league, internationalKeywords) && !containsAny(league, []string{"club world cup"}):
		return MatchTypeInternational
	case containsAny(league, cupKeywords):
		return MatchTypeCup
	}
	return MatchTypeLeague
}

func hasFinal(round string) bool {
	return finalRe.MatchString(round) && !semiRe.MatchString(round) && !quarterRe.MatchString(round)
}

func isKnockout(t MatchType, round string) bool {
	if round == "" {
		return false
	}
	if containsAny(round, groupKeywords) {
		return false
	}
	if hasFinal(round) || semiRe.MatchString(round) || quarterRe.MatchString(round) || containsAny(round, knockoutKeywords) {
		return true
	}
	// cup rounds outside the group phase are single elimination
	return t == MatchTypeCup
}

func importance(t MatchType, knockout bool, round string) Importance {
	switch {
	case t == MatchTypeFriendly:
		return ImportanceLow
	case hasFinal(round):
		return ImportanceCritical
	case semiRe.MatchString(round) || quarterRe.MatchString(round) || strings.Contains(round, "play-off") || strings.Contains(round, "playoff"):
		return ImportanceHigh
	case t == MatchTypeInternational && !containsAny(round, qualifierKeywords):
		return ImportanceHigh
	case knockout && (strings.Contains(round, "round of 16") || strings.Contains(round, "1/8")):
		return ImportanceHigh
	}
	return ImportanceMedium
}

func isNeutralVenue(t MatchType, league, round string) bool {
	if t == MatchTypeFriendly || containsAny(league+" "+round, qualifierKeywords) {
		return false
	}
	if containsAny(league, neutralKeywords) {
		return true
	}
	return t == MatchTypeCup && hasFinal(round)
}

// canonicalStage maps a raw round label onto a stable stage name
func canonicalStage(round string) string {
	switch {
	case round == "":
		return ""
	case semiRe.MatchString(round):
		return "Semi-finals"
	case quarterRe.MatchString(round):
		return "Quarter-finals"
	case hasFinal(round):
		return "Final"
	case strings.Contains(round, "1/8"):
		return "Round of 16"
	case strings.Contains(round, "1/16"):
		return "Round of 32"
	}
	if m := roundOfRe.FindStringSubmatch(round); m != nil {
		return "Round of " + m[1]
	}
	if m := groupNameRe.FindStringSubmatch(round); m != nil {
		return "Group " + strings.ToUpper(m[1])
	}
	switch {
	case strings.Contains(round, "group"):
		return "Group Stage"
	case strings.Contains(round, "league stage"), strings.Contains(round, "league phase"):
		return "League Stage"
	case strings.Contains(round, "play-off"), strings.Contains(round, "playoff"):
		return "Play-offs"
	case strings.Contains(round, "regular season"):
		return "Regular Season"
	}
	return round
}
