package podds

// DerbyIntensity grades how heated a rivalry is
type DerbyIntensity string

const (
	IntensityExtreme DerbyIntensity = "EXTREME"
	IntensityHigh    DerbyIntensity = "HIGH"
	IntensityMedium  DerbyIntensity = "MEDIUM"
	IntensityLow     DerbyIntensity = "LOW"
	IntensityNone    DerbyIntensity = "NONE"
)

// DerbyType says what kind of rivalry it is
type DerbyType string

const (
	DerbyLocal    DerbyType = "LOCAL"
	DerbyRegional DerbyType = "REGIONAL"
	DerbyNational DerbyType = "NATIONAL"
	DerbyNone     DerbyType = "NONE"
)

// DerbySource records which lookup identified the derby
type DerbySource string

const (
	DerbySourceTable DerbySource = "table"
	DerbySourceCity  DerbySource = "city"
	DerbySourceName  DerbySource = "name"
	DerbySourceNone  DerbySource = "none"
)

// DerbyAdjustments are the multipliers a rivalry applies to a fixture
type DerbyAdjustments struct {
	CardsMultiplier         float64 `json:"cardsMultiplier"`
	HomeAdvantageMultiplier float64 `json:"homeAdvantageMultiplier"`
	GoalsMultiplier         float64 `json:"goalsMultiplier"`
	ConfidenceReduction     float64 `json:"confidenceReduction"`
}

// DerbyInfo is the derby detector's verdict
type DerbyInfo struct {
	IsDerby     bool             `json:"isDerby"`
	Name        string           `json:"derbyName,omitempty"`
	Type        DerbyType        `json:"type"`
	Intensity   DerbyIntensity   `json:"intensity"`
	Source      DerbySource      `json:"source"`
	Adjustments DerbyAdjustments `json:"adjustments"`
}

// TeamRef identifies a team for the detectors
type TeamRef struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
	City string `json:"city,omitempty"`
}

// Ref returns the detector view of a team
func (t TeamData) Ref() TeamRef {
	return TeamRef{ID: t.ID, Name: t.Name, City: t.City}
}

var intensityAdjustments = map[DerbyIntensity]DerbyAdjustments{
	IntensityExtreme: {1.4, 0.75, 0.9, 12},
	IntensityHigh:    {1.25, 0.85, 0.95, 8},
	IntensityMedium:  {1.15, 0.9, 0.97, 5},
	IntensityLow:     {1.1, 0.95, 1.0, 3},
	IntensityNone:    {1, 1, 1, 0},
}

// AdjustmentsFor returns the fixed adjustment quadruple of an intensity
func AdjustmentsFor(i DerbyIntensity) DerbyAdjustments {
	if a, ok := intensityAdjustments[i]; ok {
		return a
	}
	return intensityAdjustments[IntensityNone]
}

type rivalry struct {
	a, b      int
	name      string
	kind      DerbyType
	intensity DerbyIntensity
}

type pairKey struct{ lo, hi int }

func newPairKey(a, b int) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// team ids are API-Football ids
var rivalries = []rivalry{
	{529, 541, "El Clásico", DerbyNational, IntensityExtreme},
	{541, 530, "Derbi Madrileño", DerbyLocal, IntensityHigh},
	{529, 540, "Derbi Barceloní", DerbyLocal, IntensityHigh},
	{536, 543, "El Gran Derbi", DerbyLocal, IntensityExtreme},
	{531, 548, "Derbi Vasco", DerbyRegional, IntensityHigh},
	{33, 50, "Manchester Derby", DerbyLocal, IntensityExtreme},
	{33, 40, "North West Derby", DerbyRegional, IntensityExtreme},
	{40, 45, "Merseyside Derby", DerbyLocal, IntensityHigh},
	{42, 47, "North London Derby", DerbyLocal, IntensityExtreme},
	{34, 746, "Tyne-Wear Derby", DerbyRegional, IntensityExtreme},
	{505, 489, "Derby della Madonnina", DerbyLocal, IntensityExtreme},
	{497, 487, "Derby della Capitale", DerbyLocal, IntensityExtreme},
	{496, 503, "Derby della Mole", DerbyLocal, IntensityHigh},
	{496, 505, "Derby d'Italia", DerbyNational, IntensityHigh},
	{157, 165, "Der Klassiker", DerbyNational, IntensityHigh},
	{165, 174, "Revierderby", DerbyRegional, IntensityExtreme},
	{85, 81, "Le Classique", DerbyNational, IntensityExtreme},
	{211, 228, "Derby de Lisboa", DerbyLocal, IntensityExtreme},
	{211, 212, "O Clássico", DerbyNational, IntensityExtreme},
	{194, 209, "De Klassieker", DerbyNational, IntensityExtreme},
	{247, 257, "Old Firm", DerbyLocal, IntensityExtreme},
	{645, 611, "Kıtalararası Derbi", DerbyLocal, IntensityExtreme},
	{451, 435, "Superclásico", DerbyLocal, IntensityExtreme},
}

var cityGroups = map[string][]int{
	"london":       {42, 47, 49, 48, 52, 55, 36},
	"manchester":   {33, 50},
	"liverpool":    {40, 45},
	"madrid":       {541, 530, 546, 728},
	"barcelona":    {529, 540},
	"seville":      {536, 543},
	"milan":        {505, 489},
	"rome":         {497, 487},
	"turin":        {496, 503},
	"genoa":        {495, 498},
	"lisbon":       {211, 228},
	"istanbul":     {645, 611, 549},
	"glasgow":      {247, 257},
	"buenos aires": {451, 435},
}

var derbyStopWords = map[string]bool{
	"united": true, "city": true, "town": true, "fc": true, "afc": true, "cf": true, "sc": true, "ac": true,
	"club": true, "real": true, "sporting": true, "athletic": true, "atletico": true, "deportivo": true,
	"calcio": true, "rovers": true, "wanderers": true, "albion": true, "county": true, "football": true,
	"olympique": true, "olympic": true, "stade": true, "racing": true, "dynamo": true, "dinamo": true,
	"union": true, "inter": true, "borussia": true, "vfl": true, "vfb": true, "tsv": true, "the": true,
	"and": true, "del": true, "los": true, "las": true, "les": true, "san": true, "saint": true, "ssc": true,
	"rcd": true, "clube": true, "sport": true, "sports": true, "academy": true, "women": true, "reserves": true,
	"u21": true, "u23": true, "hotspur": true, "association": true,
}

// lookup tables, built once and never mutated
var (
	rivalryIndex = buildRivalryIndex(rivalries)
	teamCity     = buildTeamCity(cityGroups)
)

func buildRivalryIndex(rs []rivalry) map[pairKey]rivalry {
	idx := make(map[pairKey]rivalry, len(rs))
	for _, r := range rs {
		idx[newPairKey(r.a, r.b)] = r
	}
	return idx
}

func buildTeamCity(groups map[string][]int) map[int]string {
	idx := make(map[int]string)
	for city, ids := range groups {
		for _, id := range ids {
			idx[id] = city
		}
	}
	return idx
}

// DetectDerby classifies a fixture as a derby. The result does not depend on
// argument order.
func DetectDerby(home, away TeamRef) DerbyInfo {
	if home.ID != 0 && home.ID == away.ID {
		return noDerby()
	}
	if r, ok := rivalryIndex[newPairKey(home.ID, away.ID)]; ok && home.ID != 0 {
		return derbyInfo(r.name, r.kind, r.intensity, DerbySourceTable)
	}
	if sameCity(home, away) {
		return derbyInfo("", DerbyLocal, IntensityMedium, DerbySourceCity)
	}
	if sharedNameToken(home.Name, away.Name) {
		return derbyInfo("", DerbyLocal, IntensityLow, DerbySourceName)
	}
	return noDerby()
}

func derbyInfo(name string, kind DerbyType, intensity DerbyIntensity, source DerbySource) DerbyInfo {
	return DerbyInfo{
		IsDerby:     true,
		Name:        name,
		Type:        kind,
		Intensity:   intensity,
		Source:      source,
		Adjustments: AdjustmentsFor(intensity),
	}
}

func noDerby() DerbyInfo {
	return DerbyInfo{
		Type:        DerbyNone,
		Intensity:   IntensityNone,
		Source:      DerbySourceNone,
		Adjustments: AdjustmentsFor(IntensityNone),
	}
}

func cityOf(t TeamRef) string {
	if c := normalizeText(t.City); c != "" {
		return c
	}
	return teamCity[t.ID]
}

func sameCity(a, b TeamRef) bool {
	ca, cb := cityOf(a), cityOf(b)
	return ca != "" && ca == cb
}

// sharedNameToken reports whether two names share a distinctive token of at
// least three characters, ignoring accents, case and football stop words
func sharedNameToken(a, b string) bool {
	if a == "" || b == "" || normalizeText(a) == normalizeText(b) {
		return false
	}
	seen := make(map[string]bool)
	for _, tok := range nameTokens(a) {
		if len([]rune(tok)) >= 3 && !derbyStopWords[tok] {
			seen[tok] = true
		}
	}
	for _, tok := range nameTokens(b) {
		if seen[tok] {
			return true
		}
	}
	return false
}
