package podds

import (
	"errors"
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig wraps every configuration validation failure
var ErrInvalidConfig = errors.New("invalid simulation config")

// AdjustmentMode selects how the adjustment engine treats the aggregate cap
type AdjustmentMode string

const (
	ModeCapped   AdjustmentMode = "capped"
	ModeUncapped AdjustmentMode = "uncapped"
)

// SimulationConfig contains every tunable that influences a simulation.
// This centralizes the magic numbers so they can be adjusted from one place.
type SimulationConfig struct {
	// === GOAL DISTRIBUTION ===
	MaxGoals           int       `yaml:"maxGoals" json:"maxGoals" default:"10" validate:"gte=5,lte=15"`                    // score matrix covers 0..MaxGoals
	RecentFormWeight   float64   `yaml:"recentFormWeight" json:"recentFormWeight" default:"0.3" validate:"gte=0,lte=0.3"`  // share of recent form in the lambdas
	RecentMatchesCount int       `yaml:"recentMatchesCount" json:"recentMatchesCount" default:"5" validate:"gte=1,lte=20"` // N most recent matches used for form
	DixonColesRho      float64   `yaml:"dixonColesRho" json:"dixonColesRho" default:"-0.03" validate:"gte=-0.2,lte=0.2"`   // low score correlation
	FirstHalfGoalShare float64   `yaml:"firstHalfGoalShare" json:"firstHalfGoalShare" default:"0.45" validate:"gt=0,lt=1"` // share of goals before half time
	Lines              []float64 `yaml:"lines" json:"lines"`                                                               // empty means every fixed line

	// === MODIFIERS ===
	LegacyModifierClamp bool `yaml:"legacyModifierClamp" json:"legacyModifierClamp"` // clamp multipliers to [0.85,1.15]

	// === ADJUSTMENT ENGINE ===
	AdjustmentMode AdjustmentMode `yaml:"adjustmentMode" json:"adjustmentMode" default:"capped" validate:"oneof=capped uncapped"`
	Caps           CapConfig      `yaml:"caps" json:"caps"`

	// === MARKETS ===
	MatchOutcomeWeights    FactorWeights `yaml:"matchOutcomeWeights" json:"matchOutcomeWeights"`
	GoalsWeights           FactorWeights `yaml:"goalsWeights" json:"goalsWeights"`
	LegFloor               float64       `yaml:"legFloor" json:"legFloor" default:"5" validate:"gte=0,lte=20"`                            // minimum percentage per outcome leg
	LiveDogShift           float64       `yaml:"liveDogShift" json:"liveDogShift" default:"3" validate:"gte=0,lte=10"`                    // pp moved off the home leg
	CalibrationTemperature float64       `yaml:"calibrationTemperature" json:"calibrationTemperature" default:"1" validate:"gt=0,lte=5"` // 1 disables calibration
}

// ScenarioCap bounds the aggregate adjustment for one scenario
type ScenarioCap struct {
	Up      float64 `yaml:"up" json:"up" validate:"gt=0,lte=50"`
	Down    float64 `yaml:"down" json:"down" validate:"gt=0,lte=50"`
	SoftMin float64 `yaml:"softMin" json:"softMin" validate:"gte=0,lte=100"`
	SoftMax float64 `yaml:"softMax" json:"softMax" validate:"gte=0,lte=100,gtefield=SoftMin"`
}

// CapConfig holds the per scenario caps and the confidence scaling applied to them
type CapConfig struct {
	MatchResult ScenarioCap `yaml:"matchResult" json:"matchResult"`
	TotalGoals  ScenarioCap `yaml:"totalGoals" json:"totalGoals"`
	BTTS        ScenarioCap `yaml:"btts" json:"btts"`
	FirstHalf   ScenarioCap `yaml:"firstHalf" json:"firstHalf"`
	MLCap       float64     `yaml:"mlCap" json:"mlCap" default:"10" validate:"gt=0,lte=25"` // symmetric cap on ML based lines

	HighScale   float64 `yaml:"highScale" json:"highScale" default:"1.0" validate:"gt=0,lte=1"`
	MediumScale float64 `yaml:"mediumScale" json:"mediumScale" default:"0.85" validate:"gt=0,lte=1"`
	LowScale    float64 `yaml:"lowScale" json:"lowScale" default:"0.65" validate:"gt=0,lte=1"`
}

// FactorWeights blends the six factor scores into one balance signal
type FactorWeights struct {
	Form          float64 `yaml:"form" json:"form" validate:"gte=0"`
	H2H           float64 `yaml:"h2h" json:"h2h" validate:"gte=0"`
	HomeAdvantage float64 `yaml:"homeAdvantage" json:"homeAdvantage" validate:"gte=0"`
	Motivation    float64 `yaml:"motivation" json:"motivation" validate:"gte=0"`
	Rest          float64 `yaml:"rest" json:"rest" validate:"gte=0"`
	Position      float64 `yaml:"position" json:"position" validate:"gte=0"`
}

// Sum returns the total weight
func (w FactorWeights) Sum() float64 {
	return w.Form + w.H2H + w.HomeAdvantage + w.Motivation + w.Rest + w.Position
}

// MatchOutcomeWeights is the 1X2 factor blend
func MatchOutcomeWeights() FactorWeights {
	return FactorWeights{Form: 0.30, H2H: 0.25, HomeAdvantage: 0.20, Motivation: 0.18, Rest: 0.12, Position: 0.10}
}

// GoalsMarketWeights is the blend used by the goals based markets
func GoalsMarketWeights() FactorWeights {
	return FactorWeights{Form: 0.25, H2H: 0.20, HomeAdvantage: 0.15, Motivation: 0.15, Rest: 0.10, Position: 0.15}
}

// DefaultCapConfig returns the standard per scenario caps
func DefaultCapConfig() CapConfig {
	c := CapConfig{
		MatchResult: ScenarioCap{Up: 15, Down: 15, SoftMin: 8, SoftMax: 85},
		TotalGoals:  ScenarioCap{Up: 12, Down: 14, SoftMin: 12, SoftMax: 90},
		BTTS:        ScenarioCap{Up: 12, Down: 12, SoftMin: 15, SoftMax: 85},
		FirstHalf:   ScenarioCap{Up: 10, Down: 10, SoftMin: 15, SoftMax: 92},
	}
	mustSetDefaults(&c)
	return c
}

// DefaultConfig returns a new configuration with default values
func DefaultConfig() SimulationConfig {
	c := SimulationConfig{
		Caps:                DefaultCapConfig(),
		MatchOutcomeWeights: MatchOutcomeWeights(),
		GoalsWeights:        GoalsMarketWeights(),
	}
	// only zero valued fields are touched so the structs above survive
	mustSetDefaults(&c)
	return c
}

// mustSetDefaults applies the default tags. The tags are static, so a failure
// is a programming error.
func mustSetDefaults(ptr any) {
	if err := defaults.Set(ptr); err != nil {
		panic(fmt.Sprintf("podds: default config tags are broken: %v", err))
	}
}

var validate = validator.New()

// ValidateConfig checks that configuration values are within reasonable ranges
func ValidateConfig(config SimulationConfig) error {
	for _, l := range config.Lines {
		if !IsGoalLine(l) {
			return fmt.Errorf("%w: line %v is not one of %v", ErrInvalidConfig, l, GoalLines)
		}
	}
	err := validate.Struct(config)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s must satisfy %s %s, got %v", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// resolveConfig returns the configuration a simulation actually runs with.
// nil means defaults. Structural zero values that would break the maths are
// replaced, but legitimate zeros such as rho=0 or a zero form weight are kept.
func resolveConfig(config *SimulationConfig) SimulationConfig {
	def := DefaultConfig()
	if config == nil {
		return def
	}
	c := *config
	if c.MaxGoals < 1 {
		c.MaxGoals = def.MaxGoals
	}
	if c.RecentMatchesCount < 1 {
		c.RecentMatchesCount = def.RecentMatchesCount
	}
	c.RecentFormWeight = clamp(c.RecentFormWeight, 0, 0.3)
	if c.FirstHalfGoalShare <= 0 || c.FirstHalfGoalShare >= 1 {
		c.FirstHalfGoalShare = def.FirstHalfGoalShare
	}
	if c.AdjustmentMode == "" {
		c.AdjustmentMode = ModeCapped
	}
	if c.Caps.MatchResult.Up <= 0 || c.Caps.TotalGoals.Up <= 0 || c.Caps.BTTS.Up <= 0 || c.Caps.FirstHalf.Up <= 0 {
		c.Caps = def.Caps
	}
	if c.Caps.MLCap <= 0 {
		c.Caps.MLCap = def.Caps.MLCap
	}
	if c.Caps.HighScale <= 0 || c.Caps.MediumScale <= 0 || c.Caps.LowScale <= 0 {
		c.Caps.HighScale, c.Caps.MediumScale, c.Caps.LowScale = def.Caps.HighScale, def.Caps.MediumScale, def.Caps.LowScale
	}
	if c.MatchOutcomeWeights.Sum() <= 0 {
		c.MatchOutcomeWeights = def.MatchOutcomeWeights
	}
	if c.GoalsWeights.Sum() <= 0 {
		c.GoalsWeights = def.GoalsWeights
	}
	if c.CalibrationTemperature <= 0 {
		c.CalibrationTemperature = 1
	}
	if c.LegFloor < 0 || c.LegFloor > 30 {
		c.LegFloor = def.LegFloor
	}
	return c
}

// linesOrDefault returns the configured lines, or every fixed line
func (c SimulationConfig) linesOrDefault() []float64 {
	if len(c.Lines) == 0 {
		return GoalLines[:]
	}
	out := make([]float64, 0, len(c.Lines))
	for _, l := range c.Lines {
		if IsGoalLine(l) {
			out = append(out, l)
		}
	}
	return out
}
