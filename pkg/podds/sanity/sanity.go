// Package sanity checks finished results against the model's invariants.
// It only reports: results are never changed or rejected.
package sanity

import (
	"fmt"
	"math"
	"sort"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/podds"
)

const (
	legSumTolerance   = 0.5
	maxAdjustment     = 20.0
	matrixSumEpsilon  = 1e-6
	factorScoreBounds = 100.0
)

// Warning codes
const (
	CodeLegSum          = "LEG_SUM"
	CodeNonFinite       = "NON_FINITE"
	CodeLegRange        = "LEG_RANGE"
	CodeLargeAdjustment = "LARGE_ADJUSTMENT"
	CodeLambdaRange     = "LAMBDA_RANGE"
	CodeModifierRange   = "MODIFIER_RANGE"
	CodeMatrixSum       = "MATRIX_SUM"
	CodeFactorRange     = "FACTOR_RANGE"
)

type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (w Warning) String() string { return w.Code + ": " + w.Message }

type checker struct {
	subject  string
	warnings []Warning
}

func (c *checker) warn(code, format string, args ...any) {
	w := Warning{Code: code, Message: fmt.Sprintf(format, args...)}
	logger.Warn("sanity "+c.subject, w.String())
	c.warnings = append(c.warnings, w)
}

func (c *checker) finite(name string, v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		c.warn(CodeNonFinite, "%s is %v", name, v)
		return false
	}
	return true
}

// CheckSimulation validates a market result
func CheckSimulation(sim podds.Simulation) []Warning {
	c := &checker{subject: string(sim.ScenarioType)}

	keys := make([]string, 0, len(sim.ProbabilityDistribution))
	for k := range sim.ProbabilityDistribution {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sum := 0.0
	finite := true
	for _, k := range keys {
		v := sim.ProbabilityDistribution[k]
		if !c.finite(k, v) {
			finite = false
			continue
		}
		if v < 0 || v > 100 {
			c.warn(CodeLegRange, "%s=%.2f outside 0..100", k, v)
		}
		sum += v
	}
	if finite && math.Abs(sum-100) > legSumTolerance {
		c.warn(CodeLegSum, "legs sum to %.3f", sum)
	}
	for _, a := range sim.AdjustmentsApplied {
		if !c.finite("adjustment "+a.Name, a.Value) {
			continue
		}
		if math.Abs(a.Value) > maxAdjustment {
			c.warn(CodeLargeAdjustment, "%s moved %.2f points", a.Name, a.Value)
		}
	}
	c.finite("totalAdjustment", sim.TotalAdjustment)
	c.finite("reliabilityScore", sim.ReliabilityScore)
	return c.warnings
}

// CheckFactorScores validates the six balance signals
func CheckFactorScores(f podds.FactorScores) []Warning {
	c := &checker{subject: "factors"}
	for _, s := range []struct {
		name  string
		value float64
	}{
		{"form", f.Form},
		{"h2h", f.H2H},
		{"homeAdvantage", f.HomeAdvantage},
		{"motivation", f.Motivation},
		{"rest", f.Rest},
		{"position", f.Position},
	} {
		if !c.finite(s.name, s.value) {
			continue
		}
		if math.Abs(s.value) > factorScoreBounds {
			c.warn(CodeFactorRange, "%s=%.2f outside -100..100", s.name, s.value)
		}
	}
	return c.warnings
}

// CheckDistribution validates a goal distribution: lambdas, multipliers and
// the score matrix mass
func CheckDistribution(d podds.GoalDistributionResult) []Warning {
	c := &checker{subject: "distribution"}
	for i, l := range []float64{d.LambdaHome, d.LambdaAway} {
		name := [...]string{"lambdaHome", "lambdaAway"}[i]
		if c.finite(name, l) && (l < podds.LambdaMin || l > podds.LambdaMax) {
			c.warn(CodeLambdaRange, "%s=%.3f outside %.1f..%.1f", name, l, podds.LambdaMin, podds.LambdaMax)
		}
	}
	m := d.Modifiers
	for _, mod := range []struct {
		name  string
		value float64
	}{
		{"attackHome", m.AttackHome},
		{"defenseHome", m.DefenseHome},
		{"attackAway", m.AttackAway},
		{"defenseAway", m.DefenseAway},
		{"globalGoals", m.GlobalGoals},
	} {
		// a zero value means the result was built without modifiers
		if mod.value == 0 {
			continue
		}
		if c.finite(mod.name, mod.value) && (mod.value < podds.ModifierMin-1e-9 || mod.value > podds.ModifierMax+1e-9) {
			c.warn(CodeModifierRange, "%s=%.3f outside %.2f..%.2f", mod.name, mod.value, podds.ModifierMin, podds.ModifierMax)
		}
	}
	if len(d.Matrix) == 0 {
		return c.warnings
	}
	total := 0.0
	for _, row := range d.Matrix {
		for _, p := range row {
			total += p
		}
	}
	if !c.finite("matrix", total) {
		return c.warnings
	}
	if math.Abs(total-1) > matrixSumEpsilon {
		c.warn(CodeMatrixSum, "score matrix sums to %.8f", total)
	}
	legs := d.HomeWin + d.Draw + d.AwayWin
	if c.finite("1x2", legs) && math.Abs(legs-100) > legSumTolerance {
		c.warn(CodeLegSum, "1x2 sums to %.3f", legs)
	}
	return c.warnings
}
