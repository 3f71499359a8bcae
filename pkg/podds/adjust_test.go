package podds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCappedAdjustmentsClampRunaway(t *testing.T) {
	adjs := []Adjustment{{Name: "a", Value: 300}, {Name: "b", Value: 200}}
	res := ApplyCappedAsymmetricAdjustments(45, adjs, ScenarioMatchResult, DefaultCapConfig(), ConfidenceHigh)

	assert.True(t, res.WasCapped)
	assert.Equal(t, 500.0, res.RawTotal)
	assert.Equal(t, 15.0, res.Cap)
	assert.InDelta(t, 60, res.FinalProbability, 1e-9)
	assert.GreaterOrEqual(t, res.FinalProbability, 0.0)
	assert.LessOrEqual(t, res.FinalProbability, 100.0)
	assert.Equal(t, ConfidenceMedium, res.Confidence)

	// proportional rescale keeps the 3:2 split
	require.Len(t, res.Adjustments, 2)
	assert.InDelta(t, 9, res.Adjustments[0].Value, 1e-9)
	assert.InDelta(t, 6, res.Adjustments[1].Value, 1e-9)
	assert.Equal(t, "a", res.Adjustments[0].Name)
}

func TestCappedAdjustmentsAsymmetric(t *testing.T) {
	caps := DefaultCapConfig()
	up := ApplyCappedAsymmetricAdjustments(50, []Adjustment{{Value: 30}}, ScenarioTotalGoals, caps, ConfidenceHigh)
	down := ApplyCappedAsymmetricAdjustments(50, []Adjustment{{Value: -30}}, ScenarioTotalGoals, caps, ConfidenceHigh)
	assert.InDelta(t, 62, up.FinalProbability, 1e-9)
	assert.InDelta(t, 36, down.FinalProbability, 1e-9)
}

func TestCapScalesWithConfidence(t *testing.T) {
	caps := DefaultCapConfig()
	assert.InDelta(t, 15, caps.CapFor(ScenarioMatchResult, ConfidenceHigh, 1), 1e-12)
	assert.InDelta(t, 12.75, caps.CapFor(ScenarioMatchResult, ConfidenceMedium, 1), 1e-12)
	assert.InDelta(t, 9.75, caps.CapFor(ScenarioMatchResult, ConfidenceLow, 1), 1e-12)
	assert.InDelta(t, 14, caps.CapFor(ScenarioTotalGoals, ConfidenceHigh, -1), 1e-12)
}

func TestAdjustmentsWithinCap(t *testing.T) {
	res := ApplyAdjustments(ModeCapped, 40, []Adjustment{{Name: "x", Value: 4}, {Name: "y", Value: -1}}, ScenarioBTTS,
		DefaultCapConfig(), ConfidenceHigh)
	assert.False(t, res.WasCapped)
	assert.InDelta(t, 43, res.FinalProbability, 1e-12)
	assert.Equal(t, ConfidenceHigh, res.Confidence)
	assert.False(t, res.OvercorrectionWarning)
}

func TestUncappedAdjustments(t *testing.T) {
	adjs := []Adjustment{{Name: "a", Value: 30}}
	res := ApplyAdjustments(ModeUncapped, 45, adjs, ScenarioMatchResult, DefaultCapConfig(), ConfidenceHigh)
	assert.True(t, res.WasCapped, "reports that the cap would have bitten")
	assert.InDelta(t, 75, res.FinalProbability, 1e-12)
	assert.Equal(t, 30.0, res.Adjustments[0].Value)

	// still bounded to a probability
	res = ApplyUncappedAdjustments(90, []Adjustment{{Value: 40}}, ScenarioMatchResult, DefaultCapConfig(), ConfidenceHigh)
	assert.Equal(t, 100.0, res.FinalProbability)
}

func TestOvercorrectionWarning(t *testing.T) {
	caps := DefaultCapConfig()
	res := ApplyCappedAsymmetricAdjustments(84, []Adjustment{{Value: 3}}, ScenarioMatchResult, caps, ConfidenceHigh)
	assert.True(t, res.OvercorrectionWarning)

	res = ApplyCappedAsymmetricAdjustments(10, []Adjustment{{Value: -4}}, ScenarioMatchResult, caps, ConfidenceHigh)
	assert.True(t, res.OvercorrectionWarning)

	// already outside the band is not a crossing
	res = ApplyCappedAsymmetricAdjustments(88, []Adjustment{{Value: 2}}, ScenarioMatchResult, caps, ConfidenceHigh)
	assert.False(t, res.OvercorrectionWarning)
}

func TestAdjustmentsIgnoreNonFinite(t *testing.T) {
	res := ApplyAdjustments("", 50, []Adjustment{{Name: "nan", Value: nan()}, {Name: "ok", Value: 2}}, ScenarioBTTS,
		DefaultCapConfig(), "")
	assert.InDelta(t, 52, res.FinalProbability, 1e-12)
	assert.Equal(t, ConfidenceMedium, res.Confidence)
}
