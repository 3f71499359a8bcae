package podds

import "math"

// AdjustmentResult is the outcome of pushing a base probability through a
// list of adjustments
type AdjustmentResult struct {
	BaseProbability       float64      `json:"baseProbability"`
	FinalProbability      float64      `json:"finalProbability"`
	Adjustments           []Adjustment `json:"adjustments"` // rescaled when capped
	RawTotal              float64      `json:"rawTotal"`
	TotalAdjustment       float64      `json:"totalAdjustment"`
	Cap                   float64      `json:"cap"`
	WasCapped             bool         `json:"wasCapped"`
	OvercorrectionWarning bool         `json:"overcorrectionWarning"`
	Confidence            Confidence   `json:"confidence"`
}

// scenarioCap picks the cap block for a scenario
func (c CapConfig) scenarioCap(s ScenarioType) ScenarioCap {
	switch s {
	case ScenarioTotalGoals:
		return c.TotalGoals
	case ScenarioBTTS:
		return c.BTTS
	case ScenarioFirstHalf:
		return c.FirstHalf
	}
	return c.MatchResult
}

// confidenceScale tightens caps as confidence drops
func (c CapConfig) confidenceScale(conf Confidence) float64 {
	switch conf {
	case ConfidenceHigh:
		return c.HighScale
	case ConfidenceMedium:
		return c.MediumScale
	}
	return c.LowScale
}

// CapFor returns the aggregate cap magnitude for the direction of total
func (c CapConfig) CapFor(s ScenarioType, conf Confidence, total float64) float64 {
	sc := c.scenarioCap(s)
	limit := sc.Up
	if total < 0 {
		limit = sc.Down
	}
	return limit * c.confidenceScale(conf)
}

// ApplyAdjustments dispatches on the adjustment mode
func ApplyAdjustments(mode AdjustmentMode, base float64, adjustments []Adjustment, scenario ScenarioType, caps CapConfig, conf Confidence) AdjustmentResult {
	if mode == ModeUncapped {
		return ApplyUncappedAdjustments(base, adjustments, scenario, caps, conf)
	}
	return ApplyCappedAsymmetricAdjustments(base, adjustments, scenario, caps, conf)
}

// ApplyCappedAsymmetricAdjustments sums the adjustments, caps the aggregate
// (up and down caps differ) and rescales every item proportionally
func ApplyCappedAsymmetricAdjustments(base float64, adjustments []Adjustment, scenario ScenarioType, caps CapConfig, conf Confidence) AdjustmentResult {
	return applyAdjustments(base, adjustments, scenario, caps, conf, true)
}

// ApplyUncappedAdjustments keeps the bookkeeping of the capped variant but
// never rescales. WasCapped still reports whether the cap would have bitten.
func ApplyUncappedAdjustments(base float64, adjustments []Adjustment, scenario ScenarioType, caps CapConfig, conf Confidence) AdjustmentResult {
	return applyAdjustments(base, adjustments, scenario, caps, conf, false)
}

func applyAdjustments(base float64, adjustments []Adjustment, scenario ScenarioType, caps CapConfig, conf Confidence, enforce bool) AdjustmentResult {
	if conf == "" {
		conf = ConfidenceMedium
	}
	base = clamp(base, 0, 100)
	raw := 0.0
	for _, a := range adjustments {
		if !math.IsNaN(a.Value) && !math.IsInf(a.Value, 0) {
			raw += a.Value
		}
	}
	limit := caps.CapFor(scenario, conf, raw)

	res := AdjustmentResult{
		BaseProbability: base,
		RawTotal:        raw,
		Cap:             limit,
		WasCapped:       math.Abs(raw) > limit,
		Confidence:      conf,
	}

	scale := 1.0
	if enforce && res.WasCapped {
		scale = limit / math.Abs(raw)
	}
	res.Adjustments = make([]Adjustment, 0, len(adjustments))
	total := 0.0
	for _, a := range adjustments {
		v := a.Value
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		v *= scale
		total += v
		res.Adjustments = append(res.Adjustments, Adjustment{Name: a.Name, Value: v, Reason: a.Reason})
	}
	res.TotalAdjustment = total
	res.FinalProbability = clamp(base+total, 0, 100)
	res.OvercorrectionWarning = crossesSoftBoundary(base, base+total, caps.scenarioCap(scenario))
	if res.WasCapped {
		res.Confidence = conf.Downgrade()
	}
	return res
}

// crossesSoftBoundary is true when the adjusted value leaves the soft band
// the base was inside of
func crossesSoftBoundary(base, adjusted float64, sc ScenarioCap) bool {
	if base >= sc.SoftMin && adjusted < sc.SoftMin {
		return true
	}
	return base <= sc.SoftMax && adjusted > sc.SoftMax
}
