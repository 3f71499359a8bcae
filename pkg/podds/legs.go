package podds

import (
	"math"

	"github.com/shopspring/decimal"
)

// normalizeLegs rescales the legs to sum to 100 while keeping every leg at or
// above floor. Legs that would fall under the floor are pinned there and the
// rest share what is left in proportion to their size.
func normalizeLegs(values []float64, floor float64) []float64 {
	n := len(values)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			v = 0
		}
		out[i] = v
	}
	if floor*float64(n) > 100 {
		floor = 100 / float64(n)
	}

	pinned := make([]bool, n)
	for iter := 0; iter < n; iter++ {
		remaining, freeSum, free := 100.0, 0.0, 0
		for i := range out {
			if pinned[i] {
				remaining -= floor
				continue
			}
			freeSum += out[i]
			free++
		}
		if free == 0 {
			break
		}
		for i := range out {
			if pinned[i] {
				continue
			}
			if freeSum <= 0 {
				out[i] = remaining / float64(free)
			} else {
				out[i] = out[i] * remaining / freeSum
			}
		}
		changed := false
		for i := range out {
			if !pinned[i] && out[i] < floor {
				out[i], pinned[i], changed = floor, true, true
			}
		}
		if !changed {
			break
		}
	}
	return out
}

// roundLegs rounds each leg to one decimal and puts the rounding residual on
// the largest leg so the published legs add up to exactly 100
func roundLegs(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	hundred := decimal.NewFromInt(100)
	sum := decimal.Zero
	rounded := make([]decimal.Decimal, len(values))
	largest := 0
	for i, v := range values {
		rounded[i] = decimal.NewFromFloat(v).Round(1)
		sum = sum.Add(rounded[i])
		if v > values[largest] {
			largest = i
		}
	}
	rounded[largest] = rounded[largest].Add(hundred.Sub(sum))
	for i, d := range rounded {
		out[i] = d.InexactFloat64()
	}
	return out
}

// roundValue rounds a published number to two decimals
func roundValue(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// TemperatureCalibration rescales a probability in logit space.
// T > 1 pulls probabilities toward 50%, T < 1 sharpens them.
type TemperatureCalibration struct {
	Temperature float64 `json:"temperature"`
}

// Apply calibrates a percentage
func (c TemperatureCalibration) Apply(pct float64) float64 {
	if c.Temperature <= 0 || c.Temperature == 1 {
		return pct
	}
	return sigmoid(logit(pct/100)/c.Temperature) * 100
}
