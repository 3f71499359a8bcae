package podds

import "math"

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// safeDiv returns fallback when the denominator is zero or the result is not finite
func safeDiv(num, den, fallback float64) float64 {
	if den == 0 {
		return fallback
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// logFactorial returns ln(n!)
func logFactorial(n int) float64 {
	if n < 2 {
		return 0
	}
	v, _ := math.Lgamma(float64(n) + 1)
	return v
}

// poissonPMF computes P(X=k) for X~Poisson(lambda) in log space
func poissonPMF(k int, lambda float64) float64 {
	if lambda <= 0 {
		if k == 0 {
			return 1
		}
		return 0
	}
	return math.Exp(float64(k)*math.Log(lambda) - lambda - logFactorial(k))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func logit(p float64) float64 {
	p = clamp(p, 1e-6, 1-1e-6)
	return math.Log(p / (1 - p))
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
