package core

import "math"

// -----------------------------------------------------------------------------

// CalculateMean returns the arithmetic mean, 0 for an empty slice.
func CalculateMean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// -----------------------------------------------------------------------------

// CalculateMeanStd computes mean and population standard deviation (N denominator).
func CalculateMeanStd(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	mean := CalculateMean(data)
	if len(data) == 1 {
		return mean, 0
	}

	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(varianceSum / float64(len(data)))
}

// -----------------------------------------------------------------------------

// EMAStep advances an exponential moving average by one value with smoothing k.
func EMAStep(prev, value, k float64) float64 {
	return value*k + prev*(1-k)
}
