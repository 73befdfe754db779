package core

import "math"

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// FlushDenormals returns 0 for |x| < 1e-30. Filter state is passed through
// it once per block so decaying tails end in exact silence.
func FlushDenormals(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0
	}

	return x
}

// DBToLinear converts dB to linear amplitude (20*log10 convention).
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// MapLinear maps value from [inMin, inMax] onto [outMin, outMax] without clamping.
// A degenerate input range maps everything to outMin.
func MapLinear(value, inMin, inMax, outMin, outMax float64) float64 {
	span := inMax - inMin
	if span == 0 {
		return outMin
	}

	return outMin + (value-inMin)/span*(outMax-outMin)
}

// MapLog maps value from the logarithmic range [inMin, inMax] onto the linear
// range [outMin, outMax]. Both input bounds must be positive.
func MapLog(value, inMin, inMax, outMin, outMax float64) float64 {
	if value <= 0 || inMin <= 0 || inMax <= 0 {
		return outMin
	}

	return MapLinear(math.Log10(value), math.Log10(inMin), math.Log10(inMax), outMin, outMax)
}

// UnmapLog is the inverse of [MapLog].
func UnmapLog(pos, outMin, outMax, inMin, inMax float64) float64 {
	if inMin <= 0 || inMax <= 0 {
		return inMin
	}

	exp := MapLinear(pos, outMin, outMax, math.Log10(inMin), math.Log10(inMax))
	return math.Pow(10, exp)
}

// IsFinite reports whether x is neither NaN nor infinite.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// LinearToDB converts linear amplitude to dB (20*log10 convention).
// Returns -Inf for zero and NaN for negative values.
func LinearToDB(linear float64) float64 {
	if linear < 0 {
		return math.NaN()
	}

	if linear == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(linear)
}

// LinearPowerToDB converts linear power to dB (10*log10 convention).
// Returns -Inf for zero and NaN for negative values.
func LinearPowerToDB(power float64) float64 {
	if power < 0 {
		return math.NaN()
	}

	if power == 0 {
		return math.Inf(-1)
	}

	return 10 * math.Log10(power)
}
