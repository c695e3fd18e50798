package core

import "math"

const defaultEpsilon = 1e-12

// SilenceFloorDB is the lowest level reported by dB helpers that clamp.
// Digital silence maps here instead of -Inf.
const SilenceFloorDB = -96.0

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

// NearlyEqual reports whether a and b are equal within eps.
func NearlyEqual(a, b, eps float64) bool {
	if eps <= 0 {
		eps = defaultEpsilon
	}

	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}

	largest := math.Max(math.Abs(a), math.Abs(b))
	if largest == 0 {
		return diff <= eps
	}

	return diff/largest <= eps
}

// FlushDenormals converts tiny denormal-like values to exact zero.
// This can reduce denormal-related CPU slowdowns in hot DSP loops.
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

// LinearToDBFloor converts a linear magnitude to dB, never returning less
// than floorDB. Zero, negative and NaN magnitudes map to floorDB.
func LinearToDBFloor(linear, floorDB float64) float64 {
	if !(linear > 0) {
		return floorDB
	}

	db := 20 * math.Log10(linear)
	if db < floorDB {
		return floorDB
	}

	return db
}

// PercentToDB converts a linear percentage (100 = unity) to dB.
func PercentToDB(percent float64) float64 {
	return LinearToDB(percent / 100)
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !(math.IsNaN(v) || math.IsInf(v, 0))
}
