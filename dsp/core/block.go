package core

import "math"

// EnsureLen returns a slice with the requested length, reusing buf capacity if possible.
func EnsureLen(buf []float64, n int) []float64 {
	if n <= 0 {
		return buf[:0]
	}
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]float64, n)
}

// Zero sets all values in buf to 0.
func Zero(buf []float64) {
	for i := range buf {
		buf[i] = 0
	}
}

// Zero32 sets all values in buf to 0.
func Zero32(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}

// FromFloat32 widens src into dst and returns the number of converted samples.
func FromFloat32(dst []float64, src []float32) int {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] = float64(src[i])
	}
	return n
}

// ToFloat32 narrows src into dst and returns the number of converted samples.
func ToFloat32(dst []float32, src []float64) int {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] = float32(src[i])
	}
	return n
}

// IsSilent reports whether every sample is exactly +0.
func IsSilent(buf []float32) bool {
	for _, v := range buf {
		if v != 0 || math.Signbit(float64(v)) {
			return false
		}
	}
	return true
}


// ZeroNonFinite replaces NaN and infinite samples in buf with 0 and
// returns how many were replaced.
func ZeroNonFinite(buf []float64) int {
	n := 0
	for i, v := range buf {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf[i] = 0
			n++
		}
	}
	return n
}
