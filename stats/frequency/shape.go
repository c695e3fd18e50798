// Package frequency describes the shape of a one-sided magnitude spectrum.
// Calibration uses it to tell broadband hiss from tonal hum and rumble.
//
// The magnitude slice holds bins 0 (DC) to Nyquist, length FFTSize/2+1.
// The frequency of bin i is
//
//	f_i = i * sampleRate / (2 * (len(magnitude) - 1))
package frequency

import "math"

// DefaultRolloff is the energy fraction used by Describe.
const DefaultRolloff = 0.85

// Shape summarizes a spectrum.
type Shape struct {
	CentroidHz float64
	// Flatness is the Wiener entropy in [0, 1]: near 1 for white noise,
	// near 0 for a few tones.
	Flatness  float64
	RolloffHz float64
	PeakHz    float64
}

// Tonal reports whether the spectrum is dominated by a few tones.
func (s Shape) Tonal() bool {
	return s.Flatness < 0.1
}

func binFreq(i int, sampleRate float64, binCount int) float64 {
	return float64(i) * sampleRate / float64(2*(binCount-1))
}

// Describe computes all shape descriptors. The DC bin is ignored so an
// offset does not pull the centroid to 0 Hz.
func Describe(magnitude []float64, sampleRate float64) Shape {
	n := len(magnitude)
	if n < 2 {
		return Shape{}
	}

	peak := 1
	for i := 2; i < n; i++ {
		if magnitude[i] > magnitude[peak] {
			peak = i
		}
	}

	return Shape{
		CentroidHz: Centroid(magnitude, sampleRate),
		Flatness:   Flatness(magnitude),
		RolloffHz:  Rolloff(magnitude, sampleRate, DefaultRolloff),
		PeakHz:     binFreq(peak, sampleRate, n),
	}
}

// Centroid returns the spectral centroid in Hz, excluding the DC bin.
//
//	centroid = sum(f_i * |X_i|) / sum(|X_i|)
func Centroid(magnitude []float64, sampleRate float64) float64 {
	n := len(magnitude)
	if n < 2 {
		return 0
	}

	var sum, weighted float64
	for i := 1; i < n; i++ {
		sum += magnitude[i]
		weighted += binFreq(i, sampleRate, n) * magnitude[i]
	}
	if sum == 0 {
		return 0
	}
	return weighted / sum
}

// Flatness returns the spectral flatness in [0, 1].
//
//	flatness = exp(mean(log(|X_i|))) / mean(|X_i|)
//
// The DC bin is excluded. A zero bin makes the geometric mean and thus the
// flatness 0.
func Flatness(magnitude []float64) float64 {
	n := len(magnitude)
	if n < 2 {
		return 0
	}

	var sumLin, sumLog float64
	for i := 1; i < n; i++ {
		v := magnitude[i]
		if v <= 0 {
			return 0
		}
		sumLin += v
		sumLog += math.Log(v)
	}

	bins := float64(n - 1)
	return math.Exp(sumLog/bins) / (sumLin / bins)
}

// Rolloff returns the frequency below which fraction (0..1) of the
// spectral energy lies.
func Rolloff(magnitude []float64, sampleRate float64, fraction float64) float64 {
	n := len(magnitude)
	if n < 2 {
		return 0
	}

	var energy float64
	for _, v := range magnitude {
		energy += v * v
	}
	if energy == 0 {
		return 0
	}

	threshold := fraction * energy
	var cum float64
	for i, v := range magnitude {
		cum += v * v
		if cum >= threshold {
			return binFreq(i, sampleRate, n)
		}
	}
	return binFreq(n-1, sampleRate, n)
}
