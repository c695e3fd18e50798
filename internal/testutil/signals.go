package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// NoiseAtDB generates uniform white noise whose RMS is levelDB dBFS.
func NoiseAtDB(seed int64, levelDB float64, length int) []float64 {
	// Uniform noise in [-a, a] has RMS a/sqrt(3).
	return DeterministicNoise(seed, math.Pow(10, levelDB/20)*math.Sqrt(3), length)
}

// SineAtDB generates a sine whose RMS is levelDB dBFS.
func SineAtDB(freqHz, sampleRate, levelDB float64, length int) []float64 {
	return DeterministicSine(freqHz, sampleRate, math.Pow(10, levelDB/20)*math.Sqrt2, length)
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// Blocks splits signal into consecutive blocks of size n. A trailing
// partial block is dropped.
func Blocks(signal []float64, n int) [][]float64 {
	if n <= 0 {
		return nil
	}
	out := make([][]float64, 0, len(signal)/n)
	for i := 0; i+n <= len(signal); i += n {
		out = append(out, signal[i:i+n])
	}
	return out
}

// Float32 converts a signal to float32 samples.
func Float32(signal []float64) []float32 {
	out := make([]float32, len(signal))
	for i, v := range signal {
		out[i] = float32(v)
	}
	return out
}
