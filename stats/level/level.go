// Package level computes time-domain level statistics of audio blocks in
// dBFS: RMS, peak, DC offset, crest factor and zero crossings.
//
// dB values are clamped to [core.SilenceFloorDB] so that digital silence
// reports a finite level.
package level

import (
	"math"

	"github.com/cwbudde/micmon/dsp/core"
)

// Stats holds level statistics of a signal.
type Stats struct {
	Samples int
	DC      float64 // mean
	RMS     float64
	RMSDB   float64
	Peak    float64 // max(|x|)
	PeakDB  float64
	// CrestDB is the peak to RMS ratio in dB, 0 for silence.
	CrestDB       float64
	ZeroCrossings int
}

func emptyStats() Stats {
	return Stats{
		RMSDB:  core.SilenceFloorDB,
		PeakDB: core.SilenceFloorDB,
	}
}

// Meter accumulates level statistics across blocks. The zero value is
// ready to use.
type Meter struct {
	n             int
	sum           float64
	sumSq         float64
	peak          float64
	last          float64
	zeroCrossings int
}

// Add feeds a block of samples.
func (m *Meter) Add(block []float64) {
	for _, x := range block {
		m.observe(x)
	}
}

// AddFloat32 feeds a block of float32 samples as delivered by an audio
// device.
func (m *Meter) AddFloat32(block []float32) {
	for _, v := range block {
		m.observe(float64(v))
	}
}

func (m *Meter) observe(x float64) {
	m.n++
	m.sum += x
	m.sumSq += x * x
	if a := math.Abs(x); a > m.peak {
		m.peak = a
	}
	if m.n > 1 && m.last*x < 0 {
		m.zeroCrossings++
	}
	m.last = x
}

// Samples returns the number of samples added since the last Reset.
func (m *Meter) Samples() int { return m.n }

// Result returns the statistics of everything added so far.
func (m *Meter) Result() Stats {
	if m.n == 0 {
		return emptyStats()
	}

	nf := float64(m.n)
	rms := math.Sqrt(m.sumSq / nf)

	var crest float64
	if rms > 0 {
		crest = core.LinearToDB(m.peak / rms)
	}

	return Stats{
		Samples:       m.n,
		DC:            m.sum / nf,
		RMS:           rms,
		RMSDB:         core.LinearToDBFloor(rms, core.SilenceFloorDB),
		Peak:          m.peak,
		PeakDB:        core.LinearToDBFloor(m.peak, core.SilenceFloorDB),
		CrestDB:       crest,
		ZeroCrossings: m.zeroCrossings,
	}
}

// Reset clears all accumulated data.
func (m *Meter) Reset() {
	*m = Meter{}
}

// Measure computes the statistics of one signal.
func Measure(signal []float64) Stats {
	var m Meter
	m.Add(signal)
	return m.Result()
}

// MeasureFloat32 computes the statistics of one float32 signal.
func MeasureFloat32(signal []float32) Stats {
	var m Meter
	m.AddFloat32(signal)
	return m.Result()
}

// RMSDB returns the RMS level of signal in dBFS.
func RMSDB(signal []float32) float64 {
	return MeasureFloat32(signal).RMSDB
}
