package noise

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/micmon/internal/testutil"
)

func TestAnalyzeSilence(t *testing.T) {
	res, err := Analyze(make([]float64, 16384), Config{SampleRate: 48000})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if res.FloorDB != -96 || res.PeakDB != -96 {
		t.Fatalf("floor/peak = %v/%v, want -96/-96", res.FloorDB, res.PeakDB)
	}
	if res.SuggestedThresholdDB != -86 {
		t.Fatalf("suggested = %v, want -86", res.SuggestedThresholdDB)
	}
	if res.HumDB != -96 {
		t.Fatalf("hum = %v, want -96", res.HumDB)
	}
}

func TestAnalyzeNoiseFloor(t *testing.T) {
	x := testutil.NoiseAtDB(7, -50, 96000)

	res, err := Analyze(x, Config{SampleRate: 48000})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if math.Abs(res.FloorDB+50) > 0.2 {
		t.Fatalf("floor = %.3f dB, want -50", res.FloorDB)
	}
	if math.Abs(res.SuggestedThresholdDB-(res.FloorDB+10)) > 1e-12 {
		t.Fatalf("suggested = %.3f, want floor+10", res.SuggestedThresholdDB)
	}
	if res.PeakDB < res.FloorDB {
		t.Fatalf("peak %.2f below floor %.2f", res.PeakDB, res.FloorDB)
	}
	if res.Samples != len(x) {
		t.Fatalf("Samples = %d, want %d", res.Samples, len(x))
	}
}

func TestAnalyzeHum(t *testing.T) {
	tests := []struct {
		name    string
		mainsHz float64
	}{
		{"50Hz", 50},
		{"60Hz", 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const n = 96000
			hum := testutil.SineAtDB(tt.mainsHz, 48000, -30, n)
			bg := testutil.NoiseAtDB(3, -70, n)
			x := make([]float64, n)
			for i := range x {
				x[i] = hum[i] + bg[i]
			}

			res, err := Analyze(x, Config{SampleRate: 48000, MainsHz: tt.mainsHz})
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}

			if len(res.Hum) != 3 {
				t.Fatalf("len(Hum) = %d, want 3", len(res.Hum))
			}
			if res.Hum[0].FrequencyHz != tt.mainsHz {
				t.Fatalf("fundamental = %v Hz, want %v", res.Hum[0].FrequencyHz, tt.mainsHz)
			}
			if math.Abs(res.Hum[0].LevelDB+30) > 0.5 {
				t.Fatalf("fundamental level = %.2f dB, want -30", res.Hum[0].LevelDB)
			}
			if res.Hum[1].LevelDB > -60 {
				t.Fatalf("second harmonic level = %.2f dB, want below -60", res.Hum[1].LevelDB)
			}
			if math.Abs(res.HumDB+30) > 0.5 {
				t.Fatalf("total hum = %.2f dB, want -30", res.HumDB)
			}

			binHz := 48000.0 / defaultFFTSize
			if math.Abs(res.Spectrum.PeakHz-tt.mainsHz) > binHz {
				t.Errorf("spectral peak = %.1f Hz, want about %v", res.Spectrum.PeakHz, tt.mainsHz)
			}
			if res.Spectrum.Flatness > 0.5 {
				t.Errorf("flatness = %.2f with dominant hum, want < 0.5", res.Spectrum.Flatness)
			}
			if math.Abs(res.CrestDB-3.01) > 0.5 {
				t.Errorf("crest factor = %.2f dB, want about 3 for a sine", res.CrestDB)
			}
		})
	}
}

func TestAnalyzeWhiteNoiseSpectrum(t *testing.T) {
	res, err := Analyze(testutil.NoiseAtDB(9, -40, 96000), Config{SampleRate: 48000})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if res.Spectrum.Flatness < 0.8 || res.Spectrum.Tonal() {
		t.Errorf("white noise flatness = %.2f, want > 0.8", res.Spectrum.Flatness)
	}
	if c := res.Spectrum.CentroidHz; math.Abs(c-12000) > 1200 {
		t.Errorf("white noise centroid = %.0f Hz, want about 12000", c)
	}
}

func TestAnalyzeShortCaptureHasNoHum(t *testing.T) {
	res, err := Analyze(testutil.NoiseAtDB(1, -40, 1000), Config{SampleRate: 48000})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.Hum != nil {
		t.Fatalf("Hum = %v, want nil", res.Hum)
	}
	if res.HumDB != -96 {
		t.Fatalf("HumDB = %v, want -96", res.HumDB)
	}
}

func TestAnalyzerFloat32MatchesFloat64(t *testing.T) {
	x := testutil.NoiseAtDB(11, -30, 20000)

	a, err := NewAnalyzer(Config{SampleRate: 48000, FFTSize: 4096})
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}
	b, err := NewAnalyzer(Config{SampleRate: 48000, FFTSize: 4096})
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}

	x32 := testutil.Float32(x)
	for i := 0; i < len(x); i += 480 {
		end := min(i+480, len(x))
		if err := a.Add(x[i:end]); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if err := b.AddFloat32(x32[i:end]); err != nil {
			t.Fatalf("AddFloat32() error = %v", err)
		}
	}

	ra, _ := a.Result()
	rb, _ := b.Result()
	if a.Frames() != 4 || b.Frames() != 4 {
		t.Fatalf("frames = %d/%d, want 4", a.Frames(), b.Frames())
	}
	if math.Abs(ra.FloorDB-rb.FloorDB) > 1e-3 || math.Abs(ra.HumDB-rb.HumDB) > 1e-3 {
		t.Fatalf("float32 result %+v differs from float64 %+v", rb, ra)
	}
}

func TestAnalyzerReset(t *testing.T) {
	a, err := NewAnalyzer(Config{})
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}

	if _, err := a.Result(); !errors.Is(err, ErrNoSignal) {
		t.Fatalf("Result() error = %v, want ErrNoSignal", err)
	}

	if err := a.Add(testutil.DC(0.5, 10000)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	res, _ := a.Result()
	if math.Abs(res.DCOffset-0.5) > 1e-12 {
		t.Fatalf("DCOffset = %v, want 0.5", res.DCOffset)
	}

	a.Reset()
	if _, err := a.Result(); !errors.Is(err, ErrNoSignal) {
		t.Fatalf("Result() after Reset error = %v, want ErrNoSignal", err)
	}
	if a.Frames() != 0 {
		t.Fatalf("Frames() after Reset = %d, want 0", a.Frames())
	}
}

func TestSuggestedThresholdClamped(t *testing.T) {
	res, err := Analyze(testutil.DC(1, 1000), Config{})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.SuggestedThresholdDB != 0 {
		t.Fatalf("suggested = %v, want 0", res.SuggestedThresholdDB)
	}
}

func TestNewAnalyzerValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative sample rate", Config{SampleRate: -1}},
		{"non power of two", Config{FFTSize: 1000}},
		{"fft too small", Config{FFTSize: 128}},
		{"mains above nyquist", Config{SampleRate: 8000, MainsHz: 5000}},
		{"negative harmonics", Config{Harmonics: -1}},
		{"margin", Config{MarginDB: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewAnalyzer(tt.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
