package testutil

import (
	"math"
	"testing"
)

func TestDeterministicSine(t *testing.T) {
	s := DeterministicSine(1000, 48000, 1.0, 48)
	if len(s) != 48 {
		t.Fatalf("len = %d, want 48", len(s))
	}
	if math.Abs(s[0]) > 1e-15 {
		t.Fatalf("s[0] = %v, want 0", s[0])
	}
	for i, v := range s {
		if v < -1 || v > 1 {
			t.Fatalf("s[%d] = %v out of range", i, v)
		}
	}
}

func TestDeterministicNoise(t *testing.T) {
	a := DeterministicNoise(42, 1.0, 64)
	b := DeterministicNoise(42, 1.0, 64)
	if len(a) != 64 {
		t.Fatalf("len = %d, want 64", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("noise not deterministic at index %d", i)
		}
	}
}

func TestLevelHelpersHitTargetRMS(t *testing.T) {
	tests := []struct {
		name   string
		signal []float64
		want   float64
		tol    float64
	}{
		{"noise -40", NoiseAtDB(7, -40, 48000), -40, 0.2},
		{"noise -10", NoiseAtDB(7, -10, 48000), -10, 0.2},
		{"sine -10", SineAtDB(1000, 48000, -10, 48000), -10, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RMSDB(tt.signal)
			if math.Abs(got-tt.want) > tt.tol {
				t.Fatalf("RMS = %.3f dB, want %.3f dB", got, tt.want)
			}
		})
	}
}

func TestBlocks(t *testing.T) {
	blocks := Blocks(DC(1, 10), 4)
	if len(blocks) != 2 {
		t.Fatalf("len = %d, want 2", len(blocks))
	}
	for _, b := range blocks {
		if len(b) != 4 {
			t.Fatalf("block len = %d, want 4", len(b))
		}
	}
}
