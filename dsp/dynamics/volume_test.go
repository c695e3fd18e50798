package dynamics

import (
	"math"
	"testing"

	"github.com/cwbudde/micmon/dsp/core"
)

func TestNewVolume(t *testing.T) {
	tests := []struct {
		name    string
		percent float64
		wantErr bool
	}{
		{"min", 1, false},
		{"unity", 100, false},
		{"max", 200, false},
		{"below min", 0.5, true},
		{"zero", 0, true},
		{"above max", 201, true},
		{"NaN", math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewVolume(tt.percent)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewVolume(%v) error = %v, wantErr %v", tt.percent, err, tt.wantErr)
			}

			if !tt.wantErr && v.Gain() != tt.percent/100 {
				t.Fatalf("Gain() = %v, want %v", v.Gain(), tt.percent/100)
			}
		})
	}
}

func TestVolumeScalesAndClamps(t *testing.T) {
	input := []float64{-1, -0.75, -0.5, -0.1, 0, 0.1, 0.5, 0.75, 1}

	for _, percent := range []float64{1, 25, 50, 100, 150, 200} {
		v, err := NewVolume(percent)
		if err != nil {
			t.Fatalf("NewVolume(%v) error = %v", percent, err)
		}

		block := append([]float64(nil), input...)
		v.Process(block)

		for i, x := range input {
			want := core.Clamp(x*(percent/100), -1, 1)
			if block[i] != want {
				t.Fatalf("%v%%: sample %d = %v, want %v", percent, i, block[i], want)
			}
		}
	}
}

func TestVolumeFullScaleAtMax(t *testing.T) {
	v, err := NewVolume(200)
	if err != nil {
		t.Fatalf("NewVolume() error = %v", err)
	}

	block := []float64{1, 1, 1, -1}
	v.Process(block)

	for i, want := range []float64{1, 1, 1, -1} {
		if block[i] != want {
			t.Fatalf("sample %d = %v, want exactly %v", i, block[i], want)
		}
	}
}

func TestVolumeDB(t *testing.T) {
	v, _ := NewVolume(200)
	if !core.NearlyEqual(v.DB(), 6.0206, 1e-4) {
		t.Fatalf("DB() = %v, want ~6.02", v.DB())
	}
}

func TestScale(t *testing.T) {
	block := []float64{0.5}
	if err := Scale(block, 50); err != nil {
		t.Fatalf("Scale() error = %v", err)
	}
	if block[0] != 0.25 {
		t.Fatalf("block[0] = %v, want 0.25", block[0])
	}

	if err := Scale(block, 300); err == nil {
		t.Fatal("expected error for 300%")
	}
}
