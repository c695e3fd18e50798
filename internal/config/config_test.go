package config

import (
	"errors"
	"math"
	"testing"
	"time"
)

func ptr(v float64) *float64 { return &v }

func TestProfilesTable(t *testing.T) {
	want := []struct {
		name      string
		blockSize int
	}{
		{"ultra", 32},
		{"minimum", 64},
		{"balanced", 128},
		{"stable", 256},
	}

	got := Profiles()
	if len(got) != len(want) {
		t.Fatalf("len(Profiles()) = %d, want %d", len(got), len(want))
	}

	for i, w := range want {
		if got[i].Name != w.name || got[i].BlockSize != w.blockSize {
			t.Errorf("profile %d = %s/%d, want %s/%d", i, got[i].Name, got[i].BlockSize, w.name, w.blockSize)
		}
		if got[i].ThresholdDB != -25 {
			t.Errorf("profile %s threshold = %v, want -25", got[i].Name, got[i].ThresholdDB)
		}
	}

	// Mutating the returned copy must not affect the table.
	got[0].BlockSize = 1
	if Profiles()[0].BlockSize != 32 {
		t.Fatal("Profiles() exposed the internal table")
	}
}

func TestLookupProfile(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"balanced", false},
		{"MINIMUM", false},
		{" ultra ", false},
		{"turbo", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LookupProfile(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LookupProfile(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrConfiguration) {
				t.Fatalf("error %v does not match ErrConfiguration", err)
			}
		})
	}
}

func TestProfileLatency(t *testing.T) {
	p, _ := LookupProfile("minimum")

	if got := p.BlockLatency(48000); got != 1333333*time.Nanosecond {
		t.Fatalf("BlockLatency = %v, want 1.333333ms", got)
	}
	if got := p.RoundTripLatency(48000); got != 2666666*time.Nanosecond {
		t.Fatalf("RoundTripLatency = %v, want 2.666666ms", got)
	}
	if got := p.BlockLatency(0); got != 0 {
		t.Fatalf("BlockLatency(0) = %v, want 0", got)
	}
}

func TestNewDefaults(t *testing.T) {
	r, err := New(DefaultOptions())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if r.Profile().Name != "balanced" || r.BlockSize() != 128 {
		t.Fatalf("profile = %s/%d, want balanced/128", r.Profile().Name, r.BlockSize())
	}
	if r.ThresholdDB() != -25 {
		t.Fatalf("ThresholdDB() = %v, want -25", r.ThresholdDB())
	}
	if r.VolumePercent() != 100 || r.Volume().Gain() != 1 {
		t.Fatalf("volume = %v%% gain %v, want 100%% gain 1", r.VolumePercent(), r.Volume().Gain())
	}

	cfg := r.ProcessorConfig()
	if cfg.SampleRate != 48000 || cfg.BlockSize != 128 {
		t.Fatalf("ProcessorConfig() = %+v", cfg)
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		field  string
	}{
		{"unknown profile", func(o *Options) { o.Profile = "turbo" }, "profile"},
		{"volume zero", func(o *Options) { o.VolumePercent = 0 }, "volume"},
		{"volume 201", func(o *Options) { o.VolumePercent = 201 }, "volume"},
		{"threshold below -96", func(o *Options) { o.ThresholdDB = ptr(-97) }, "threshold"},
		{"threshold above 0", func(o *Options) { o.ThresholdDB = ptr(1) }, "threshold"},
		{"threshold NaN", func(o *Options) { o.ThresholdDB = ptr(math.NaN()) }, "threshold"},
		{"sample rate", func(o *Options) { o.SampleRate = 1000 }, "sample rate"},
		{"attack", func(o *Options) { o.AttackMs = 0 }, "attack"},
		{"release", func(o *Options) { o.ReleaseMs = 0.5 }, "release"},
		{"hysteresis", func(o *Options) { o.HysteresisDB = 20 }, "hysteresis"},
		{"detector high-pass", func(o *Options) { o.DetectorHighPassHz = 30000 }, "detector high-pass"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)

			r, err := New(opts)
			if err == nil {
				t.Fatalf("New() = %v, want error", r)
			}
			if r != nil {
				t.Fatal("New() returned partial runtime on error")
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("error %v does not match ErrConfiguration", err)
			}

			var cfgErr *Error
			if !errors.As(err, &cfgErr) || cfgErr.Field != tt.field {
				t.Fatalf("error %v, want field %q", err, tt.field)
			}
		})
	}
}

func TestNewThresholdOverride(t *testing.T) {
	opts := DefaultOptions()
	opts.Profile = "stable"
	opts.ThresholdDB = ptr(-40)

	r, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if r.ThresholdDB() != -40 || r.BlockSize() != 256 {
		t.Fatalf("runtime = %v dB / %d, want -40 dB / 256", r.ThresholdDB(), r.BlockSize())
	}
}

func TestRuntimeWithIsCopyOnWrite(t *testing.T) {
	r, err := New(DefaultOptions())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	louder, err := r.WithVolume(150)
	if err != nil {
		t.Fatalf("WithVolume() error = %v", err)
	}
	if louder.VolumePercent() != 150 || r.VolumePercent() != 100 {
		t.Fatalf("volumes = %v / %v, want 150 / 100", louder.VolumePercent(), r.VolumePercent())
	}

	quieter, err := r.WithThreshold(-30)
	if err != nil {
		t.Fatalf("WithThreshold() error = %v", err)
	}
	if quieter.ThresholdDB() != -30 || r.ThresholdDB() != -25 {
		t.Fatalf("thresholds = %v / %v, want -30 / -25", quieter.ThresholdDB(), r.ThresholdDB())
	}

	if _, err := r.WithVolume(0); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("WithVolume(0) error = %v, want ErrConfiguration", err)
	}
	if _, err := r.WithThreshold(3); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("WithThreshold(3) error = %v, want ErrConfiguration", err)
	}
}

func TestMustValidateProfilesPanics(t *testing.T) {
	tests := []struct {
		name  string
		table []Profile
	}{
		{"duplicate", []Profile{{Name: "a", BlockSize: 64, ThresholdDB: -25}, {Name: "a", BlockSize: 64, ThresholdDB: -25}}},
		{"upper case", []Profile{{Name: "A", BlockSize: 64, ThresholdDB: -25}}},
		{"block size", []Profile{{Name: "a", BlockSize: 0, ThresholdDB: -25}}},
		{"threshold", []Profile{{Name: "a", BlockSize: 64, ThresholdDB: 5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			mustValidateProfiles(tt.table)
		})
	}
}
