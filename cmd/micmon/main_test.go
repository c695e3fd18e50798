package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/cwbudde/micmon/internal/config"
	"github.com/cwbudde/micmon/internal/device"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunProfiles(t *testing.T) {
	code, out, _ := runCLI(t, "profiles")
	if code != exitOK {
		t.Fatalf("exit code = %d, want %d", code, exitOK)
	}
	for _, name := range config.ProfileNames() {
		if !strings.Contains(out, name) {
			t.Errorf("output missing profile %q:\n%s", name, out)
		}
	}
}

func TestRunProfilesSampleRateFromEnv(t *testing.T) {
	t.Setenv("MICMON_SAMPLE_RATE", "44100")
	code, out, _ := runCLI(t, "profiles")
	if code != exitOK {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "@ 44100 Hz") {
		t.Errorf("sample rate from env not applied:\n%s", out)
	}
}

func TestRunSimulate(t *testing.T) {
	code, out, errOut := runCLI(t, "simulate", "--profile", "minimum", "--threshold=-30")
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr:\n%s", code, errOut)
	}
	for _, want := range []string{"minimum", "-30 dB", "speech:-10:1s", "open", "closed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown profile", []string{"turbo"}, "Unknown profile: turbo"},
		{"volume out of range", []string{"run", "balanced", "500"}, "volume"},
		{"threshold out of range", []string{"run", "--threshold=6"}, "threshold"},
		{"bad scene", []string{"simulate", "--scene", "noise:5:1s"}, "scene"},
		{"bad log level", []string{"--log-level", "loud", "profiles"}, "log level"},
		{"unknown flag", []string{"profiles", "--nope"}, "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCLI(t, tt.args...)
			if code != exitConfiguration {
				t.Fatalf("exit code = %d, want %d", code, exitConfiguration)
			}
			if !strings.Contains(errOut, tt.wantErr) {
				t.Errorf("stderr missing %q:\n%s", tt.wantErr, errOut)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"canceled", fmt.Errorf("run: %w", context.Canceled), exitOK},
		{"configuration", &config.Error{Field: "volume", Value: 0, Reason: "too low"}, exitConfiguration},
		{"device", &device.Error{Op: "open input", Device: "USB", Err: errors.New("busy")}, exitDevice},
		{"runtime", errors.New("boom"), exitRuntime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			a := &app{logger: slog.New(slog.DiscardHandler), stderr: &stderr, name: "micmon"}
			if got := exitCode(a, tt.err); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
			if tt.want != exitOK && stderr.Len() == 0 {
				t.Error("error was not reported")
			}
		})
	}
}

func TestOptionsFromFlags(t *testing.T) {
	th := -40.0
	a := &app{globals: &Globals{SampleRate: 44100, Input: "2", Output: "Speakers"}}
	opts := a.options("stable", 80, GateFlags{Threshold: &th, Attack: 2, Release: 250, Hysteresis: 3, DetectorHPF: 80})

	rt, err := config.New(opts)
	if err != nil {
		t.Fatalf("config.New() error = %v", err)
	}
	if rt.BlockSize() != 256 || rt.ThresholdDB() != -40 || rt.VolumePercent() != 80 {
		t.Errorf("runtime = block %d, threshold %v, volume %v", rt.BlockSize(), rt.ThresholdDB(), rt.VolumePercent())
	}
	if rt.SampleRate() != 44100 || rt.InputDevice() != "2" || rt.OutputDevice() != "Speakers" {
		t.Errorf("globals not applied: %v %q %q", rt.SampleRate(), rt.InputDevice(), rt.OutputDevice())
	}
	if rt.HysteresisDB() != 3 || rt.DetectorHighPassHz() != 80 || rt.AttackMs() != 2 || rt.ReleaseMs() != 250 {
		t.Error("gate flags not applied")
	}
}
