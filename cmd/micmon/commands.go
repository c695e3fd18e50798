package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	dspsignal "github.com/cwbudde/micmon/dsp/signal"
	"github.com/cwbudde/micmon/internal/cli"
	"github.com/cwbudde/micmon/internal/config"
	"github.com/cwbudde/micmon/internal/device"
	"github.com/cwbudde/micmon/internal/engine"
	"github.com/cwbudde/micmon/internal/mains"
	"github.com/cwbudde/micmon/internal/observe"
	"github.com/cwbudde/micmon/internal/ui"
	"github.com/cwbudde/micmon/measure/noise"
)

// captureBlockSize is the buffer size requested for calibration, where
// latency does not matter.
const captureBlockSize = 1024

// GateFlags tune the gate beyond the profile defaults.
type GateFlags struct {
	Threshold   *float64 `help:"Gate threshold in dBFS (-96..0), overrides the profile." placeholder:"dB" env:"MICMON_THRESHOLD"`
	Attack      float64  `help:"Gate attack time in ms." default:"5" env:"MICMON_ATTACK"`
	Release     float64  `help:"Gate release time in ms." default:"100" env:"MICMON_RELEASE"`
	Hysteresis  float64  `help:"Gate hysteresis in dB (0 disables)." default:"0" env:"MICMON_HYSTERESIS"`
	DetectorHPF float64  `name:"detector-hpf" help:"Detector high-pass cutoff in Hz (0 disables)." default:"0" env:"MICMON_DETECTOR_HPF"`
}

func (a *app) options(profile string, volume float64, gate GateFlags) config.Options {
	return config.Options{
		Profile:            profile,
		VolumePercent:      volume,
		ThresholdDB:        gate.Threshold,
		SampleRate:         a.globals.SampleRate,
		AttackMs:           gate.Attack,
		ReleaseMs:          gate.Release,
		HysteresisDB:       gate.Hysteresis,
		DetectorHighPassHz: gate.DetectorHPF,
		InputDevice:        a.globals.Input,
		OutputDevice:       a.globals.Output,
	}
}

// RunCmd monitors the microphone until interrupted.
type RunCmd struct {
	GateFlags

	Profile string `arg:"" optional:"" default:"${profile}" help:"Latency profile: ultra, minimum, balanced or stable."`
	Volume  int    `arg:"" optional:"" default:"100" help:"Output volume in percent (1-200)."`
	TUI     bool   `name:"tui" help:"Show the live meter with keyboard controls." env:"MICMON_TUI"`
}

// Run opens the duplex stream and processes audio until the context ends.
func (r *RunCmd) Run(a *app) error {
	rt, err := config.New(a.options(r.Profile, float64(r.Volume), r.GateFlags))
	if err != nil {
		return err
	}

	cli.PrintBanner(a.stdout, rt)
	if r.Profile == config.DefaultProfile && r.Volume == config.DefaultVolumePct && !r.TUI {
		cli.PrintTip(a.stdout, a.name)
	}
	if !r.TUI {
		cli.PrintListening(a.stdout)
	}

	backend, err := device.Open(a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			a.logger.Warn("audio shutdown failed", "err", err)
		}
	}()

	provider := observe.NewProvider(version)
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			a.logger.Warn("metrics shutdown failed", "err", err)
		}
	}()
	metrics, err := observe.NewMetrics(provider.MeterProvider())
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	eng, err := engine.New(rt, backend,
		engine.WithLogger(a.logger),
		engine.WithRecorder(metrics),
	)
	if err != nil {
		return err
	}

	if r.TUI {
		err = runTUI(a.ctx, eng)
	} else {
		err = eng.Run(a.ctx)
	}
	if err != nil {
		return err
	}

	summary, err := provider.Summary(context.Background())
	if err != nil {
		a.logger.Warn("metrics summary failed", "err", err)
		return nil
	}
	fmt.Fprintln(a.stdout)
	cli.PrintSummary(a.stdout, summary)
	return nil
}

func runTUI(ctx context.Context, eng *engine.Engine) error {
	if err := eng.Start(ctx); err != nil {
		return err
	}

	p := tea.NewProgram(ui.NewModel(eng), tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()
	if errors.Is(runErr, tea.ErrProgramKilled) {
		runErr = nil
	}

	return errors.Join(runErr, eng.Stop())
}

// ProfilesCmd lists latency profiles.
type ProfilesCmd struct{}

// Run prints the profile table.
func (ProfilesCmd) Run(a *app) error {
	cli.PrintProfiles(a.stdout, a.globals.SampleRate)
	return nil
}

// DevicesCmd lists audio devices.
type DevicesCmd struct{}

// Run prints the devices the audio backend reports.
func (DevicesCmd) Run(a *app) error {
	backend, err := device.Open(a.logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	devices, err := backend.Devices()
	if err != nil {
		return err
	}
	cli.PrintDevices(a.stdout, devices)
	return nil
}

// CalibrateCmd measures the ambient noise floor.
type CalibrateCmd struct {
	Duration time.Duration `help:"How long to listen." default:"3s" env:"MICMON_CALIBRATE_DURATION"`
	Mains    string        `help:"Mains frequency for hum detection: auto, 50 or 60." default:"auto" env:"MICMON_MAINS"`
	FFTSize  int           `name:"fft-size" help:"Spectrum size for hum detection (power of two)." default:"8192"`
	Margin   float64       `help:"Margin above the noise floor for the suggested threshold, in dB." default:"10"`
}

// Run records ambient input with the output muted and reports the result.
func (c *CalibrateCmd) Run(a *app) error {
	det, err := mains.Detect(c.Mains)
	if err != nil {
		return &config.Error{Field: "mains", Value: c.Mains, Reason: err.Error()}
	}

	analyzer, err := noise.NewAnalyzer(noise.Config{
		SampleRate: a.globals.SampleRate,
		FFTSize:    c.FFTSize,
		MainsHz:    det.FrequencyHz,
		MarginDB:   c.Margin,
	})
	if err != nil {
		return &config.Error{Field: "calibration", Value: c.FFTSize, Reason: err.Error()}
	}

	backend, err := device.Open(a.logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	fmt.Fprintf(a.stdout, "🤫 Listening for %v, keep quiet...\n\n", c.Duration)
	a.logger.Info("calibration started", "duration", c.Duration, "mains", det.String())

	samples, stats, captureErr := engine.Capture(a.ctx, backend, engine.StreamParams{
		SampleRate:  a.globals.SampleRate,
		BlockSize:   captureBlockSize,
		InputDevice: a.globals.Input,
	}, c.Duration)
	if captureErr != nil && !errors.Is(captureErr, context.Canceled) {
		return captureErr
	}
	if captureErr != nil {
		a.logger.Warn("capture interrupted", "captured", len(samples), "err", captureErr)
	}
	if stats.Overflows() > 0 {
		cli.PrintWarning(a.stderr, fmt.Sprintf("%d input overflows during capture", stats.Overflows()))
	}

	if err := analyzer.AddFloat32(samples); err != nil {
		return err
	}
	res, err := analyzer.Result()
	if err != nil {
		if captureErr != nil {
			return captureErr
		}
		return fmt.Errorf("calibration: %w", err)
	}

	a.logger.Info("calibration finished",
		"floor_db", res.FloorDB,
		"peak_db", res.PeakDB,
		"hum_db", res.HumDB,
		"suggested_threshold_db", res.SuggestedThresholdDB,
	)
	cli.PrintCalibration(a.stdout, res, det, a.globals.SampleRate)
	return nil
}

// SimulateCmd runs the gate on synthetic input.
type SimulateCmd struct {
	GateFlags

	Profile string  `help:"Latency profile." default:"${profile}" env:"MICMON_PROFILE"`
	Volume  float64 `help:"Output volume in percent (1-200)." default:"100"`
	Scene   string  `help:"Comma-separated segments kind:level:duration (kinds: noise, speech, tone, silence)." default:"${scene}"`
	Seed    int64   `help:"Noise seed." default:"1"`
}

// Run renders the scene, processes it block by block and prints the report.
func (s *SimulateCmd) Run(a *app) error {
	rt, err := config.New(a.options(s.Profile, s.Volume, s.GateFlags))
	if err != nil {
		return err
	}

	scene, err := dspsignal.ParseScene(s.Scene)
	if err != nil {
		return &config.Error{Field: "scene", Value: s.Scene, Reason: err.Error()}
	}

	sim, err := engine.Simulate(rt, scene, s.Seed)
	if err != nil {
		return err
	}

	a.logger.Debug("simulation finished",
		"blocks", sim.Meter.Blocks,
		"opens", sim.Meter.Opens,
		"closes", sim.Meter.Closes,
	)
	cli.PrintBanner(a.stdout, rt)
	cli.PrintSimulation(a.stdout, sim)
	return nil
}
