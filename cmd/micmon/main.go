// Command micmon monitors a microphone on the default output with a noise
// gate in between.
//
// Usage:
//
//	micmon [profile] [volume] [flags]
//	micmon profiles
//	micmon devices
//	micmon calibrate [--duration=3s]
//	micmon simulate [--scene=...]
//
// Examples:
//
//	micmon balanced 80
//	micmon minimum 150 --threshold=-40
//	micmon --tui
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/cwbudde/algo-vecmath/cpu"

	dspsignal "github.com/cwbudde/micmon/dsp/signal"
	"github.com/cwbudde/micmon/internal/cli"
	"github.com/cwbudde/micmon/internal/config"
	"github.com/cwbudde/micmon/internal/device"
	"github.com/cwbudde/micmon/internal/observe"
)

var version = "0.1.0"

// Exit codes.
const (
	exitOK            = 0
	exitConfiguration = 1
	exitDevice        = 2
	exitRuntime       = 3
)

// Globals are flags shared by every command.
type Globals struct {
	SampleRate float64 `help:"Sample rate in Hz." default:"48000" env:"MICMON_SAMPLE_RATE"`
	Input      string  `help:"Input device, by index or name." placeholder:"device" env:"MICMON_INPUT"`
	Output     string  `help:"Output device, by index or name." placeholder:"device" env:"MICMON_OUTPUT"`
	LogLevel   string  `help:"Log level (debug, info, warn, error)." default:"info" env:"MICMON_LOG_LEVEL"`
	LogFile    string  `help:"Write logs to this file instead of stderr." type:"path" env:"MICMON_LOG_FILE"`
}

// CLI defines the command-line interface
type CLI struct {
	Globals

	Version versionFlag `short:"v" help:"Show version information."`

	Run       RunCmd       `cmd:"" default:"withargs" help:"Monitor the microphone through the noise gate."`
	Profiles  ProfilesCmd  `cmd:"" help:"List latency profiles."`
	Devices   DevicesCmd   `cmd:"" help:"List audio devices."`
	Calibrate CalibrateCmd `cmd:"" help:"Measure ambient noise and suggest a gate threshold."`
	Simulate  SimulateCmd  `cmd:"" help:"Run a synthetic scene through the gate without audio devices."`
}

type versionFlag bool

// BeforeReset prints the version and exits before any command runs.
func (v versionFlag) BeforeReset(app *kong.Kong) error {
	cli.PrintVersion(app.Stdout, version)
	app.Exit(exitOK)
	return nil
}

// app carries what commands need beyond their own flags.
type app struct {
	ctx     context.Context
	globals *Globals
	logger  *slog.Logger
	stdout  io.Writer
	stderr  io.Writer
	name    string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var c CLI
	parser, err := newParser(&c, stdout, stderr)
	if err != nil {
		cli.PrintError(stderr, err.Error())
		return exitRuntime
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		cli.PrintError(stderr, err.Error())
		if kctx != nil {
			_ = kctx.PrintUsage(false)
		}
		return exitConfiguration
	}

	logger, closeLog, err := newLogger(&c.Globals, stderr)
	if err != nil {
		cli.PrintError(stderr, err.Error())
		return exitConfiguration
	}
	defer closeLog()
	logStartup(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{ctx: ctx, globals: &c.Globals, logger: logger, stdout: stdout, stderr: stderr, name: parser.Model.Name}
	err = kctx.Run(a)
	return exitCode(a, err)
}

func newParser(c *CLI, stdout, stderr io.Writer) (*kong.Kong, error) {
	return kong.New(c,
		kong.Name("micmon"),
		kong.Description("Ultra-low latency microphone monitor with noise gate"),
		kong.Vars{
			"version": version,
			"scene":   dspsignal.DefaultScene().String(),
			"profile": config.DefaultProfile,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
		kong.Writers(stdout, stderr),
	)
}

// exitCode reports err and maps it to the process exit status.
func exitCode(a *app, err error) int {
	if err == nil || errors.Is(err, context.Canceled) {
		return exitOK
	}

	var cfgErr *config.Error
	switch {
	case errors.As(err, &cfgErr) && cfgErr.Field == "profile":
		cli.PrintUnknownProfile(a.stderr, fmt.Sprint(cfgErr.Value), a.name)
		return exitConfiguration
	case errors.Is(err, config.ErrConfiguration):
		cli.PrintError(a.stderr, err.Error())
		return exitConfiguration
	case errors.Is(err, device.ErrDevice):
		a.logger.Error("audio device error", "err", err)
		cli.PrintError(a.stderr, err.Error())
		return exitDevice
	default:
		a.logger.Error("micmon failed", "err", err)
		cli.PrintError(a.stderr, err.Error())
		return exitRuntime
	}
}

func newLogger(g *Globals, stderr io.Writer) (*slog.Logger, func(), error) {
	if g.LogFile == "" {
		logger, err := observe.NewLogger(stderr, g.LogLevel)
		return logger, func() {}, err
	}

	f, err := os.OpenFile(g.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger, err := observe.NewLogger(f, g.LogLevel)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return logger, func() { _ = f.Close() }, nil
}

func logStartup(logger *slog.Logger) {
	features := cpu.DetectFeatures()
	logger.Debug("micmon starting",
		"version", version,
		"go", runtime.Version(),
		"arch", runtime.GOARCH,
		"sse2", features.HasSSE2,
		"avx2", features.HasAVX2,
		"neon", features.HasNEON,
	)
}
