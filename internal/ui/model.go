// Package ui provides the optional Bubbletea live meter for micmon.
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cwbudde/micmon/dsp/core"
	"github.com/cwbudde/micmon/dsp/dynamics"
	"github.com/cwbudde/micmon/internal/config"
	"github.com/cwbudde/micmon/internal/engine"
)

// Key step sizes.
const (
	VolumeStep    = 5.0
	ThresholdStep = 1.0
)

const refreshInterval = 50 * time.Millisecond

// Source is the running engine as seen by the meter.
type Source interface {
	Config() *config.Runtime
	Update(rt *config.Runtime) error
	Meter() engine.MeterSnapshot
	Stats() engine.Stats
}

// tickMsg triggers a meter refresh
type tickMsg time.Time

// Model is the Bubbletea model for the live meter
type Model struct {
	src Source

	Meter   engine.MeterSnapshot
	Stats   engine.Stats
	PeakDB  float64
	Message string
	Err     error

	StartTime time.Time
	Width     int
	Quitting  bool
}

// NewModel creates a meter model polling src.
func NewModel(src Source) Model {
	return Model{
		src:       src,
		PeakDB:    core.SilenceFloorDB,
		StartTime: time.Now(),
	}
}

// Init starts the refresh ticker
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles key presses and refresh ticks
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Quitting = true
			return m, tea.Quit
		case "+", "=":
			m = m.changeVolume(VolumeStep)
		case "-", "_":
			m = m.changeVolume(-VolumeStep)
		case "up", "k":
			m = m.changeThreshold(ThresholdStep)
		case "down", "j":
			m = m.changeThreshold(-ThresholdStep)
		case "r":
			m.PeakDB = core.SilenceFloorDB
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.Width = msg.Width

	case tickMsg:
		m = m.refresh()
		return m, tickCmd()
	}

	return m, nil
}

func (m Model) refresh() Model {
	m.Meter = m.src.Meter()
	m.Stats = m.src.Stats()
	if m.Meter.LevelDB > m.PeakDB {
		m.PeakDB = m.Meter.LevelDB
	}
	return m
}

func (m Model) changeVolume(delta float64) Model {
	cur := m.src.Config()
	next := core.Clamp(cur.VolumePercent()+delta, dynamics.MinVolumePercent, dynamics.MaxVolumePercent)
	if next == cur.VolumePercent() {
		m.Message = fmt.Sprintf("volume already at %.0f%%", next)
		return m
	}

	rt, err := cur.WithVolume(next)
	return m.apply(rt, err, fmt.Sprintf("volume %.0f%% (%+.1f dB)", next, core.PercentToDB(next)))
}

func (m Model) changeThreshold(delta float64) Model {
	cur := m.src.Config()
	next := core.Clamp(cur.ThresholdDB()+delta, config.MinThresholdDB, config.MaxThresholdDB)
	if next == cur.ThresholdDB() {
		m.Message = fmt.Sprintf("threshold already at %.0f dB", next)
		return m
	}

	rt, err := cur.WithThreshold(next)
	return m.apply(rt, err, fmt.Sprintf("threshold %.0f dB", next))
}

func (m Model) apply(rt *config.Runtime, err error, message string) Model {
	if err == nil {
		err = m.src.Update(rt)
	}
	if err != nil {
		m.Err = err
		m.Message = ""
		return m
	}
	m.Err = nil
	m.Message = message
	m.Meter = m.src.Meter()
	return m
}

// View renders the meter
func (m Model) View() string {
	if m.Quitting {
		return ""
	}
	return renderMeterView(m, m.src.Config())
}
