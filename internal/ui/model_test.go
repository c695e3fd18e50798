package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cwbudde/micmon/internal/config"
	"github.com/cwbudde/micmon/internal/engine"
)

type fakeSource struct {
	rt        *config.Runtime
	meter     engine.MeterSnapshot
	stats     engine.Stats
	updates   int
	updateErr error
}

func (f *fakeSource) Config() *config.Runtime { return f.rt }

func (f *fakeSource) Update(rt *config.Runtime) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates++
	f.rt = rt
	return nil
}

func (f *fakeSource) Meter() engine.MeterSnapshot { return f.meter }
func (f *fakeSource) Stats() engine.Stats         { return f.stats }

func newSource(t *testing.T, volume float64, threshold float64) *fakeSource {
	t.Helper()
	opts := config.DefaultOptions()
	opts.VolumePercent = volume
	opts.ThresholdDB = &threshold
	rt, err := config.New(opts)
	if err != nil {
		t.Fatal(err)
	}
	return &fakeSource{rt: rt}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestModelKeys(t *testing.T) {
	tests := []struct {
		name          string
		volume        float64
		threshold     float64
		key           tea.KeyMsg
		wantVolume    float64
		wantThreshold float64
		wantUpdates   int
	}{
		{"volume up", 100, -25, runes("+"), 105, -25, 1},
		{"volume up equals", 100, -25, runes("="), 105, -25, 1},
		{"volume down", 100, -25, runes("-"), 95, -25, 1},
		{"volume clamps high", 198, -25, runes("+"), 200, -25, 1},
		{"volume at max", 200, -25, runes("+"), 200, -25, 0},
		{"volume clamps low", 3, -25, runes("-"), 1, -25, 1},
		{"threshold up", 100, -25, tea.KeyMsg{Type: tea.KeyUp}, 100, -24, 1},
		{"threshold down", 100, -25, tea.KeyMsg{Type: tea.KeyDown}, 100, -26, 1},
		{"threshold at ceiling", 100, 0, runes("k"), 100, 0, 0},
		{"threshold at floor", 100, -96, runes("j"), 100, -96, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newSource(t, tt.volume, tt.threshold)
			m, cmd := press(NewModel(src), tt.key)
			if cmd != nil {
				t.Errorf("key %q returned a command", tt.key)
			}
			if got := src.rt.VolumePercent(); got != tt.wantVolume {
				t.Errorf("volume = %v, want %v", got, tt.wantVolume)
			}
			if got := src.rt.ThresholdDB(); got != tt.wantThreshold {
				t.Errorf("threshold = %v, want %v", got, tt.wantThreshold)
			}
			if src.updates != tt.wantUpdates {
				t.Errorf("updates = %d, want %d", src.updates, tt.wantUpdates)
			}
			if m.Message == "" {
				t.Error("no status message")
			}
		})
	}
}

func TestModelUpdateError(t *testing.T) {
	src := newSource(t, 100, -25)
	src.updateErr = engine.ErrRestartRequired

	m, _ := press(NewModel(src), runes("+"))
	if !errors.Is(m.Err, engine.ErrRestartRequired) {
		t.Fatalf("Err = %v, want ErrRestartRequired", m.Err)
	}
	if src.rt.VolumePercent() != 100 {
		t.Errorf("volume changed to %v after failed update", src.rt.VolumePercent())
	}
	if !strings.Contains(m.View(), engine.ErrRestartRequired.Error()) {
		t.Error("view does not show the update error")
	}
}

func TestModelQuit(t *testing.T) {
	for _, key := range []tea.KeyMsg{runes("q"), {Type: tea.KeyCtrlC}, {Type: tea.KeyEsc}} {
		m, cmd := press(NewModel(newSource(t, 100, -25)), key)
		if cmd == nil {
			t.Fatalf("%q: no command", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%q: command is not quit", key)
		}
		if !m.Quitting || m.View() != "" {
			t.Errorf("%q: model not quitting", key)
		}
	}
}

func TestModelTick(t *testing.T) {
	src := newSource(t, 100, -25)
	src.meter = engine.MeterSnapshot{LevelDB: -12, Gain: 1, Open: true, Blocks: 42}
	src.stats = engine.Stats{InputOverflows: 1, OutputUnderflows: 2, Overruns: 1}

	m, cmd := press(NewModel(src), tickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("tick did not reschedule")
	}
	if m.PeakDB != -12 {
		t.Errorf("PeakDB = %v, want -12", m.PeakDB)
	}

	src.meter.LevelDB = -40
	m, _ = press(m, tickMsg(time.Now()))
	if m.PeakDB != -12 {
		t.Errorf("PeakDB = %v after quieter block, want -12", m.PeakDB)
	}

	view := m.View()
	for _, want := range []string{"MicMonitor", "OPEN", "threshold -25 dB", "volume 100%", "Blocks 42", "underruns 2", "overruns 1"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	m, _ = press(m, runes("r"))
	if m.PeakDB != -96 {
		t.Errorf("PeakDB after reset = %v", m.PeakDB)
	}
}

func TestRenderLevelBar(t *testing.T) {
	bar := renderLevelBar(-96, -25, 20)
	if strings.Count(bar, "█") != 0 || strings.Count(bar, "│") != 1 {
		t.Errorf("silent bar = %q", bar)
	}

	bar = renderLevelBar(0, -25, 20)
	if got := strings.Count(bar, "█"); got != 19 {
		t.Errorf("full bar has %d filled cells, want 19", got)
	}

	if got := barWidth(0); got != defaultBarWidth {
		t.Errorf("barWidth(0) = %d", got)
	}
	if got := barWidth(35); got != 10 {
		t.Errorf("barWidth(35) = %d, want 10", got)
	}
}
