package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/cwbudde/micmon/dsp/core"
	"github.com/cwbudde/micmon/internal/config"
)

const defaultBarWidth = 40

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#2E86DE"))

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2E86DE")).
			Padding(0, 1)

	openStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00AA00"))
	closedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A40000"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A40000"))

	barLowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00"))
	barHighStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	barEmpty     = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
	markerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
)

func renderMeterView(m Model, rt *config.Runtime) string {
	var content strings.Builder

	content.WriteString(titleStyle.Render("🎙  MicMonitor"))
	content.WriteString(mutedStyle.Render(fmt.Sprintf("  %s · %d samples · %.0f Hz",
		rt.Profile().Name, rt.BlockSize(), rt.SampleRate())))
	content.WriteString("\n\n")

	width := barWidth(m.Width)
	content.WriteString(fmt.Sprintf("Level  %s %6.1f dBFS\n",
		renderLevelBar(m.Meter.LevelDB, rt.ThresholdDB(), width), m.Meter.LevelDB))
	content.WriteString(fmt.Sprintf("Gain   %s %5.0f%%\n",
		renderGainBar(m.Meter.Gain, width), m.Meter.Gain*100))
	content.WriteString(fmt.Sprintf("Peak   %.1f dBFS\n\n", m.PeakDB))

	state := closedStyle.Render("CLOSED")
	if m.Meter.Open {
		state = openStyle.Render("OPEN")
	}
	content.WriteString(fmt.Sprintf("Gate %s   threshold %.0f dB   volume %.0f%% (%+.1f dB)\n",
		state, rt.ThresholdDB(), rt.VolumePercent(), core.PercentToDB(rt.VolumePercent())))

	underruns := fmt.Sprintf("underruns %d   overruns %d", m.Stats.Underruns(), m.Stats.Overruns)
	if m.Stats.Underruns() > 0 || m.Stats.Overruns > 0 {
		underruns = warnStyle.Render(underruns)
	}
	content.WriteString(fmt.Sprintf("Blocks %d   %s   max callback %v\n",
		m.Meter.Blocks, underruns, m.Stats.MaxCallback.Round(time.Microsecond)))

	switch {
	case m.Err != nil:
		content.WriteString("\n" + errStyle.Render(m.Err.Error()) + "\n")
	case m.Message != "":
		content.WriteString("\n" + mutedStyle.Render(m.Message) + "\n")
	}

	help := mutedStyle.Render("+/- volume · ↑/↓ threshold · r reset peak · q quit")
	return boxStyle.Render(content.String()) + "\n" + help + "\n"
}

func barWidth(termWidth int) int {
	if termWidth <= 0 {
		return defaultBarWidth
	}
	return max(10, min(termWidth-30, 60))
}

// dbToFraction maps a dBFS level onto [0, 1] across the silence floor.
func dbToFraction(db float64) float64 {
	return core.Clamp((db-core.SilenceFloorDB)/-core.SilenceFloorDB, 0, 1)
}

// renderLevelBar draws the level with a marker at the gate threshold.
func renderLevelBar(levelDB, thresholdDB float64, width int) string {
	filled := int(dbToFraction(levelDB) * float64(width))
	marker := min(int(dbToFraction(thresholdDB)*float64(width)), width-1)

	var sb strings.Builder
	for i := range width {
		switch {
		case i == marker:
			sb.WriteString(markerStyle.Render("│"))
		case i < filled && i > marker:
			sb.WriteString(barHighStyle.Render("█"))
		case i < filled:
			sb.WriteString(barLowStyle.Render("█"))
		default:
			sb.WriteString(barEmpty.Render("░"))
		}
	}
	return sb.String()
}

func renderGainBar(gain float64, width int) string {
	filled := int(core.Clamp(gain, 0, 1) * float64(width))
	return barLowStyle.Render(strings.Repeat("█", filled)) + barEmpty.Render(strings.Repeat("░", width-filled))
}
