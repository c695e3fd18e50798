package cli

import (
	"fmt"
	"io"

	"github.com/cwbudde/micmon/dsp/core"
	"github.com/cwbudde/micmon/internal/config"
)

// PrintBanner prints the session summary shown before the stream opens.
func PrintBanner(w io.Writer, rt *config.Runtime) {
	profile := rt.Profile()

	fmt.Fprintln(w, TitleStyle.Render("🎙  MicMonitor - Ultra-Low Latency Audio Gate"))
	fmt.Fprintln(w, rule)
	keyValue(w, "Profile", "%s - %s", profile.Name, profile.Description)
	keyValue(w, "Threshold", "%.0f dB", rt.ThresholdDB())
	keyValue(w, "Volume", "%+.1f dB (%.0f%%)", core.PercentToDB(rt.VolumePercent()), rt.VolumePercent())
	keyValue(w, "Latency", "%.2f ms", msec(rt.BlockLatency().Seconds()))
	keyValue(w, "Block size", "%d samples", rt.BlockSize())
	keyValue(w, "Sample rate", "%.0f Hz", rt.SampleRate())
	keyValue(w, "Gate", "attack %.1f ms, release %.0f ms%s", rt.AttackMs(), rt.ReleaseMs(), gateExtras(rt))
	fmt.Fprintln(w)
}

// PrintListening tells the user how to end a live session.
func PrintListening(w io.Writer) {
	fmt.Fprintln(w, SubtitleStyle.Render("🎧 Press Ctrl+C to stop"))
	fmt.Fprintln(w)
}

func gateExtras(rt *config.Runtime) string {
	s := ""
	if rt.HysteresisDB() > 0 {
		s += fmt.Sprintf(", hysteresis ±%.1f dB", rt.HysteresisDB())
	}
	if rt.DetectorHighPassHz() > 0 {
		s += fmt.Sprintf(", detector high-pass %.0f Hz", rt.DetectorHighPassHz())
	}
	return s
}

// PrintTip suggests customizing the profile and volume.
func PrintTip(w io.Writer, name string) {
	fmt.Fprintf(w, "💡 Tip: Use '%s <profile> <volume>' to customize\n", name)
	fmt.Fprintf(w, "   Example: %s minimum 80  (80%% volume)\n\n", name)
}

func msec(seconds float64) float64 {
	return seconds * 1000
}
