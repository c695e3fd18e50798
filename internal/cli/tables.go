package cli

import (
	"fmt"
	"io"

	"github.com/cwbudde/micmon/internal/config"
	"github.com/cwbudde/micmon/internal/device"
)

// PrintProfiles lists the latency profiles with their block latency at
// sampleRate.
func PrintProfiles(w io.Writer, sampleRate float64) {
	fmt.Fprintln(w, TitleStyle.Render("Available profiles:"))
	for _, p := range config.Profiles() {
		marker := " "
		if p.Name == config.DefaultProfile {
			marker = OKStyle.Render("*")
		}
		fmt.Fprintf(w, " %s %s - %s %s\n",
			marker,
			ValueStyle.Render(fmt.Sprintf("%-10s", p.Name)),
			p.Description,
			KeyStyle.Render(fmt.Sprintf("[%d samples, %.2f ms @ %.0f Hz]",
				p.BlockSize, msec(p.BlockLatency(sampleRate).Seconds()), sampleRate)),
		)
	}
}

// PrintUnknownProfile explains an unknown profile and how to pick one.
func PrintUnknownProfile(w io.Writer, name, program string) {
	PrintError(w, fmt.Sprintf("Unknown profile: %s", name))
	fmt.Fprintln(w)
	PrintProfiles(w, config.DefaultSampleRate)
	fmt.Fprintln(w)
	fmt.Fprintln(w, helpSectionStyle.Render("Usage:"))
	fmt.Fprintf(w, "  %s [profile] [volume]\n", program)
	for _, ex := range Examples(program) {
		fmt.Fprintf(w, "  %s\n", ex)
	}
}

// PrintDevices lists audio devices grouped by host API.
func PrintDevices(w io.Writer, devices []device.Info) {
	if len(devices) == 0 {
		PrintWarning(w, "no audio devices found")
		return
	}

	host := "\x00"
	for _, d := range devices {
		if d.HostAPI != host {
			host = d.HostAPI
			name := host
			if name == "" {
				name = "(unknown host API)"
			}
			fmt.Fprintln(w, TitleStyle.Render(name))
		}

		var marks string
		if d.DefaultInput {
			marks += " " + OKStyle.Render("[default in]")
		}
		if d.DefaultOutput {
			marks += " " + OKStyle.Render("[default out]")
		}

		fmt.Fprintf(w, "  %s %s%s\n",
			KeyStyle.Render(fmt.Sprintf("%3d", d.Index)),
			ValueStyle.Render(d.Name),
			marks,
		)
		fmt.Fprintf(w, "      %s\n", KeyStyle.Render(fmt.Sprintf(
			"in %d ch (%.1f ms), out %d ch (%.1f ms), %.0f Hz",
			d.MaxInputChannels, msec(d.LowInputLatency.Seconds()),
			d.MaxOutputChannels, msec(d.LowOutputLatency.Seconds()),
			d.DefaultSampleRate,
		)))
	}
}
