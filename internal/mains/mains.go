// Package mains guesses the local electrical mains frequency from the
// system timezone, so calibration knows where to look for hum.
package mains

import (
	"fmt"
	"strconv"
	"strings"

	tz "github.com/medama-io/go-timezone-country"
	"github.com/thlib/go-timezone-local/tzlocal"
)

// Supported mains frequencies in Hz.
const (
	Hz50 = 50.0
	Hz60 = 60.0
)

// Detection describes where a mains frequency came from.
type Detection struct {
	FrequencyHz float64
	Timezone    string
	Country     string
	// Source is "override", "timezone" or "default".
	Source string
}

func (d Detection) String() string {
	switch d.Source {
	case "timezone":
		return fmt.Sprintf("%.0f Hz (%s, %s)", d.FrequencyHz, d.Country, d.Timezone)
	default:
		return fmt.Sprintf("%.0f Hz (%s)", d.FrequencyHz, d.Source)
	}
}

// Detect resolves the mains frequency. setting is "auto" (or empty) to
// use the system timezone, or an explicit "50" / "60".
func Detect(setting string) (Detection, error) {
	switch s := strings.ToLower(strings.TrimSpace(setting)); s {
	case "", "auto":
		timezone, err := tzlocal.RuntimeTZ()
		if err != nil {
			return Detection{FrequencyHz: Hz50, Source: "default"}, nil
		}
		return ForTimezone(timezone), nil
	default:
		hz, err := strconv.ParseFloat(strings.TrimSuffix(s, "hz"), 64)
		if err != nil || (hz != Hz50 && hz != Hz60) {
			return Detection{}, fmt.Errorf("mains frequency must be auto, 50 or 60: %q", setting)
		}
		return Detection{FrequencyHz: hz, Source: "override"}, nil
	}
}

// ForTimezone maps an IANA timezone to its country's mains frequency.
// Zones without a country and unknown zones fall back to 50 Hz, the more
// common value worldwide.
func ForTimezone(timezone string) Detection {
	fallback := Detection{FrequencyHz: Hz50, Timezone: timezone, Source: "default"}

	if timezone == "UTC" || timezone == "GMT" || strings.HasPrefix(timezone, "Etc/") {
		return fallback
	}

	tzMap, err := tz.NewTimezoneCountryMap()
	if err != nil {
		return fallback
	}

	country, err := tzMap.GetCountry(timezone)
	if err != nil {
		return fallback
	}

	return Detection{
		FrequencyHz: ForCountry(country),
		Timezone:    timezone,
		Country:     country,
		Source:      "timezone",
	}
}

// ForCountry returns the mains frequency for a country name. Japan is
// split by region and reports 50 Hz (Tokyo).
func ForCountry(country string) float64 {
	if hz60Countries[country] {
		return Hz60
	}
	return Hz50
}

// Countries on 60 Hz mains; everything else is 50 Hz.
var hz60Countries = map[string]bool{
	"United States": true,
	"Canada":        true,
	"Mexico":        true,

	"Belize":      true,
	"Costa Rica":  true,
	"El Salvador": true,
	"Guatemala":   true,
	"Honduras":    true,
	"Nicaragua":   true,
	"Panama":      true,

	"Bahamas":             true,
	"Barbados":            true,
	"Cayman Islands":      true,
	"Cuba":                true,
	"Dominican Republic":  true,
	"Haiti":               true,
	"Jamaica":             true,
	"Puerto Rico":         true,
	"Trinidad and Tobago": true,
	"U.S. Virgin Islands": true,

	// Brazil has both; 60 Hz dominates.
	"Brazil":    true,
	"Colombia":  true,
	"Ecuador":   true,
	"Guyana":    true,
	"Peru":      true,
	"Suriname":  true,
	"Venezuela": true,

	"South Korea":  true,
	"Taiwan":       true,
	"Philippines":  true,
	"Saudi Arabia": true,

	"Guam":             true,
	"American Samoa":   true,
	"Marshall Islands": true,
	"Micronesia":       true,
	"Palau":            true,
}
