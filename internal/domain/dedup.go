package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// digitalModeMarkers identify narrow-band keyed digital submodes whose
// reported frequency drifts between spotters.
var digitalModeMarkers = []string{"FT", "JT"}

// spotterSuffixRe matches portable/SSID decorations on a spotter callsign.
var spotterSuffixRe = regexp.MustCompile(`-\d+|/\d+|/P`)

// ParseFrequency converts a raw frequency into kHz. Anything that is not a
// finite non-negative number becomes 0.
func ParseFrequency(raw string, scale float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	if scale != 0 {
		f *= scale
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// IsDigitalMode reports whether mode is a drift-prone digital submode.
func IsDigitalMode(mode string) bool {
	mode = strings.ToUpper(mode)
	for _, m := range digitalModeMarkers {
		if strings.Contains(mode, m) {
			return true
		}
	}
	return false
}

// RoundFrequency maps a kHz value onto its dedup bucket. Digital modes round
// to 10 kHz above 30 MHz and 20 kHz below; other modes to the nearest kHz.
// Halves round to even.
func RoundFrequency(khz float64, mode string) float64 {
	if !IsDigitalMode(mode) {
		return math.RoundToEven(khz)
	}
	step := 20.0
	if khz > 30000 {
		step = 10
	}
	return math.RoundToEven(khz/step) * step
}

// StripSpotter removes SSID and portable suffixes and uppercases the call.
func StripSpotter(spotter string) string {
	return spotterSuffixRe.ReplaceAllString(strings.ToUpper(spotter), "")
}

// IsSelfSpot reports whether the spotter is the activator itself.
func IsSelfSpot(spotter, activator string) bool {
	return strings.Contains(strings.ToUpper(activator), StripSpotter(spotter))
}
