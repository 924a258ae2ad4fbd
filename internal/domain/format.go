package domain

import (
	"fmt"
	"math"
	"strings"
)

// FormatMHz renders a kHz value for activation logs: one decimal below
// 4 MHz, whole megahertz above.
func FormatMHz(khz float64) string {
	if khz < 4000 {
		return fmt.Sprintf("%.1f", khz/1000)
	}
	return fmt.Sprintf("%.0f", math.Floor(khz/1000))
}

// Describe returns the descriptive text shown after the reference. A local
// name, when known, is placed in front.
func (s Spot) Describe(localName string) string {
	desc := s.Name
	if s.Location != "" {
		if desc != "" {
			desc += ", "
		}
		desc += s.Location
	}
	if localName != "" {
		desc = strings.TrimSpace(localName + " " + desc)
	}
	return desc
}

// NotificationLine formats a spot for delivery to notification channels:
//
//	HH:MM <activator> on <reference>(<description>) <raw freq> <mode> <comment>[<spotter>]
func (s Spot) NotificationLine(localName string) string {
	return fmt.Sprintf("%s %s on %s(%s) %s %s %s[%s]",
		s.ReportedTime, s.Callsign, s.Reference, s.Describe(localName),
		s.RawFrequency, s.Mode, s.Comment, s.Spotter)
}
