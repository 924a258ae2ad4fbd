package aggregate

import (
	"context"
	"fmt"
	"strings"
)

// NoSpots is the spot list reply for an empty window.
const NoSpots = "No Spots."

// SpotList formats the latest spot of every (callsign, reference) pair in
// the window, newest first. Unlike the log and stats paths, the region must
// match exactly, so JA does not pull in JA5 or JA8 associations.
func (e *Engine) SpotList(ctx context.Context, q Query) (string, error) {
	f := q.filter(e.clock.Now())
	f.RegionExact = true
	spots, err := e.store.RecentSpots(ctx, f)
	if err != nil {
		return "", fmt.Errorf("spot list: %w", err)
	}
	if len(spots) == 0 {
		return NoSpots, nil
	}

	var b strings.Builder
	for _, s := range spots {
		line := fmt.Sprintf("%s %s %s %.1f %s %s", s.ReportedTime, s.Reference, s.Callsign, s.Frequency, s.Mode, s.Comment)
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
