package aggregate

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/couchcryptid/activation-spot-service/internal/store"
)

// TweetRate reports the share of spots that were posted, overall and per
// (reference, callsign), for the window.
func (e *Engine) TweetRate(ctx context.Context, q Query) (string, error) {
	groups, err := e.store.RateGroups(ctx, q.filter(e.clock.Now()))
	if err != nil {
		return "", fmt.Errorf("tweet rate: %w", err)
	}

	var total, posted int
	for _, g := range groups {
		total += g.Total
		posted += g.Posted
	}
	if total == 0 {
		if q.Region == "" {
			return "No spots.", nil
		}
		return "No spots in " + q.Region, nil
	}

	header := fmt.Sprintf("Tweet Rate Last %.0fhrs", math.RoundToEven(q.Window.Hours()))
	if q.Mode != "" {
		header += " (" + q.Mode + ")"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s = %d%%(%dtweets/%dspots)\n", header, percent(posted, total), posted, total)
	for _, ref := range groupByReference(groups) {
		line := ref.name + ":"
		for _, g := range ref.groups {
			line += fmt.Sprintf(" %s %d%%(%d/%d)", g.Callsign, percent(g.Posted, g.Total), g.Posted, g.Total)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

type referenceGroups struct {
	name   string
	groups []store.RateGroup
}

// groupByReference keeps references in first-appearance order.
func groupByReference(groups []store.RateGroup) []referenceGroups {
	var out []referenceGroups
	index := make(map[string]int)
	for _, g := range groups {
		i, ok := index[g.Reference]
		if !ok {
			i = len(out)
			index[g.Reference] = i
			out = append(out, referenceGroups{name: g.Reference})
		}
		out[i].groups = append(out[i].groups, g)
	}
	return out
}

func percent(n, total int) int {
	return int(math.RoundToEven(float64(n) / float64(total) * 100))
}
