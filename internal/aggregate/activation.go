package aggregate

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/couchcryptid/activation-spot-service/internal/domain"
)

var (
	commentSplitRe = regexp.MustCompile(`[, :;]`)
	nferMarkerRe   = regexp.MustCompile(`(?i)fer`)
	nestedRefRe    = regexp.MustCompile(`^(\w+-\d{4})`)
	crossRefRe     = regexp.MustCompile(`^(\w+/\w+-\d+)`)
)

const noMode = "*"

// LogEntry is one (callsign, reference) activation in the window.
type LogEntry struct {
	Callsign  string
	Reference string

	TimeIn, TimeOut string
	FreqIn, FreqOut string
	ModeIn, ModeOut string

	// Mined from the activator's own spot comments.
	Location string
	Nested   []string
	CrossRef string
}

// Line renders the entry using the program's annotation labels.
func (e LogEntry) Line(p *domain.Program) string {
	var refs strings.Builder
	if e.Location != "" {
		refs.WriteString(" Loc:" + e.Location)
	}
	if len(e.Nested) > 0 {
		if p.NestedLabel == "" {
			refs.WriteString(" " + strconv.Itoa(len(e.Nested)+1) + "-fer:")
		} else {
			refs.WriteString(" " + p.NestedLabel + ":")
		}
		refs.WriteString(strings.Join(e.Nested, "/"))
	}
	if e.CrossRef != "" && p.CrossRefLabel != "" {
		refs.WriteString(" " + p.CrossRefLabel + ":" + e.CrossRef)
	}

	tm := e.TimeIn
	fr := fmt.Sprintf("%s(%s)", e.FreqIn, e.ModeIn)
	if e.TimeOut != "" {
		tm += "-" + e.TimeOut
		fr += fmt.Sprintf("-%s(%s)", e.FreqOut, e.ModeOut)
	}
	return fmt.Sprintf("%s %s %s%s %s", tm, e.Callsign, e.Reference, refs.String(), fr)
}

// ActivationLog is the result of an activation log query.
type ActivationLog struct {
	Program    *domain.Program
	Callsign   string // the callsign filter, if any
	Hours      int
	Stations   int
	References int // includes nested references
	Entries    []LogEntry
}

// Message renders the summary header followed by one line per entry.
func (l ActivationLog) Message() string {
	head := fmt.Sprintf("Activation summary for the last %d hour%s: ", l.Hours, plural(l.Hours))
	switch {
	case l.Callsign != "":
		head += fmt.Sprintf("%s activated %d reference%s.", l.Callsign, l.References, plural(l.References))
	case l.Stations > 0:
		head += fmt.Sprintf("%d station%s activated %d reference%s.",
			l.Stations, plural(l.Stations), l.References, plural(l.References))
	default:
		return head + "No activation."
	}

	lines := make([]string, 0, len(l.Entries)+1)
	lines = append(lines, head)
	for _, e := range l.Entries {
		lines = append(lines, e.Line(l.Program))
	}
	return strings.Join(lines, "\n")
}

func plural(n int) string {
	if n > 1 {
		return "s"
	}
	return ""
}

// ActivationLog groups the window's rows by (callsign, reference) in order
// of first appearance and derives each activation's in/out frequencies and
// comment annotations.
func (e *Engine) ActivationLog(ctx context.Context, q Query) (ActivationLog, error) {
	rows, err := e.store.ActivationRows(ctx, q.filter(e.clock.Now()))
	if err != nil {
		return ActivationLog{}, fmt.Errorf("activation log: %w", err)
	}

	var locRe *regexp.Regexp
	if q.LocationPrefix != "" {
		locRe = regexp.MustCompile(`^(` + regexp.QuoteMeta(q.LocationPrefix) + `-\D+)`)
	}

	type pair struct{ call, ref string }
	var order []pair
	builders := make(map[pair]*entryBuilder)
	for _, row := range rows {
		k := pair{row.Callsign, row.Reference}
		b, ok := builders[k]
		if !ok {
			b = &entryBuilder{entry: LogEntry{Callsign: row.Callsign, Reference: row.Reference}}
			builders[k] = b
			order = append(order, k)
		}
		b.add(row, locRe)
	}

	stations := make(map[string]struct{})
	references := make(map[string]struct{})
	result := ActivationLog{
		Program:  e.program(q.Program),
		Callsign: q.CallsignPrefix,
		Hours:    int(q.Window.Hours()),
		Entries:  make([]LogEntry, 0, len(order)),
	}
	for _, k := range order {
		entry := builders[k].finish()
		stations[entry.Callsign] = struct{}{}
		references[entry.Reference] = struct{}{}
		for _, n := range entry.Nested {
			references[n] = struct{}{}
		}
		result.Entries = append(result.Entries, entry)
	}
	result.Stations = len(stations)
	result.References = len(references)
	return result, nil
}

type entryBuilder struct {
	entry    LogEntry
	lastMode string
}

func (b *entryBuilder) add(s domain.Spot, locRe *regexp.Regexp) {
	if s.Spotter != "" && strings.Contains(s.Callsign, s.Spotter) {
		b.mine(s.Comment, locRe)
	}

	e := &b.entry
	if e.TimeIn == "" {
		e.TimeIn = s.ReportedTime
		e.FreqIn = domain.FormatMHz(s.Frequency)
		if s.Mode != "" {
			e.ModeIn = s.Mode
			b.lastMode = s.Mode
		}
		return
	}

	e.TimeOut = s.ReportedTime
	e.FreqOut = domain.FormatMHz(s.Frequency)
	if s.Mode == "" {
		e.ModeOut = b.lastMode
		return
	}
	e.ModeOut = s.Mode
	b.lastMode = s.Mode
	if e.ModeIn == "" {
		e.ModeIn = s.Mode
	}
}

// mine extracts nested references, a cross-program reference, and a
// location code from an activator's own comment.
func (b *entryBuilder) mine(comment string, locRe *regexp.Regexp) {
	if comment == "" {
		return
	}
	nfer := nferMarkerRe.MatchString(comment)
	e := &b.entry
	for _, tok := range commentSplitRe.Split(comment, -1) {
		if m := nestedRefRe.FindStringSubmatch(tok); nfer && m != nil {
			ref := m[1]
			if !strings.Contains(ref, "FF") && ref != e.Reference && !slices.Contains(e.Nested, ref) {
				e.Nested = append(e.Nested, ref)
			}
		}
		if m := crossRefRe.FindStringSubmatch(tok); m != nil {
			e.CrossRef = m[1]
		}
		if locRe != nil {
			if m := locRe.FindStringSubmatch(tok); m != nil {
				e.Location = m[1]
			}
		}
	}
}

func (b *entryBuilder) finish() LogEntry {
	e := b.entry
	if e.ModeIn == "" {
		e.ModeIn = noMode
	}
	if e.ModeOut == "" {
		e.ModeOut = noMode
	}
	return e
}
