package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrMissingID is returned when a record has no usable identifier.
var ErrMissingID = errors.New("record has no numeric id")

// fractionRe matches sub-second fractions, e.g. "12:34:56.789" -> ".789".
var fractionRe = regexp.MustCompile(`\.\d+`)

// timeLayouts are tried in order once fractions are stripped.
var timeLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// RecordID extracts the upstream identifier used for cursor gating.
func RecordID(p *Program, rec RawRecord) (int64, error) {
	s := field(rec, p.Fields.ID)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Some feeds serialize ids as floats. Only whole values that fit
		// an int64 are accepted.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || f != math.Trunc(f) || f < 0 || f >= math.MaxInt64 {
			return 0, fmt.Errorf("%w: %q", ErrMissingID, s)
		}
		id = int64(f)
	}
	if id < 0 {
		return 0, fmt.Errorf("%w: %q", ErrMissingID, s)
	}
	return id, nil
}

// Normalize converts a raw feed record into a spot candidate using the
// program's field table. ObservedAt and Posted are left for the caller.
func Normalize(p *Program, rec RawRecord) (Spot, error) {
	id, err := RecordID(p, rec)
	if err != nil {
		return Spot{}, err
	}

	hhmm, err := ParseReportedTime(field(rec, p.Fields.Time))
	if err != nil {
		return Spot{}, fmt.Errorf("spot %d: %w", id, err)
	}

	parts := make([]string, 0, len(p.Fields.Ref))
	for _, k := range p.Fields.Ref {
		parts = append(parts, field(rec, k))
	}
	ref := strings.Join(parts, "/")

	mode := strings.ToUpper(strings.TrimSpace(field(rec, p.Fields.Mode)))
	comment := field(rec, p.Fields.Comment)
	if strings.EqualFold(comment, mode) {
		comment = ""
	}
	rawFreq := field(rec, p.Fields.Frequency)

	return Spot{
		SourceID:     id,
		ReportedTime: hhmm,
		Program:      p.Name,
		Callsign:     field(rec, p.Fields.Activator),
		Reference:    ref,
		Region:       Region(ref),
		Name:         field(rec, p.Fields.Name),
		Location:     field(rec, p.Fields.Location),
		Frequency:    RoundFrequency(ParseFrequency(rawFreq, p.FreqScale), mode),
		RawFrequency: rawFreq,
		Mode:         mode,
		Comment:      comment,
		Spotter:      field(rec, p.Fields.Spotter),
	}, nil
}

// Region returns the reference prefix before the first "-" or "/".
func Region(ref string) string {
	i := strings.IndexAny(ref, "-/")
	if i <= 0 {
		return ""
	}
	return ref[:i]
}

// ParseReportedTime strips sub-second fractions from an ISO-8601 timestamp
// and renders it as HH:MM.
func ParseReportedTime(s string) (string, error) {
	s = fractionRe.ReplaceAllString(strings.TrimSpace(s), "")
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", fmt.Errorf("parse spot time %q", s)
}

// field renders a raw value as text. Missing keys and nulls are empty.
func field(rec RawRecord, key string) string {
	if key == "" {
		return ""
	}
	switch v := rec[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
