package store

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// predicate is one bound WHERE condition. Column names come from this
// package only; values always travel as arguments.
type predicate struct {
	clause string
	args   []any
}

func eq(col string, v any) predicate {
	return predicate{clause: col + " = ?", args: []any{v}}
}

func gt(col string, v any) predicate {
	return predicate{clause: col + " > ?", args: []any{v}}
}

func lt(col string, v any) predicate {
	return predicate{clause: col + " < ?", args: []any{v}}
}

func lte(col string, v any) predicate {
	return predicate{clause: col + " <= ?", args: []any{v}}
}

// hasPrefix is a case-sensitive prefix match (LIKE folds ASCII case in SQLite).
func hasPrefix(col, prefix string) predicate {
	return predicate{
		clause: fmt.Sprintf("substr(%s, 1, ?) = ?", col),
		args:   []any{utf8.RuneCountInString(prefix), prefix},
	}
}

// where joins predicates with AND and returns the clause (with a leading
// " WHERE ") and its arguments in order.
func where(preds ...predicate) (string, []any) {
	if len(preds) == 0 {
		return "", nil
	}
	clauses := make([]string, 0, len(preds))
	var args []any
	for _, p := range preds {
		clauses = append(clauses, p.clause)
		args = append(args, p.args...)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Filter selects spots for the read paths. Zero-valued fields are not applied
// except Program and Since, which always are.
type Filter struct {
	Program        string
	Region         string  // prefix, or exact with RegionExact
	RegionExact    bool
	CallsignPrefix string  // prefix
	Mode           string  // exact
	MaxFrequency   float64 // kHz, inclusive
	Since          int64   // observed_at strictly after
}

func (f Filter) predicates() []predicate {
	preds := []predicate{eq("program", f.Program)}
	switch {
	case f.Region != "" && f.RegionExact:
		preds = append(preds, eq("region", f.Region))
	case f.Region != "":
		preds = append(preds, hasPrefix("region", f.Region))
	}
	if f.CallsignPrefix != "" {
		preds = append(preds, hasPrefix("callsign", f.CallsignPrefix))
	}
	if f.Mode != "" {
		preds = append(preds, eq("mode", f.Mode))
	}
	if f.MaxFrequency > 0 {
		preds = append(preds, lte("frequency", f.MaxFrequency))
	}
	return append(preds, gt("observed_at", f.Since))
}
