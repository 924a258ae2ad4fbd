package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhere(t *testing.T) {
	clause, args := where()
	assert.Empty(t, clause)
	assert.Nil(t, args)

	clause, args = where(eq("program", "pota"), hasPrefix("callsign", "JA1"), lte("frequency", 100000.0))
	assert.Equal(t, " WHERE program = ? AND substr(callsign, 1, ?) = ? AND frequency <= ?", clause)
	assert.Equal(t, []any{"pota", 3, "JA1", 100000.0}, args)
}

func TestFilterPredicates(t *testing.T) {
	f := Filter{Program: "sota", Since: 500}
	clause, args := where(f.predicates()...)
	assert.Equal(t, " WHERE program = ? AND observed_at > ?", clause)
	assert.Equal(t, []any{"sota", int64(500)}, args)

	f = Filter{Program: "pota", Region: "JA", CallsignPrefix: "JH1", Mode: "CW", MaxFrequency: 30000, Since: 1}
	clause, args = where(f.predicates()...)
	assert.Equal(t,
		" WHERE program = ? AND substr(region, 1, ?) = ? AND substr(callsign, 1, ?) = ? AND mode = ? AND frequency <= ? AND observed_at > ?",
		clause)
	assert.Len(t, args, 8)

	f = Filter{Program: "sota", Region: "JA", RegionExact: true, Since: 1}
	clause, args = where(f.predicates()...)
	assert.Equal(t, " WHERE program = ? AND region = ? AND observed_at > ?", clause)
	assert.Equal(t, []any{"sota", "JA", int64(1)}, args)
}
