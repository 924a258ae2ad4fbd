package domain

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testPOTARef  = "JA-0001"
	testActCall  = "JA1ABC"
	testSpotTime = "2024-05-04T01:23:45.123"
)

func potaProgram(t *testing.T) *Program {
	t.Helper()
	p := &Program{
		Name:    "pota",
		FeedURL: "https://api.pota.app/spot/activator",
		Fields: FieldMap{
			ID:        "spotId",
			Ref:       []string{"reference"},
			Activator: "activator",
			Frequency: "frequency",
			Mode:      "mode",
			Name:      "name",
			Location:  "locationDesc",
			Spotter:   "spotter",
			Comment:   "comments",
			Time:      "spotTime",
		},
		Notify:     true,
		PostFilter: "^JA",
	}
	require.NoError(t, p.Compile())
	return p
}

func sotaProgram(t *testing.T) *Program {
	t.Helper()
	p := &Program{
		Name: "SOTA",
		Fields: FieldMap{
			ID:        "id",
			Ref:       []string{"associationCode", "summitCode"},
			Activator: "activatorCallsign",
			Frequency: "frequency",
			Mode:      "mode",
			Name:      "summitDetails",
			Spotter:   "callsign",
			Comment:   "comments",
			Time:      "timeStamp",
		},
		FreqScale:   1000,
		NestedLabel: "POTA",
	}
	require.NoError(t, p.Compile())
	return p
}

func decodeRecord(t *testing.T, data string) RawRecord {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var rec RawRecord
	require.NoError(t, dec.Decode(&rec))
	return rec
}
