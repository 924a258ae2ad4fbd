package aggregate

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/activation-spot-service/internal/domain"
	"github.com/couchcryptid/activation-spot-service/internal/store"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store  *store.Store
	engine *Engine
	now    int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "spots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	pota := &domain.Program{
		Name:          "pota",
		Fields:        domain.FieldMap{ID: "spotId", Ref: []string{"reference"}, Activator: "activator"},
		CrossRefLabel: "SOTA",
	}
	sota := &domain.Program{
		Name:        "sota",
		Fields:      domain.FieldMap{ID: "id", Ref: []string{"associationCode", "summitCode"}, Activator: "activatorCallsign"},
		NestedLabel: "POTA",
	}
	require.NoError(t, pota.Compile())
	require.NoError(t, sota.Compile())

	clock := clockwork.NewFakeClockAt(testNow)
	return &fixture{
		store:  s,
		engine: NewEngine(s, clock, []*domain.Program{pota, sota}),
		now:    testNow.Unix(),
	}
}

type seed struct {
	ago      time.Duration
	program  string
	call     string
	ref      string
	hhmm     string
	freq     float64
	mode     string
	comment  string
	spotter  string
	unposted bool
}

func (f *fixture) add(t *testing.T, seeds ...seed) {
	t.Helper()
	for _, s := range seeds {
		if s.program == "" {
			s.program = "pota"
		}
		if s.spotter == "" {
			s.spotter = "JA9ZZZ"
		}
		require.NoError(t, f.store.Insert(context.Background(), domain.Spot{
			ObservedAt:   f.now - int64(s.ago/time.Second),
			ReportedTime: s.hhmm,
			Program:      s.program,
			Callsign:     s.call,
			Reference:    s.ref,
			Region:       domain.Region(s.ref),
			Frequency:    s.freq,
			Mode:         s.mode,
			Comment:      s.comment,
			Spotter:      s.spotter,
			Posted:       !s.unposted,
		}))
	}
}

func TestActivationLog_InOutModes(t *testing.T) {
	f := newFixture(t)
	f.add(t,
		seed{ago: 3 * time.Hour, call: "JA1ABC", ref: "JA-0001", hhmm: "09:00", freq: 7030, mode: "CW"},
		seed{ago: 2 * time.Hour, call: "JA1ABC", ref: "JA-0001", hhmm: "10:00", freq: 7031},
		seed{ago: 1 * time.Hour, call: "JA1ABC", ref: "JA-0001", hhmm: "11:00", freq: 14285, mode: "SSB"},
	)

	log, err := f.engine.ActivationLog(context.Background(), Query{Program: "pota", Region: "JA", Window: 12 * time.Hour})
	require.NoError(t, err)
	require.Len(t, log.Entries, 1)

	assert.Equal(t, "09:00-11:00 JA1ABC JA-0001 7(CW)-14(SSB)", log.Entries[0].Line(log.Program))
	assert.Equal(t,
		"Activation summary for the last 12 hours: 1 station activated 1 reference.\n"+
			"09:00-11:00 JA1ABC JA-0001 7(CW)-14(SSB)",
		log.Message())
}

func TestActivationLog_ModeFallbacks(t *testing.T) {
	f := newFixture(t)
	f.add(t,
		seed{ago: time.Hour, call: "JA1ABC", ref: "JA-0001", hhmm: "11:00", freq: 3530},
		seed{ago: 50 * time.Minute, call: "JA2DEF", ref: "JA-0002", hhmm: "11:10", freq: 7030},
		seed{ago: 40 * time.Minute, call: "JA2DEF", ref: "JA-0002", hhmm: "11:20", freq: 7032, mode: "CW"},
		seed{ago: 30 * time.Minute, call: "JA2DEF", ref: "JA-0002", hhmm: "11:30", freq: 7033},
	)

	log, err := f.engine.ActivationLog(context.Background(), Query{Program: "pota", Window: 12 * time.Hour})
	require.NoError(t, err)
	require.Len(t, log.Entries, 2)

	assert.Equal(t, "11:00 JA1ABC JA-0001 3.5(*)", log.Entries[0].Line(log.Program))
	// A later mode backfills the first position; a missing mode repeats the last one.
	assert.Equal(t, "11:10-11:30 JA2DEF JA-0002 7(CW)-7(CW)", log.Entries[1].Line(log.Program))
	assert.Equal(t, 2, log.Stations)
	assert.Equal(t, 2, log.References)
}

func TestActivationLog_CommentMining(t *testing.T) {
	f := newFixture(t)
	f.add(t,
		seed{
			ago: time.Hour, call: "JA1ABC", ref: "JA-0001", hhmm: "11:00", freq: 7030, mode: "CW",
			spotter: "JA1ABC",
			comment: "2fer JA-0002 JA-0001 JAFF-0001, JA/KN-006 JP-Tokyo",
		},
		seed{
			ago: 50 * time.Minute, call: "JA1ABC", ref: "JA-0001", hhmm: "11:10", freq: 7030, mode: "CW",
			spotter: "JA1ABC",
			comment: "3fer JA-0002;JA-0003",
		},
		seed{
			ago: 40 * time.Minute, call: "JA1ABC", ref: "JA-0001", hhmm: "11:20", freq: 7030, mode: "CW",
			spotter: "JA2XYZ",
			comment: "2fer JA-0009 JP-Osaka",
		},
	)

	log, err := f.engine.ActivationLog(context.Background(), Query{
		Program: "pota", Region: "JA", LocationPrefix: "JP", Window: 12 * time.Hour,
	})
	require.NoError(t, err)
	require.Len(t, log.Entries, 1)

	entry := log.Entries[0]
	assert.Equal(t, []string{"JA-0002", "JA-0003"}, entry.Nested)
	assert.Equal(t, "JA/KN-006", entry.CrossRef)
	assert.Equal(t, "JP-Tokyo", entry.Location)
	assert.Equal(t,
		"11:00-11:20 JA1ABC JA-0001 Loc:JP-Tokyo 3-fer:JA-0002/JA-0003 SOTA:JA/KN-006 7(CW)-7(CW)",
		entry.Line(log.Program))
	assert.Equal(t, 3, log.References, "nested references count toward the total")
}

func TestActivationLog_NoFerMarker(t *testing.T) {
	f := newFixture(t)
	f.add(t, seed{
		ago: time.Hour, call: "JA1ABC", ref: "JA-0001", hhmm: "11:00", freq: 7030, mode: "CW",
		spotter: "JA1ABC", comment: "QRV JA-0002",
	})

	log, err := f.engine.ActivationLog(context.Background(), Query{Program: "pota", Window: time.Hour + time.Minute})
	require.NoError(t, err)
	require.Len(t, log.Entries, 1)
	assert.Empty(t, log.Entries[0].Nested)
	assert.Equal(t, 1, log.References)
}

func TestActivationLog_ProgramLabels(t *testing.T) {
	f := newFixture(t)
	f.add(t, seed{
		program: "sota", ago: time.Hour, call: "JA1ABC/P", ref: "JA/KN-006", hhmm: "11:00", freq: 433000, mode: "FM",
		spotter: "JA1ABC", comment: "2fer JA-0001",
	})

	log, err := f.engine.ActivationLog(context.Background(), Query{Program: "sota", Window: 12 * time.Hour})
	require.NoError(t, err)
	require.Len(t, log.Entries, 1)
	assert.Equal(t, "11:00 JA1ABC/P JA/KN-006 POTA:JA-0001 433(FM)", log.Entries[0].Line(log.Program))
}

func TestActivationLog_Headers(t *testing.T) {
	f := newFixture(t)
	f.add(t,
		seed{ago: 30 * time.Minute, call: "JA1ABC", ref: "JA-0001", hhmm: "11:30", freq: 7030, mode: "CW"},
		seed{ago: 20 * time.Minute, call: "JA1ABC", ref: "JA-0002", hhmm: "11:40", freq: 7030, mode: "CW"},
		seed{ago: 3 * time.Hour, call: "JA2DEF", ref: "JA-0003", hhmm: "09:00", freq: 7030, mode: "CW"},
	)
	ctx := context.Background()

	log, err := f.engine.ActivationLog(ctx, Query{Program: "pota", CallsignPrefix: "JA1", Window: time.Hour})
	require.NoError(t, err)
	assert.Equal(t,
		"Activation summary for the last 1 hour: JA1 activated 2 references.\n"+
			"11:30 JA1ABC JA-0001 7(CW)\n"+
			"11:40 JA1ABC JA-0002 7(CW)",
		log.Message())

	log, err = f.engine.ActivationLog(ctx, Query{Program: "pota", Window: 21 * time.Hour})
	require.NoError(t, err)
	assert.Contains(t, log.Message(), ": 2 stations activated 3 references.\n")

	log, err = f.engine.ActivationLog(ctx, Query{Program: "sota", Window: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, "Activation summary for the last 1 hour: No activation.", log.Message())
}

func TestTweetRate(t *testing.T) {
	f := newFixture(t)
	for i := range 10 {
		f.add(t, seed{
			ago: time.Duration(i+1) * time.Minute, call: "JA1ABC", ref: "JA-0001", hhmm: "11:00",
			freq: 7030, mode: "CW", unposted: i >= 6,
		})
	}

	msg, err := f.engine.TweetRate(context.Background(), Query{Program: "pota", Region: "JA", Window: 24 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, "Tweet Rate Last 24hrs = 60%(6tweets/10spots)\nJA-0001: JA1ABC 60%(6/10)", msg)
}

func TestTweetRate_GroupsAndMode(t *testing.T) {
	f := newFixture(t)
	f.add(t,
		seed{ago: time.Minute, call: "JA1ABC", ref: "JA-0001", freq: 7030, mode: "CW"},
		seed{ago: 2 * time.Minute, call: "JA2DEF", ref: "JA-0002", freq: 7030, mode: "CW", unposted: true},
		seed{ago: 3 * time.Minute, call: "JA3GHI", ref: "JA-0001", freq: 7030, mode: "CW"},
		seed{ago: 4 * time.Minute, call: "JA3GHI", ref: "JA-0001", freq: 7030, mode: "CW", unposted: true},
		seed{ago: 5 * time.Minute, call: "JA4JKL", ref: "JA-0004", freq: 14074, mode: "FT8"},
	)

	msg, err := f.engine.TweetRate(context.Background(), Query{Program: "pota", Mode: "CW", Window: 24 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t,
		"Tweet Rate Last 24hrs (CW) = 50%(2tweets/4spots)\n"+
			"JA-0001: JA1ABC 100%(1/1) JA3GHI 50%(1/2)\n"+
			"JA-0002: JA2DEF 0%(0/1)",
		msg)
}

func TestTweetRate_Empty(t *testing.T) {
	f := newFixture(t)

	msg, err := f.engine.TweetRate(context.Background(), Query{Program: "pota", Region: "JA", Window: 24 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, "No spots in JA", msg)

	msg, err = f.engine.TweetRate(context.Background(), Query{Program: "pota", Window: 24 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, "No spots.", msg)
}

func TestSpotList(t *testing.T) {
	f := newFixture(t)
	f.add(t,
		seed{ago: 40 * time.Minute, call: "JA1ABC", ref: "JA-0001", hhmm: "11:20", freq: 7030, mode: "CW"},
		seed{ago: 30 * time.Minute, call: "JA2DEF", ref: "JA-0002", hhmm: "11:30", freq: 14285, mode: "SSB", comment: "QRT soon"},
		seed{ago: 20 * time.Minute, call: "JA1ABC", ref: "JA-0001", hhmm: "11:40", freq: 7032, mode: "CW"},
		seed{ago: 2 * time.Hour, call: "JA3GHI", ref: "JA-0003", hhmm: "10:00", freq: 7030, mode: "CW"},
	)

	msg, err := f.engine.SpotList(context.Background(), Query{Program: "pota", Region: "JA", Window: time.Hour})
	require.NoError(t, err)
	assert.Equal(t,
		"11:40 JA-0001 JA1ABC 7032.0 CW\n"+
			"11:30 JA-0002 JA2DEF 14285.0 SSB QRT soon",
		msg)
}

func TestSpotList_Empty(t *testing.T) {
	f := newFixture(t)
	f.add(t, seed{ago: time.Minute, call: "W1AW", ref: "K-0001", hhmm: "11:59", freq: 7030, mode: "CW"})

	msg, err := f.engine.SpotList(context.Background(), Query{Program: "pota", Region: "JA", Window: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, NoSpots, msg)

	msg, err = f.engine.SpotList(context.Background(), Query{Program: "pota", Region: "JA", MaxFrequency: 5000, Window: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, NoSpots, msg)
}

func TestSpotList_RegionIsExact(t *testing.T) {
	f := newFixture(t)
	f.add(t,
		seed{ago: time.Minute, program: "sota", call: "JA1AAA", ref: "JA/KN-001", hhmm: "11:59", freq: 7030, mode: "CW"},
		seed{ago: time.Minute, program: "sota", call: "JA8BBB", ref: "JA8/HK-001", hhmm: "11:59", freq: 7031, mode: "CW"},
	)

	msg, err := f.engine.SpotList(context.Background(), Query{Program: "sota", Region: "JA", Window: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, "11:59 JA/KN-001 JA1AAA 7030.0 CW", msg)

	msg, err = f.engine.SpotList(context.Background(), Query{Program: "sota", Region: "JA8", Window: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, "11:59 JA8/HK-001 JA8BBB 7031.0 CW", msg)
}
