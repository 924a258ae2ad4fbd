// Package command turns free-text requests such as "LOG JA 6" or
// "DX FT8 30" into aggregation queries.
//
// Tokens are classified once into a fixed set of kinds; each kind has a
// single effect on the request being built. Conflicting tokens resolve
// last-wins, and a bare number is applied after all other tokens so that
// "6 LOG" and "LOG 6" mean the same thing. Unrecognized tokens are ignored.
package command

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/couchcryptid/activation-spot-service/internal/aggregate"
)

// Kind selects the read path a request runs against.
type Kind int

const (
	SpotList Kind = iota
	Log
	Stats
)

func (k Kind) String() string {
	switch k {
	case Log:
		return "log"
	case Stats:
		return "stat"
	default:
		return "spots"
	}
}

// DX widens spot lists to every region with this ceiling (kHz), which keeps
// microwave spots out.
const DXMaxFrequency = 100000

const (
	defaultWindow = time.Hour
	logWindow     = 12 * time.Hour
	statWindow    = 24 * time.Hour
)

var modes = map[string]bool{
	"FT4": true, "FT8": true, "CW": true, "SSB": true,
	"FM": true, "AM": true, "PSK": true, "PSK31": true,
}

type tokenKind int

const (
	tokIgnored tokenKind = iota
	tokRegionMarker
	tokDX
	tokLog
	tokStat
	tokMode
	tokProgram
	tokNumber
	tokCallsign
	tokRegion
)

// Request is a parsed command.
type Request struct {
	Kind  Kind
	Query aggregate.Query
}

// Interpreter parses commands. The zero value is not usable; see New.
type Interpreter struct {
	programs      []string
	defaultRegion string
	markers       map[string]string
}

// New creates an Interpreter. The first program is the default; markers map
// region tokens to the location prefix mined from activation comments.
func New(programs []string, defaultRegion string, markers map[string]string) *Interpreter {
	names := make([]string, len(programs))
	for i, p := range programs {
		names[i] = strings.ToLower(p)
	}
	return &Interpreter{programs: names, defaultRegion: defaultRegion, markers: markers}
}

// parseState accumulates token effects.
type parseState struct {
	req     Request
	minutes int // last bare number, -1 when absent
}

type effect func(st *parseState, in *Interpreter, tok string)

var effects = map[tokenKind]effect{
	tokRegionMarker: func(st *parseState, in *Interpreter, tok string) {
		st.req.Query.Region = tok
		st.req.Query.LocationPrefix = in.markers[tok]
		st.req.Query.MaxFrequency = 0
	},
	tokDX: func(st *parseState, _ *Interpreter, _ string) {
		st.req.Query.Region = ""
		st.req.Query.MaxFrequency = DXMaxFrequency
	},
	tokLog: func(st *parseState, _ *Interpreter, _ string) {
		st.req.Kind = Log
		st.req.Query.Window = logWindow
	},
	tokStat: func(st *parseState, _ *Interpreter, _ string) {
		st.req.Kind = Stats
		st.req.Query.Window = statWindow
	},
	tokMode: func(st *parseState, _ *Interpreter, tok string) {
		st.req.Query.Mode = tok
	},
	tokProgram: func(st *parseState, _ *Interpreter, tok string) {
		st.req.Query.Program = strings.ToLower(tok)
	},
	tokNumber: func(st *parseState, _ *Interpreter, tok string) {
		if n, err := strconv.Atoi(tok); err == nil {
			st.minutes = n
		}
	},
	tokCallsign: func(st *parseState, _ *Interpreter, tok string) {
		st.req.Query.CallsignPrefix = tok
	},
	tokRegion: func(st *parseState, _ *Interpreter, tok string) {
		st.req.Query.Region = tok
	},
}

func (in *Interpreter) classify(tok string) tokenKind {
	switch {
	case tok == "":
		return tokIgnored
	case in.isMarker(tok):
		return tokRegionMarker
	case tok == "DX":
		return tokDX
	case tok == "LOG":
		return tokLog
	case tok == "STAT":
		return tokStat
	case modes[tok]:
		return tokMode
	case in.isProgram(tok):
		return tokProgram
	case isDigits(tok):
		return tokNumber
	case isAlnum(tok) && len(tok) > 3:
		return tokCallsign
	case isAlnum(tok):
		return tokRegion
	default:
		return tokIgnored
	}
}

func (in *Interpreter) isMarker(tok string) bool {
	_, ok := in.markers[tok]
	return ok
}

func (in *Interpreter) isProgram(tok string) bool {
	return slices.Contains(in.programs, strings.ToLower(tok))
}

// Parse builds a request from text. It never fails: an empty or
// unrecognized command yields the default spot list.
func (in *Interpreter) Parse(text string) Request {
	st := parseState{minutes: -1}
	st.req.Query.Window = defaultWindow
	st.req.Query.Region = in.defaultRegion
	if len(in.programs) > 0 {
		st.req.Query.Program = in.programs[0]
	}

	for _, tok := range strings.Fields(strings.ToUpper(text)) {
		if fn, ok := effects[in.classify(tok)]; ok {
			fn(&st, in, tok)
		}
	}

	if st.minutes >= 0 {
		unit := time.Minute
		if st.req.Kind != SpotList {
			unit = time.Hour
		}
		// Numbers too large for a Duration keep the default window.
		if int64(st.minutes) <= math.MaxInt64/int64(unit) {
			st.req.Query.Window = time.Duration(st.minutes) * unit
		}
	}
	return st.req
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func isAlnum(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
