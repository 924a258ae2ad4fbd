package domain

// RawRecord is one entry of an upstream feed array, decoded with json.Number
// so that identifiers and frequencies keep their textual form.
type RawRecord map[string]any

// Spot is a single observation of an activating station.
type Spot struct {
	SourceID     int64   `json:"source_id"`
	ObservedAt   int64   `json:"observed_at"` // UTC seconds, one reading per poll
	ReportedTime string  `json:"time"`        // HH:MM from the feed, display only
	Program      string  `json:"program"`
	Callsign     string  `json:"callsign"`
	Reference    string  `json:"reference"`
	Region       string  `json:"region"`
	Name         string  `json:"name,omitempty"`
	Location     string  `json:"location,omitempty"`
	Frequency    float64 `json:"frequency"` // rounded kHz
	RawFrequency string  `json:"raw_frequency"`
	Mode         string  `json:"mode,omitempty"`
	Comment      string  `json:"comment,omitempty"`
	Spotter      string  `json:"spotter"`
	Posted       bool    `json:"posted"`
}

// Storable reports whether the spot may be persisted. Records without a
// spotter are discarded.
func (s Spot) Storable() bool {
	return s.Spotter != ""
}

// DedupKey identifies repeat observations of the same activation.
type DedupKey struct {
	Program   string
	Callsign  string
	Reference string
	Frequency float64
	Mode      string
}

// Key returns the dedup key of the spot.
func (s Spot) Key() DedupKey {
	return DedupKey{
		Program:   s.Program,
		Callsign:  s.Callsign,
		Reference: s.Reference,
		Frequency: s.Frequency,
		Mode:      s.Mode,
	}
}
