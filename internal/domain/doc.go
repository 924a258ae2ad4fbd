// Package domain models amateur-radio activation spots and the rules that
// turn raw feed records into stored, deduplicated observations.
//
// # Data Sources
//
// Spots are pulled from public JSON feeds published by activation programs
// such as Summits On The Air (SOTA) and Parks On The Air (POTA). Each feed
// returns a JSON array of records, newest first, each carrying an increasing
// integer identifier. Field names differ per program, so the mapping from raw
// keys to canonical fields is data, not code: see [FieldMap] and [Program].
//
// # Feed Conventions
//
// Reference codes:
//
//	POTA:  "JA-0001"        region "JA"
//	SOTA:  "JA/KN-006"      built from associationCode + "/" + summitCode, region "JA"
//
//	The region is the reference prefix up to the first "-" or "/".
//
// Frequency:
//
//	POTA reports kHz ("7030.5"), SOTA reports MHz ("7.032"). Program.FreqScale
//	converts the raw value to kHz before rounding. Unparseable values become 0.
//
// Time:
//
//	ISO-8601, optionally with fractional seconds ("2024-05-04T01:23:45.123").
//	Fractions are stripped; only HH:MM is kept for display. Windowing always
//	uses the server-side observation clock, never the feed time.
//
// # Deduplication
//
// A spot is a self-spot when the spotter, with trailing "-<digits>",
// "/<digits>" and "/P" removed, occurs inside the activator callsign. Self-spots
// are always posted. Other spots are suppressed when a posted spot with the
// same [DedupKey] was observed within the program's suppression interval.
//
// Digital modes (FT8, FT4, JT65, ...) drift across the passband, so their
// frequency is rounded to 10 kHz steps above 30 MHz and 20 kHz steps below.
// Everything else rounds to the nearest kHz. Two spots are duplicates only
// when their rounded frequencies are equal.
package domain
