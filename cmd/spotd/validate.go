package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/couchcryptid/activation-spot-service/internal/adapter/feed"
	"github.com/couchcryptid/activation-spot-service/internal/config"
	"github.com/couchcryptid/activation-spot-service/internal/domain"
	"github.com/couchcryptid/activation-spot-service/internal/observability"
	"github.com/spf13/cobra"
)

var validateFile string

var validateCmd = &cobra.Command{
	Use:   "validate [program]",
	Short: "Check that program feeds decode cleanly through their field tables",
	Long: `validate fetches each program feed (or reads --file for a single
program) and runs every record through id extraction and normalization
without touching the store. Each program is reported PASS or FAIL with the
offending records listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateFile, "file", "", "Read the feed from a JSON file instead of the network")
	rootCmd.AddCommand(validateCmd)
}

// phase tracks pass/fail for one program.
type phase struct {
	name    string
	records int
	stored  int
	errors  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// validateFeed normalizes every record and collects what the poller would drop.
func validateFeed(prog *domain.Program, records []domain.RawRecord) *phase {
	ph := &phase{name: prog.Name, records: len(records)}
	seen := make(map[int64]bool, len(records))
	for i, rec := range records {
		id, err := domain.RecordID(prog, rec)
		if err != nil {
			ph.errorf("record %d: %v", i, err)
			continue
		}
		if seen[id] {
			ph.errorf("record %d: duplicate id %d", i, id)
		}
		seen[id] = true

		spot, err := domain.Normalize(prog, rec)
		if err != nil {
			ph.errorf("record %d: %v", i, err)
			continue
		}
		if spot.Reference == "" || spot.Callsign == "" {
			ph.errorf("record %d: id %d has no reference or activator", i, id)
			continue
		}
		if !spot.Storable() {
			// Dropped without a spotter, but not a mapping error.
			continue
		}
		ph.stored++
	}
	return ph
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg)

	programs := cfg.Programs
	if len(args) == 1 {
		p := cfg.Program(args[0])
		if p == nil {
			return fmt.Errorf("unknown program %q", args[0])
		}
		programs = []*domain.Program{p}
	}
	if validateFile != "" && len(programs) != 1 {
		return errors.New("--file needs a single program argument")
	}

	client := feed.NewClient(cfg.FeedTimeout, logger)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Feed Validation ===")

	var phases []*phase
	for _, p := range programs {
		var records []domain.RawRecord
		if validateFile != "" {
			records, err = readFeedFile(validateFile)
		} else {
			records, err = client.Fetch(context.Background(), p.FeedURL)
		}
		if err != nil {
			ph := &phase{name: p.Name}
			ph.errorf("load feed: %v", err)
			phases = append(phases, ph)
			continue
		}
		phases = append(phases, validateFeed(p, records))
	}

	allPassed := true
	for _, ph := range phases {
		status := "PASS"
		if !ph.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(ph.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-8s %4d records, %4d storable  %s\n", ph.name, ph.records, ph.stored, status)
	}
	for _, ph := range phases {
		if ph.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", ph.name)
		for _, e := range ph.errors {
			fmt.Fprintf(out, "  %s\n", e)
		}
	}

	if !allPassed {
		return errors.New("validation failed")
	}
	return nil
}

func readFeedFile(path string) ([]domain.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var records []domain.RawRecord
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return records, nil
}
