package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/couchcryptid/activation-spot-service/internal/domain"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var pollPrograms []string

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll each program feed once and print what was ingested",
	RunE:  runPoll,
}

func init() {
	pollCmd.Flags().StringSliceVar(&pollPrograms, "program", nil, "Programs to poll (default all)")
	rootCmd.AddCommand(pollCmd)
}

func runPoll(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	programs := a.cfg.Programs
	if len(pollPrograms) > 0 {
		programs = make([]*domain.Program, 0, len(pollPrograms))
		for _, name := range pollPrograms {
			p := a.cfg.Program(name)
			if p == nil {
				return fmt.Errorf("unknown program %q", name)
			}
			programs = append(programs, p)
		}
	}

	notifier, err := a.notifier()
	if err != nil {
		return err
	}
	poller := a.poller(notifier)

	out := cmd.OutOrStdout()
	var errs []error
	for _, p := range programs {
		res, err := poller.Poll(context.Background(), p)
		if err != nil {
			errs = append(errs, err)
			fmt.Fprintf(out, "%-6s error: %v\n", p.Name, err)
			continue
		}
		fmt.Fprintf(out, "%-6s %s new, %s stored (%s posted, %s suppressed), %s dropped, %s pruned, cursor %s\n",
			res.Program,
			humanize.Comma(int64(res.Fetched)),
			humanize.Comma(int64(res.Stored)),
			humanize.Comma(int64(res.Posted)),
			humanize.Comma(int64(res.Suppressed)),
			humanize.Comma(int64(res.Dropped)),
			humanize.Comma(res.Pruned),
			humanize.Comma(res.Cursor),
		)
	}

	if fi, err := os.Stat(a.cfg.DBPath); err == nil {
		fmt.Fprintf(out, "store %s (%s)\n", a.cfg.DBPath, humanize.Bytes(uint64(fi.Size())))
	}
	return errors.Join(errs...)
}
