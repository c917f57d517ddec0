package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fortuna/hoopsdaily/internal/backfill"
	"github.com/fortuna/hoopsdaily/internal/store"
)

// countingReporter logs like LogReporter and tallies written dates.
type countingReporter struct {
	backfill.LogReporter
	dates, games, blurbs int
	failures             int
}

func (r *countingReporter) OnDateWritten(date string, games int, blurbs int) {
	r.dates++
	r.games += games
	r.blurbs += blurbs
	r.LogReporter.OnDateWritten(date, games, blurbs)
}

func (r *countingReporter) OnJobError(err error) {
	r.failures++
	r.LogReporter.OnJobError(err)
}

func newBackfillCmd(opts *rootOptions) *cobra.Command {
	var force, dryRun bool

	cmd := &cobra.Command{
		Use:   "backfill START END",
		Short: "Scrape an inclusive range of dates in chronological order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseDate(args[0])
			if err != nil {
				return err
			}
			end, err := parseDate(args[1])
			if err != nil {
				return err
			}

			cfg, err := opts.load()
			if err != nil {
				return err
			}
			d, err := openDeps(cmd.Context(), cfg, 1)
			if err != nil {
				return err
			}
			defer d.Close()

			rep := &countingReporter{}
			spec := backfill.JobSpec{Start: start, End: end, Force: force, DryRun: dryRun}
			runErr := d.runner().Run(cmd.Context(), spec, rep)

			mode := "wrote"
			if dryRun {
				mode = "dry run, would write"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s to %s: %s %d date(s), %d game(s), %d blurb(s); %d date(s) failed\n",
				start.Format(store.DateLayout), end.Format(store.DateLayout), mode, rep.dates, rep.games, rep.blurbs, rep.failures)
			return runErr
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "re-scrape dates that already have documents")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "fetch and report without writing anything")
	return cmd
}
