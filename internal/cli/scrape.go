package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/fortuna/hoopsdaily/internal/backfill"
	"github.com/fortuna/hoopsdaily/internal/store"
)

func newScrapeCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "scrape [DATE]",
		Short: "Scrape one day (default: today in the configured timezone)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			var date time.Time
			if len(args) == 1 {
				if date, err = parseDate(args[0]); err != nil {
					return err
				}
			} else {
				loc, err := cfg.Location()
				if err != nil {
					return err
				}
				date = today(time.Now(), loc)
			}

			d, err := openDeps(cmd.Context(), cfg, 1)
			if err != nil {
				return err
			}
			defer d.Close()

			spec := backfill.JobSpec{Start: date, End: date, Force: force}
			if err := d.runner().Run(cmd.Context(), spec, backfill.LogReporter{}); err != nil {
				return err
			}
			return printDay(cmd.OutOrStdout(), d.docs, date.Format(store.DateLayout))
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "re-scrape even if the day's document exists")
	return cmd
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(store.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// today is the calendar date of now in loc, as a UTC midnight.
func today(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// printDay writes a short human summary of one day document.
func printDay(w io.Writer, docs *store.DocumentStore, date string) error {
	doc, err := docs.ReadDay(date)
	if err != nil {
		return fmt.Errorf("read %s: %w", date, err)
	}

	fmt.Fprintf(w, "%s: %d game(s)\n", doc.Date, len(doc.Games))
	for _, g := range doc.Games {
		line := g.Matchup()
		if g.Summary != "" {
			line += "  " + g.Summary
		}
		fmt.Fprintf(w, "  %s\n", line)
		for _, b := range g.Blurbs {
			fmt.Fprintf(w, "    * %s\n", b)
		}
	}
	return nil
}
