package backfill

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fortuna/hoopsdaily/internal/ledger"
	"github.com/fortuna/hoopsdaily/internal/publisher"
	"github.com/fortuna/hoopsdaily/internal/store"
)

// DateIngester produces one day document, updating l for completed games.
// *ingest.Ingester satisfies it.
type DateIngester interface {
	IngestDate(ctx context.Context, date string, l *ledger.Ledger) (*store.DayDocument, error)
}

// RunnerConfig wires a Runner.
type RunnerConfig struct {
	Ingester  DateIngester
	Ledger    ledger.Store
	Documents *store.DocumentStore
	Publisher publisher.Publisher // optional
	DayPause  time.Duration
}

// Runner executes backfill specs. Runs must not overlap: each run owns the
// ledger from Load to Save.
type Runner struct {
	ingester  DateIngester
	ledger    ledger.Store
	docs      *store.DocumentStore
	publisher publisher.Publisher
	dayPause  time.Duration
}

// NewRunner constructs a runner.
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{
		ingester:  cfg.Ingester,
		ledger:    cfg.Ledger,
		docs:      cfg.Documents,
		publisher: cfg.Publisher,
		dayPause:  cfg.DayPause,
	}
}

// Run executes the job spec, reporting progress via the Reporter if provided.
//
// The ledger is loaded once and saved once. Each date is ingested against a
// clone that replaces the working ledger only after its document is written,
// so a date that fails midway contributes nothing. Cancellation stops between
// dates; progress made so far is still saved.
func (r *Runner) Run(ctx context.Context, spec JobSpec, reporter Reporter) error {
	if reporter == nil {
		reporter = nopReporter{}
	}
	reporter.OnJobStart(spec)

	l, err := r.ledger.Load(ctx)
	if err != nil {
		err = fmt.Errorf("load ledger: %w", err)
		reporter.OnJobError(err)
		return err
	}

	dates := enumerateDates(spec.Start, spec.End)
	if len(dates) == 0 {
		reporter.OnProgress("No dates to process", 0, 0)
		reporter.OnJobComplete()
		return nil
	}

	runID := uuid.NewString()
	log.Printf("[backfill] run %s: %s to %s (%d dates, force=%v, dry_run=%v)",
		runID, dates[0].Format(store.DateLayout), dates[len(dates)-1].Format(store.DateLayout),
		len(dates), spec.Force, spec.DryRun)
	if spec.DryRun {
		reporter.OnProgress("Dry-run mode: no data will be written", 0, len(dates))
	}

	var (
		committed int
		written   []string
		runErr    error
	)
	total := len(dates)

	for idx, date := range dates {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		label := date.Format(store.DateLayout)
		reporter.OnDateStart(date, idx, total)

		if !spec.Force && r.docs.Exists(label) {
			reporter.OnProgress(fmt.Sprintf("Skipped %s (already scraped)", label), idx+1, total)
			continue
		}

		working := l.Clone()
		doc, err := r.ingester.IngestDate(ctx, label, working)
		if err != nil {
			if ctx.Err() != nil {
				runErr = ctx.Err()
				break
			}
			log.Printf("[backfill] ⚠️  %s failed: %v", label, err)
			reporter.OnJobError(fmt.Errorf("%s: %w", label, err))
			continue
		}

		if !spec.DryRun {
			if err := r.docs.WriteDay(doc); err != nil {
				runErr = fmt.Errorf("write %s: %w", label, err)
				break
			}
			written = append(written, label)
		}
		l = working
		committed++

		blurbs := len(doc.Blurbs())
		if !spec.DryRun {
			r.publish(ctx, runID, doc)
		}
		reporter.OnDateWritten(label, len(doc.Games), blurbs)
		reporter.OnProgress(fmt.Sprintf("Processed %s: %d game(s), %d blurb(s)", label, len(doc.Games), blurbs), idx+1, total)

		if idx < total-1 {
			if err := sleep(ctx, r.dayPause); err != nil {
				runErr = err
				break
			}
		}
	}

	if !spec.DryRun {
		// Finish persisting even when the run context was cancelled.
		persistCtx := context.WithoutCancel(ctx)
		if committed > 0 {
			if err := r.ledger.Save(persistCtx, l); err != nil {
				// Those documents now exist, so a plain re-run would skip them.
				runErr = errors.Join(runErr, fmt.Errorf(
					"save ledger: %w (documents for %s were written but not counted; re-run those dates with --force)",
					err, strings.Join(written, ", ")))
			} else {
				log.Printf("[backfill] run %s: saved ledger (%d players)", runID, l.Len())
			}
		}
		if _, err := r.docs.WriteIndex(); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("write index: %w", err))
		}
	}

	if runErr != nil {
		reporter.OnJobError(runErr)
		return runErr
	}

	reporter.OnJobComplete()
	return nil
}

func (r *Runner) publish(ctx context.Context, runID string, doc *store.DayDocument) {
	if r.publisher == nil {
		return
	}
	for _, ev := range publisher.EventsFromDay(runID, doc) {
		if err := r.publisher.PublishBlurbs(ctx, ev); err != nil {
			log.Printf("[backfill] ⚠️  publish %s %s: %v", ev.Date, ev.GameID, err)
		}
	}
}

func enumerateDates(start, end time.Time) []time.Time {
	if start.IsZero() || end.IsZero() {
		return nil
	}
	if end.Before(start) {
		start, end = end, start
	}

	var dates []time.Time
	current := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	final := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	for !current.After(final) {
		dates = append(dates, current)
		current = current.AddDate(0, 0, 1)
	}

	return dates
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopReporter struct{}

func (nopReporter) OnJobStart(JobSpec)              {}
func (nopReporter) OnDateStart(time.Time, int, int) {}
func (nopReporter) OnDateWritten(string, int, int)  {}
func (nopReporter) OnProgress(string, int, int)     {}
func (nopReporter) OnJobComplete()                  {}
func (nopReporter) OnJobError(error)                {}

// LogReporter prints progress for command-line runs.
type LogReporter struct {
	Logger *log.Logger
}

func (r LogReporter) logf(format string, args ...interface{}) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
		return
	}
	log.Printf("[backfill] "+format, args...)
}

func (r LogReporter) OnJobStart(spec JobSpec) {}

func (r LogReporter) OnDateStart(date time.Time, index int, total int) {
	r.logf("=== %s (%d/%d) ===", date.Format(store.DateLayout), index+1, total)
}

func (r LogReporter) OnDateWritten(date string, games int, blurbs int) {
	r.logf("✓ %s: %d game(s), %d blurb(s)", date, games, blurbs)
}

func (r LogReporter) OnProgress(message string, current int, total int) {
	r.logf("%s", message)
}

func (r LogReporter) OnJobComplete() {
	r.logf("✓ Backfill complete")
}

func (r LogReporter) OnJobError(err error) {
	r.logf("❌ %v", err)
}
