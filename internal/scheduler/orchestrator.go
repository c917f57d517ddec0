package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fortuna/hoopsdaily/internal/backfill"
	"github.com/fortuna/hoopsdaily/internal/store"
)

// Enqueuer accepts backfill requests. backfill.Service satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, req backfill.Request) (*backfill.Job, error)
}

// Config holds scheduler configuration
type Config struct {
	Schedule string         // cron expression, default "0 6 * * *"
	Location *time.Location // default America/New_York
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() *Config {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("EST", -5*60*60)
	}
	return &Config{
		Schedule: "0 6 * * *",
		Location: loc,
	}
}

// Orchestrator queues a scrape of the previous calendar day on a cron schedule.
type Orchestrator struct {
	jobs    Enqueuer
	config  *Config
	cron    *cron.Cron
	entryID cron.EntryID
	now     func() time.Time
}

// NewOrchestrator validates the schedule and prepares the cron runner.
func NewOrchestrator(jobs Enqueuer, config *Config) (*Orchestrator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Location == nil {
		config.Location = DefaultConfig().Location
	}
	if config.Schedule == "" {
		config.Schedule = DefaultConfig().Schedule
	}

	logger := cron.PrintfLogger(log.New(os.Stderr, "[scheduler] ", log.LstdFlags))
	c := cron.New(
		cron.WithLocation(config.Location),
		cron.WithChain(cron.Recover(logger)),
	)

	o := &Orchestrator{jobs: jobs, config: config, cron: c, now: time.Now}
	id, err := c.AddFunc(config.Schedule, o.runDailyIngestionTask)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", config.Schedule, err)
	}
	o.entryID = id
	return o, nil
}

// Start begins the cron loop in the background.
func (o *Orchestrator) Start() {
	o.cron.Start()
	log.Printf("[scheduler] ✓ daily scrape scheduled (%s %s), next run %s",
		o.config.Schedule, o.config.Location, o.NextRun().Format(time.RFC3339))
}

// Stop halts the schedule and waits for a running tick to return.
func (o *Orchestrator) Stop() {
	<-o.cron.Stop().Done()
	log.Println("[scheduler] ✓ stopped")
}

// NextRun reports the next scheduled tick, zero before Start.
func (o *Orchestrator) NextRun() time.Time {
	return o.cron.Entry(o.entryID).Next
}

func (o *Orchestrator) runDailyIngestionTask() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	target := targetDate(o.now(), o.config.Location)
	if _, err := o.TriggerManualIngestion(ctx, target); err != nil {
		if errors.Is(err, backfill.ErrDuplicateJob) {
			log.Printf("[scheduler] %s already queued, skipping tick", target.Format(store.DateLayout))
			return
		}
		log.Printf("[scheduler] ❌ failed to queue %s: %v", target.Format(store.DateLayout), err)
	}
}

// TriggerManualIngestion queues a scrape of one date.
func (o *Orchestrator) TriggerManualIngestion(ctx context.Context, date time.Time) (*backfill.Job, error) {
	job, err := o.jobs.Enqueue(ctx, backfill.Request{StartDate: date, EndDate: date})
	if err != nil {
		return nil, err
	}
	log.Printf("[scheduler] queued %s as job %s", date.Format(store.DateLayout), job.JobID)
	return job, nil
}

// GetStatus returns current scheduler status
func (o *Orchestrator) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"schedule": o.config.Schedule,
		"timezone": o.config.Location.String(),
	}
	if next := o.NextRun(); !next.IsZero() {
		status["next_run"] = next.Format(time.RFC3339)
	}
	return status
}

// targetDate is the calendar day before now in loc, as a UTC midnight.
func targetDate(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	y, m, d := local.AddDate(0, 0, -1).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
