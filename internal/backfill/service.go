package backfill

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fortuna/hoopsdaily/internal/store"
)

const maxRangeDays = 370

var (
	// ErrDuplicateJob rejects a request whose range is already queued or running.
	ErrDuplicateJob = errors.New("identical backfill job already pending")
	// ErrQueueFull rejects a request when the queue is at capacity.
	ErrQueueFull = errors.New("backfill queue is full")
)

// Request represents a backfill invocation request.
type Request struct {
	StartDate time.Time
	EndDate   time.Time
	Force     bool
	DryRun    bool
}

// Validate checks the request shape and normalises the range order.
func (r *Request) Validate() error {
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return fmt.Errorf("backfill requires start_date and end_date")
	}
	r.StartDate, r.EndDate = truncateDate(r.StartDate), truncateDate(r.EndDate)
	if r.EndDate.Before(r.StartDate) {
		r.StartDate, r.EndDate = r.EndDate, r.StartDate
	}
	if days := len(enumerateDates(r.StartDate, r.EndDate)); days > maxRangeDays {
		return fmt.Errorf("range of %d days exceeds limit of %d", days, maxRangeDays)
	}
	return nil
}

// Service serialises runs through one worker, so the API and the scheduler
// never mutate the ledger concurrently.
type Service struct {
	runner *Runner

	historyLimit int
	queue        chan *Job

	mu      sync.Mutex
	pending []*Job
	active  *Job
	history []*Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// NewService constructs a Service. Call Start to launch the worker.
func NewService(runner *Runner, logger *log.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	if logger == nil {
		logger = log.New(log.Writer(), "[backfill] ", log.LstdFlags)
	}

	return &Service{
		runner:       runner,
		historyLimit: 10,
		queue:        make(chan *Job, 16),
		ctx:          ctx,
		cancel:       cancel,
		logger:       logger,
	}
}

// Start launches the background worker loop.
func (s *Service) Start() {
	s.wg.Add(1)
	go s.worker()
}

// Shutdown stops workers and waits for completion. A running job is cancelled
// and saves what it has committed.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Enqueue creates a new job from the provided request.
func (s *Service) Enqueue(ctx context.Context, req Request) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &Job{
		JobID:         uuid.NewString(),
		StartDate:     req.StartDate.Format(store.DateLayout),
		EndDate:       req.EndDate.Format(store.DateLayout),
		Force:         req.Force,
		DryRun:        req.DryRun,
		Status:        JobStatusQueued,
		StatusMessage: "Queued",
		ProgressTotal: len(enumerateDates(req.StartDate, req.EndDate)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range append(append([]*Job(nil), s.pending...), s.active) {
		if other != nil && other.StartDate == job.StartDate && other.EndDate == job.EndDate &&
			other.Force == job.Force && other.DryRun == job.DryRun {
			return nil, ErrDuplicateJob
		}
	}

	select {
	case s.queue <- job:
	default:
		return nil, ErrQueueFull
	}
	s.pending = append(s.pending, job)
	s.logger.Printf("queued job %s: %s to %s", job.JobID, job.StartDate, job.EndDate)

	return job.Copy(), nil
}

// GetStatus returns the currently running job plus recent history.
func (s *Service) GetStatus(ctx context.Context) (*StatusSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := &StatusSummary{ActiveJob: s.active.Copy()}
	for _, j := range s.pending {
		summary.History = append(summary.History, j.Copy())
	}
	for _, j := range s.history {
		summary.History = append(summary.History, j.Copy())
	}
	return summary, nil
}

// Job looks up a job by id across pending, active, and history.
func (s *Service) Job(id string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil && s.active.JobID == id {
		return s.active.Copy(), true
	}
	for _, list := range [][]*Job{s.pending, s.history} {
		for _, j := range list {
			if j.JobID == id {
				return j.Copy(), true
			}
		}
	}
	return nil, false
}

func (s *Service) worker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			s.drain()
			return
		case job := <-s.queue:
			s.executeJob(job)
		}
	}
}

// drain marks still-queued jobs cancelled on shutdown.
func (s *Service) drain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.pending {
		s.finishLocked(j, JobStatusCancelled, "Service shut down", nil)
	}
	s.pending = nil
}

func (s *Service) executeJob(job *Job) {
	s.mu.Lock()
	if job.Status != JobStatusQueued {
		s.mu.Unlock()
		return
	}
	for i, j := range s.pending {
		if j == job {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
	now := time.Now().UTC()
	job.Status = JobStatusRunning
	job.StatusMessage = "Starting job..."
	job.StartedAt = &now
	job.UpdatedAt = now
	s.active = job
	s.mu.Unlock()

	start, _ := time.Parse(store.DateLayout, job.StartDate)
	end, _ := time.Parse(store.DateLayout, job.EndDate)
	spec := JobSpec{Start: start, End: end, Force: job.Force, DryRun: job.DryRun}

	err := s.runner.Run(s.ctx, spec, &jobReporter{s: s, job: job})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
	switch {
	case err == nil:
		s.finishLocked(job, JobStatusCompleted, "Job completed", nil)
	case errors.Is(err, context.Canceled):
		s.finishLocked(job, JobStatusCancelled, "Job cancelled", err)
	default:
		s.logger.Printf("job %s failed: %v", job.JobID, err)
		s.finishLocked(job, JobStatusFailed, "Job failed", err)
	}
}

func (s *Service) finishLocked(job *Job, status JobStatus, msg string, err error) {
	now := time.Now().UTC()
	job.Status = status
	job.StatusMessage = msg
	job.UpdatedAt = now
	job.CompletedAt = &now
	if err != nil {
		job.LastError = err.Error()
	}

	s.history = append([]*Job{job}, s.history...)
	if len(s.history) > s.historyLimit {
		s.history = s.history[:s.historyLimit]
	}
}

type jobReporter struct {
	s   *Service
	job *Job
}

func (r *jobReporter) update(fn func(j *Job)) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	fn(r.job)
	r.job.UpdatedAt = time.Now().UTC()
}

func (r *jobReporter) OnJobStart(spec JobSpec) {
	r.update(func(j *Job) { j.StatusMessage = "Job starting" })
}

func (r *jobReporter) OnDateStart(date time.Time, index int, total int) {
	msg := fmt.Sprintf("Processing %s (%d/%d)", date.Format("Jan 2, 2006"), index+1, total)
	r.update(func(j *Job) {
		j.StatusMessage = msg
		j.ProgressCurrent = index
		j.ProgressTotal = valueOr(total, j.ProgressTotal)
	})
}

func (r *jobReporter) OnDateWritten(date string, games int, blurbs int) {
	r.update(func(j *Job) {
		j.DatesWritten++
		j.BlurbCount += blurbs
	})
}

func (r *jobReporter) OnProgress(message string, current int, total int) {
	r.update(func(j *Job) {
		j.StatusMessage = message
		j.ProgressCurrent = current
		j.ProgressTotal = valueOr(total, j.ProgressTotal)
	})
}

func (r *jobReporter) OnJobComplete() {
	r.update(func(j *Job) {
		j.ProgressCurrent = j.ProgressTotal
		j.StatusMessage = "Job complete"
	})
}

func (r *jobReporter) OnJobError(err error) {
	r.s.logger.Printf("job %s: %v", r.job.JobID, err)
	r.update(func(j *Job) { j.LastError = err.Error() })
}

func valueOr(val, fallback int) int {
	if val > 0 {
		return val
	}
	return fallback
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
