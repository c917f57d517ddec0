package backfill

import (
	"context"
	"errors"
	"testing"
	"time"
)

func waitForStatus(t *testing.T, svc *Service, id string, want JobStatus) *Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if job, ok := svc.Job(id); ok && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	job, _ := svc.Job(id)
	t.Fatalf("job %s never reached %s (last: %+v)", id, want, job)
	return nil
}

func TestService_RunsQueuedJob(t *testing.T) {
	h := newHarness(t)
	h.ing.blurbOn["2025-11-02"] = true
	svc := NewService(h.runner, nil)
	svc.Start()
	defer svc.Shutdown(context.Background())

	job, err := svc.Enqueue(context.Background(), Request{StartDate: day("2025-11-02"), EndDate: day("2025-11-01")})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.JobID == "" || job.Status != JobStatusQueued || job.StartDate != "2025-11-01" || job.ProgressTotal != 2 {
		t.Errorf("queued job = %+v", job)
	}

	done := waitForStatus(t, svc, job.JobID, JobStatusCompleted)
	if done.DatesWritten != 2 || done.BlurbCount != 1 || done.ProgressCurrent != 2 {
		t.Errorf("completed job = %+v", done)
	}
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Error("timestamps not set")
	}

	status, _ := svc.GetStatus(context.Background())
	if status.ActiveJob != nil || len(status.History) != 1 {
		t.Errorf("status = %+v", status)
	}
}

func TestService_FailedJob(t *testing.T) {
	h := newHarness(t)
	h.ledger.loadErr = errors.New("corrupt")
	svc := NewService(h.runner, nil)
	svc.Start()
	defer svc.Shutdown(context.Background())

	job, err := svc.Enqueue(context.Background(), Request{StartDate: day("2025-11-01"), EndDate: day("2025-11-01")})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	failed := waitForStatus(t, svc, job.JobID, JobStatusFailed)
	if failed.LastError == "" {
		t.Error("LastError empty")
	}
}

func TestService_RejectsDuplicatesAndBadRequests(t *testing.T) {
	h := newHarness(t)
	svc := NewService(h.runner, nil) // not started: jobs stay queued

	req := Request{StartDate: day("2025-11-01"), EndDate: day("2025-11-03")}
	if _, err := svc.Enqueue(context.Background(), req); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := svc.Enqueue(context.Background(), req); !errors.Is(err, ErrDuplicateJob) {
		t.Errorf("err = %v, want ErrDuplicateJob", err)
	}

	if _, err := svc.Enqueue(context.Background(), Request{StartDate: day("2025-11-01")}); err == nil {
		t.Error("missing end date accepted")
	}
	if _, err := svc.Enqueue(context.Background(), Request{StartDate: day("2020-01-01"), EndDate: day("2025-01-01")}); err == nil {
		t.Error("multi-year range accepted")
	}
}

func TestService_ShutdownCancelsPending(t *testing.T) {
	h := newHarness(t)
	svc := NewService(h.runner, nil)

	job, err := svc.Enqueue(context.Background(), Request{StartDate: day("2025-11-01"), EndDate: day("2025-11-01")})
	if err != nil {
		t.Fatal(err)
	}

	svc.Start()
	// Cancel before the worker gets a chance; either outcome is terminal.
	if err := svc.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	got, ok := svc.Job(job.JobID)
	if !ok {
		t.Fatal("job lost")
	}
	switch got.Status {
	case JobStatusCancelled, JobStatusCompleted:
	default:
		t.Errorf("status after shutdown = %s", got.Status)
	}
}
