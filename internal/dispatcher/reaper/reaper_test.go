package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/forgeq/dispatcher/internal/dispatcher"
	applog "github.com/forgeq/dispatcher/internal/platform/logger"
	"github.com/forgeq/dispatcher/internal/store/storetest"
)

func newTestReaper(t *testing.T, cfg Config) (*Reaper, *storetest.Fake) {
	t.Helper()
	log, err := applog.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	st := storetest.New()
	return New(log, st, cfg), st
}

func seedLeasedJob(t *testing.T, st *storetest.Fake, id, workerID string, retries int, priority bool) {
	t.Helper()
	ctx := context.Background()
	job := &dispatcher.Job{ID: id, Status: dispatcher.JobProcessing, WorkerID: workerID, Retries: retries, Priority: priority}
	if err := st.PutJob(ctx, job); err != nil {
		t.Fatalf("PutJob: %v", err)
	}
	w := &dispatcher.Worker{ID: workerID, Capacity: 1, Active: 0}
	if err := st.PutWorker(ctx, w); err != nil {
		t.Fatalf("PutWorker: %v", err)
	}
	lease := dispatcher.Lease{JobID: id, WorkerID: workerID, Retries: retries}
	if err := st.AcquireLease(ctx, id, lease, time.Minute, nil); err != nil {
		t.Fatalf("AcquireLease: %v", err)
	}
}

func TestSweepRequeuesExpiredLeaseWithinRetryBudget(t *testing.T) {
	r, st := newTestReaper(t, Config{MaxRetries: 3, EventsMax: 50})
	seedLeasedJob(t, st, "job-1", "worker-1", 0, false)
	st.ExpireLease("job-1")

	r.sweepOnce(context.Background())

	job, err := st.GetJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != dispatcher.JobQueued {
		t.Fatalf("expected job requeued after lease expiry, got %q", job.Status)
	}
	if job.Retries != 1 {
		t.Fatalf("expected retries incremented to 1, got %d", job.Retries)
	}
	p0, p1, err := st.QueueDepths(context.Background())
	if err != nil {
		t.Fatalf("QueueDepths: %v", err)
	}
	if p0+p1 != 1 {
		t.Fatalf("expected job pushed back onto the queue, got p0=%d p1=%d", p0, p1)
	}
	w, err := st.GetWorker(context.Background(), "worker-1")
	if err != nil {
		t.Fatalf("GetWorker: %v", err)
	}
	if w.Active != 0 {
		t.Fatalf("expected worker active count decremented, got %d", w.Active)
	}
	tracked, err := st.ListTrackedLeases(context.Background())
	if err != nil {
		t.Fatalf("ListTrackedLeases: %v", err)
	}
	if len(tracked) != 0 {
		t.Fatalf("expected lease untracked after sweep, got %v", tracked)
	}
}

func TestSweepFailsJobPastMaxRetries(t *testing.T) {
	r, st := newTestReaper(t, Config{MaxRetries: 1, EventsMax: 50})
	seedLeasedJob(t, st, "job-1", "worker-1", 1, false)
	st.ExpireLease("job-1")

	r.sweepOnce(context.Background())

	job, err := st.GetJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != dispatcher.JobFailed {
		t.Fatalf("expected job failed once retries are exhausted, got %q", job.Status)
	}
	p0, p1, err := st.QueueDepths(context.Background())
	if err != nil {
		t.Fatalf("QueueDepths: %v", err)
	}
	if p0+p1 != 0 {
		t.Fatalf("expected terminally failed job not requeued, got p0=%d p1=%d", p0, p1)
	}
}

func TestSweepIgnoresJobAlreadyTerminal(t *testing.T) {
	r, st := newTestReaper(t, Config{MaxRetries: 3, EventsMax: 50})
	ctx := context.Background()
	job := &dispatcher.Job{ID: "job-1", Status: dispatcher.JobCanceled, WorkerID: "worker-1"}
	if err := st.PutJob(ctx, job); err != nil {
		t.Fatalf("PutJob: %v", err)
	}
	if err := st.TrackLease(ctx, "job-1"); err != nil {
		t.Fatalf("TrackLease: %v", err)
	}

	r.sweepOnce(ctx)

	tracked, err := st.ListTrackedLeases(ctx)
	if err != nil {
		t.Fatalf("ListTrackedLeases: %v", err)
	}
	if len(tracked) != 0 {
		t.Fatalf("expected terminal job's lease untracked without status changes, got %v", tracked)
	}
	got, err := st.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != dispatcher.JobCanceled {
		t.Fatalf("expected status untouched, got %q", got.Status)
	}
}

func TestSweepSkipsLeaseThatHasNotExpiredYet(t *testing.T) {
	r, st := newTestReaper(t, Config{MaxRetries: 3, EventsMax: 50})
	seedLeasedJob(t, st, "job-1", "worker-1", 0, false)

	r.sweepOnce(context.Background())

	job, err := st.GetJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != dispatcher.JobProcessing {
		t.Fatalf("expected job still processing while lease is live, got %q", job.Status)
	}
}
