// Package reaper implements the lease sweeper (spec section 4.5): a
// background loop that requeues or fails jobs whose lease expired
// without a result or error call from the worker holding it.
package reaper

import (
	"context"
	"time"

	"github.com/forgeq/dispatcher/internal/dispatcher"
	"github.com/forgeq/dispatcher/internal/pkg/httpx"
	applog "github.com/forgeq/dispatcher/internal/platform/logger"
	"github.com/forgeq/dispatcher/internal/store"
)

type Config struct {
	SweepInterval time.Duration
	MaxRetries    int
	EventsMax     int
}

type Reaper struct {
	log   *applog.Logger
	store store.Store
	cfg   Config
}

func New(log *applog.Logger, st store.Store, cfg Config) *Reaper {
	return &Reaper{log: log.With("service", "Reaper"), store: st, cfg: cfg}
}

// Run sweeps the tracked-lease set on cfg.SweepInterval, jittered, until
// ctx is canceled. A lease is expired once its key has fallen out of
// Redis (TTL elapsed) while its job id is still in the tracking set.
func (r *Reaper) Run(ctx context.Context) {
	r.log.Info("Lease sweeper starting", "interval", r.cfg.SweepInterval)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("Lease sweeper stopping")
			return
		case <-time.After(httpx.JitterSleep(r.cfg.SweepInterval)):
			r.sweepOnce(ctx)
		}
	}
}

func (r *Reaper) sweepOnce(ctx context.Context) {
	jobIDs, err := r.store.ListTrackedLeases(ctx)
	if err != nil {
		r.log.Warn("list tracked leases failed", "error", err)
		return
	}
	for _, jobID := range jobIDs {
		if ctx.Err() != nil {
			return
		}
		r.sweepOne(ctx, jobID)
	}
}

func (r *Reaper) sweepOne(ctx context.Context, jobID string) {
	_, ok, err := r.store.ReadLease(ctx, jobID)
	if err != nil {
		r.log.Warn("read lease during sweep failed", "job_id", jobID, "error", err)
		return
	}
	if ok {
		// lease key is still alive, not expired yet
		return
	}

	job, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		_ = r.store.UntrackLease(ctx, jobID)
		return
	}
	if job.Status.IsTerminal() {
		_ = r.store.UntrackLease(ctx, jobID)
		return
	}

	workerID := job.WorkerID
	if workerID != "" {
		_ = r.store.IncrWorkerActive(ctx, workerID, -1)
	}
	_ = r.store.UntrackLease(ctx, jobID)

	now := time.Now().UnixMilli()
	if job.Retries < r.cfg.MaxRetries {
		_ = r.store.PatchJob(ctx, jobID, map[string]any{
			"status":  string(dispatcher.JobQueued),
			"error":   "",
			"retries": job.Retries + 1,
		})
		if err := r.store.PushQueue(ctx, job.Priority, jobID); err != nil {
			r.log.Error("requeue on lease expiry failed", "job_id", jobID, "error", err)
			return
		}
		_ = r.store.AppendEvent(ctx, jobID, dispatcher.Event{
			TsMs: now, Type: dispatcher.EventInfo, Message: "lease expired; requeued",
		}, r.cfg.EventsMax)
		return
	}

	_ = r.store.PatchJob(ctx, jobID, map[string]any{
		"status":         string(dispatcher.JobFailed),
		"error":          "lease expired",
		"finished_at_ms": now,
	})
	_ = r.store.AppendEvent(ctx, jobID, dispatcher.Event{
		TsMs: now, Type: dispatcher.EventFailed, Message: "lease expired",
	}, r.cfg.EventsMax)
}
