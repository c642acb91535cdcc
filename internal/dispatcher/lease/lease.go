// Package lease implements the lease manager (spec section 4.4): the
// lease/result/error calls that hand jobs out to workers, record their
// outcomes, and enforce the bounded-retry policy.
package lease

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/forgeq/dispatcher/internal/blob"
	"github.com/forgeq/dispatcher/internal/dispatcher"
	pkgerrors "github.com/forgeq/dispatcher/internal/pkg/errors"
	"github.com/forgeq/dispatcher/internal/pkg/pointers"
	"github.com/forgeq/dispatcher/internal/platform/apierr"
	applog "github.com/forgeq/dispatcher/internal/platform/logger"
	"github.com/forgeq/dispatcher/internal/store"
)

type Config struct {
	LeaseTimeoutSec    int
	TotalJobTimeoutSec int
	MaxRetries         int
	EventsMax          int
}

type Manager struct {
	log   *applog.Logger
	store store.Store
	blob  blob.Store
	cfg   Config
}

func New(log *applog.Logger, st store.Store, bs blob.Store, cfg Config) *Manager {
	return &Manager{log: log.With("service", "LeaseManager"), store: st, blob: bs, cfg: cfg}
}

// Grant is the payload returned to a worker that receives work.
type Grant struct {
	JobID              string
	Filename           string
	InputURL           string
	DeadlineMs         int64
	TotalJobTimeoutSec int
	Params             map[string]interface{}
}

// Lease implements spec section 4.4's lease call. It never returns a
// hard error to the HTTP layer for ordinary "nothing to do" cases —
// callers should treat any returned error as "no lease, keep polling"
// per section 7's propagation policy; wait_sec is non-zero whenever no
// grant is returned, and 0 alongside a grant.
func (m *Manager) Lease(ctx context.Context, workerID string, wants, reportedActive int, gpu map[string]string, remoteIP string) (*Grant, int, error) {
	w, err := m.store.GetWorker(ctx, workerID)
	if err != nil {
		return nil, 2, fmt.Errorf("unknown worker: %w", err)
	}

	now := time.Now().UnixMilli()
	if w.GPU == nil {
		w.GPU = map[string]string{}
	}
	for k, v := range gpu {
		w.GPU[k] = v
	}
	w.Active = reportedActive
	w.LastSeenMs = now
	if remoteIP != "" {
		w.RemoteIP = remoteIP
	}
	if err := m.store.PutWorker(ctx, w); err != nil {
		return nil, 2, fmt.Errorf("refresh worker: %w", err)
	}

	free := w.Capacity - w.Active
	if free < 0 {
		free = 0
	}
	grant := min3(wants, free, 1)
	if grant == 0 {
		return nil, 2, nil
	}

	jobID, ok, err := m.store.PopQueue(ctx)
	if err != nil {
		return nil, 2, fmt.Errorf("pop queue: %w", err)
	}
	if !ok {
		return nil, 2, nil
	}

	job, err := m.store.GetJob(ctx, jobID)
	if err != nil || job.InputPath == "" {
		m.failJob(ctx, jobID, "missing input_path")
		return nil, 2, nil
	}

	signedURL, err := m.blob.SignedURL(ctx, job.InputPath, time.Hour)
	if err != nil {
		m.failJob(ctx, jobID, fmt.Sprintf("sign_url_failed: %v", err))
		return nil, 2, nil
	}

	deadline := now + int64(m.cfg.LeaseTimeoutSec)*1000
	leaseRecord := dispatcher.Lease{
		JobID:      jobID,
		WorkerID:   workerID,
		DeadlineMs: deadline,
		Retries:    job.Retries,
	}
	jobPatch := map[string]any{
		"status":        string(dispatcher.JobProcessing),
		"started_at_ms": now,
		"worker_id":     workerID,
	}
	ttl := time.Duration(m.cfg.LeaseTimeoutSec) * time.Second
	if err := m.store.AcquireLease(ctx, jobID, leaseRecord, ttl, jobPatch); err != nil {
		// A live lease already covers this job (e.g. it was requeued by an
		// operator while a worker still held it). Put the id back so it is
		// not lost, and let the caller poll again.
		m.log.Warn("acquire lease refused", "job_id", jobID, "worker_id", workerID, "error", err)
		_ = m.store.PushQueue(ctx, job.Priority, jobID)
		return nil, 2, nil
	}

	_ = m.store.AppendEvent(ctx, jobID, dispatcher.Event{
		TsMs:     now,
		Type:     dispatcher.EventState,
		Message:  "processing",
		Progress: pointers.Int(40),
	}, m.cfg.EventsMax)

	return &Grant{
		JobID:              jobID,
		Filename:           job.Filename,
		InputURL:           signedURL,
		DeadlineMs:         deadline,
		TotalJobTimeoutSec: m.cfg.TotalJobTimeoutSec,
		Params:             map[string]interface{}{},
	}, 0, nil
}

func (m *Manager) failJob(ctx context.Context, jobID, reason string) {
	now := time.Now().UnixMilli()
	_ = m.store.PatchJob(ctx, jobID, map[string]any{
		"status":         string(dispatcher.JobFailed),
		"error":          reason,
		"finished_at_ms": now,
	})
	_ = m.store.AppendEvent(ctx, jobID, dispatcher.Event{
		TsMs:    now,
		Type:    dispatcher.EventError,
		Message: reason,
	}, m.cfg.EventsMax)
}

// Result records a worker's successful output upload. The caller must
// hold the live lease or, failing that, be the worker_id of a job still
// in processing; any other caller (e.g. the job already finished or was
// requeued) gets a conflict back and the job record is left untouched.
func (m *Manager) Result(ctx context.Context, workerID, jobID string, body io.Reader, contentType string) error {
	if !m.ownsLease(ctx, workerID, jobID) {
		return apierr.New(http.StatusBadRequest, "invalid_lease_or_worker_id", pkgerrors.ErrConflict)
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	outputKey := blob.OutputKey(jobID)
	now := time.Now().UnixMilli()

	if err := m.blob.Upload(ctx, outputKey, contentType, body); err != nil {
		_ = m.store.IncrWorkerActive(ctx, workerID, -1)
		_ = m.store.DeleteLease(ctx, jobID)
		_ = m.store.UntrackLease(ctx, jobID)
		_ = m.store.PatchJob(ctx, jobID, map[string]any{
			"status":         string(dispatcher.JobFailed),
			"error":          "output_upload_failed",
			"finished_at_ms": now,
		})
		_ = m.store.AppendEvent(ctx, jobID, dispatcher.Event{TsMs: now, Type: dispatcher.EventError, Message: "output_upload_failed"}, m.cfg.EventsMax)
		return fmt.Errorf("upload output: %w", err)
	}

	job, err := m.store.GetJob(ctx, jobID)
	patch := map[string]any{
		"status":         string(dispatcher.JobCompleted),
		"output_path":    outputKey,
		"finished_at_ms": now,
	}
	if err == nil && job.StartedAtMs > 0 {
		patch["processing_ms"] = now - job.StartedAtMs
	}
	_ = m.store.PatchJob(ctx, jobID, patch)
	_ = m.store.IncrWorkerActive(ctx, workerID, -1)
	_ = m.store.DeleteLease(ctx, jobID)
	_ = m.store.UntrackLease(ctx, jobID)

	data := map[string]interface{}{}
	if url, err := m.blob.SignedURL(ctx, outputKey, 24*time.Hour); err == nil {
		data["output_url"] = url
	}
	_ = m.store.AppendEvent(ctx, jobID, dispatcher.Event{
		TsMs: now, Type: dispatcher.EventCompleted, Message: "completed", Progress: pointers.Int(100), Data: data,
	}, m.cfg.EventsMax)
	return nil
}

func (m *Manager) ownsLease(ctx context.Context, workerID, jobID string) bool {
	lease, ok, err := m.store.ReadLease(ctx, jobID)
	if err == nil && ok && lease != nil && lease.WorkerID == workerID {
		return true
	}
	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return false
	}
	return job.Status == dispatcher.JobProcessing && job.WorkerID == workerID
}

// Error implements spec section 4.4's worker_error call: bounded
// requeue-with-retries, falling back to a terminal failure past
// MaxRetries.
func (m *Manager) Error(ctx context.Context, workerID, jobID, errText string) error {
	// A repeated error report for a job this worker no longer holds must
	// not decrement active again or touch a settled job record.
	if !m.ownsLease(ctx, workerID, jobID) {
		return nil
	}
	_ = m.store.IncrWorkerActive(ctx, workerID, -1)

	lease, ok, _ := m.store.ReadLease(ctx, jobID)
	_ = m.store.DeleteLease(ctx, jobID)
	_ = m.store.UntrackLease(ctx, jobID)

	job, jobErr := m.store.GetJob(ctx, jobID)
	retries := 0
	if ok && lease != nil {
		retries = lease.Retries
	} else if jobErr == nil {
		retries = job.Retries
	}
	now := time.Now().UnixMilli()

	if retries < m.cfg.MaxRetries {
		priority := jobErr == nil && job.Priority
		_ = m.store.PatchJob(ctx, jobID, map[string]any{
			"status":  string(dispatcher.JobQueued),
			"error":   "",
			"retries": retries + 1,
		})
		if pushErr := m.store.PushQueue(ctx, priority, jobID); pushErr != nil {
			return fmt.Errorf("requeue after error: %w", pushErr)
		}
		_ = m.store.AppendEvent(ctx, jobID, dispatcher.Event{
			TsMs: now, Type: dispatcher.EventInfo, Message: "requeued after error",
		}, m.cfg.EventsMax)
		return nil
	}

	_ = m.store.PatchJob(ctx, jobID, map[string]any{
		"status":         string(dispatcher.JobFailed),
		"error":          errText,
		"finished_at_ms": now,
	})
	_ = m.store.AppendEvent(ctx, jobID, dispatcher.Event{
		TsMs: now, Type: dispatcher.EventError, Message: errText,
	}, m.cfg.EventsMax)
	return nil
}

func min3(a, b, c int) int {
	v := a
	if b < v {
		v = b
	}
	if c < v {
		v = c
	}
	if v < 0 {
		v = 0
	}
	return v
}
