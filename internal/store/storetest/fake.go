// Package storetest provides an in-process fake of store.Store for unit
// tests that exercise the dispatcher components without a real Redis.
package storetest

import (
	"context"
	"sync"
	"time"

	"github.com/forgeq/dispatcher/internal/dispatcher"
	pkgerrors "github.com/forgeq/dispatcher/internal/pkg/errors"
	"github.com/forgeq/dispatcher/internal/store"
)

type leaseEntry struct {
	lease   dispatcher.Lease
	expires time.Time
}

// Fake is a single-process, mutex-guarded implementation of store.Store.
// It has no TTL sweeper of its own: ReadLease treats an entry as expired
// once its deadline has passed, matching Redis key expiry closely enough
// for the reaper and lease-manager tests that exercise it.
type Fake struct {
	mu      sync.Mutex
	jobs    map[string]*dispatcher.Job
	workers map[string]*dispatcher.Worker
	leases  map[string]leaseEntry
	tracked map[string]struct{}
	indexes map[string][]string
	p0      []string
	p1      []string
	events  map[string][]dispatcher.Event
	subs    map[string][]chan dispatcher.Event
}

func New() *Fake {
	return &Fake{
		jobs:    map[string]*dispatcher.Job{},
		workers: map[string]*dispatcher.Worker{},
		leases:  map[string]leaseEntry{},
		tracked: map[string]struct{}{},
		indexes: map[string][]string{},
		events:  map[string][]dispatcher.Event{},
		subs:    map[string][]chan dispatcher.Event{},
	}
}

func (f *Fake) Close() error { return nil }

// ---------------- Jobs ----------------

func (f *Fake) PutJob(_ context.Context, job *dispatcher.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *job
	f.jobs[job.ID] = &cp
	return nil
}

func (f *Fake) PatchJob(_ context.Context, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "status":
			job.Status = dispatcher.JobStatus(v.(string))
		case "error":
			job.Error = v.(string)
		case "output_path":
			job.OutputPath = v.(string)
		case "worker_id":
			job.WorkerID = v.(string)
		case "started_at_ms":
			job.StartedAtMs = toInt64(v)
		case "finished_at_ms":
			job.FinishedAtMs = toInt64(v)
		case "processing_ms":
			job.ProcessingMs = toInt64(v)
		case "retries":
			job.Retries = int(toInt64(v))
		}
	}
	return nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

func (f *Fake) GetJob(_ context.Context, id string) (*dispatcher.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (f *Fake) ListJobs(_ context.Context, filter dispatcher.JobFilter) ([]*dispatcher.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*dispatcher.Job
	for _, id := range f.indexes["idx:global"] {
		job, ok := f.jobs[id]
		if !ok {
			continue
		}
		if filter.Status != "" && string(job.Status) != filter.Status {
			continue
		}
		cp := *job
		out = append(out, &cp)
	}
	return out, nil
}

func (f *Fake) DeleteJob(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jobs, id)
	return nil
}

// ---------------- Indexes ----------------

func (f *Fake) IndexAppend(_ context.Context, indexKey, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexes[indexKey] = append([]string{jobID}, f.indexes[indexKey]...)
	return nil
}

func (f *Fake) IndexList(_ context.Context, indexKey string, limit, offset int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := f.indexes[indexKey]
	if offset > 0 && offset < len(ids) {
		ids = ids[offset:]
	} else if offset >= len(ids) {
		return nil, nil
	}
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}

// ---------------- Priority queue ----------------

func (f *Fake) PushQueue(_ context.Context, priority bool, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if priority {
		f.p0 = append(f.p0, jobID)
	} else {
		f.p1 = append(f.p1, jobID)
	}
	return nil
}

func (f *Fake) PopQueue(_ context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.p0) > 0 {
		id := f.p0[0]
		f.p0 = f.p0[1:]
		return id, true, nil
	}
	if len(f.p1) > 0 {
		id := f.p1[0]
		f.p1 = f.p1[1:]
		return id, true, nil
	}
	return "", false, nil
}

func (f *Fake) RemoveFromQueue(_ context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.p0 = removeAll(f.p0, jobID)
	f.p1 = removeAll(f.p1, jobID)
	return nil
}

func removeAll(list []string, id string) []string {
	out := list[:0]
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func (f *Fake) QueueDepths(_ context.Context) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.p0), len(f.p1), nil
}

// ---------------- Workers ----------------

func (f *Fake) PutWorker(_ context.Context, w *dispatcher.Worker) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *w
	f.workers[w.ID] = &cp
	return nil
}

func (f *Fake) PatchWorker(_ context.Context, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.workers[id]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	if v, ok := fields["active"]; ok {
		w.Active = int(toInt64(v))
	}
	return nil
}

func (f *Fake) GetWorker(_ context.Context, id string) (*dispatcher.Worker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.workers[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (f *Fake) ListWorkers(_ context.Context) ([]*dispatcher.Worker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*dispatcher.Worker, 0, len(f.workers))
	for _, w := range f.workers {
		cp := *w
		out = append(out, &cp)
	}
	return out, nil
}

func (f *Fake) IncrWorkerActive(_ context.Context, id string, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.workers[id]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	w.Active += delta
	if w.Active < 0 {
		w.Active = 0
	}
	return nil
}

// ---------------- Leases ----------------

func (f *Fake) AcquireLease(_ context.Context, jobID string, lease dispatcher.Lease, ttl time.Duration, jobPatch map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.leases[jobID]; exists {
		return pkgerrors.ErrConflict
	}
	f.leases[jobID] = leaseEntry{lease: lease, expires: time.Now().Add(ttl)}
	f.tracked[jobID] = struct{}{}
	job, ok := f.jobs[jobID]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	for k, v := range jobPatch {
		switch k {
		case "status":
			job.Status = dispatcher.JobStatus(v.(string))
		case "worker_id":
			job.WorkerID = v.(string)
		case "started_at_ms":
			job.StartedAtMs = toInt64(v)
		}
	}
	if w, ok := f.workers[lease.WorkerID]; ok {
		w.Active++
	}
	return nil
}

func (f *Fake) ReadLease(_ context.Context, jobID string) (*dispatcher.Lease, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.leases[jobID]
	if !ok || time.Now().After(entry.expires) {
		return nil, false, nil
	}
	cp := entry.lease
	return &cp, true, nil
}

func (f *Fake) DeleteLease(_ context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.leases, jobID)
	return nil
}

func (f *Fake) TrackLease(_ context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracked[jobID] = struct{}{}
	return nil
}

func (f *Fake) UntrackLease(_ context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tracked, jobID)
	return nil
}

func (f *Fake) ListTrackedLeases(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.tracked))
	for id := range f.tracked {
		out = append(out, id)
	}
	return out, nil
}

// ExpireLease is a test-only hook letting reaper tests simulate TTL
// elapsing without waiting out a real timer.
func (f *Fake) ExpireLease(jobID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry, ok := f.leases[jobID]; ok {
		entry.expires = time.Now().Add(-time.Second)
		f.leases[jobID] = entry
	}
}

// ---------------- Events ----------------

func (f *Fake) AppendEvent(_ context.Context, jobID string, ev dispatcher.Event, maxLen int) error {
	f.mu.Lock()
	list := append([]dispatcher.Event{ev}, f.events[jobID]...)
	if maxLen > 0 && len(list) > maxLen {
		list = list[:maxLen]
	}
	f.events[jobID] = list
	subs := append([]chan dispatcher.Event{}, f.subs[jobID]...)
	f.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (f *Fake) ReadEvents(_ context.Context, jobID string) ([]dispatcher.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.events[jobID]
	out := make([]dispatcher.Event, len(list))
	for i, ev := range list {
		out[len(list)-1-i] = ev
	}
	return out, nil
}

type fakeSubscription struct {
	ch     chan dispatcher.Event
	closed chan struct{}
}

func (s *fakeSubscription) Events() <-chan dispatcher.Event { return s.ch }
func (s *fakeSubscription) Close() error {
	close(s.closed)
	return nil
}

func (f *Fake) Subscribe(_ context.Context, jobID string) (store.Subscription, error) {
	ch := make(chan dispatcher.Event, 16)
	f.mu.Lock()
	f.subs[jobID] = append(f.subs[jobID], ch)
	f.mu.Unlock()
	return &fakeSubscription{ch: ch, closed: make(chan struct{})}, nil
}

// Subscribers reports how many subscriptions have been opened for jobID,
// letting streaming tests wait for a handler's subscribe to land before
// publishing.
func (f *Fake) Subscribers(jobID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[jobID])
}
