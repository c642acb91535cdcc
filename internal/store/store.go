// Package store defines the coordination-store contract the dispatcher
// runs on: hashes for job/worker records, two priority lists, a TTL'd
// lease record per job, a bounded per-job event list with a paired
// pub/sub channel, and a handful of index lists for listing endpoints.
//
// A single shared store is what lets many front-end replicas coordinate
// without any process-local authoritative state (spec section 5).
package store

import (
	"context"
	"time"

	"github.com/forgeq/dispatcher/internal/dispatcher"
)

// Subscription is a dedicated, exclusive channel subscription for one
// job's events. It must never be shared across requests (spec section 4.7,
// section 9).
type Subscription interface {
	// Events delivers messages published after the subscription opened.
	Events() <-chan dispatcher.Event
	Close() error
}

// Store is the persistence interface every dispatcher component is built
// against; internal/store/redisstore is its Redis-backed implementation.
type Store interface {
	// Jobs
	PutJob(ctx context.Context, job *dispatcher.Job) error
	PatchJob(ctx context.Context, id string, fields map[string]any) error
	GetJob(ctx context.Context, id string) (*dispatcher.Job, error)
	ListJobs(ctx context.Context, filter dispatcher.JobFilter) ([]*dispatcher.Job, error)
	DeleteJob(ctx context.Context, id string) error

	// Indexes
	IndexAppend(ctx context.Context, indexKey, jobID string) error
	IndexList(ctx context.Context, indexKey string, limit, offset int) ([]string, error)

	// Priority queue
	PushQueue(ctx context.Context, priority bool, jobID string) error
	PopQueue(ctx context.Context) (jobID string, ok bool, err error)
	RemoveFromQueue(ctx context.Context, jobID string) error
	QueueDepths(ctx context.Context) (p0, p1 int, err error)

	// Workers
	PutWorker(ctx context.Context, w *dispatcher.Worker) error
	PatchWorker(ctx context.Context, id string, fields map[string]any) error
	GetWorker(ctx context.Context, id string) (*dispatcher.Worker, error)
	ListWorkers(ctx context.Context) ([]*dispatcher.Worker, error)
	IncrWorkerActive(ctx context.Context, id string, delta int) error

	// Leases. AcquireLease is the atomic compound step spec section 4.4
	// step 7 calls for: it must be indivisible with respect to other
	// replicas calling it concurrently for the same job id.
	AcquireLease(ctx context.Context, jobID string, lease dispatcher.Lease, ttl time.Duration, jobPatch map[string]any) error
	ReadLease(ctx context.Context, jobID string) (*dispatcher.Lease, bool, error)
	DeleteLease(ctx context.Context, jobID string) error
	TrackLease(ctx context.Context, jobID string) error
	UntrackLease(ctx context.Context, jobID string) error
	ListTrackedLeases(ctx context.Context) ([]string, error)

	// Events
	AppendEvent(ctx context.Context, jobID string, ev dispatcher.Event, maxLen int) error
	ReadEvents(ctx context.Context, jobID string) ([]dispatcher.Event, error)
	Subscribe(ctx context.Context, jobID string) (Subscription, error)

	Close() error
}
