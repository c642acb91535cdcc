// Package registry implements the worker registry and heartbeat (spec
// section 4.3): registration, heartbeats, staleness, and the capacity
// summaries the admin and gpu_status endpoints surface.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/forgeq/dispatcher/internal/dispatcher"
	pkgerrors "github.com/forgeq/dispatcher/internal/pkg/errors"
	applog "github.com/forgeq/dispatcher/internal/platform/logger"
	"github.com/forgeq/dispatcher/internal/store"
)

type Config struct {
	HeartbeatStaleSec int
}

type Registry struct {
	log   *applog.Logger
	store store.Store
	cfg   Config
}

func New(log *applog.Logger, st store.Store, cfg Config) *Registry {
	return &Registry{log: log.With("service", "Registry"), store: st, cfg: cfg}
}

// RegisterInput is the worker descriptor accepted by POST /worker/register.
type RegisterInput struct {
	Name       string
	PublicURL  string
	Capacity   int
	Tags       []string
	GPU        map[string]string
	ObservedIP string
}

// Registration is the response shape spec section 6 documents for
// /worker/register: the new worker id plus operational hints.
type Registration struct {
	Worker               *dispatcher.Worker
	LeaseEndpoint        string
	ResultEndpoint       string
	ErrorEndpoint        string
	HeartbeatIntervalSec int
}

func (r *Registry) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	if in.Capacity < 1 {
		in.Capacity = 1
	}
	id, err := dispatcher.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate worker id: %w", err)
	}
	now := time.Now().UnixMilli()
	w := &dispatcher.Worker{
		ID:          id,
		Name:        in.Name,
		PublicURL:   in.PublicURL,
		Capacity:    in.Capacity,
		Active:      0,
		Tags:        in.Tags,
		GPU:         in.GPU,
		RemoteIP:    in.ObservedIP,
		FirstSeenMs: now,
		LastSeenMs:  now,
	}
	if err := r.store.PutWorker(ctx, w); err != nil {
		return nil, fmt.Errorf("write worker record: %w", err)
	}
	return &Registration{
		Worker:               w,
		LeaseEndpoint:        "/api/worker/lease",
		ResultEndpoint:       "/api/worker/result",
		ErrorEndpoint:        "/api/worker/error",
		HeartbeatIntervalSec: r.cfg.HeartbeatStaleSec / 2,
	}, nil
}

// Heartbeat refreshes last_seen_ts and merges reported metrics onto the
// worker's gpu field. Unknown worker ids are reported to the caller so
// the HTTP layer can return 404, per spec section 4.3.
func (r *Registry) Heartbeat(ctx context.Context, workerID string, metrics map[string]string) error {
	w, err := r.store.GetWorker(ctx, workerID)
	if err != nil {
		return pkgerrors.ErrNotFound
	}
	if w.GPU == nil {
		w.GPU = map[string]string{}
	}
	for k, v := range metrics {
		w.GPU[k] = v
	}
	w.LastSeenMs = time.Now().UnixMilli()
	return r.store.PutWorker(ctx, w)
}

// IsOnline reports whether w has heartbeat recently enough to count
// toward capacity summaries (spec section 4.3's staleness rule).
func (r *Registry) IsOnline(w *dispatcher.Worker) bool {
	return w.Online(time.Now().UnixMilli(), r.cfg.HeartbeatStaleSec)
}

// Summary is the pool-wide view /gpu_status and /workers render.
type Summary struct {
	Workers       []*dispatcher.Worker
	OnlineCount   int
	TotalCapacity int
	TotalActive   int
	QueueDepth    int
}

func (r *Registry) Summary(ctx context.Context) (*Summary, error) {
	workers, err := r.store.ListWorkers(ctx)
	if err != nil {
		return nil, err
	}
	p0, p1, err := r.store.QueueDepths(ctx)
	if err != nil {
		return nil, err
	}
	sum := &Summary{Workers: workers, QueueDepth: p0 + p1}
	for _, w := range workers {
		if !r.IsOnline(w) {
			continue
		}
		sum.OnlineCount++
		sum.TotalCapacity += w.Capacity
		sum.TotalActive += w.Active
	}
	return sum, nil
}
