// Package gateway implements the submission gateway (spec section 4.1):
// it sanitizes the upload, persists the input blob, creates the job
// record, indexes it, and enqueues it onto the right priority queue.
package gateway

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/forgeq/dispatcher/internal/blob"
	"github.com/forgeq/dispatcher/internal/dispatcher"
	"github.com/forgeq/dispatcher/internal/normalization"
	"github.com/forgeq/dispatcher/internal/pkg/pointers"
	applog "github.com/forgeq/dispatcher/internal/platform/logger"
	"github.com/forgeq/dispatcher/internal/store"
)

// Config carries the submission-time knobs spec section 6 exposes as
// environment variables.
type Config struct {
	P0Enabled   bool
	PriorityIPs map[string]struct{}
	EventsMax   int
}

type Gateway struct {
	log   *applog.Logger
	store store.Store
	blob  blob.Store
	cfg   Config
}

func New(log *applog.Logger, st store.Store, bs blob.Store, cfg Config) *Gateway {
	return &Gateway{log: log.With("service", "Gateway"), store: st, blob: bs, cfg: cfg}
}

// SubmitInput is everything the HTTP layer extracts from an incoming
// multipart upload before handing it to the gateway.
type SubmitInput struct {
	Body        io.Reader
	ContentType string
	Filename    string
	ClientID    string
	RequesterIP string
	UserAgent   string
}

func (g *Gateway) isPriority(ip string) bool {
	if !g.cfg.P0Enabled || ip == "" {
		return false
	}
	_, ok := g.cfg.PriorityIPs[ip]
	return ok
}

// Submit implements spec section 4.1's contract end to end. The op order
// (write job record, then index, then push queue) matches the fallback
// ordering the spec calls for when the store can't guarantee atomicity
// across the three steps.
func (g *Gateway) Submit(ctx context.Context, in SubmitInput) (*dispatcher.Job, error) {
	if in.Body == nil {
		return nil, fmt.Errorf("missing upload body")
	}
	id, err := dispatcher.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate job id: %w", err)
	}
	safeName := normalization.SanitizeFilename(in.Filename)
	inputKey := blob.InputKey(id, safeName)

	if err := g.blob.Upload(ctx, inputKey, in.ContentType, in.Body); err != nil {
		return nil, fmt.Errorf("upload input blob: %w", err)
	}

	priority := g.isPriority(in.RequesterIP)
	now := time.Now().UnixMilli()
	job := &dispatcher.Job{
		ID:          id,
		Status:      dispatcher.JobQueued,
		InputPath:   inputKey,
		Filename:    safeName,
		ClientID:    in.ClientID,
		RequesterIP: in.RequesterIP,
		UserAgent:   in.UserAgent,
		CreatedAtMs: now,
		Priority:    priority,
	}
	if err := g.store.PutJob(ctx, job); err != nil {
		return nil, fmt.Errorf("write job record: %w", err)
	}

	if err := g.store.IndexAppend(ctx, "idx:global", id); err != nil {
		return nil, fmt.Errorf("index job: %w", err)
	}
	if strings.TrimSpace(in.ClientID) != "" {
		_ = g.store.IndexAppend(ctx, "idx:client:"+in.ClientID, id)
	}
	if strings.TrimSpace(in.RequesterIP) != "" {
		_ = g.store.IndexAppend(ctx, "idx:ip:"+in.RequesterIP, id)
	}

	position, capacity, err := g.estimatePosition(ctx)
	if err != nil {
		g.log.Warn("estimate queue position failed", "job_id", id, "error", err)
	}

	if err := g.store.PushQueue(ctx, priority, id); err != nil {
		return nil, fmt.Errorf("push queue: %w", err)
	}

	_ = g.store.AppendEvent(ctx, id, dispatcher.Event{
		TsMs:     now,
		Type:     dispatcher.EventInfo,
		Message:  "queued",
		Progress: pointers.Int(0),
		Data: map[string]interface{}{
			"queue_position": position + 1,
			"capacity":       capacity,
			"priority":       priority,
		},
	}, g.cfg.EventsMax)

	return job, nil
}

// estimatePosition computes |P0| + |P1| + active, ignoring the
// submitter's own job (which is not yet pushed when this runs).
func (g *Gateway) estimatePosition(ctx context.Context) (position int, capacity int, err error) {
	p0, p1, err := g.store.QueueDepths(ctx)
	if err != nil {
		return 0, 0, err
	}
	workers, err := g.store.ListWorkers(ctx)
	if err != nil {
		return p0 + p1, 0, err
	}
	active := 0
	for _, w := range workers {
		active += w.Active
		capacity += w.Capacity
	}
	return p0 + p1 + active, capacity, nil
}
