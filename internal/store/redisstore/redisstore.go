// Package redisstore implements store.Store on top of Redis, exercising
// hashes for job/worker records, lists for the two priority queues and
// the per-job event log, a TTL'd string for each lease, a set for
// lease-tracking, and pub/sub for live event delivery — the exact
// feature set spec section 2 asks of the coordination store.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/forgeq/dispatcher/internal/dispatcher"
	pkgerrors "github.com/forgeq/dispatcher/internal/pkg/errors"
	applog "github.com/forgeq/dispatcher/internal/platform/logger"
	"github.com/forgeq/dispatcher/internal/store"
)

var dispatcherErrNotFound = pkgerrors.ErrNotFound

type Store struct {
	log *applog.Logger
	rdb *goredis.Client
}

// New dials Redis at addr and verifies connectivity.
func New(log *applog.Logger, addr string) (*Store, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{log: log.With("service", "RedisStore"), rdb: rdb}, nil
}

func (s *Store) Close() error { return s.rdb.Close() }

// ---------------- Jobs ----------------

func (s *Store) PutJob(ctx context.Context, job *dispatcher.Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job id required")
	}
	return s.rdb.HSet(ctx, jobKey(job.ID), jobToFields(job)).Err()
}

func (s *Store) PatchJob(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return s.rdb.HSet(ctx, jobKey(id), fields).Err()
}

func (s *Store) GetJob(ctx context.Context, id string) (*dispatcher.Job, error) {
	m, err := s.rdb.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, err
	}
	job := fieldsToJob(m)
	if job == nil {
		return nil, dispatcherErrNotFound
	}
	return job, nil
}

func (s *Store) DeleteJob(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, jobKey(id), eventsKey(id)).Err()
}

func (s *Store) ListJobs(ctx context.Context, filter dispatcher.JobFilter) ([]*dispatcher.Job, error) {
	ids, err := s.IndexList(ctx, "idx:global", 0, 0)
	if err != nil {
		return nil, err
	}
	out := make([]*dispatcher.Job, 0, len(ids))
	for _, id := range ids {
		job, err := s.GetJob(ctx, id)
		if err != nil {
			continue
		}
		if filter.Status != "" && string(job.Status) != filter.Status {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(job.Filename), strings.ToLower(filter.Query)) {
			continue
		}
		out = append(out, job)
	}
	if filter.Offset > 0 && filter.Offset < len(out) {
		out = out[filter.Offset:]
	} else if filter.Offset >= len(out) {
		out = nil
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ---------------- Indexes ----------------

func (s *Store) IndexAppend(ctx context.Context, indexKey, jobID string) error {
	return s.rdb.LPush(ctx, indexKey, jobID).Err()
}

func (s *Store) IndexList(ctx context.Context, indexKey string, limit, offset int) ([]string, error) {
	start := int64(offset)
	stop := int64(-1)
	if limit > 0 {
		stop = start + int64(limit) - 1
	}
	return s.rdb.LRange(ctx, indexKey, start, stop).Result()
}

// ---------------- Priority queue ----------------

func (s *Store) PushQueue(ctx context.Context, priority bool, jobID string) error {
	key := keyQueueP1
	if priority {
		key = keyQueueP0
	}
	return s.rdb.LPush(ctx, key, jobID).Err()
}

func (s *Store) PopQueue(ctx context.Context) (string, bool, error) {
	id, err := s.rdb.RPop(ctx, keyQueueP0).Result()
	if err == nil {
		return id, true, nil
	}
	if err != goredis.Nil {
		return "", false, err
	}
	id, err = s.rdb.RPop(ctx, keyQueueP1).Result()
	if err == nil {
		return id, true, nil
	}
	if err == goredis.Nil {
		return "", false, nil
	}
	return "", false, err
}

func (s *Store) RemoveFromQueue(ctx context.Context, jobID string) error {
	if err := s.rdb.LRem(ctx, keyQueueP0, 0, jobID).Err(); err != nil {
		return err
	}
	return s.rdb.LRem(ctx, keyQueueP1, 0, jobID).Err()
}

func (s *Store) QueueDepths(ctx context.Context) (int, int, error) {
	p0, err := s.rdb.LLen(ctx, keyQueueP0).Result()
	if err != nil {
		return 0, 0, err
	}
	p1, err := s.rdb.LLen(ctx, keyQueueP1).Result()
	if err != nil {
		return 0, 0, err
	}
	return int(p0), int(p1), nil
}

// ---------------- Workers ----------------

func (s *Store) PutWorker(ctx context.Context, w *dispatcher.Worker) error {
	if w == nil || w.ID == "" {
		return fmt.Errorf("worker id required")
	}
	return s.rdb.HSet(ctx, workerKey(w.ID), workerToFields(w)).Err()
}

func (s *Store) PatchWorker(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return s.rdb.HSet(ctx, workerKey(id), fields).Err()
}

func (s *Store) GetWorker(ctx context.Context, id string) (*dispatcher.Worker, error) {
	m, err := s.rdb.HGetAll(ctx, workerKey(id)).Result()
	if err != nil {
		return nil, err
	}
	w := fieldsToWorker(m)
	if w == nil {
		return nil, dispatcherErrNotFound
	}
	return w, nil
}

func (s *Store) ListWorkers(ctx context.Context) ([]*dispatcher.Worker, error) {
	keys, err := s.rdb.Keys(ctx, "worker:*").Result()
	if err != nil {
		return nil, err
	}
	out := make([]*dispatcher.Worker, 0, len(keys))
	for _, k := range keys {
		id := strings.TrimPrefix(k, "worker:")
		w, err := s.GetWorker(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func (s *Store) IncrWorkerActive(ctx context.Context, id string, delta int) error {
	return s.rdb.HIncrBy(ctx, workerKey(id), "active", int64(delta)).Err()
}

// ---------------- Leases ----------------

func (s *Store) AcquireLease(ctx context.Context, jobID string, lease dispatcher.Lease, ttl time.Duration, jobPatch map[string]any) error {
	raw, err := json.Marshal(lease)
	if err != nil {
		return err
	}
	keys := []string{leaseKey(jobID), keyLeaseSet, jobKey(jobID), workerKey(lease.WorkerID)}
	argv := []interface{}{string(raw), int(ttl.Seconds()), jobID}
	for k, v := range jobPatch {
		argv = append(argv, k, v)
	}
	return acquireLeaseScript.Run(ctx, s.rdb, keys, argv...).Err()
}

func (s *Store) ReadLease(ctx context.Context, jobID string) (*dispatcher.Lease, bool, error) {
	raw, err := s.rdb.Get(ctx, leaseKey(jobID)).Result()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var l dispatcher.Lease
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		return nil, false, err
	}
	return &l, true, nil
}

func (s *Store) DeleteLease(ctx context.Context, jobID string) error {
	return s.rdb.Del(ctx, leaseKey(jobID)).Err()
}

func (s *Store) TrackLease(ctx context.Context, jobID string) error {
	return s.rdb.SAdd(ctx, keyLeaseSet, jobID).Err()
}

func (s *Store) UntrackLease(ctx context.Context, jobID string) error {
	return s.rdb.SRem(ctx, keyLeaseSet, jobID).Err()
}

func (s *Store) ListTrackedLeases(ctx context.Context) ([]string, error) {
	return s.rdb.SMembers(ctx, keyLeaseSet).Result()
}

// ---------------- Events ----------------

func (s *Store) AppendEvent(ctx context.Context, jobID string, ev dispatcher.Event, maxLen int) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	key := eventsKey(jobID)
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, key, raw)
	if maxLen > 0 {
		pipe.LTrim(ctx, key, 0, int64(maxLen-1))
	}
	pipe.Publish(ctx, eventsChannel(jobID), raw)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) ReadEvents(ctx context.Context, jobID string) ([]dispatcher.Event, error) {
	raws, err := s.rdb.LRange(ctx, eventsKey(jobID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	// Stored newest-first; callers that render history want oldest-first.
	out := make([]dispatcher.Event, 0, len(raws))
	for i := len(raws) - 1; i >= 0; i-- {
		var ev dispatcher.Event
		if err := json.Unmarshal([]byte(raws[i]), &ev); err != nil {
			s.log.Warn("bad event payload", "job_id", jobID, "error", err)
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

type subscription struct {
	pubsub *goredis.PubSub
	events chan dispatcher.Event
	cancel context.CancelFunc
}

func (sub *subscription) Events() <-chan dispatcher.Event { return sub.events }

func (sub *subscription) Close() error {
	sub.cancel()
	return sub.pubsub.Close()
}

// Subscribe opens a dedicated, exclusive subscription to a job's channel
// (spec section 4.7, section 9) — never a shared fan-out hub.
func (s *Store) Subscribe(ctx context.Context, jobID string) (store.Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	ps := s.rdb.Subscribe(subCtx, eventsChannel(jobID))
	if _, err := ps.Receive(subCtx); err != nil {
		cancel()
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	sub := &subscription{pubsub: ps, events: make(chan dispatcher.Event, 16), cancel: cancel}
	go func() {
		defer close(sub.events)
		ch := ps.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev dispatcher.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					s.log.Warn("bad event payload on channel", "job_id", jobID, "error", err)
					continue
				}
				select {
				case sub.events <- ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()
	return sub, nil
}
