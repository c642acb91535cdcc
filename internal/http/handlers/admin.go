package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/forgeq/dispatcher/internal/dispatcher"
	"github.com/forgeq/dispatcher/internal/dispatcher/registry"
	"github.com/forgeq/dispatcher/internal/http/response"
	applog "github.com/forgeq/dispatcher/internal/platform/logger"
	"github.com/forgeq/dispatcher/internal/store"
)

// AdminHandler serves the diagnostics surface spec section 6 lists:
// /workers and /metrics (admin-gated) and /wait_time (public).
type AdminHandler struct {
	log             *applog.Logger
	registry        *registry.Registry
	store           store.Store
	leaseTimeoutSec int
}

func NewAdminHandler(log *applog.Logger, reg *registry.Registry, st store.Store, leaseTimeoutSec int) *AdminHandler {
	return &AdminHandler{log: log.With("handler", "AdminHandler"), registry: reg, store: st, leaseTimeoutSec: leaseTimeoutSec}
}

// GET /workers
func (h *AdminHandler) Workers(c *gin.Context) {
	summary, err := h.registry.Summary(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_workers_failed", err)
		return
	}
	type workerView struct {
		*dispatcher.Worker
		Online bool `json:"online"`
	}
	items := make([]workerView, 0, len(summary.Workers))
	for _, w := range summary.Workers {
		items = append(items, workerView{Worker: w, Online: h.registry.IsOnline(w)})
	}
	response.RespondOK(c, gin.H{"items": items})
}

// GET /metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	ctx := c.Request.Context()
	summary, err := h.registry.Summary(ctx)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "metrics_failed", err)
		return
	}
	jobs, err := h.store.ListJobs(ctx, dispatcher.JobFilter{})
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "metrics_failed", err)
		return
	}
	byStatus := map[dispatcher.JobStatus]int{}
	for _, j := range jobs {
		byStatus[j.Status]++
	}
	response.RespondOK(c, gin.H{
		"queue_depth":    summary.QueueDepth,
		"online_workers": summary.OnlineCount,
		"total_workers":  len(summary.Workers),
		"total_capacity": summary.TotalCapacity,
		"total_active":   summary.TotalActive,
		"jobs_total":     len(jobs),
		"jobs_by_status": byStatus,
	})
}

// GET /wait_time estimates how long a newly submitted job would wait,
// given current queue depth and online capacity.
func (h *AdminHandler) WaitTime(c *gin.Context) {
	summary, err := h.registry.Summary(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "wait_time_failed", err)
		return
	}
	freeCapacity := summary.TotalCapacity - summary.TotalActive
	if freeCapacity < 1 {
		freeCapacity = 1
	}
	waitSec := (summary.QueueDepth * h.leaseTimeoutSec) / freeCapacity
	response.RespondOK(c, gin.H{
		"queue_depth":        summary.QueueDepth,
		"estimated_wait_sec": waitSec,
	})
}
