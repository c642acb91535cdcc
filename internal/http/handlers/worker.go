package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/forgeq/dispatcher/internal/dispatcher/lease"
	"github.com/forgeq/dispatcher/internal/dispatcher/registry"
	"github.com/forgeq/dispatcher/internal/http/response"
	pkgerrors "github.com/forgeq/dispatcher/internal/pkg/errors"
	"github.com/forgeq/dispatcher/internal/platform/apierr"
	applog "github.com/forgeq/dispatcher/internal/platform/logger"
)

// WorkerHandler serves the pull-pool surface workers call: register,
// heartbeat, lease, result, and error (spec section 4.3, 4.4).
type WorkerHandler struct {
	log      *applog.Logger
	registry *registry.Registry
	lease    *lease.Manager
}

func NewWorkerHandler(log *applog.Logger, reg *registry.Registry, leaseMgr *lease.Manager) *WorkerHandler {
	return &WorkerHandler{log: log.With("handler", "WorkerHandler"), registry: reg, lease: leaseMgr}
}

// POST /worker/register
func (h *WorkerHandler) Register(c *gin.Context) {
	var req struct {
		Name      string            `json:"name"`
		PublicURL string            `json:"public_url"`
		Capacity  int               `json:"capacity"`
		Tags      []string          `json:"tags"`
		GPU       map[string]string `json:"gpu"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	reg, err := h.registry.Register(c.Request.Context(), registry.RegisterInput{
		Name:       req.Name,
		PublicURL:  req.PublicURL,
		Capacity:   req.Capacity,
		Tags:       req.Tags,
		GPU:        req.GPU,
		ObservedIP: c.ClientIP(),
	})
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "register_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"worker_id":              reg.Worker.ID,
		"lease_endpoint":         reg.LeaseEndpoint,
		"result_endpoint":        reg.ResultEndpoint,
		"error_endpoint":         reg.ErrorEndpoint,
		"heartbeat_interval_sec": reg.HeartbeatIntervalSec,
	})
}

// POST /worker/heartbeat
func (h *WorkerHandler) Heartbeat(c *gin.Context) {
	var req struct {
		WorkerID string            `json:"worker_id"`
		Metrics  map[string]string `json:"metrics"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.WorkerID) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.registry.Heartbeat(c.Request.Context(), req.WorkerID, req.Metrics); err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "unknown_worker", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "heartbeat_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /worker/lease. Per spec section 7, this endpoint never returns a
// hard error for "nothing to do" — only malformed requests (bad JSON or
// an empty worker_id) are 4xx; everything else, unknown workers
// included, comes back as {lease:null, wait_sec}.
func (h *WorkerHandler) Lease(c *gin.Context) {
	var req struct {
		WorkerID string            `json:"worker_id"`
		Wants    int               `json:"wants"`
		Active   int               `json:"active"`
		GPU      map[string]string `json:"gpu"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.WorkerID) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	grant, waitSec, err := h.lease.Lease(c.Request.Context(), req.WorkerID, req.Wants, req.Active, req.GPU, c.ClientIP())
	if err != nil {
		// Keep the worker polling instead of surfacing a hard error
		// (spec's propagation policy for the lease endpoint).
		h.log.Warn("lease call failed", "worker_id", req.WorkerID, "error", err)
		if waitSec <= 0 {
			waitSec = 2
		}
		response.RespondOK(c, gin.H{"lease": nil, "wait_sec": waitSec})
		return
	}
	if grant == nil {
		response.RespondOK(c, gin.H{"lease": nil, "wait_sec": waitSec})
		return
	}
	response.RespondOK(c, gin.H{
		"lease": gin.H{
			"job_id":                grant.JobID,
			"filename":              grant.Filename,
			"input_url":             grant.InputURL,
			"deadline_ts":           grant.DeadlineMs,
			"total_job_timeout_sec": grant.TotalJobTimeoutSec,
			"params":                grant.Params,
		},
	})
}

// POST /worker/result, multipart: worker_id, job_id, file.
func (h *WorkerHandler) Result(c *gin.Context) {
	workerID := strings.TrimSpace(c.PostForm("worker_id"))
	jobID := strings.TrimSpace(c.PostForm("job_id"))
	if workerID == "" || jobID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("worker_id and job_id are required"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}
	defer f.Close()

	if err := h.lease.Result(c.Request.Context(), workerID, jobID, f, fileHeader.Header.Get("Content-Type")); err != nil {
		var ae *apierr.Error
		if errors.As(err, &ae) {
			response.RespondError(c, ae.Status, ae.Code, errors.New("invalid lease or worker_id"))
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "result_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /worker/error
func (h *WorkerHandler) Error(c *gin.Context) {
	var req struct {
		WorkerID string `json:"worker_id"`
		JobID    string `json:"job_id"`
		Error    string `json:"error"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.WorkerID == "" || req.JobID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.lease.Error(c.Request.Context(), req.WorkerID, req.JobID, req.Error); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "worker_error_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
