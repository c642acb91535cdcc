package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/forgeq/dispatcher/internal/blob"
	"github.com/forgeq/dispatcher/internal/dispatcher"
	"github.com/forgeq/dispatcher/internal/dispatcher/gateway"
	"github.com/forgeq/dispatcher/internal/http/response"
	"github.com/forgeq/dispatcher/internal/normalization"
	pkgerrors "github.com/forgeq/dispatcher/internal/pkg/errors"
	applog "github.com/forgeq/dispatcher/internal/platform/logger"
	"github.com/forgeq/dispatcher/internal/store"
)

// JobsHandler serves submission and the admin job-management surface
// (spec section 6): POST /jobs (and its /swap alias), and the
// list/detail/signed_url/cancel/retry/delete admin routes.
type JobsHandler struct {
	log       *applog.Logger
	gateway   *gateway.Gateway
	store     store.Store
	blob      blob.Store
	eventsMax int
}

func NewJobsHandler(log *applog.Logger, gw *gateway.Gateway, st store.Store, bs blob.Store, eventsMax int) *JobsHandler {
	return &JobsHandler{log: log.With("handler", "JobsHandler"), gateway: gw, store: st, blob: bs, eventsMax: eventsMax}
}

// POST /jobs, POST /swap
func (h *JobsHandler) Submit(c *gin.Context) {
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

	job, err := h.gateway.Submit(c.Request.Context(), gateway.SubmitInput{
		Body:        f,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Filename:    fileHeader.Filename,
		ClientID:    strings.TrimSpace(c.PostForm("client_id")),
		RequesterIP: c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	})
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "submit_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": job.ID, "status": string(job.Status)})
}

// GET /jobs?status=&q=&limit=&offset=
func (h *JobsHandler) List(c *gin.Context) {
	filter := dispatcher.JobFilter{
		Status: normalization.ParseInputString(c.Query("status")),
		Query:  normalization.ParseInputString(c.Query("q")),
		Limit:  atoiDefault(c.Query("limit"), 0),
		Offset: atoiDefault(c.Query("offset"), 0),
	}
	jobs, err := h.store.ListJobs(c.Request.Context(), filter)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_jobs_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"items": jobs})
}

// GET /jobs/{id}
func (h *JobsHandler) Get(c *gin.Context) {
	id := c.Param("id")
	job, err := h.store.GetJob(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "job_not_found", err)
		return
	}
	events, err := h.store.ReadEvents(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "read_events_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"job": job, "events": events})
}

// GET /jobs/{id}/signed_url?kind=input|output
func (h *JobsHandler) SignedURL(c *gin.Context) {
	id := c.Param("id")
	kind := strings.TrimSpace(c.Query("kind"))
	job, err := h.store.GetJob(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "job_not_found", err)
		return
	}
	key, ttl, err := signingTargetFor(job, kind)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_kind", err)
		return
	}
	url, err := h.blob.SignedURL(c.Request.Context(), key, ttl)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "sign_url_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"url": url})
}

func signingTargetFor(job *dispatcher.Job, kind string) (key string, ttl time.Duration, err error) {
	switch kind {
	case "input":
		if job.InputPath == "" {
			return "", 0, errors.New("job has no input")
		}
		return job.InputPath, time.Hour, nil
	case "output":
		if job.OutputPath == "" {
			return "", 0, errors.New("job has no output yet")
		}
		return job.OutputPath, 24 * time.Hour, nil
	default:
		return "", 0, errors.New("kind must be input or output")
	}
}

// POST /jobs/{id}/cancel
func (h *JobsHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()
	job, err := h.store.GetJob(ctx, id)
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "job_not_found", err)
		return
	}
	if job.Status.IsTerminal() {
		response.RespondOK(c, gin.H{"ok": true})
		return
	}
	if err := h.store.RemoveFromQueue(ctx, id); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "cancel_failed", err)
		return
	}
	// Drop any live lease so the holding worker's eventual result call
	// fails validation instead of resurrecting a canceled job.
	if job.Status == dispatcher.JobProcessing {
		_ = h.store.DeleteLease(ctx, id)
		_ = h.store.UntrackLease(ctx, id)
		if job.WorkerID != "" {
			_ = h.store.IncrWorkerActive(ctx, job.WorkerID, -1)
		}
	}
	if err := h.store.PatchJob(ctx, id, map[string]any{
		"status":         string(dispatcher.JobCanceled),
		"finished_at_ms": time.Now().UnixMilli(),
	}); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "cancel_failed", err)
		return
	}
	_ = h.store.AppendEvent(ctx, id, dispatcher.Event{
		TsMs: time.Now().UnixMilli(), Type: dispatcher.EventCanceled, Message: "canceled",
	}, h.eventsMax)
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /jobs/{id}/retry clones the job's input blob under a new job id
// and re-queues it (spec section 6: terminal states are absorbing, so
// retry always produces a new job id rather than reopening the old one).
func (h *JobsHandler) Retry(c *gin.Context) {
	ctx := c.Request.Context()
	oldID := c.Param("id")
	job, err := h.store.GetJob(ctx, oldID)
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "job_not_found", err)
		return
	}
	if job.InputPath == "" {
		response.RespondError(c, http.StatusBadRequest, "no_input_to_retry", pkgerrors.ErrInvalidArgument)
		return
	}
	reader, err := h.blob.Download(ctx, job.InputPath)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "clone_input_failed", err)
		return
	}
	defer reader.Close()

	newJob, err := h.gateway.Submit(ctx, gateway.SubmitInput{
		Body:        reader,
		ContentType: "",
		Filename:    job.Filename,
		ClientID:    job.ClientID,
		RequesterIP: job.RequesterIP,
		UserAgent:   job.UserAgent,
	})
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "retry_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"new_job_id": newJob.ID})
}

// DELETE /jobs/{id}
func (h *JobsHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	job, err := h.store.GetJob(ctx, id)
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "job_not_found", err)
		return
	}
	if job.InputPath != "" {
		_ = h.blob.Delete(ctx, job.InputPath)
	}
	if job.OutputPath != "" {
		_ = h.blob.Delete(ctx, job.OutputPath)
	}
	_ = h.store.RemoveFromQueue(ctx, id)
	_ = h.store.DeleteLease(ctx, id)
	_ = h.store.UntrackLease(ctx, id)
	if err := h.store.DeleteJob(ctx, id); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "delete_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func atoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
