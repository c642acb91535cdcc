package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/forgeq/dispatcher/internal/blob"
	"github.com/forgeq/dispatcher/internal/http/response"
	applog "github.com/forgeq/dispatcher/internal/platform/logger"
	"github.com/forgeq/dispatcher/internal/store"
)

// MyHandler serves the client-scoped surface a submitter can reach
// without an admin token (spec section 6): their own job list and
// signed-URL lookups gated by ownership rather than the bearer token.
type MyHandler struct {
	log   *applog.Logger
	store store.Store
	blob  blob.Store
}

func NewMyHandler(log *applog.Logger, st store.Store, bs blob.Store) *MyHandler {
	return &MyHandler{log: log.With("handler", "MyHandler"), store: st, blob: bs}
}

func clientIDFromRequest(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader("X-Client-Id")); id != "" {
		return id
	}
	if cookie, err := c.Cookie("client_id"); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

// GET /my/jobs
func (h *MyHandler) Jobs(c *gin.Context) {
	clientID := clientIDFromRequest(c)
	if clientID == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_client_id", nil)
		return
	}
	ids, err := h.store.IndexList(c.Request.Context(), "idx:client:"+clientID, 0, 0)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_jobs_failed", err)
		return
	}
	items := make([]any, 0, len(ids))
	for _, id := range ids {
		job, err := h.store.GetJob(c.Request.Context(), id)
		if err != nil {
			continue
		}
		items = append(items, job)
	}
	response.RespondOK(c, gin.H{"items": items})
}

// GET /my/signed_url?job_id=&kind=
func (h *MyHandler) SignedURL(c *gin.Context) {
	clientID := clientIDFromRequest(c)
	if clientID == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_client_id", nil)
		return
	}
	jobID := strings.TrimSpace(c.Query("job_id"))
	kind := strings.TrimSpace(c.Query("kind"))
	if jobID == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_job_id", nil)
		return
	}
	job, err := h.store.GetJob(c.Request.Context(), jobID)
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "job_not_found", err)
		return
	}
	if job.ClientID == "" || job.ClientID != clientID {
		response.RespondError(c, http.StatusForbidden, "not_owner", nil)
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
