package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/forgeq/dispatcher/internal/dispatcher/registry"
	"github.com/forgeq/dispatcher/internal/http/response"
)

// GPUHandler serves the pool-wide summary spec section 6 names for
// GET /gpu_status — worker counts, capacity, and queue depth, with no
// auth requirement (it's the public "is the pool busy" check).
type GPUHandler struct {
	registry *registry.Registry
}

func NewGPUHandler(reg *registry.Registry) *GPUHandler {
	return &GPUHandler{registry: reg}
}

func (h *GPUHandler) Status(c *gin.Context) {
	summary, err := h.registry.Summary(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "gpu_status_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"online_workers": summary.OnlineCount,
		"total_workers":  len(summary.Workers),
		"total_capacity": summary.TotalCapacity,
		"total_active":   summary.TotalActive,
		"queue_depth":    summary.QueueDepth,
	})
}
