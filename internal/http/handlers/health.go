package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/forgeq/dispatcher/internal/http/response"
)

// HealthHandler serves the two liveness probes spec section 6 lists:
// /health for orchestrators, /ping for a trivial round-trip check.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	response.RespondOK(c, gin.H{"ok": true, "status": "alive"})
}

func (h *HealthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pong": true, "ts": time.Now().UnixMilli()})
}
