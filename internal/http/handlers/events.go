package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/forgeq/dispatcher/internal/dispatcher"
	applog "github.com/forgeq/dispatcher/internal/platform/logger"
	"github.com/forgeq/dispatcher/internal/store"
)

// EventsHandler serves the per-job SSE stream (spec section 4.7):
// history tail first, then a live, dedicated pub/sub subscription,
// closing on any terminal event or client disconnect.
type EventsHandler struct {
	log   *applog.Logger
	store store.Store
}

func NewEventsHandler(log *applog.Logger, st store.Store) *EventsHandler {
	return &EventsHandler{log: log.With("handler", "EventsHandler"), store: st}
}

// Stream backs both GET /jobs/{id}/events and GET
// /jobs/{id}/events/stream?token=… — the latter only differs in being
// behind RequireAuth() so the token can travel as a query parameter for
// EventSource clients that can't set an Authorization header.
func (h *EventsHandler) Stream(c *gin.Context) {
	jobID := c.Param("id")
	ctx := c.Request.Context()
	w := c.Writer

	flusher, ok := w.(http.Flusher)
	if !ok {
		c.String(http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	fmt.Fprint(w, "retry: 1000\n\n")
	flusher.Flush()

	history, err := h.store.ReadEvents(ctx, jobID)
	if err != nil {
		h.log.Warn("read event history failed", "job_id", jobID, "error", err)
		return
	}
	for _, ev := range history {
		if !writeEvent(w, ev) {
			return
		}
		flusher.Flush()
		if ev.Type.IsTerminal() {
			return
		}
	}

	sub, err := h.store.Subscribe(ctx, jobID)
	if err != nil {
		h.log.Warn("subscribe to job events failed", "job_id", jobID, "error", err)
		return
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if !writeEvent(w, ev) {
				return
			}
			flusher.Flush()
			if ev.Type.IsTerminal() {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, ev dispatcher.Event) bool {
	raw, err := json.Marshal(ev)
	if err != nil {
		return false
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", raw)
	return err == nil
}
