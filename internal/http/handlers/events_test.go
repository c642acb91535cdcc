package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/forgeq/dispatcher/internal/dispatcher"
	"github.com/forgeq/dispatcher/internal/pkg/pointers"
	"github.com/forgeq/dispatcher/internal/store/storetest"
)

func TestStreamReplaysHistoryAndClosesOnTerminalEvent(t *testing.T) {
	st := storetest.New()
	h := NewEventsHandler(newTestLogger(t), st)
	ctx := context.Background()

	if err := st.AppendEvent(ctx, "job-1", dispatcher.Event{TsMs: 1, Type: dispatcher.EventInfo, Message: "queued"}, 50); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if err := st.AppendEvent(ctx, "job-1", dispatcher.Event{TsMs: 2, Type: dispatcher.EventCompleted, Message: "completed", Progress: pointers.Int(100)}, 50); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/jobs/job-1/events", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}

	h.Stream(c)

	body := rec.Body.String()
	if !strings.HasPrefix(body, "retry: 1000\n\n") {
		t.Fatalf("expected retry hint first, got %q", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	queuedAt := strings.Index(body, `"queued"`)
	completedAt := strings.Index(body, `"completed"`)
	if queuedAt < 0 || completedAt < 0 || queuedAt > completedAt {
		t.Fatalf("expected history oldest-first ending with the terminal event, got %q", body)
	}
	if strings.Count(body, "data: ") != 2 {
		t.Fatalf("expected exactly two frames, got %q", body)
	}
}

func TestStreamForwardsLiveEventsAfterHistory(t *testing.T) {
	st := storetest.New()
	h := NewEventsHandler(newTestLogger(t), st)
	ctx := context.Background()

	if err := st.AppendEvent(ctx, "job-1", dispatcher.Event{TsMs: 1, Type: dispatcher.EventInfo, Message: "queued"}, 50); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/jobs/job-1/events", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Stream(c)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for st.Subscribers("job-1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("handler never subscribed to the job channel")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := st.AppendEvent(ctx, "job-1", dispatcher.Event{TsMs: 2, Type: dispatcher.EventCompleted, Message: "completed"}, 50); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close on the terminal event")
	}

	body := rec.Body.String()
	if strings.Count(body, `"queued"`) != 1 {
		t.Fatalf("expected the history event exactly once, got %q", body)
	}
	if !strings.Contains(body, `"completed"`) {
		t.Fatalf("expected the live terminal event forwarded, got %q", body)
	}
}
