package gateway

import (
	"context"
	"strings"
	"testing"

	"github.com/forgeq/dispatcher/internal/blob/blobtest"
	"github.com/forgeq/dispatcher/internal/dispatcher"
	applog "github.com/forgeq/dispatcher/internal/platform/logger"
	"github.com/forgeq/dispatcher/internal/store/storetest"
)

func newTestGateway(t *testing.T, cfg Config) (*Gateway, *storetest.Fake, *blobtest.Fake) {
	t.Helper()
	log, err := applog.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	st := storetest.New()
	bs := blobtest.New()
	return New(log, st, bs, cfg), st, bs
}

func TestSubmitQueuesJobAndEmitsInfoEvent(t *testing.T) {
	gw, st, _ := newTestGateway(t, Config{EventsMax: 200})

	job, err := gw.Submit(context.Background(), SubmitInput{
		Body:        strings.NewReader("hello"),
		ContentType: "image/jpeg",
		Filename:    "cat.jpg",
		ClientID:    "client-1",
		RequesterIP: "9.9.9.9",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != dispatcher.JobQueued {
		t.Fatalf("expected queued status, got %q", job.Status)
	}
	if job.InputPath == "" {
		t.Fatal("expected input path to be set")
	}

	events, err := st.ReadEvents(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(events) != 1 || events[0].Type != dispatcher.EventInfo {
		t.Fatalf("expected one info event, got %+v", events)
	}

	ids, err := st.IndexList(context.Background(), "idx:client:client-1", 0, 0)
	if err != nil {
		t.Fatalf("IndexList: %v", err)
	}
	if len(ids) != 1 || ids[0] != job.ID {
		t.Fatalf("expected job indexed under client id, got %v", ids)
	}
}

func TestSubmitRoutesPriorityIPsToP0(t *testing.T) {
	gw, st, _ := newTestGateway(t, Config{
		P0Enabled:   true,
		PriorityIPs: map[string]struct{}{"1.2.3.4": {}},
		EventsMax:   200,
	})

	job, err := gw.Submit(context.Background(), SubmitInput{
		Body:        strings.NewReader("hello"),
		Filename:    "cat.jpg",
		RequesterIP: "1.2.3.4",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !job.Priority {
		t.Fatal("expected job to be marked priority")
	}
	p0, p1, err := st.QueueDepths(context.Background())
	if err != nil {
		t.Fatalf("QueueDepths: %v", err)
	}
	if p0 != 1 || p1 != 0 {
		t.Fatalf("expected job in P0, got p0=%d p1=%d", p0, p1)
	}
}

func TestSubmitTwiceYieldsDistinctIDs(t *testing.T) {
	gw, _, _ := newTestGateway(t, Config{EventsMax: 200})
	job1, err := gw.Submit(context.Background(), SubmitInput{Body: strings.NewReader("a"), Filename: "a.jpg"})
	if err != nil {
		t.Fatalf("Submit 1: %v", err)
	}
	job2, err := gw.Submit(context.Background(), SubmitInput{Body: strings.NewReader("a"), Filename: "a.jpg"})
	if err != nil {
		t.Fatalf("Submit 2: %v", err)
	}
	if job1.ID == job2.ID {
		t.Fatal("expected distinct job ids for identical uploads")
	}
}

func TestSubmitSanitizesFilename(t *testing.T) {
	gw, _, _ := newTestGateway(t, Config{EventsMax: 200})
	job, err := gw.Submit(context.Background(), SubmitInput{
		Body:     strings.NewReader("x"),
		Filename: "../../etc/passwd",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Filename != "passwd" {
		t.Fatalf("expected sanitized filename, got %q", job.Filename)
	}
}
