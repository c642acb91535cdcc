package dispatcher

import "testing"

func TestJobStatusIsTerminal(t *testing.T) {
	terminal := map[JobStatus]bool{
		JobQueued:     false,
		JobProcessing: false,
		JobCompleted:  true,
		JobFailed:     true,
		JobCanceled:   true,
		JobTimeout:    true,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Errorf("JobStatus(%q).IsTerminal() = %v, want %v", status, got, want)
		}
	}
}

func TestEventTypeIsTerminal(t *testing.T) {
	terminal := map[EventType]bool{
		EventInfo:      false,
		EventState:     false,
		EventError:     false,
		EventCompleted: true,
		EventFailed:    true,
		EventTimeout:   true,
		EventCanceled:  true,
	}
	for typ, want := range terminal {
		if got := typ.IsTerminal(); got != want {
			t.Errorf("EventType(%q).IsTerminal() = %v, want %v", typ, got, want)
		}
	}
}

func TestWorkerOnline(t *testing.T) {
	w := &Worker{LastSeenMs: 1000}
	if !w.Online(1000+29000, 30) {
		t.Fatal("expected worker to be online just under the staleness window")
	}
	if w.Online(1000+30000, 30) {
		t.Fatal("expected worker to be stale at exactly the staleness window")
	}
	var nilWorker *Worker
	if nilWorker.Online(1000, 30) {
		t.Fatal("nil worker must never be online")
	}
}
