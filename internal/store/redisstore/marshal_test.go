package redisstore

import (
	"fmt"
	"testing"

	"github.com/forgeq/dispatcher/internal/dispatcher"
)

// toStringFields mimics what redis.HGetAll returns: every field value
// coerced to a string, the way Redis itself stores hash fields.
func toStringFields(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}

func TestJobFieldsRoundTrip(t *testing.T) {
	job := &dispatcher.Job{
		ID:           "job-1",
		Status:       dispatcher.JobProcessing,
		InputPath:    "inputs/job-1",
		OutputPath:   "outputs/job-1",
		Filename:     "cat.jpg",
		ClientID:     "client-1",
		RequesterIP:  "1.2.3.4",
		UserAgent:    "curl/8.0",
		CreatedAtMs:  1000,
		StartedAtMs:  2000,
		FinishedAtMs: 0,
		ProcessingMs: 0,
		WorkerID:     "worker-1",
		Retries:      2,
		Error:        "",
		Priority:     true,
	}

	got := fieldsToJob(toStringFields(jobToFields(job)))
	if got == nil {
		t.Fatal("expected non-nil job")
	}
	if *got != *job {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", *got, *job)
	}
}

func TestFieldsToJobEmptyMapIsNil(t *testing.T) {
	if fieldsToJob(map[string]string{}) != nil {
		t.Fatal("expected nil job for empty field map")
	}
}

func TestWorkerFieldsRoundTrip(t *testing.T) {
	w := &dispatcher.Worker{
		ID:          "worker-1",
		Name:        "rig-a",
		PublicURL:   "http://10.0.0.1:9000",
		Capacity:    4,
		Active:      1,
		Tags:        []string{"a100", "us-west"},
		GPU:         map[string]string{"temp_c": "62", "util": "0.8"},
		RemoteIP:    "10.0.0.1",
		FirstSeenMs: 500,
		LastSeenMs:  1500,
	}

	got := fieldsToWorker(toStringFields(workerToFields(w)))
	if got == nil {
		t.Fatal("expected non-nil worker")
	}
	if got.ID != w.ID || got.Name != w.Name || got.PublicURL != w.PublicURL ||
		got.Capacity != w.Capacity || got.Active != w.Active ||
		got.RemoteIP != w.RemoteIP || got.FirstSeenMs != w.FirstSeenMs || got.LastSeenMs != w.LastSeenMs {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", *got, *w)
	}
	if len(got.Tags) != len(w.Tags) || got.Tags[0] != w.Tags[0] || got.Tags[1] != w.Tags[1] {
		t.Fatalf("tags mismatch: got %v want %v", got.Tags, w.Tags)
	}
	if got.GPU["temp_c"] != "62" || got.GPU["util"] != "0.8" {
		t.Fatalf("gpu metrics mismatch: got %v", got.GPU)
	}
}

func TestFieldsToWorkerEmptyMapIsNil(t *testing.T) {
	if fieldsToWorker(map[string]string{}) != nil {
		t.Fatal("expected nil worker for empty field map")
	}
}

func TestBoolStringEncoding(t *testing.T) {
	if boolString(true) != "1" {
		t.Fatalf("expected true to encode as 1, got %q", boolString(true))
	}
	if boolString(false) != "0" {
		t.Fatalf("expected false to encode as 0, got %q", boolString(false))
	}
}
