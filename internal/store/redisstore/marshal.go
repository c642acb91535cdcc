package redisstore

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/forgeq/dispatcher/internal/dispatcher"
)

func jobToFields(j *dispatcher.Job) map[string]any {
	return map[string]any{
		"id":             j.ID,
		"status":         string(j.Status),
		"input_path":     j.InputPath,
		"output_path":    j.OutputPath,
		"filename":       j.Filename,
		"client_id":      j.ClientID,
		"requester_ip":   j.RequesterIP,
		"user_agent":     j.UserAgent,
		"created_at_ms":  j.CreatedAtMs,
		"started_at_ms":  j.StartedAtMs,
		"finished_at_ms": j.FinishedAtMs,
		"processing_ms":  j.ProcessingMs,
		"worker_id":      j.WorkerID,
		"retries":        j.Retries,
		"error":          j.Error,
		"priority":       boolString(j.Priority),
	}
}

func fieldsToJob(m map[string]string) *dispatcher.Job {
	if len(m) == 0 {
		return nil
	}
	return &dispatcher.Job{
		ID:           m["id"],
		Status:       dispatcher.JobStatus(m["status"]),
		InputPath:    m["input_path"],
		OutputPath:   m["output_path"],
		Filename:     m["filename"],
		ClientID:     m["client_id"],
		RequesterIP:  m["requester_ip"],
		UserAgent:    m["user_agent"],
		CreatedAtMs:  int64OrZero(m["created_at_ms"]),
		StartedAtMs:  int64OrZero(m["started_at_ms"]),
		FinishedAtMs: int64OrZero(m["finished_at_ms"]),
		ProcessingMs: int64OrZero(m["processing_ms"]),
		WorkerID:     m["worker_id"],
		Retries:      intOrZero(m["retries"]),
		Error:        m["error"],
		Priority:     m["priority"] == "1",
	}
}

func workerToFields(w *dispatcher.Worker) map[string]any {
	gpu, _ := json.Marshal(w.GPU)
	return map[string]any{
		"id":            w.ID,
		"name":          w.Name,
		"public_url":    w.PublicURL,
		"capacity":      w.Capacity,
		"active":        w.Active,
		"remote_ip":     w.RemoteIP,
		"first_seen_ts": w.FirstSeenMs,
		"last_seen_ts":  w.LastSeenMs,
		"tags":          strings.Join(w.Tags, ","),
		"gpu":           string(gpu),
	}
}

func fieldsToWorker(m map[string]string) *dispatcher.Worker {
	if len(m) == 0 {
		return nil
	}
	var tags []string
	if raw := strings.TrimSpace(m["tags"]); raw != "" {
		tags = strings.Split(raw, ",")
	}
	var gpu map[string]string
	if raw := m["gpu"]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &gpu)
	}
	return &dispatcher.Worker{
		ID:          m["id"],
		Name:        m["name"],
		PublicURL:   m["public_url"],
		Capacity:    intOrZero(m["capacity"]),
		Active:      intOrZero(m["active"]),
		RemoteIP:    m["remote_ip"],
		FirstSeenMs: int64OrZero(m["first_seen_ts"]),
		LastSeenMs:  int64OrZero(m["last_seen_ts"]),
		Tags:        tags,
		GPU:         gpu,
	}
}

func boolString(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func int64OrZero(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func intOrZero(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
