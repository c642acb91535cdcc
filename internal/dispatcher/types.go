// Package dispatcher holds the core domain model for the GPU job
// dispatcher: jobs, workers, leases, and the events that describe their
// state transitions.
package dispatcher

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCanceled   JobStatus = "canceled"
	JobTimeout    JobStatus = "timeout"
)

// IsTerminal reports whether a job in this status can ever leave it.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCanceled, JobTimeout:
		return true
	default:
		return false
	}
}

// Job is the authoritative record for one submitted image job.
type Job struct {
	ID           string    `json:"id"`
	Status       JobStatus `json:"status"`
	InputPath    string    `json:"input_path"`
	OutputPath   string    `json:"output_path,omitempty"`
	Filename     string    `json:"filename"`
	ClientID     string    `json:"client_id,omitempty"`
	RequesterIP  string    `json:"requester_ip,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	CreatedAtMs  int64     `json:"created_at_ms"`
	StartedAtMs  int64     `json:"started_at_ms,omitempty"`
	FinishedAtMs int64     `json:"finished_at_ms,omitempty"`
	ProcessingMs int64     `json:"processing_ms,omitempty"`
	WorkerID     string    `json:"worker_id,omitempty"`
	Retries      int       `json:"retries"`
	Error        string    `json:"error,omitempty"`
	Priority     bool      `json:"priority"`
}

// Worker is a registered GPU-hosting process polling for leases.
type Worker struct {
	ID          string            `json:"id"`
	Name        string            `json:"name,omitempty"`
	PublicURL   string            `json:"public_url,omitempty"`
	Capacity    int               `json:"capacity"`
	Active      int               `json:"active"`
	Tags        []string          `json:"tags,omitempty"`
	GPU         map[string]string `json:"gpu,omitempty"`
	RemoteIP    string            `json:"remote_ip,omitempty"`
	FirstSeenMs int64             `json:"first_seen_ts"`
	LastSeenMs  int64             `json:"last_seen_ts"`
}

// Online reports whether the worker has heartbeat within staleSec seconds
// of nowMs.
func (w *Worker) Online(nowMs int64, staleSec int) bool {
	if w == nil {
		return false
	}
	return nowMs-w.LastSeenMs < int64(staleSec)*1000
}

// Lease grants one worker the exclusive right to execute one job until
// DeadlineMs, mirrored with a store-level TTL.
type Lease struct {
	JobID      string `json:"job_id"`
	WorkerID   string `json:"worker_id"`
	DeadlineMs int64  `json:"deadline_ts"`
	Retries    int    `json:"retries"`
}

// EventType enumerates the kinds of events appended to a job's log.
type EventType string

const (
	EventInfo      EventType = "info"
	EventState     EventType = "state"
	EventError     EventType = "error"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	EventTimeout   EventType = "timeout"
	EventCanceled  EventType = "canceled"
)

// IsTerminal reports whether delivering this event type should close an
// SSE stream.
func (t EventType) IsTerminal() bool {
	switch t {
	case EventCompleted, EventFailed, EventTimeout, EventCanceled:
		return true
	default:
		return false
	}
}

// Event is one entry in a job's bounded, rolling log, also broadcast on
// the job's pub/sub channel.
type Event struct {
	TsMs     int64                  `json:"ts"`
	Type     EventType              `json:"type"`
	Message  string                 `json:"message,omitempty"`
	Progress *int                   `json:"progress,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// JobFilter narrows a ListJobs call.
type JobFilter struct {
	Status string
	Query  string
	Limit  int
	Offset int
}
