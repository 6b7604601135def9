package job

import "encoding/json"

// Job is the internal record of one crawl job, stored in redis. Result is
// kept opaque here; the owning service defines its shape.
type Job struct {
	JobID  string          `json:"job_id"`
	Type   Type            `json:"type"`
	Status Status          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
}

type Type string

const (
	TypeCrawl Type = "crawl"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the job can no longer change state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}
