package model

import "time"

// JobStatus is the lifecycle state of an asynchronous scan.
type JobStatus string

// Scan job states.
const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Finished reports whether the job reached a terminal state.
func (s JobStatus) Finished() bool {
	return s == JobDone || s == JobFailed
}

// ScanJob is a full scan executed off the request path.
type ScanJob struct {
	ID          string      `json:"id"`
	TenantID    string      `json:"tenantId"`
	MinScore    int         `json:"minScore"`
	Status      JobStatus   `json:"status"`
	SubmittedAt time.Time   `json:"submittedAt"`
	StartedAt   *time.Time  `json:"startedAt,omitempty"`
	FinishedAt  *time.Time  `json:"finishedAt,omitempty"`
	Error       string      `json:"error,omitempty"`
	Result      *ScanResult `json:"result,omitempty"`
}
