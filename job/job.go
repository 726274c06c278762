package job

import (
	"time"

	"github.com/xraph/freekiq/id"
)

// State represents the lifecycle state of a job.
type State string

const (
	// StatePending means the job is waiting to be picked up by a worker.
	StatePending State = "pending"
	// StateRunning means a worker is currently executing the job.
	StateRunning State = "running"
	// StateCompleted means the job finished successfully.
	StateCompleted State = "completed"
	// StateFailed means the job failed and will not be retried.
	StateFailed State = "failed"
	// StateRetrying means the job failed but is scheduled for retry.
	StateRetrying State = "retrying"
)

// Job represents a unit of work to be processed by a worker.
type Job struct {
	ID             id.JobID      `json:"id"`
	Name           string        `json:"name"`
	Queue          string        `json:"queue"`
	Payload        []byte        `json:"payload"`
	State          State         `json:"state"`
	Priority       int           `json:"priority"`
	MaxRetries     int           `json:"max_retries"`
	RetryCount     int           `json:"retry_count"`
	FreeRetryCount int           `json:"free_retry_count"`
	LastError      string        `json:"last_error,omitempty"`
	LastErrorClass string        `json:"last_error_class,omitempty"`
	ScopeAppID     string        `json:"scope_app_id,omitempty"`
	ScopeOrgID     string        `json:"scope_org_id,omitempty"`
	WorkerID       id.WorkerID   `json:"worker_id,omitempty"`
	RunAt          time.Time     `json:"run_at"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	HeartbeatAt    *time.Time    `json:"heartbeat_at,omitempty"`
	Timeout        time.Duration `json:"timeout,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// RetryEnabled reports whether failures of this job are retried at all.
func (j *Job) RetryEnabled() bool { return j.MaxRetries > 0 }

// RetryIndex returns the zero-based index of the retry currently executing,
// or nil on the first execution.
func (j *Job) RetryIndex() *int {
	if j.RetryCount <= 0 {
		return nil
	}
	n := j.RetryCount - 1
	return &n
}

// ChargedRetries returns the failures that count against MaxRetries.
func (j *Job) ChargedRetries() int { return j.RetryCount - j.FreeRetryCount }
