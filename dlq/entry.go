package dlq

import (
	"time"

	"github.com/xraph/freekiq/id"
)

// Entry is a job moved to the dead letter queue.
type Entry struct {
	ID             id.DLQID      `json:"id"`
	JobID          id.JobID      `json:"job_id"`
	JobName        string        `json:"job_name"`
	Queue          string        `json:"queue"`
	Payload        []byte        `json:"payload"`
	Error          string        `json:"error"`
	ErrorClass     string        `json:"error_class,omitempty"`
	RetryCount     int           `json:"retry_count"`
	FreeRetryCount int           `json:"free_retry_count"`
	MaxRetries     int           `json:"max_retries"`
	Priority       int           `json:"priority,omitempty"`
	Timeout        time.Duration `json:"timeout,omitempty"`
	ScopeAppID     string        `json:"scope_app_id,omitempty"`
	ScopeOrgID     string        `json:"scope_org_id,omitempty"`
	FailedAt       time.Time     `json:"failed_at"`
	ReplayedAt     *time.Time    `json:"replayed_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}
