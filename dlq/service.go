package dlq

import (
	"context"
	"time"

	"github.com/xraph/freekiq"
	"github.com/xraph/freekiq/id"
	"github.com/xraph/freekiq/job"
)

// Service provides high-level DLQ operations over a Store.
type Service struct {
	store    Store
	jobStore job.Store
}

// NewService creates a DLQ service.
func NewService(store Store, jobStore job.Store) *Service {
	return &Service{store: store, jobStore: jobStore}
}

// Push builds an Entry from a failed job and persists it.
func (s *Service) Push(ctx context.Context, j *job.Job, jobErr error) error {
	now := time.Now().UTC()
	entry := &Entry{
		ID:             id.NewDLQID(),
		JobID:          j.ID,
		JobName:        j.Name,
		Queue:          j.Queue,
		Payload:        j.Payload,
		Error:          jobErr.Error(),
		ErrorClass:     freekiq.TypeName(jobErr),
		RetryCount:     j.RetryCount,
		FreeRetryCount: j.FreeRetryCount,
		MaxRetries:     j.MaxRetries,
		Priority:       j.Priority,
		Timeout:        j.Timeout,
		ScopeAppID:     j.ScopeAppID,
		ScopeOrgID:     j.ScopeOrgID,
		FailedAt:       now,
		CreatedAt:      now,
	}
	return s.store.PushDLQ(ctx, entry)
}

// Replay re-enqueues an entry as a new pending job and marks the entry as
// replayed. The job is enqueued even when marking fails; the marking error
// is returned alongside it.
func (s *Service) Replay(ctx context.Context, entryID id.DLQID) (*job.Job, error) {
	entry, err := s.store.GetDLQ(ctx, entryID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	j := &job.Job{
		ID:         id.NewJobID(),
		Name:       entry.JobName,
		Queue:      entry.Queue,
		Payload:    entry.Payload,
		State:      job.StatePending,
		MaxRetries: entry.MaxRetries,
		Priority:   entry.Priority,
		Timeout:    entry.Timeout,
		ScopeAppID: entry.ScopeAppID,
		ScopeOrgID: entry.ScopeOrgID,
		RunAt:      now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.jobStore.EnqueueJob(ctx, j); err != nil {
		return nil, err
	}
	if err := s.store.ReplayDLQ(ctx, entryID); err != nil {
		return j, err
	}
	return j, nil
}

// DLQStore returns the underlying store for list, get, purge and count.
func (s *Service) DLQStore() Store {
	return s.store
}
