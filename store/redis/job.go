package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/freekiq"
	"github.com/xraph/freekiq/id"
	"github.com/xraph/freekiq/job"
)

// EnqueueJob stores the job as a Hash and schedules it on its queue.
func (s *Store) EnqueueJob(ctx context.Context, j *job.Job) error {
	jID := j.ID.String()
	key := jobKey(jID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("freekiq/redis: enqueue check exists: %w", err)
	}
	if exists > 0 {
		return freekiq.ErrJobAlreadyExists
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, jobToMap(j))
	pipe.SAdd(ctx, jobIDsKey, jID)
	pipe.SAdd(ctx, queuesKey, j.Queue)
	pipe.ZAdd(ctx, scheduledKey(j.Queue), goredis.Z{Score: timeScore(j.RunAt), Member: jID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("freekiq/redis: enqueue job: %w", err)
	}
	return nil
}

// DequeueJobs claims up to limit due jobs from queues (every known queue
// when empty) and marks them running. Within a queue, higher priority runs
// first and then earlier RunAt. Each call reads at most promoteBatch
// scheduled entries per queue and only the hashes of the jobs it claims.
func (s *Store) DequeueJobs(ctx context.Context, queues []string, limit int) ([]*job.Job, error) {
	if limit <= 0 {
		return nil, nil
	}
	if len(queues) == 0 {
		known, err := s.client.SMembers(ctx, queuesKey).Result()
		if err != nil {
			return nil, fmt.Errorf("freekiq/redis: dequeue list queues: %w", err)
		}
		queues = known
	}

	now := time.Now().UTC()
	var claimed []*job.Job
	for _, q := range queues {
		remaining := limit - len(claimed)
		if remaining <= 0 {
			break
		}
		ids, err := claimScript.Run(ctx, s.client,
			[]string{scheduledKey(q), queueKey(q), runningKey},
			now.UnixMilli(), now.Format(time.RFC3339Nano), remaining,
			promoteBatch, jobKey(""), maxPriority,
		).StringSlice()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("freekiq/redis: dequeue claim: %w", err)
		}
		for _, jID := range ids {
			j, err := s.getJobByKey(ctx, jobKey(jID))
			if errors.Is(err, freekiq.ErrJobNotFound) {
				s.client.ZRem(ctx, runningKey, jID)
				continue
			}
			if err != nil {
				return nil, err
			}
			claimed = append(claimed, j)
		}
	}
	return claimed, nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	return s.getJobByKey(ctx, jobKey(jobID.String()))
}

// UpdateJob persists changes to an existing job. Pending and retrying jobs
// are (re)scheduled on their queue at RunAt; finished jobs leave every
// queue set.
func (s *Store) UpdateJob(ctx context.Context, j *job.Job) error {
	jID := j.ID.String()
	key := jobKey(jID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("freekiq/redis: update job exists: %w", err)
	}
	if exists == 0 {
		return freekiq.ErrJobNotFound
	}

	fields := jobToMap(j)
	fields["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if j.HeartbeatAt == nil {
		pipe.HDel(ctx, key, "heartbeat_at")
	}
	switch j.State {
	case job.StatePending, job.StateRetrying:
		pipe.SAdd(ctx, queuesKey, j.Queue)
		pipe.ZRem(ctx, queueKey(j.Queue), jID)
		pipe.ZRem(ctx, runningKey, jID)
		pipe.ZAdd(ctx, scheduledKey(j.Queue), goredis.Z{Score: timeScore(j.RunAt), Member: jID})
	case job.StateRunning:
		pipe.ZRem(ctx, scheduledKey(j.Queue), jID)
		pipe.ZRem(ctx, queueKey(j.Queue), jID)
	default:
		pipe.ZRem(ctx, scheduledKey(j.Queue), jID)
		pipe.ZRem(ctx, queueKey(j.Queue), jID)
		pipe.ZRem(ctx, runningKey, jID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("freekiq/redis: update job: %w", err)
	}
	return nil
}

// DeleteJob removes a job by ID.
func (s *Store) DeleteJob(ctx context.Context, jobID id.JobID) error {
	jID := jobID.String()
	key := jobKey(jID)

	q, err := s.client.HGet(ctx, key, "queue").Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return freekiq.ErrJobNotFound
		}
		return fmt.Errorf("freekiq/redis: delete job get queue: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, jobIDsKey, jID)
	pipe.ZRem(ctx, scheduledKey(q), jID)
	pipe.ZRem(ctx, queueKey(q), jID)
	pipe.ZRem(ctx, runningKey, jID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("freekiq/redis: delete job: %w", err)
	}
	return nil
}

// HeartbeatJob refreshes the heartbeat of a running job.
func (s *Store) HeartbeatJob(ctx context.Context, jobID id.JobID, workerID id.WorkerID) error {
	jID := jobID.String()
	key := jobKey(jID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("freekiq/redis: heartbeat exists: %w", err)
	}
	if exists == 0 {
		return freekiq.ErrJobNotFound
	}

	now := time.Now().UTC()
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		"heartbeat_at", now.Format(time.RFC3339Nano),
		"worker_id", workerID.String(),
	)
	pipe.ZAddXX(ctx, runningKey, goredis.Z{Score: timeScore(now), Member: jID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("freekiq/redis: heartbeat job: %w", err)
	}
	return nil
}

// ReapStaleJobs returns running jobs whose last heartbeat is older than
// threshold. Only the running set is scanned.
func (s *Store) ReapStaleJobs(ctx context.Context, threshold time.Duration) ([]*job.Job, error) {
	cutoff := "(" + strconv.FormatFloat(timeScore(time.Now().UTC().Add(-threshold)), 'f', -1, 64)
	ids, err := s.client.ZRangeByScore(ctx, runningKey, &goredis.ZRangeBy{Min: "-inf", Max: cutoff}).Result()
	if err != nil {
		return nil, fmt.Errorf("freekiq/redis: reap range: %w", err)
	}

	var stale []*job.Job
	for _, jID := range ids {
		j, getErr := s.getJobByKey(ctx, jobKey(jID))
		if errors.Is(getErr, freekiq.ErrJobNotFound) {
			s.client.ZRem(ctx, runningKey, jID)
			continue
		}
		if getErr != nil {
			return nil, getErr
		}
		if j.State != job.StateRunning {
			s.client.ZRem(ctx, runningKey, jID)
			continue
		}
		stale = append(stale, j)
	}
	return stale, nil
}

// ListJobsByState returns jobs matching the given state, oldest first.
func (s *Store) ListJobsByState(ctx context.Context, state job.State, opts job.ListOpts) ([]*job.Job, error) {
	ids, err := s.client.SMembers(ctx, jobIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("freekiq/redis: list jobs smembers: %w", err)
	}

	jobs := make([]*job.Job, 0, len(ids))
	for _, jID := range ids {
		j, getErr := s.getJobByKey(ctx, jobKey(jID))
		if getErr != nil {
			s.logger.Debug("redis: skipping unreadable job", slog.String("job_id", jID), slog.String("error", getErr.Error()))
			continue
		}
		if j.State != state {
			continue
		}
		if opts.Queue != "" && j.Queue != opts.Queue {
			continue
		}
		jobs = append(jobs, j)
	}

	sort.Slice(jobs, func(a, b int) bool { return jobs[a].CreatedAt.Before(jobs[b].CreatedAt) })
	return paginate(jobs, opts.Offset, opts.Limit), nil
}

// ── helpers ──

// timeScore maps a time onto a sorted-set score with millisecond precision.
func timeScore(t time.Time) float64 { return float64(t.UnixMilli()) }

func paginate[T any](s []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(s) {
			return nil
		}
		s = s[offset:]
	}
	if limit > 0 && len(s) > limit {
		s = s[:limit]
	}
	return s
}

func jobToMap(j *job.Job) map[string]interface{} {
	m := map[string]interface{}{
		"id":               j.ID.String(),
		"name":             j.Name,
		"queue":            j.Queue,
		"payload":          string(j.Payload),
		"state":            string(j.State),
		"priority":         strconv.Itoa(j.Priority),
		"max_retries":      strconv.Itoa(j.MaxRetries),
		"retry_count":      strconv.Itoa(j.RetryCount),
		"free_retry_count": strconv.Itoa(j.FreeRetryCount),
		"last_error":       j.LastError,
		"last_error_class": j.LastErrorClass,
		"scope_app":        j.ScopeAppID,
		"scope_org":        j.ScopeOrgID,
		"worker_id":        j.WorkerID.String(),
		"run_at":           j.RunAt.Format(time.RFC3339Nano),
		"timeout":          strconv.FormatInt(int64(j.Timeout), 10),
		"created_at":       j.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":       j.UpdatedAt.Format(time.RFC3339Nano),
	}
	if j.StartedAt != nil {
		m["started_at"] = j.StartedAt.Format(time.RFC3339Nano)
	}
	if j.CompletedAt != nil {
		m["completed_at"] = j.CompletedAt.Format(time.RFC3339Nano)
	}
	if j.HeartbeatAt != nil {
		m["heartbeat_at"] = j.HeartbeatAt.Format(time.RFC3339Nano)
	}
	return m
}

func (s *Store) getJobByKey(ctx context.Context, key string) (*job.Job, error) {
	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("freekiq/redis: get job: %w", err)
	}
	if len(vals) == 0 {
		return nil, freekiq.ErrJobNotFound
	}
	return mapToJob(vals)
}

func mapToJob(m map[string]string) (*job.Job, error) {
	jID, err := id.ParseJobID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("freekiq/redis: parse job id: %w", err)
	}

	priority, _ := strconv.Atoi(m["priority"])                    //nolint:errcheck // best-effort parse from trusted Redis data
	maxRetries, _ := strconv.Atoi(m["max_retries"])               //nolint:errcheck // best-effort parse from trusted Redis data
	retryCount, _ := strconv.Atoi(m["retry_count"])               //nolint:errcheck // best-effort parse from trusted Redis data
	freeRetryCount, _ := strconv.Atoi(m["free_retry_count"])      //nolint:errcheck // best-effort parse from trusted Redis data
	timeout, _ := strconv.ParseInt(m["timeout"], 10, 64)          //nolint:errcheck // best-effort parse from trusted Redis data
	runAt, _ := time.Parse(time.RFC3339Nano, m["run_at"])         //nolint:errcheck // best-effort parse from trusted Redis data
	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"]) //nolint:errcheck // best-effort parse from trusted Redis data
	updatedAt, _ := time.Parse(time.RFC3339Nano, m["updated_at"]) //nolint:errcheck // best-effort parse from trusted Redis data

	j := &job.Job{
		ID:             jID,
		Name:           m["name"],
		Queue:          m["queue"],
		Payload:        []byte(m["payload"]),
		State:          job.State(m["state"]),
		Priority:       priority,
		MaxRetries:     maxRetries,
		RetryCount:     retryCount,
		FreeRetryCount: freeRetryCount,
		LastError:      m["last_error"],
		LastErrorClass: m["last_error_class"],
		ScopeAppID:     m["scope_app"],
		ScopeOrgID:     m["scope_org"],
		RunAt:          runAt,
		Timeout:        time.Duration(timeout),
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}

	if wid := m["worker_id"]; wid != "" {
		j.WorkerID, _ = id.ParseWorkerID(wid) //nolint:errcheck // best-effort parse from trusted Redis data
	}
	if v := m["started_at"]; v != "" {
		t, _ := time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
		j.StartedAt = &t
	}
	if v := m["completed_at"]; v != "" {
		t, _ := time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
		j.CompletedAt = &t
	}
	if v := m["heartbeat_at"]; v != "" {
		t, _ := time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
		j.HeartbeatAt = &t
	}
	return j, nil
}
