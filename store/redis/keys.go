package redis

// Redis key naming conventions. All keys are prefixed with "freekiq:" to
// avoid collisions with other data in the same database.

const keyPrefix = "freekiq:"

// ── Job keys ──

// jobKey returns the Hash key for a job: freekiq:job:{id}
func jobKey(id string) string { return keyPrefix + "job:" + id }

// queueKey returns the Sorted Set of ready job IDs for a queue, scored by
// priority then RunAt: freekiq:queue:{name}
func queueKey(name string) string { return keyPrefix + "queue:" + name }

// scheduledKey returns the Sorted Set of not-yet-ready job IDs for a queue,
// scored by RunAt: freekiq:scheduled:{name}
func scheduledKey(name string) string { return keyPrefix + "scheduled:" + name }

// runningKey is the Sorted Set of running job IDs scored by last heartbeat.
const runningKey = keyPrefix + "running"

// queuesKey is the Set of every queue name that has seen a job.
const queuesKey = keyPrefix + "queues"

// jobIDsKey is the Set tracking all job IDs for enumeration.
const jobIDsKey = keyPrefix + "job_ids"

// ── DLQ keys ──

// dlqKey returns the Hash key for a DLQ entry: freekiq:dlq:{id}
func dlqKey(id string) string { return keyPrefix + "dlq:" + id }

// dlqIndexKey is the Sorted Set of DLQ entry IDs scored by FailedAt.
const dlqIndexKey = keyPrefix + "dlq_index"
