// Package dlq provides the dead letter queue for jobs that have used up
// their charged retries.
//
// When a job fails with a non-free error and its charged retries
// (RetryCount - FreeRetryCount) exceed MaxRetries, the executor calls
// [Service.Push]. The entry keeps the payload, the final error and its
// fully-qualified error class, and both retry counters, so an operator can
// see how many of the attempts were free.
//
//	svc := dlq.NewService(store, store)
//	svc.Push(ctx, failedJob, err)
//	entries, _ := svc.DLQStore().ListDLQ(ctx, dlq.ListOpts{ErrorClass: "net.OpError"})
//	j, _ := svc.Replay(ctx, entries[0].ID)
//
// Replay re-enqueues the payload as a fresh job with zeroed counters, so the
// replayed job gets its free-retry budget again.
package dlq
