// Package ext defines the extension system.
//
// Extensions are notified of lifecycle events and react to them, for
// example by recording metrics or writing audit logs. Each hook is a
// separate interface so an extension opts in only to what it needs.
//
//	type auditExt struct{}
//
//	func (auditExt) Name() string { return "audit" }
//
//	func (auditExt) OnFreeRetryExhausted(ctx context.Context, meta freekiq.JobMeta) error {
//	    log.Printf("%s %s is out of free retries", meta.Name, meta.ID)
//	    return nil
//	}
//
// # Job hooks
//
//   - [JobEnqueued], [JobStarted], [JobCompleted]
//   - [JobRetrying]: a charged retry was scheduled
//   - [JobFreeRetry]: a free retry was scheduled
//   - [JobFailed], [JobDLQ]: terminal failure
//
// # Free-retry decision hooks
//
//   - [FreeRetryExhausted]: an eligible failure found its budget used up
//   - [FreeRetryCallbackFailed]: the free-retry callback returned an error
//     or panicked
//
// [Registry.Observer] adapts the registry to [freekiq.Observer] so the
// decision engine feeds the second group. Hook errors are logged and never
// propagated.
package ext
