// Package engine wires the freekiq subsystems together and provides the
// application-level API for registering and enqueuing jobs.
//
// The root freekiq package holds only the free-retry decision engine, so it
// cannot import the job, worker or store packages. Engine sits above all of
// them and below the application layer.
//
// # Building an Engine
//
//	eng, err := engine.New(memory.New(),
//	    engine.WithConcurrency(20),
//	    engine.WithDefaultFreeRetries(2),
//	    engine.WithFreeRetryFor(freekiq.MatchType[*net.OpError]()),
//	    engine.WithFreeRetryCallback(func(ctx context.Context, m freekiq.JobMeta) error {
//	        slog.InfoContext(ctx, "free retry", "job", m.Name)
//	        return nil
//	    }),
//	)
//
// # Registering and enqueuing
//
//	engine.Register(eng, job.NewDefinition("sync-account", syncAccount,
//	    job.WithFreeRetries(3),
//	    job.WithMaxRetries(5),
//	))
//	j, err := engine.Enqueue(ctx, eng, "sync-account", SyncInput{ID: 42})
//
// # Lifecycle
//
//	eng.Start(ctx)
//	defer eng.Stop(ctx)
//
// A failure inside the free-retry budget is rescheduled without consuming
// MaxRetries and is reported as a free retry by the logging, tracing and
// metrics middleware and by the JobFreeRetry extension hook.
package engine
