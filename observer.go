package freekiq

import (
	"context"
	"log/slog"
)

// Observer receives the engine's diagnostic events. Calls are fire and
// forget; implementations must not block the job for long.
type Observer interface {
	// OnFreeRetry is called when a failure is translated into a free retry.
	OnFreeRetry(ctx context.Context, meta JobMeta)

	// OnBudgetExhausted is called when an eligible failure has used up its
	// budget and the original error is let through.
	OnBudgetExhausted(ctx context.Context, meta JobMeta)

	// OnCallbackFailed is called when the callback returned an error or
	// panicked. The free retry is granted regardless.
	OnCallbackFailed(ctx context.Context, meta JobMeta, err error)
}

// Observers fans events out to every observer in order. Nil entries are
// skipped.
func Observers(obs ...Observer) Observer {
	list := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) OnFreeRetry(ctx context.Context, meta JobMeta) {
	for _, o := range m {
		o.OnFreeRetry(ctx, meta)
	}
}

func (m multiObserver) OnBudgetExhausted(ctx context.Context, meta JobMeta) {
	for _, o := range m {
		o.OnBudgetExhausted(ctx, meta)
	}
}

func (m multiObserver) OnCallbackFailed(ctx context.Context, meta JobMeta, err error) {
	for _, o := range m {
		o.OnCallbackFailed(ctx, meta, err)
	}
}

// LogObserver reports engine events to a structured logger.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates a LogObserver. A nil logger uses slog.Default().
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

// OnFreeRetry logs at debug level.
func (l *LogObserver) OnFreeRetry(ctx context.Context, meta JobMeta) {
	l.logger.DebugContext(ctx, "free retry granted", metaAttrs(meta)...)
}

// OnBudgetExhausted logs at info level.
func (l *LogObserver) OnBudgetExhausted(ctx context.Context, meta JobMeta) {
	l.logger.InfoContext(ctx, "out of free retries", metaAttrs(meta)...)
}

// OnCallbackFailed logs at warn level.
func (l *LogObserver) OnCallbackFailed(ctx context.Context, meta JobMeta, err error) {
	attrs := append(metaAttrs(meta), slog.String("callback_error", err.Error()))
	l.logger.WarnContext(ctx, "free retry callback failed", attrs...)
}

func metaAttrs(meta JobMeta) []any {
	attrs := []any{
		slog.String("job_name", meta.Name),
		slog.String("job_id", meta.ID),
		slog.String("queue", meta.Queue),
	}
	if meta.RetryCount != nil {
		attrs = append(attrs, slog.Int("retry_count", *meta.RetryCount))
	}
	if meta.Err != nil {
		attrs = append(attrs,
			slog.String("error_class", TypeName(meta.Err)),
			slog.String("error", meta.Err.Error()),
		)
	}
	return attrs
}
