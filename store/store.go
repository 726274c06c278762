package store

import (
	"context"

	"github.com/xraph/freekiq/dlq"
	"github.com/xraph/freekiq/job"
)

// Store is the aggregate persistence interface. A backend implements every
// subsystem store at once.
type Store interface {
	job.Store
	dlq.Store

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}
