package engine

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/xraph/freekiq"
	"github.com/xraph/freekiq/queue"
)

// Config holds the engine's runtime settings.
//
//	concurrency: 20
//	queues: [default, mailers]
//	poll_interval: 500ms
//	shutdown_timeout: 30s
//	heartbeat_interval: 10s
//	stale_job_threshold: 30s
//	free_retry:
//	  freekiqs: 2
//	  freekiq_for: [net.OpError]
//	queue_limits:
//	  - name: mailers
//	    rate_limit: 50
type Config struct {
	// Concurrency is the maximum number of jobs processed concurrently.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// Queues is the list of queues the pool polls.
	Queues []string `json:"queues" yaml:"queues"`

	// PollInterval is how long an idle worker waits before polling again.
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// ShutdownTimeout bounds Stop when the caller's context has no deadline.
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`

	// HeartbeatInterval is how often running jobs are heartbeated.
	HeartbeatInterval time.Duration `json:"heartbeat_interval" yaml:"heartbeat_interval"`

	// StaleJobThreshold is how old a running job's heartbeat may get before
	// it is requeued.
	StaleJobThreshold time.Duration `json:"stale_job_threshold" yaml:"stale_job_threshold"`

	// FreeRetry holds the engine-wide free-retry defaults.
	FreeRetry freekiq.Config `json:"free_retry" yaml:"free_retry"`

	// QueueLimits configures per-queue rate limits and concurrency caps.
	QueueLimits []queue.Config `json:"queue_limits,omitempty" yaml:"queue_limits,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults. Free retries are
// disabled unless configured.
func DefaultConfig() Config {
	return Config{
		Concurrency:       10,
		Queues:            []string{"default"},
		PollInterval:      time.Second,
		ShutdownTimeout:   30 * time.Second,
		HeartbeatInterval: 10 * time.Second,
		StaleJobThreshold: 30 * time.Second,
	}
}

// LoadConfig decodes a YAML document over DefaultConfig.
func LoadConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("freekiq: load engine config: %w", err)
	}
	return cfg, nil
}
