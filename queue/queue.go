package queue

import (
	"sync"

	"golang.org/x/time/rate"
)

// Config defines per-queue rate limiting and concurrency.
type Config struct {
	// Name is the queue identifier (matches job.Queue).
	Name string `json:"name" yaml:"name"`

	// MaxConcurrency limits how many jobs from this queue run at once in
	// the local pool. Zero means no queue-specific limit.
	MaxConcurrency int `json:"max_concurrency,omitempty" yaml:"max_concurrency,omitempty"`

	// RateLimit is the sustained jobs per second. Zero disables limiting.
	RateLimit float64 `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`

	// RateBurst is the token-bucket burst. Defaults to 1 when RateLimit is
	// set.
	RateBurst int `json:"rate_burst,omitempty" yaml:"rate_burst,omitempty"`
}

type state struct {
	cfg     Config
	limiter *rate.Limiter
	active  int
}

func newState(cfg Config) *state {
	s := &state{cfg: cfg}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return s
}

// Manager controls per-queue rate limits and concurrency. It is safe for
// concurrent use.
type Manager struct {
	mu     sync.Mutex
	queues map[string]*state
}

// NewManager creates a Manager. Queues not listed have no limits.
func NewManager(configs ...Config) *Manager {
	m := &Manager{queues: make(map[string]*state, len(configs))}
	for _, cfg := range configs {
		m.queues[cfg.Name] = newState(cfg)
	}
	return m
}

// Acquire reports whether a job from queue may run now. On true the caller
// must call Release when the job finishes. A false return does not consume
// a concurrency slot.
func (m *Manager) Acquire(queue string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.queues[queue]
	if s == nil {
		return true
	}
	if s.cfg.MaxConcurrency > 0 && s.active >= s.cfg.MaxConcurrency {
		return false
	}
	if s.limiter != nil && !s.limiter.Allow() {
		return false
	}
	s.active++
	return true
}

// Release frees the slot taken by a successful Acquire.
func (m *Manager) Release(queue string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.queues[queue]; s != nil && s.active > 0 {
		s.active--
	}
}

// SetQueueConfig replaces (or creates) a queue's configuration, keeping
// the current active count.
func (m *Manager) SetQueueConfig(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := newState(cfg)
	if old := m.queues[cfg.Name]; old != nil {
		s.active = old.active
	}
	m.queues[cfg.Name] = s
}

// ActiveCount returns the number of running jobs for a queue.
func (m *Manager) ActiveCount(queue string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.queues[queue]; s != nil {
		return s.active
	}
	return 0
}
