package freekiq

import (
	"fmt"

	"gopkg.in/yaml.v2"
)

// Config is the serialisable engine configuration.
//
//	freekiqs: 2
//	freekiq_for:
//	  - github.com/acme/app/mail.TemporaryError
type Config struct {
	// FreeRetries is the default budget: a count, false, or absent.
	FreeRetries Budget `json:"freekiqs" yaml:"freekiqs"`

	// EligibleErrors lists fully-qualified error type names eligible for
	// free retries. Absent means every error is eligible.
	EligibleErrors []string `json:"freekiq_for,omitempty" yaml:"freekiq_for,omitempty"`
}

// ParseConfig decodes a YAML (or JSON) document into a Config.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("freekiq: parse config: %w", err)
	}
	return cfg, nil
}

// Options converts the config into engine options. Type names become
// [MatchName] matchers.
func (c Config) Options() []Option {
	opts := []Option{WithDefaultBudget(c.FreeRetries)}
	if c.EligibleErrors != nil {
		matchers := make([]ErrorMatcher, 0, len(c.EligibleErrors))
		for _, name := range c.EligibleErrors {
			matchers = append(matchers, MatchName(name))
		}
		opts = append(opts, WithDefaultEligibleErrors(matchers...))
	}
	return opts
}

// FromConfig creates an Engine from cfg, applying extra options afterwards.
func FromConfig(cfg Config, opts ...Option) *Engine {
	return New(append(cfg.Options(), opts...)...)
}
