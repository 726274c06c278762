package freekiq

// Policy is the free-retry configuration declared by a job class.
// The zero value declares nothing and defers to the engine defaults.
type Policy struct {
	// Budget is the job-class budget. [Disabled] overrides any default.
	Budget Budget

	// EligibleErrors restricts free retries to matching errors.
	// Nil defers to the engine defaults.
	EligibleErrors Whitelist
}

// Defaults is the engine-wide fallback policy. It is fixed at construction.
type Defaults struct {
	Budget         Budget
	EligibleErrors Whitelist
}

// EffectivePolicy is the outcome of merging a job-class Policy over Defaults.
type EffectivePolicy struct {
	// Budget is either a count or Disabled; never unset.
	Budget Budget

	// EligibleErrors is nil when every error is eligible.
	EligibleErrors Whitelist
}

// Resolve merges the job-class policy over the defaults.
//
// Budget: job-class Disabled wins, then a job-class count, then the default
// budget, and finally Disabled when nothing is configured. Whitelist: a
// declared job-class whitelist wins (even an empty one), then the default,
// and finally no whitelist at all.
func Resolve(p Policy, d Defaults) EffectivePolicy {
	eff := EffectivePolicy{Budget: Disabled}

	switch {
	case p.Budget.IsDisabled():
	case p.Budget.IsSet():
		eff.Budget = p.Budget
	case d.Budget.IsSet():
		eff.Budget = d.Budget
	}

	eff.EligibleErrors = p.EligibleErrors
	if !eff.EligibleErrors.Declared() {
		eff.EligibleErrors = d.EligibleErrors
	}

	return eff
}
