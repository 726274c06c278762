package freekiq_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/xraph/freekiq"
)

func assertFreeRetries(t *testing.T, errs []error, original error, free int) {
	t.Helper()
	for i, err := range errs {
		if i < free {
			var fe *freekiq.FreekiqError
			if !errors.As(err, &fe) {
				t.Fatalf("attempt %d: expected *FreekiqError, got %T (%v)", i, err, err)
			}
			if !errors.Is(err, freekiq.ErrFreekiq) {
				t.Errorf("attempt %d: expected errors.Is ErrFreekiq", i)
			}
			if fe.Message != original.Error() {
				t.Errorf("attempt %d: message = %q, want %q", i, fe.Message, original.Error())
			}
			continue
		}
		if err != original {
			t.Errorf("attempt %d: expected the original error, got %T (%v)", i, err, err)
		}
	}
}

func TestEngine_Scenarios(t *testing.T) {
	argumentMatcher := freekiq.MatchType[*argumentError]()
	nonArgumentMatcher := freekiq.MatchType[*nonArgumentError]()

	tests := []struct {
		name     string
		opts     []freekiq.Option
		policy   freekiq.Policy
		wantFree int
	}{
		{
			name:     "nothing enabled",
			wantFree: 0,
		},
		{
			name:     "disabled in job class",
			policy:   freekiq.Policy{Budget: freekiq.Disabled},
			wantFree: 0,
		},
		{
			name:     "two in job class",
			policy:   freekiq.Policy{Budget: freekiq.Limit(2)},
			wantFree: 2,
		},
		{
			name:     "two in job class with matching whitelist",
			policy:   freekiq.Policy{Budget: freekiq.Limit(2), EligibleErrors: freekiq.Only(argumentMatcher)},
			wantFree: 2,
		},
		{
			name:     "whitelist without budget",
			policy:   freekiq.Policy{Budget: freekiq.Disabled, EligibleErrors: freekiq.Only(argumentMatcher)},
			wantFree: 0,
		},
		{
			name:     "two in job class with non-matching whitelist",
			policy:   freekiq.Policy{Budget: freekiq.Limit(2), EligibleErrors: freekiq.Only(nonArgumentMatcher)},
			wantFree: 0,
		},
		{
			name:     "whitelist by exact name",
			policy:   freekiq.Policy{Budget: freekiq.Limit(2), EligibleErrors: freekiq.Only(freekiq.MatchName(argumentErrorName))},
			wantFree: 2,
		},
		{
			name:     "whitelist by interface the error implements",
			policy:   freekiq.Policy{Budget: freekiq.Limit(2), EligibleErrors: freekiq.Only(freekiq.MatchType[standardError]())},
			wantFree: 2,
		},
		{
			name:     "default budget",
			opts:     []freekiq.Option{freekiq.WithDefaultBudget(freekiq.Limit(2))},
			wantFree: 2,
		},
		{
			name:     "default budget with job-class whitelist",
			opts:     []freekiq.Option{freekiq.WithDefaultBudget(freekiq.Limit(2))},
			policy:   freekiq.Policy{EligibleErrors: freekiq.Only(argumentMatcher)},
			wantFree: 2,
		},
		{
			name:     "default budget overridden by job-class disable",
			opts:     []freekiq.Option{freekiq.WithDefaultBudget(freekiq.Limit(2))},
			policy:   freekiq.Policy{Budget: freekiq.Disabled},
			wantFree: 0,
		},
		{
			name:     "default whitelist matches",
			opts:     []freekiq.Option{freekiq.WithDefaultEligibleErrors(argumentMatcher)},
			policy:   freekiq.Policy{Budget: freekiq.Limit(2)},
			wantFree: 2,
		},
		{
			name:     "default whitelist overridden by non-matching job-class whitelist",
			opts:     []freekiq.Option{freekiq.WithDefaultEligibleErrors(argumentMatcher)},
			policy:   freekiq.Policy{Budget: freekiq.Limit(2), EligibleErrors: freekiq.Only(nonArgumentMatcher)},
			wantFree: 0,
		},
		{
			name:     "default whitelist does not match",
			opts:     []freekiq.Option{freekiq.WithDefaultEligibleErrors(nonArgumentMatcher)},
			policy:   freekiq.Policy{Budget: freekiq.Limit(2)},
			wantFree: 0,
		},
		{
			name:     "non-matching default whitelist overridden by job class",
			opts:     []freekiq.Option{freekiq.WithDefaultEligibleErrors(nonArgumentMatcher)},
			policy:   freekiq.Policy{Budget: freekiq.Limit(2), EligibleErrors: freekiq.Only(argumentMatcher)},
			wantFree: 2,
		},
		{
			name: "default budget and whitelist",
			opts: []freekiq.Option{
				freekiq.WithDefaultBudget(freekiq.Limit(2)),
				freekiq.WithDefaultEligibleErrors(argumentMatcher),
			},
			wantFree: 2,
		},
		{
			name:     "empty job-class whitelist",
			policy:   freekiq.Policy{Budget: freekiq.Limit(2), EligibleErrors: freekiq.Only()},
			wantFree: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := freekiq.New(tt.opts...)
			original := &argumentError{msg: "Oops"}

			errs := simulate(eng, tt.policy, original, 3)
			assertFreeRetries(t, errs, original, tt.wantFree)
		})
	}
}

func TestEngine_RetriesDisabled(t *testing.T) {
	eng := freekiq.New(freekiq.WithDefaultBudget(freekiq.Limit(2)))
	original := &argumentError{msg: "Oops"}

	d := eng.Decide(context.Background(), freekiq.JobMeta{}, freekiq.Attempt{
		RetryEnabled: false,
		Policy:       freekiq.Policy{Budget: freekiq.Limit(2)},
	}, original)

	if d.Outcome != freekiq.OutcomeNotRetryable {
		t.Errorf("Outcome = %v, want %v", d.Outcome, freekiq.OutcomeNotRetryable)
	}
	if d.Err != error(original) {
		t.Errorf("Err = %v, want the original error", d.Err)
	}
	if d.FreeRetry() {
		t.Error("retries disabled must not be a free retry")
	}
}

func TestEngine_Outcomes(t *testing.T) {
	eng := freekiq.New()
	original := &argumentError{msg: "Oops"}
	limit := freekiq.Policy{Budget: freekiq.Limit(2)}

	tests := []struct {
		name    string
		attempt freekiq.Attempt
		want    freekiq.Outcome
	}{
		{"budget disabled", freekiq.Attempt{RetryEnabled: true}, freekiq.OutcomeBudgetDisabled},
		{"not whitelisted", freekiq.Attempt{RetryEnabled: true, Policy: freekiq.Policy{
			Budget: freekiq.Limit(2), EligibleErrors: freekiq.Only(freekiq.MatchType[*nonArgumentError]()),
		}}, freekiq.OutcomeNotWhitelisted},
		{"first execution", freekiq.Attempt{RetryEnabled: true, Policy: limit}, freekiq.OutcomeWithinBudget},
		{"retry 0", freekiq.Attempt{RetryEnabled: true, RetryCount: intPtr(0), Policy: limit}, freekiq.OutcomeWithinBudget},
		{"retry 1", freekiq.Attempt{RetryEnabled: true, RetryCount: intPtr(1), Policy: limit}, freekiq.OutcomeBudgetExhausted},
		{"retry 2", freekiq.Attempt{RetryEnabled: true, RetryCount: intPtr(2), Policy: limit}, freekiq.OutcomeBudgetExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := eng.Decide(context.Background(), freekiq.JobMeta{}, tt.attempt, original)
			if d.Outcome != tt.want {
				t.Errorf("Outcome = %v, want %v", d.Outcome, tt.want)
			}
			if tt.want != freekiq.OutcomeWithinBudget && d.Err != error(original) {
				t.Errorf("Err = %v, want the original error", d.Err)
			}
		})
	}
}

func TestEngine_ReturnedSentinelIsReclassified(t *testing.T) {
	eng := freekiq.New()
	limit := freekiq.Policy{Budget: freekiq.Limit(1)}
	sentinel := &freekiq.FreekiqError{Message: "Oops"}

	d := eng.Decide(context.Background(), freekiq.JobMeta{},
		freekiq.Attempt{RetryEnabled: true, RetryCount: intPtr(3), Policy: limit}, sentinel)
	if d.Outcome != freekiq.OutcomeBudgetExhausted {
		t.Errorf("Outcome = %v, want %v", d.Outcome, freekiq.OutcomeBudgetExhausted)
	}
	if freekiq.IsFreeRetry(d.Err) {
		t.Fatal("a sentinel returned past the budget must not stay a free retry")
	}
	var stray *freekiq.StrayFreeRetryError
	if !errors.As(d.Err, &stray) || stray.Message != "Oops" {
		t.Errorf("Err = %T (%v), want *StrayFreeRetryError", d.Err, d.Err)
	}

	d = eng.Decide(context.Background(), freekiq.JobMeta{},
		freekiq.Attempt{RetryEnabled: false}, sentinel)
	if freekiq.IsFreeRetry(d.Err) {
		t.Error("a sentinel from a job without retries must not be a free retry")
	}
}

func TestEngine_RunSuccess(t *testing.T) {
	called := false
	eng := freekiq.New(
		freekiq.WithDefaultBudget(freekiq.Limit(2)),
		freekiq.WithCallback(func(context.Context, freekiq.JobMeta) error {
			called = true
			return nil
		}),
	)

	err := eng.Run(context.Background(), freekiq.JobMeta{}, freekiq.Attempt{RetryEnabled: true},
		func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("callback must not run on success")
	}
}

func TestEngine_NilErrorDecision(t *testing.T) {
	d := freekiq.New().Decide(context.Background(), freekiq.JobMeta{}, freekiq.Attempt{RetryEnabled: true}, nil)
	if d.Outcome != freekiq.OutcomeNone || d.Err != nil {
		t.Errorf("decision = %v/%v, want none/nil", d.Outcome, d.Err)
	}
}

func TestEngine_CallbackInvokedOncePerFreeRetry(t *testing.T) {
	var metas []freekiq.JobMeta
	eng := freekiq.New(freekiq.WithCallback(func(_ context.Context, m freekiq.JobMeta) error {
		metas = append(metas, m)
		return nil
	}))
	original := &argumentError{msg: "Oops"}

	errs := simulate(eng, freekiq.Policy{Budget: freekiq.Limit(2)}, original, 3)
	assertFreeRetries(t, errs, original, 2)

	if len(metas) != 2 {
		t.Fatalf("expected 2 callback invocations, got %d", len(metas))
	}
	if metas[0].Name != "TestDummyWorker" || metas[0].ID != "job_1" {
		t.Errorf("meta = %+v", metas[0])
	}
	if metas[0].RetryCount != nil {
		t.Errorf("first RetryCount = %d, want nil", *metas[0].RetryCount)
	}
	if metas[1].RetryCount == nil || *metas[1].RetryCount != 0 {
		t.Errorf("second RetryCount = %v, want 0", metas[1].RetryCount)
	}
	if metas[0].Err != error(original) {
		t.Errorf("meta Err = %v, want the original error", metas[0].Err)
	}
}

func TestEngine_CallbackFailureDoesNotChangeOutcome(t *testing.T) {
	tests := []struct {
		name string
		cb   freekiq.Callback
	}{
		{"returns error", func(context.Context, freekiq.JobMeta) error { return errors.New("callback error") }},
		{"panics", func(context.Context, freekiq.JobMeta) error { panic("callback error") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &recordingObserver{}
			eng := freekiq.New(freekiq.WithCallback(tt.cb), freekiq.WithObserver(obs))
			original := &argumentError{msg: "Oops"}

			errs := simulate(eng, freekiq.Policy{Budget: freekiq.Limit(2)}, original, 1)
			assertFreeRetries(t, errs, original, 1)

			if len(obs.callbackErrs) != 1 {
				t.Fatalf("expected 1 callback error, got %d", len(obs.callbackErrs))
			}
			if !strings.Contains(obs.callbackErrs[0].Error(), "callback error") {
				t.Errorf("callback error = %q", obs.callbackErrs[0])
			}
			if len(obs.free) != 1 {
				t.Errorf("expected 1 free retry event, got %d", len(obs.free))
			}
		})
	}
}

func TestEngine_ObserverBudgetExhausted(t *testing.T) {
	obs := &recordingObserver{}
	eng := freekiq.New(freekiq.WithObserver(obs))
	original := &argumentError{msg: "Oops"}

	errs := simulate(eng, freekiq.Policy{Budget: freekiq.Limit(2)}, original, 4)
	assertFreeRetries(t, errs, original, 2)

	if len(obs.free) != 2 {
		t.Errorf("expected 2 free retry events, got %d", len(obs.free))
	}
	if len(obs.exhausted) != 2 {
		t.Fatalf("expected 2 exhausted events, got %d", len(obs.exhausted))
	}
	if obs.exhausted[0].Name != "TestDummyWorker" || obs.exhausted[0].Err != error(original) {
		t.Errorf("exhausted meta = %+v", obs.exhausted[0])
	}
}

func TestEngine_NoExhaustedEventWhenIneligible(t *testing.T) {
	obs := &recordingObserver{}
	eng := freekiq.New(freekiq.WithObserver(obs))

	simulate(eng, freekiq.Policy{
		Budget:         freekiq.Limit(2),
		EligibleErrors: freekiq.Only(freekiq.MatchType[*nonArgumentError]()),
	}, &argumentError{msg: "Oops"}, 3)

	if len(obs.free) != 0 || len(obs.exhausted) != 0 {
		t.Errorf("events = %d free / %d exhausted, want none", len(obs.free), len(obs.exhausted))
	}
}

func TestEngine_SetCallback(t *testing.T) {
	eng := freekiq.New()
	if eng.Callback() != nil {
		t.Fatal("expected no callback")
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			eng.SetCallback(func(context.Context, freekiq.JobMeta) error { return nil })
			simulate(eng, freekiq.Policy{Budget: freekiq.Limit(2)}, &argumentError{msg: "Oops"}, 3)
		}()
	}
	wg.Wait()

	if eng.Callback() == nil {
		t.Error("expected a callback after SetCallback")
	}
	eng.SetCallback(nil)
	if eng.Callback() != nil {
		t.Error("SetCallback(nil) should clear the callback")
	}
}

func TestEngine_SharedCallbackSlot(t *testing.T) {
	slot := freekiq.NewCallbackSlot(nil)
	a := freekiq.New(freekiq.WithCallbackSlot(slot))
	b := freekiq.New(freekiq.WithCallbackSlot(slot))

	calls := 0
	slot.Store(func(context.Context, freekiq.JobMeta) error {
		calls++
		return nil
	})

	simulate(a, freekiq.Policy{Budget: freekiq.Limit(1)}, &argumentError{msg: "Oops"}, 1)
	simulate(b, freekiq.Policy{Budget: freekiq.Limit(1)}, &argumentError{msg: "Oops"}, 1)

	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestFreekiqError_TypeName(t *testing.T) {
	err := &freekiq.FreekiqError{Message: "Oops"}
	if got := freekiq.TypeName(err); got != "github.com/xraph/freekiq.FreekiqError" {
		t.Errorf("TypeName = %q", got)
	}
	if err.Error() != "Oops" {
		t.Errorf("Error = %q, want Oops", err.Error())
	}
	if errors.Is(errors.New("Oops"), freekiq.ErrFreekiq) {
		t.Error("a plain error must not match ErrFreekiq")
	}
}
