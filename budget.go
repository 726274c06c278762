package freekiq

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

type budgetMode uint8

const (
	budgetUnset budgetMode = iota
	budgetDisabled
	budgetLimited
)

// Budget is the number of free retries a job may use.
//
// The zero value is unset: it defers to the next policy in line. [Disabled]
// turns free retries off for its scope, and [Limit] grants a count.
type Budget struct {
	n    int
	mode budgetMode
}

// Disabled turns free retries off for the scope it is declared in.
var Disabled = Budget{mode: budgetDisabled}

// Limit returns a budget of n free retries.
func Limit(n int) Budget { return Budget{n: n, mode: budgetLimited} }

// IsSet reports whether the budget was declared, either as a count or as
// [Disabled].
func (b Budget) IsSet() bool { return b.mode != budgetUnset }

// IsDisabled reports whether the budget is [Disabled].
func (b Budget) IsDisabled() bool { return b.mode == budgetDisabled }

// N returns the free retry count and whether the budget is a count.
func (b Budget) N() (int, bool) {
	if b.mode != budgetLimited {
		return 0, false
	}
	return b.n, true
}

func (b Budget) String() string {
	switch b.mode {
	case budgetDisabled:
		return "disabled"
	case budgetLimited:
		return strconv.Itoa(b.n)
	default:
		return "unset"
	}
}

// WithinBudget reports whether a failure at retryCount still gets a free
// retry. A nil retryCount means the job has not been retried yet.
//
// The comparison is zero-indexed against the pipeline's retry counter: with
// a budget of n, the first execution (nil) and retry indexes 0..n-2 are
// free, and retry index n-1 is the first to let the original error through.
func WithinBudget(retryCount *int, b Budget) bool {
	n, ok := b.N()
	if !ok {
		return false
	}
	return retryCount == nil || *retryCount < n-1
}

// ──────────────────────────────────────────────────
// Encoding
// ──────────────────────────────────────────────────

// MarshalJSON encodes an unset budget as null, [Disabled] as false and a
// count as a number.
func (b Budget) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.value())
}

// UnmarshalJSON accepts null, false, a number, or a numeric string.
func (b *Budget) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("freekiq: decode budget: %w", err)
	}
	return b.set(raw)
}

// MarshalYAML implements yaml.Marshaler.
func (b Budget) MarshalYAML() (any, error) {
	return b.value(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *Budget) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return fmt.Errorf("freekiq: decode budget: %w", err)
	}
	return b.set(raw)
}

func (b Budget) value() any {
	switch b.mode {
	case budgetDisabled:
		return false
	case budgetLimited:
		return b.n
	default:
		return nil
	}
}

func (b *Budget) set(raw any) error {
	switch v := raw.(type) {
	case nil:
		*b = Budget{}
	case bool:
		if v {
			return fmt.Errorf("freekiq: budget must be false or a number, got true")
		}
		*b = Disabled
	case int:
		*b = Limit(v)
	case int64:
		*b = Limit(int(v))
	case uint64:
		*b = Limit(int(v)) //nolint:gosec // budgets are small
	case float64:
		if v != math.Trunc(v) {
			return fmt.Errorf("freekiq: budget must be a whole number, got %v", v)
		}
		*b = Limit(int(v))
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("freekiq: parse budget %q: %w", v, err)
		}
		*b = Limit(n)
	default:
		return fmt.Errorf("freekiq: unsupported budget value %T", raw)
	}
	return nil
}
