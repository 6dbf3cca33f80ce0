package decision

import (
	"fmt"
	"sync"
)

// BreakerOpenError is returned by Breaker.Allow when a tool's
// consecutive-failure count has reached its threshold (spec §9, "per-tool
// breaker").
type BreakerOpenError struct {
	Tool             string
	ConsecutiveFails int
	Threshold        int
}

// Error implements the error interface.
func (e *BreakerOpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for tool %q: %d consecutive failures (threshold %d)",
		e.Tool, e.ConsecutiveFails, e.Threshold)
}

// Breaker tracks consecutive per-tool failures; once a tool's failure streak
// reaches a configurable threshold (default 3, spec §9 and SPEC_FULL §5
// decision #3), Allow refuses it. The policies do not consult the breaker:
// the agent loop checks the chosen tool and concludes the run when Allow
// refuses it. It is the sole per-tool failure counter; the agent loop
// reports every tool outcome to it directly.
type Breaker struct {
	threshold int

	mu    sync.Mutex
	fails map[string]int
}

// NewBreaker constructs a Breaker. A threshold of zero or less uses the
// default of 3.
func NewBreaker(threshold int) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	return &Breaker{threshold: threshold, fails: map[string]int{}}
}

// Allow reports whether tool may still be selected, returning a
// BreakerOpenError describing the block when it may not.
func (b *Breaker) Allow(tool string) error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := b.fails[tool]; n >= b.threshold {
		return &BreakerOpenError{Tool: tool, ConsecutiveFails: n, Threshold: b.threshold}
	}
	return nil
}

// ReportSuccess resets tool's failure streak.
func (b *Breaker) ReportSuccess(tool string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.fails, tool)
}

// ReportFailure increments tool's failure streak.
func (b *Breaker) ReportFailure(tool string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fails[tool]++
}
