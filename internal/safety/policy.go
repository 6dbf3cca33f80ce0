package safety

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Capsule constrains which tools may run and how much budget remains for
// the investigation (spec §4.3 "policy capsule"). A zero-value Capsule
// allows every tool but has a budget of zero, so it refuses any call with a
// positive cost; a negative BudgetRemaining lifts the budget limit.
type Capsule struct {
	// AllowedTools restricts execution to this set. Empty means unrestricted.
	AllowedTools []string
	// BudgetRemaining caps total spend across the investigation. A
	// negative value means unrestricted.
	BudgetRemaining float64
}

func (c *Capsule) allows(tool string) (bool, string) {
	if c == nil || len(c.AllowedTools) == 0 {
		return true, ""
	}
	for _, t := range c.AllowedTools {
		if t == tool {
			return true, ""
		}
	}
	return false, fmt.Sprintf("tool %q not in capsule allowed_tools", tool)
}

func (c *Capsule) withinBudget(cost float64) (bool, string) {
	if c == nil || c.BudgetRemaining < 0 {
		return true, ""
	}
	if cost > c.BudgetRemaining {
		return false, fmt.Sprintf("cost %.2f exceeds capsule budget %.2f", cost, c.BudgetRemaining)
	}
	return true, ""
}

// PolicyGate is the intent/rate-limit sub-gate of the safety harness (spec
// §4.3). It composes an optional Capsule, a per-investigation token-bucket
// rate limiter (golang.org/x/time/rate), and a running spend total. Per-tool
// circuit breaking is the decision policy's concern (internal/decision.Breaker,
// fed directly by the agent loop); the gate does not keep its own copy of
// that state.
type PolicyGate struct {
	enabled bool
	capsule *Capsule
	limiter *rate.Limiter

	mu    sync.Mutex
	spent float64
}

// NewPolicyGate constructs a PolicyGate. ratePerSec/burst of zero disables
// rate limiting (unlimited).
func NewPolicyGate(capsule *Capsule, ratePerSec float64, burst int) *PolicyGate {
	var limiter *rate.Limiter
	if ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), burst)
	}
	return &PolicyGate{
		enabled: true,
		capsule: capsule,
		limiter: limiter,
	}
}

// Enabled reports whether the gate is active.
func (g *PolicyGate) Enabled() bool { return g != nil && g.enabled }

// Check evaluates capsule constraints and the rate limiter for a prospective
// tool call, per the pre-check order in spec §4.3 (a, b).
func (g *PolicyGate) Check(tool string, cost float64) (allowed bool, reason string, rateLimited bool, retryAfter time.Duration) {
	if g == nil || !g.enabled {
		return true, "", false, 0
	}
	if ok, reason := g.capsule.allows(tool); !ok {
		return false, reason, false, 0
	}
	if ok, reason := g.capsule.withinBudget(cost); !ok {
		return false, reason, false, 0
	}
	if g.limiter != nil {
		res := g.limiter.Reserve()
		if !res.OK() {
			return false, "rate limit: request cannot be satisfied", true, 0
		}
		delay := res.Delay()
		if delay > 0 {
			res.Cancel()
			return false, "rate limited", true, delay
		}
	}
	return true, "", false, 0
}

// RecordSpend records actual spend after a successful call, consumed by the
// capsule's remaining budget on the next Check (spec §4.3 "Circuit-breaker
// feedback").
func (g *PolicyGate) RecordSpend(cost float64) {
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.spent += cost
	if g.capsule != nil && g.capsule.BudgetRemaining >= 0 {
		g.capsule.BudgetRemaining -= cost
	}
}
