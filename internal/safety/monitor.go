package safety

import (
	"regexp"
	"strings"
)

// injectionPatterns are coarse textual signatures of prompt-injection or
// path-traversal attempts appearing in tool arguments or tool output. This
// is a lightweight heuristic monitor, not a full security scanner — the
// spec treats the monitor as one independently pluggable sub-gate (§4.3)
// and does not mandate a particular detection technique.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore (all )?(previous|prior|above) instructions`),
	regexp.MustCompile(`(?i)disregard (your|the) (system|safety) prompt`),
	regexp.MustCompile(`(?i)you are now`),
	regexp.MustCompile(`\.\./\.\./`),
	regexp.MustCompile(`(?i)<script[\s>]`),
}

// Monitor scans text for injection and traversal signatures. One of the
// safety harness's three independently pluggable sub-gates (spec §4.3) and
// may be nil/disabled.
type Monitor struct {
	enabled bool
}

// NewMonitor constructs an enabled Monitor.
func NewMonitor() *Monitor { return &Monitor{enabled: true} }

// Enabled reports whether the monitor is active.
func (m *Monitor) Enabled() bool { return m != nil && m.enabled }

// Check scans text, returning a block reason when an injection/traversal
// signature is found. An empty reason means clean.
func (m *Monitor) Check(text string) (flagged bool, reason string) {
	if m == nil || !m.enabled || text == "" {
		return false, ""
	}
	for _, p := range injectionPatterns {
		if p.MatchString(text) {
			return true, "security monitor: matched pattern " + strings.TrimSpace(p.String())
		}
	}
	return false, ""
}
