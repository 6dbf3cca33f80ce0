package safety

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Harness composes the three independently pluggable sub-gates — policy
// gate, security monitor, and PII redactor — into the single safety
// boundary the agent loop calls on either side of every tool invocation
// (spec §4.3). Any of the three may be nil, in which case that sub-gate is
// treated as a no-op.
type Harness struct {
	mode    Mode
	policy  *PolicyGate
	monitor *Monitor
	redact  *Redactor

	mu  sync.Mutex
	log []AuditEntry
}

// NewHarness constructs a Harness from its sub-gates. Pass nil for any
// sub-gate to disable it.
func NewHarness(mode Mode, policy *PolicyGate, monitor *Monitor, redact *Redactor) *Harness {
	return &Harness{mode: mode, policy: policy, monitor: monitor, redact: redact}
}

// NewDisabledHarness returns a Harness with every sub-gate off — used when
// an investigation explicitly opts out of safety checks (spec §4.3,
// "enable_safety=false").
func NewDisabledHarness() *Harness {
	return &Harness{mode: Observe}
}

// Mode reports the harness's current enforcement mode.
func (h *Harness) Mode() Mode {
	if h == nil {
		return Observe
	}
	return h.mode
}

// PreCheck evaluates a prospective tool call before execution. Order is
// capsule/rate-limit first, then the security monitor over the serialized
// args (spec §4.3). In Observe mode the verdict always reports Allowed,
// but the audit log still records what would have been blocked.
func (h *Harness) PreCheck(tool string, args map[string]any, cost float64) PreCheckVerdict {
	if h == nil {
		return PreCheckVerdict{Allowed: true}
	}

	if h.policy != nil && h.policy.Enabled() {
		if ok, reason, rateLimited, retryAfter := h.policy.Check(tool, cost); !ok {
			v := PreCheckVerdict{Blocked: true, Reason: reason, RateLimited: rateLimited, RetryAfter: retryAfter}
			h.finishPreCheck(tool, &v)
			return v
		}
	}

	if h.monitor != nil && h.monitor.Enabled() {
		if flagged, reason := h.monitor.Check(serializeArgs(args)); flagged {
			v := PreCheckVerdict{Blocked: true, Reason: reason}
			h.finishPreCheck(tool, &v)
			return v
		}
	}

	v := PreCheckVerdict{Allowed: true}
	h.finishPreCheck(tool, &v)
	return v
}

func (h *Harness) finishPreCheck(tool string, v *PreCheckVerdict) {
	if !v.Blocked {
		v.Allowed = true
		h.record(AuditPre, tool, ResultAllow, "")
		return
	}
	if h.mode == Observe {
		v.Allowed = true
		h.record(AuditPre, tool, ResultObserve, v.Reason)
		return
	}
	v.Allowed = false
	h.record(AuditPre, tool, ResultBlock, v.Reason)
}

// PostCheck inspects a tool's raw output after execution: PII detection and
// the security monitor, but it never scrubs in Observe mode (spec §4.3,
// "post_check surfaces findings without altering the session's record of
// what happened").
func (h *Harness) PostCheck(tool, text string) PostCheckResult {
	if h == nil {
		return PostCheckResult{ScrubbedText: text, Safe: true}
	}

	res := PostCheckResult{ScrubbedText: text, Safe: true}

	if h.redact != nil && h.redact.Enabled() {
		count, types := h.redact.Detect(text)
		res.PIIFound = count
		res.PIITypes = types
	}

	if h.monitor != nil && h.monitor.Enabled() {
		if flagged, reason := h.monitor.Check(text); flagged {
			res.SecurityFlags = append(res.SecurityFlags, reason)
			res.SecurityVerdict = reason
			res.Safe = false
		}
	}

	if h.mode == Enforce && h.redact != nil && h.redact.Enabled() && res.PIIFound > 0 {
		scrubbed, _, _ := h.redact.Redact(text)
		res.ScrubbedText = scrubbed
	}

	result := ResultClean
	if res.PIIFound > 0 || !res.Safe {
		result = ResultFlagged
	}
	h.record(AuditPost, tool, result, fmt.Sprintf("pii=%d security=%v", res.PIIFound, res.SecurityFlags))
	return res
}

// ScrubForPublication guarantees PII-free text regardless of mode, per
// spec §4.3's invariant that external publication never leaks PII even
// when the harness is in Observe mode for internal checks.
func (h *Harness) ScrubForPublication(text, context string) PublicationResult {
	if h == nil {
		return PublicationResult{ScrubbedText: text, Safe: true}
	}

	scrubbed := text
	var count int
	var types []string
	if h.redact != nil && h.redact.Enabled() {
		scrubbed, count, types = h.redact.Redact(text)
	}

	res := PublicationResult{ScrubbedText: scrubbed, PIIFound: count, PIITypes: types, Safe: true}
	if h.monitor != nil && h.monitor.Enabled() {
		if flagged, reason := h.monitor.Check(scrubbed); flagged {
			res.SecurityFlags = append(res.SecurityFlags, reason)
			res.SecurityVerdict = reason
			res.Safe = false
		}
	}

	h.record(AuditPublish, context, ResultClean, fmt.Sprintf("pii_redacted=%d", count))
	return res
}

// ScrubDictForPublication walks a nested map/slice structure (as produced by
// decoding a tool's JSON result) and scrubs every string leaf for
// publication, preserving shape (spec §4.3, "scrub_dict_for_publication").
func (h *Harness) ScrubDictForPublication(obj any, context string) any {
	if h == nil {
		return obj
	}
	switch v := obj.(type) {
	case string:
		return h.ScrubForPublication(v, context).ScrubbedText
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = h.ScrubDictForPublication(val, context)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = h.ScrubDictForPublication(val, context)
		}
		return out
	default:
		return obj
	}
}

// RecordSpend charges cost against the capsule's remaining budget.
func (h *Harness) RecordSpend(cost float64) {
	if h == nil || h.policy == nil {
		return
	}
	h.policy.RecordSpend(cost)
}

// AuditLog returns a copy of the accumulated audit entries.
func (h *Harness) AuditLog() []AuditEntry {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]AuditEntry, len(h.log))
	copy(out, h.log)
	return out
}

// AuditSummary aggregates the audit log into counters (spec §4.3,
// "audit_summary"); the agent loop attaches them to the session with
// Session.SetSafetyAudit when a run ends.
func (h *Harness) AuditSummary() map[string]any {
	summary := map[string]any{
		"total_checks":   0,
		"blocks":         0,
		"pii_redactions": 0,
		"events":         0,
	}
	if h == nil {
		return summary
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	total, blocks, piiEvents, events := 0, 0, 0, 0
	for _, e := range h.log {
		total++
		switch e.Result {
		case ResultBlock:
			blocks++
		case ResultFlagged:
			piiEvents++
		}
		if e.Result != ResultAllow && e.Result != ResultClean {
			events++
		}
	}
	summary["total_checks"] = total
	summary["blocks"] = blocks
	summary["pii_redactions"] = piiEvents
	summary["events"] = events
	return summary
}

func (h *Harness) record(mode AuditMode, tool string, result AuditResult, details string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.log = append(h.log, AuditEntry{
		Timestamp: time.Now(),
		Mode:      mode,
		Tool:      tool,
		Result:    result,
		Details:   details,
	})
}

func serializeArgs(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(b)
}
