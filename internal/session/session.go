package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrSessionNotFound is the error value for an unknown session id. No
// function in this module returns it; persistence.Load reports a missing
// file with the wrapped file-system error.
var ErrSessionNotFound = errors.New("session not found")

// Session is the working memory of one investigation run. All methods are
// safe for concurrent use; the agent loop is the only writer in practice
// (spec §5 "no suspension during session-state mutation"), but readers such
// as progress fan-out and the HTTP status endpoint may observe it
// concurrently.
type Session struct {
	mu sync.RWMutex

	id        string
	goal      string
	startedAt time.Time
	turnCount int

	findings []Finding
	leads    []Lead
	entities map[string]Entity
	order    []string // entity insertion order, for context_for_llm

	toolHistory    []ToolHistoryEntry
	reasoningTrace []string

	// investigationGraph and safetyAudit are opaque post-processing bags
	// (spec §3). Per SPEC_FULL.md §5, they are not round-tripped by the
	// persistence codec.
	investigationGraph any
	safetyAudit        map[string]any
}

// New creates a Session for the given goal. If id is empty, one is
// generated.
func New(goal, id string) *Session {
	if id == "" {
		id = newID("sess")
	}
	return &Session{
		id:        id,
		goal:      goal,
		startedAt: time.Now().UTC(),
		entities:  map[string]Entity{},
	}
}

// ID returns the session's identifier.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Goal returns the investigation goal string.
func (s *Session) Goal() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.goal
}

// StartedAt returns the UTC timestamp the session was created.
func (s *Session) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}

// TurnCount returns the current turn counter.
func (s *Session) TurnCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.turnCount
}

// IncrementTurn advances the turn counter by one. The agent loop calls this
// once per decide-execute iteration (spec invariant: turn_count is
// monotonically non-decreasing and never exceeds max_turns — the loop, not
// the session, enforces the upper bound).
func (s *Session) IncrementTurn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turnCount++
}

// AddFinding records a finding and indexes every entity it references
// (spec §4.1, invariant 1). Merge policy: for each (key, values) pair on an
// incoming entity, append only the values missing from the existing
// per-key list, preserving insertion order.
func (s *Session) AddFinding(f Finding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = newID("find")
	}
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now().UTC()
	}
	s.findings = append(s.findings, f)
	for _, e := range f.Entities {
		s.mergeEntityLocked(e)
	}
}

func (s *Session) mergeEntityLocked(e Entity) {
	if e.ID == "" {
		return
	}
	existing, ok := s.entities[e.ID]
	if !ok {
		if e.Properties == nil {
			e.Properties = map[string][]string{}
		}
		s.entities[e.ID] = e
		s.order = append(s.order, e.ID)
		return
	}
	if existing.Properties == nil {
		existing.Properties = map[string][]string{}
	}
	for key, values := range e.Properties {
		seen := make(map[string]struct{}, len(existing.Properties[key]))
		for _, v := range existing.Properties[key] {
			seen[v] = struct{}{}
		}
		for _, v := range values {
			if _, dup := seen[v]; dup {
				continue
			}
			existing.Properties[key] = append(existing.Properties[key], v)
			seen[v] = struct{}{}
		}
	}
	s.entities[e.ID] = existing
}

// Findings returns a copy of the findings recorded so far, in insertion
// order.
func (s *Session) Findings() []Finding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Finding, len(s.findings))
	copy(out, s.findings)
	return out
}

// Entity looks up an entity by id.
func (s *Session) Entity(id string) (Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	return e, ok
}

// Entities returns a copy of the entity index keyed by id.
func (s *Session) Entities() map[string]Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Entity, len(s.entities))
	for k, v := range s.entities {
		out[k] = v
	}
	return out
}

// EntityCount returns len(entity_index).
func (s *Session) EntityCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// FindingCount returns len(findings).
func (s *Session) FindingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.findings)
}

// AddLead appends a new lead to the session.
func (s *Session) AddLead(l Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == "" {
		l.ID = newID("lead")
	}
	if l.Status == "" {
		l.Status = LeadOpen
	}
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now().UTC()
	}
	s.leads = append(s.leads, l)
}

// GetOpenLeads returns open leads sorted by priority descending, stable on
// ties (spec §4.1, law "Priority order").
func (s *Session) GetOpenLeads() []Lead {
	s.mu.RLock()
	open := make([]Lead, 0, len(s.leads))
	for _, l := range s.leads {
		if l.Status == LeadOpen {
			open = append(open, l)
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(open, func(i, j int) bool {
		return open[i].Priority > open[j].Priority
	})
	return open
}

// Leads returns a copy of every lead regardless of status.
func (s *Session) Leads() []Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Lead, len(s.leads))
	copy(out, s.leads)
	return out
}

// ResolveLead transitions a lead to the given status. Unknown ids are a
// no-op, matching the original implementation's tolerant behavior.
func (s *Session) ResolveLead(id string, status LeadStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.leads {
		if s.leads[i].ID == id {
			s.leads[i].Status = status
			return
		}
	}
}

// RestoreStartedAt overwrites the session's start timestamp, used by the
// persistence codec to preserve the original start time across a
// save/load round trip (spec §4.7).
func (s *Session) RestoreStartedAt(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startedAt = t
}

// SetTurnCount overwrites the turn counter directly. Used by the
// persistence codec when reconstructing a session from a saved document
// (spec §4.7); the agent loop itself only ever advances the counter via
// IncrementTurn.
func (s *Session) SetTurnCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turnCount = n
}

// OverlayEntity merges an entity into the index without requiring a
// finding reference, used by the persistence codec to restore entities
// present in the standalone entity index but not cited from any finding
// (spec §4.7, "overlays the standalone entity index").
func (s *Session) OverlayEntity(e Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mergeEntityLocked(e)
}

// RestoreToolHistory replaces the tool-history log verbatim, used when
// reconstructing a session from a saved document.
func (s *Session) RestoreToolHistory(entries []ToolHistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolHistory = append([]ToolHistoryEntry(nil), entries...)
}

// RestoreReasoningTrace replaces the reasoning trace verbatim, used when
// reconstructing a session from a saved document.
func (s *Session) RestoreReasoningTrace(trace []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reasoningTrace = append([]string(nil), trace...)
}

// RecordToolUse appends a tool-history entry summarizing a tool call.
func (s *Session) RecordToolUse(tool string, args map[string]any, result map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolHistory = append(s.toolHistory, ToolHistoryEntry{
		Tool:          tool,
		Args:          args,
		ResultSummary: summarizeResult(result),
		Timestamp:     time.Now().UTC(),
	})
}

// ToolHistory returns a copy of the recorded tool invocations.
func (s *Session) ToolHistory() []ToolHistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ToolHistoryEntry, len(s.toolHistory))
	copy(out, s.toolHistory)
	return out
}

// RecordReasoning appends a reasoning-trace entry.
func (s *Session) RecordReasoning(thought string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reasoningTrace = append(s.reasoningTrace, thought)
}

// ReasoningTrace returns a copy of the reasoning trace.
func (s *Session) ReasoningTrace() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.reasoningTrace))
	copy(out, s.reasoningTrace)
	return out
}

// SetInvestigationGraph attaches the graph post-processor's output (spec
// §4.5 "Finalize").
func (s *Session) SetInvestigationGraph(graph any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.investigationGraph = graph
}

// InvestigationGraph returns the attached graph, or nil if none was set.
func (s *Session) InvestigationGraph() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.investigationGraph
}

// SetSafetyAudit attaches the harness's audit summary (spec §4.3).
func (s *Session) SetSafetyAudit(audit map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.safetyAudit = audit
}

// SafetyAudit returns the attached audit summary, or nil if none was set.
func (s *Session) SafetyAudit() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.safetyAudit
}

// ContextForLLM renders a compact textual snapshot of the investigation for
// use as decision-policy context (spec §4.1). Truncates to maxChars with a
// trailing marker if exceeded.
func (s *Session) ContextForLLM(maxChars int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	fmt.Fprintf(&b, "INVESTIGATION GOAL: %s\n", s.goal)
	fmt.Fprintf(&b, "TURN: %d\n", s.turnCount)
	fmt.Fprintf(&b, "ENTITIES FOUND: %d\n", len(s.entities))
	fmt.Fprintf(&b, "FINDINGS: %d\n", len(s.findings))

	if len(s.findings) > 0 {
		b.WriteString("\nRECENT FINDINGS:\n")
		start := 0
		if len(s.findings) > 5 {
			start = len(s.findings) - 5
		}
		for _, f := range s.findings[start:] {
			fmt.Fprintf(&b, "  - [%s] %s\n", f.Source, f.Summary)
		}
	}

	open := make([]Lead, 0, len(s.leads))
	for _, l := range s.leads {
		if l.Status == LeadOpen {
			open = append(open, l)
		}
	}
	sort.SliceStable(open, func(i, j int) bool { return open[i].Priority > open[j].Priority })
	if len(open) > 0 {
		fmt.Fprintf(&b, "\nOPEN LEADS (%d):\n", len(open))
		n := len(open)
		if n > 5 {
			n = 5
		}
		for _, l := range open[:n] {
			fmt.Fprintf(&b, "  - [%.1f] %s\n", l.Priority, l.Description)
			if l.SuggestedTool != "" {
				fmt.Fprintf(&b, "    Suggested: %s(%s)\n", l.SuggestedTool, l.SuggestedQuery)
			}
		}
	}

	if len(s.entities) > 0 {
		fmt.Fprintf(&b, "\nKEY ENTITIES (%d):\n", len(s.entities))
		n := len(s.order)
		if n > 10 {
			n = 10
		}
		for _, id := range s.order[:n] {
			e := s.entities[id]
			fmt.Fprintf(&b, "  - [%s] %s\n", e.Schema, e.Name())
		}
	}

	text := b.String()
	if maxChars > 0 && len(text) > maxChars {
		cut := maxChars - 20
		if cut < 0 {
			cut = 0
		}
		text = text[:cut] + "\n... (truncated)"
	}
	return text
}

// Summary returns the machine-readable investigation summary (spec §4.1).
func (s *Session) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	leadsOpen := 0
	for _, l := range s.leads {
		if l.Status == LeadOpen {
			leadsOpen++
		}
	}
	seen := map[string]struct{}{}
	var unique []string
	for _, t := range s.toolHistory {
		if _, ok := seen[t.Tool]; !ok {
			seen[t.Tool] = struct{}{}
			unique = append(unique, t.Tool)
		}
	}

	return Summary{
		SessionID:    s.id,
		Goal:         s.goal,
		StartedAt:    s.startedAt,
		Turns:        s.turnCount,
		EntityCount:  len(s.entities),
		FindingCount: len(s.findings),
		LeadsOpen:    leadsOpen,
		LeadsTotal:   len(s.leads),
		ToolsUsed:    len(s.toolHistory),
		UniqueTools:  unique,
	}
}

func summarizeResult(result map[string]any) string {
	if v, ok := result["result_count"]; ok {
		return fmt.Sprintf("%v results", v)
	}
	if v, ok := result["entities"]; ok {
		if list, ok := v.([]Entity); ok {
			return fmt.Sprintf("%d entities", len(list))
		}
	}
	if v, ok := result["articles"]; ok {
		if list, ok := v.([]map[string]any); ok {
			return fmt.Sprintf("%d articles", len(list))
		}
	}
	if v, ok := result["error"]; ok {
		return fmt.Sprintf("error: %v", v)
	}
	return fmt.Sprintf("%d keys", len(result))
}
