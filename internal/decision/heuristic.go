package decision

import (
	"context"
	"fmt"
)

// HeuristicConfig tunes the deterministic policy's thresholds.
type HeuristicConfig struct {
	// SeedTool is used when the session has zero findings.
	SeedTool string
	// FallbackTool is used when no lead carries a suggested tool.
	FallbackTool string
	// ConcludeAfterFindings ends the investigation once at least this many
	// findings have accumulated and no open leads remain.
	ConcludeAfterFindings int
}

// DefaultHeuristicConfig returns the configuration described in spec §4.4.
func DefaultHeuristicConfig() HeuristicConfig {
	return HeuristicConfig{
		SeedTool:              "search_entities",
		FallbackTool:          "search_entities",
		ConcludeAfterFindings: 1,
	}
}

// Heuristic is the deterministic, no-external-dependency decision policy
// (spec §4.4). It never fails: on every call it returns an action, and is
// used both standalone (demo_mode) and as the LLM policy's fallback.
type Heuristic struct {
	cfg HeuristicConfig
}

// NewHeuristic constructs a Heuristic policy with cfg. A zero-value
// HeuristicConfig is replaced with DefaultHeuristicConfig's values field by
// field where unset.
func NewHeuristic(cfg HeuristicConfig) *Heuristic {
	def := DefaultHeuristicConfig()
	if cfg.SeedTool == "" {
		cfg.SeedTool = def.SeedTool
	}
	if cfg.FallbackTool == "" {
		cfg.FallbackTool = def.FallbackTool
	}
	if cfg.ConcludeAfterFindings <= 0 {
		cfg.ConcludeAfterFindings = def.ConcludeAfterFindings
	}
	return &Heuristic{cfg: cfg}
}

// Decide implements Policy.
func (h *Heuristic) Decide(_ context.Context, snap Snapshot) (Action, error) {
	if snap.FindingCount == 0 {
		return Action{
			Tool:      h.cfg.SeedTool,
			Args:      map[string]any{"query": snap.Goal},
			Reasoning: "no findings yet; seeding from goal",
		}, nil
	}

	if lead := topLead(snap.OpenLeads); lead != nil {
		tool := lead.SuggestedTool
		if tool == "" {
			tool = h.cfg.FallbackTool
		}
		args := map[string]any{"query": lead.Description}
		if len(lead.EntityIDs) > 0 {
			args["entity_ids"] = lead.EntityIDs
		}
		return Action{
			Tool:      tool,
			Args:      args,
			Reasoning: fmt.Sprintf("pursuing open lead %s via %s", lead.ID, tool),
		}, nil
	}

	if snap.FindingCount >= h.cfg.ConcludeAfterFindings {
		return ConcludeAction("no open leads remain and enough findings accumulated"), nil
	}

	return Action{
		Tool:      h.cfg.FallbackTool,
		Args:      map[string]any{"query": snap.Goal},
		Reasoning: "no open leads; falling back to generic next step",
	}, nil
}

// topLead returns the highest-priority open lead, or nil when none remain.
func topLead(leads []LeadView) *LeadView {
	if len(leads) == 0 {
		return nil
	}
	best := leads[0]
	for _, l := range leads[1:] {
		if l.Priority > best.Priority {
			best = l
		}
	}
	return &best
}
