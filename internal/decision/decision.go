// Package decision implements the investigation's decision policy (spec
// §4.4): given a session snapshot, choose the next tool call or conclude.
package decision

import "context"

// Action is the decision policy's output: either a tool invocation or the
// conclude sentinel.
type Action struct {
	Tool      string
	Args      map[string]any
	Reasoning string
	Conclude  bool
}

// ConcludeAction builds the sentinel action that ends the agent loop.
func ConcludeAction(reasoning string) Action {
	return Action{Tool: "conclude", Reasoning: reasoning, Conclude: true}
}

// Snapshot is the read-only view of session state a policy may consult. It
// mirrors session.Session.ContextForLLM's inputs without importing the
// session package, so decision stays independent of the store's internals.
type Snapshot struct {
	Goal         string
	FindingCount int
	OpenLeads    []LeadView
	ContextText  string
	DemoMode     bool
	ProviderID   string
}

// LeadView is the minimal lead projection the decision policy needs.
type LeadView struct {
	ID            string
	Description   string
	SuggestedTool string
	Priority      float64
	// EntityIDs carries the lead's target entity ids, when it names
	// specific entities rather than a free-text query (spec §4.5 auto
	// sanctions/news leads).
	EntityIDs []string
}

// Policy picks the next action from a session snapshot. Implementations
// must be pure with respect to the session — they read but never mutate it
// (spec §4.4).
type Policy interface {
	Decide(ctx context.Context, snap Snapshot) (Action, error)
}
