package agentloop

import "time"

// Config enumerates the agent loop's run-time configuration (spec §4.5).
type Config struct {
	// MaxTurns is the hard upper bound on decide-execute iterations.
	MaxTurns int
	// AutoSanctionsScreen seeds a screening lead after the seed phase
	// produces entities.
	AutoSanctionsScreen bool
	// AutoNewsCheck seeds a news/OSINT lead after the seed phase produces
	// entities.
	AutoNewsCheck bool
	// EnableSafety, when false, constructs a no-op safety harness.
	EnableSafety bool
	// GenerateGraph, when true, runs the graph post-processor after the
	// loop terminates.
	GenerateGraph bool
	// LLMProvider is an opaque identifier passed through to the decision
	// policy; it does not affect loop control flow.
	LLMProvider string
	// DemoMode is passed to the decision policy in every snapshot. The loop
	// runs whatever policy and executor it is given; internal/wiring picks
	// the heuristic policy and the fixture tool set when demo mode is on.
	DemoMode bool
	// PersistPath, if set, auto-saves the session after termination.
	PersistPath string
	// ToolTimeout bounds each individual tool call (spec §4.5 "Timeouts").
	ToolTimeout time.Duration
	// SeedTool is the tool invoked during the seed phase.
	SeedTool string
	// SanctionsTool/NewsTool name the tools auto-screening seeds leads for.
	SanctionsTool string
	NewsTool      string
	// BreakerThreshold is the decision policy breaker's consecutive-failure
	// threshold (SPEC_FULL §5 decision #3; default 3).
	BreakerThreshold int
}

// DefaultConfig returns the configuration described in spec §4.5, using the
// builtin demo tool names as the seed/auto-screen defaults.
func DefaultConfig() Config {
	return Config{
		MaxTurns:            15,
		AutoSanctionsScreen: false,
		AutoNewsCheck:       false,
		EnableSafety:        true,
		GenerateGraph:       false,
		DemoMode:            true,
		ToolTimeout:         30 * time.Second,
		SeedTool:            "search_entities",
		SanctionsTool:       "screen_sanctions",
		NewsTool:            "check_news",
		BreakerThreshold:    3,
	}
}
