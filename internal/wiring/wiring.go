// Package wiring assembles the concrete collaborators (tool registry,
// safety harness, decision policy, agent loop) that cmd/investigate and
// internal/httpapi both need, so neither has to duplicate the other's
// construction logic.
package wiring

import (
	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/brightframe/investigator/internal/agentloop"
	"github.com/brightframe/investigator/internal/bridge"
	"github.com/brightframe/investigator/internal/config"
	"github.com/brightframe/investigator/internal/decision"
	"github.com/brightframe/investigator/internal/safety"
	"github.com/brightframe/investigator/internal/telemetry"
	"github.com/brightframe/investigator/internal/tools"
	"github.com/brightframe/investigator/internal/tools/builtin"
)

// NewRegistry builds the demo-mode tool registry (spec §4.2): entity
// search, sanctions screening, a news/OSINT check, and a generic follow-up
// lookup, all backed by the fixture dataset so the loop runs with no
// external network dependency.
func NewRegistry() *tools.Registry {
	reg := tools.NewRegistry()
	reg.Register(builtin.NewEntitySearch())
	reg.Register(builtin.NewScreenSanctions())
	reg.Register(builtin.NewNewsCheck())
	reg.Register(builtin.NewGenericLookup())
	return reg
}

// NewPolicy builds the decision policy named by cfg: the heuristic policy
// in demo mode or when no API key is set, or an Anthropic-backed LLM policy
// (degrading to heuristic on any transport/parse failure) otherwise.
func NewPolicy(cfg config.Config, logger telemetry.Logger) decision.Policy {
	heuristic := decision.NewHeuristic(decision.DefaultHeuristicConfig())
	if cfg.DemoMode || cfg.AnthropicAPIKey == "" {
		return heuristic
	}
	client := sdk.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
	return decision.NewLLM(&client.Messages, cfg.AnthropicModel, heuristic, logger)
}

// NewHarness builds the safety harness with every sub-component (redactor,
// monitor, policy gate) enabled and an unrestricted capsule, in the given
// mode. Callers that need a scoped capsule (tool allowlist, budget) should
// construct their own safety.Harness instead of calling this.
func NewHarness(mode safety.Mode) *safety.Harness {
	capsule := safety.Capsule{BudgetRemaining: -1}
	gate := safety.NewPolicyGate(&capsule, 0, 0)
	return safety.NewHarness(mode, gate, safety.NewMonitor(), safety.NewRedactor())
}

// NewLoopFactory returns a bridge.LoopFactory that builds a fresh Loop per
// investigation using cfg's turn budget, safety posture, and decision
// policy. mode is the harness's pre-check mode; callers default to
// safety.Observe and let an explicit flag switch to safety.Enforce. The
// returned factory applies each call's bridge.RunOptions (spec §6.3's
// max_turns/llm_provider/auto_sanctions/auto_news) on top of these defaults.
func NewLoopFactory(cfg config.Config, mode safety.Mode, logger telemetry.Logger, tracer telemetry.Tracer) bridge.LoopFactory {
	baseCfg := agentloop.DefaultConfig()
	baseCfg.MaxTurns = cfg.MaxTurns
	baseCfg.ToolTimeout = cfg.ToolTimeout
	baseCfg.DemoMode = cfg.DemoMode
	baseCfg.BreakerThreshold = cfg.BreakerThreshold
	baseCfg.AutoSanctionsScreen = true
	baseCfg.AutoNewsCheck = true

	registry := NewRegistry()
	executor := tools.NewExecutor(registry)

	return func(overrides bridge.RunOptions) *agentloop.Loop {
		runCfg := baseCfg
		if overrides.MaxTurns != nil {
			runCfg.MaxTurns = *overrides.MaxTurns
		}
		if overrides.LLMProvider != "" {
			runCfg.LLMProvider = overrides.LLMProvider
		}
		if overrides.AutoSanctions != nil {
			runCfg.AutoSanctionsScreen = *overrides.AutoSanctions
		}
		if overrides.AutoNews != nil {
			runCfg.AutoNewsCheck = *overrides.AutoNews
		}

		policy := NewPolicy(cfg, logger)
		harness := NewHarness(mode)
		return agentloop.New(runCfg, policy, executor, harness, nil, logger, tracer)
	}
}
