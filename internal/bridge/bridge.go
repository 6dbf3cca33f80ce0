// Package bridge implements the investigation bridge (spec §4.6, component
// C6): the single integration point between platform adapters (Slack,
// Discord, webchat, API) and the agent loop. Adapters never touch sessions,
// decision policies, or the safety harness directly — they call
// RunInvestigation or HandleInvestigateCommand and receive a formatted
// InvestigationResult.
package bridge

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/brightframe/investigator/internal/agentloop"
	"github.com/brightframe/investigator/internal/safety"
	"github.com/brightframe/investigator/internal/session"
	"github.com/brightframe/investigator/internal/toolerr"
)

// defaultMaxConcurrentInvestigations bounds how many investigations may run
// at once against one Bridge (spec §4.6 "multiple run_investigation calls
// may execute in parallel" — parallel, not unbounded).
const defaultMaxConcurrentInvestigations = 4

// InvestigationResult is the bridge's uniform return type regardless of
// call path (spec §4.6).
type InvestigationResult struct {
	Session            *session.Session
	Summary            session.Summary
	ReportText         string
	ScrubbedReportText string
	PIIScrubbed        int
	Error              string
}

// SendFunc delivers one text message to a channel. Supplied by the caller
// (adapter-specific transport); the bridge never imports adapter types.
type SendFunc func(ctx context.Context, text string) error

// RunOptions carries the optional per-investigation overrides the HTTP and
// WebSocket surfaces accept (spec §6.3/§6.4: max_turns, llm_provider,
// auto_sanctions, auto_news, dry_run). A nil pointer field means "use the
// loop factory's own default" rather than "false"/"zero".
type RunOptions struct {
	MaxTurns      *int
	LLMProvider   string
	AutoSanctions *bool
	AutoNews      *bool
	DryRun        bool
}

// LoopFactory builds a fresh Loop for one investigation run, applying the
// caller's overrides on top of its own defaults. The bridge calls it once
// per RunInvestigation/HandleInvestigateCommand invocation so concurrent
// runs never share loop-internal state (breakers, caches).
type LoopFactory func(overrides RunOptions) *agentloop.Loop

// Bridge is the adapter-agnostic integration point (spec §4.6).
type Bridge struct {
	newLoop LoopFactory
	sem     *semaphore.Weighted

	mu     sync.Mutex
	active map[string]*session.Session // channel_id -> running session
}

// New constructs a Bridge. newLoop must not be nil. At most
// defaultMaxConcurrentInvestigations runs execute at once; additional
// callers block until a slot frees.
func New(newLoop LoopFactory) *Bridge {
	return &Bridge{
		newLoop: newLoop,
		sem:     semaphore.NewWeighted(defaultMaxConcurrentInvestigations),
		active:  map[string]*session.Session{},
	}
}

// RunInvestigation is the primitive path: construct an agent, run the loop
// synchronously with respect to the caller, format the report, scrub it for
// publication, and return (spec §4.6). It blocks until a concurrency slot
// is available if the bridge is already running its full complement of
// investigations.
func (b *Bridge) RunInvestigation(ctx context.Context, goal string, sink agentloop.Sink) InvestigationResult {
	return b.RunInvestigationWithOptions(ctx, goal, sink, RunOptions{})
}

// RunInvestigationWithOptions is RunInvestigation with the request-level
// overrides a caller (currently only internal/httpapi) may supply. A
// dry_run request never acquires a concurrency slot or touches the loop
// factory — it reports what would run and returns immediately.
func (b *Bridge) RunInvestigationWithOptions(ctx context.Context, goal string, sink agentloop.Sink, opts RunOptions) InvestigationResult {
	if opts.DryRun {
		report := fmt.Sprintf("dry run: would investigate %q (no tools executed)", goal)
		return InvestigationResult{Session: session.New(goal, ""), ReportText: report, ScrubbedReportText: report}
	}

	if err := b.sem.Acquire(ctx, 1); err != nil {
		return InvestigationResult{Session: session.New(goal, ""), Error: err.Error()}
	}
	defer b.sem.Release(1)

	loop := b.newLoop(opts)
	sess, err := loop.Run(ctx, goal, sink)
	if err != nil {
		return InvestigationResult{Session: session.New(goal, ""), Error: err.Error()}
	}

	summary := sess.Summary()
	report := renderReport(goal, sess)

	harness := safety.NewHarness(safety.Observe, nil, nil, safety.NewRedactor())
	pub := harness.ScrubForPublication(report, "bridge_report")

	return InvestigationResult{
		Session:            sess,
		Summary:            summary,
		ReportText:         report,
		ScrubbedReportText: pub.ScrubbedText,
		PIIScrubbed:        pub.PIIFound,
	}
}

// RunBatch runs every goal concurrently, bounded by the bridge's
// concurrency cap, and returns results in the same order as goals. One
// goal's failure does not cancel the others — RunInvestigation already
// reports per-run errors inside InvestigationResult rather than via a
// Go error, so the errgroup itself never sees a failure to propagate.
func (b *Bridge) RunBatch(ctx context.Context, goals []string) ([]InvestigationResult, error) {
	results := make([]InvestigationResult, len(goals))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(defaultMaxConcurrentInvestigations)
	for i, goal := range goals {
		i, goal := i, goal
		g.Go(func() error {
			results[i] = b.RunInvestigation(gCtx, goal, nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// HandleInvestigateCommand is the channel-scoped path (spec §4.6). It
// serializes per channel_id (a second call against the same channel while
// one is active is rejected without starting a second run) while allowing
// unrelated channels to run fully in parallel. The active-channel map is
// updated atomically with respect to concurrent calls on the same channel.
func (b *Bridge) HandleInvestigateCommand(ctx context.Context, goal, channelID string, send SendFunc) InvestigationResult {
	if !b.tryActivate(channelID, goal) {
		_ = send(ctx, fmt.Sprintf("investigation already running in this channel: %q", b.activeGoal(channelID)))
		return InvestigationResult{
			Session: session.New(goal, ""),
			Error:   toolerr.ErrDuplicateChannel.Error(),
		}
	}
	defer b.deactivate(channelID)

	if err := send(ctx, fmt.Sprintf("starting investigation: %s", goal)); err != nil {
		return InvestigationResult{Session: session.New(goal, ""), Error: err.Error()}
	}

	sink := &sendSink{ctx: ctx, send: send}
	result := b.RunInvestigation(ctx, goal, sink)

	if result.Error != "" {
		_ = send(ctx, fmt.Sprintf("investigation failed: %s", result.Error))
		return result
	}

	if err := send(ctx, result.ScrubbedReportText); err != nil {
		result.Error = err.Error()
		return result
	}
	if result.PIIScrubbed > 0 {
		_ = send(ctx, fmt.Sprintf("%d PII item(s) redacted from report", result.PIIScrubbed))
	}
	return result
}

func (b *Bridge) tryActivate(channelID, goal string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, busy := b.active[channelID]; busy {
		return false
	}
	b.active[channelID] = session.New(goal, "")
	return true
}

func (b *Bridge) activeGoal(channelID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sess, ok := b.active[channelID]; ok {
		return sess.Goal()
	}
	return ""
}

func (b *Bridge) deactivate(channelID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.active, channelID)
}

// sendSink adapts a channel's SendFunc to agentloop.Sink so progress events
// become text updates as the loop runs (spec §4.6 step d).
type sendSink struct {
	ctx  context.Context
	send SendFunc
}

func (s *sendSink) Emit(e agentloop.ProgressEvent) {
	switch e.Kind {
	case agentloop.EventTurn:
		_ = s.send(s.ctx, fmt.Sprintf("turn %d: %s", e.TurnNumber, e.Action))
	case agentloop.EventFinding:
		if e.Finding != nil {
			_ = s.send(s.ctx, fmt.Sprintf("finding: [%s] %s", e.Finding.Source, e.Finding.Summary))
		}
	case agentloop.EventProgress:
		_ = s.send(s.ctx, e.Message)
	}
	// Started/Lead/Completed/Error are surfaced by HandleInvestigateCommand's
	// own messages (start banner, report, error) rather than duplicated here.
}

func renderReport(goal string, sess *session.Session) string {
	summary := sess.Summary()
	report := fmt.Sprintf("Investigation: %s\nTurns: %d | Entities: %d | Findings: %d\n",
		goal, summary.Turns, summary.EntityCount, summary.FindingCount)

	if findings := sess.Findings(); len(findings) > 0 {
		report += "\nFindings:\n"
		for _, f := range findings {
			report += fmt.Sprintf("- [%s] %s\n", f.Source, f.Summary)
		}
	}

	if leads := sess.GetOpenLeads(); len(leads) > 0 {
		report += fmt.Sprintf("\nOpen leads: %d\n", len(leads))
		n := len(leads)
		if n > 3 {
			n = 3
		}
		for _, l := range leads[:n] {
			report += fmt.Sprintf("- %s\n", l.Description)
		}
	}
	return report
}
