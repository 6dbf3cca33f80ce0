// Package agentloop implements the bounded decision/execution cycle that
// drives one investigation (spec §4.5, component C5): it seeds session
// state from the goal, repeatedly asks a decision policy for the next tool
// call, runs that call under the safety harness, ingests the result into
// the session as findings and leads, and finalizes a report when the
// policy concludes or the turn budget is exhausted.
package agentloop

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brightframe/investigator/internal/decision"
	"github.com/brightframe/investigator/internal/persistence"
	"github.com/brightframe/investigator/internal/safety"
	"github.com/brightframe/investigator/internal/session"
	"github.com/brightframe/investigator/internal/telemetry"
	"github.com/brightframe/investigator/internal/toolerr"
	"github.com/brightframe/investigator/internal/tools"
)

// Executor runs a named tool call. Satisfied by *tools.Executor.
type Executor interface {
	Execute(ctx context.Context, name string, args tools.Args) (tools.Result, error)
}

// GraphBuilder is the optional post-processor invoked during Finalize when
// Config.GenerateGraph is set (spec §4.5 "Finalize").
type GraphBuilder interface {
	Build(entities map[string]session.Entity) (any, error)
}

// Sink receives progress events as the loop runs. Implementations (e.g. the
// fanout bus, component C8) own their own backpressure/drop policy; the
// loop calls Emit unconditionally and never blocks on it.
type Sink interface {
	Emit(event ProgressEvent)
}

// noopSink discards every event; used when a run has no subscribers.
type noopSink struct{}

func (noopSink) Emit(ProgressEvent) {}

// confidenceTable maps a tool name to its nominal finding confidence; a
// tool producing zero results gets a reduced, backed-off value instead of
// being dropped entirely, so empty-but-legitimate searches stay visible in
// the record (spec §4.5 "Derive a finding ... via an ingest rule").
var confidenceTable = map[string]float64{
	"search_entities":  0.9,
	"screen_sanctions": 0.95,
	"check_news":       0.7,
	"generic_lookup":   0.5,
}

const defaultConfidence = 0.5
const emptyResultBackoff = 0.5

// Loop orchestrates one investigation run.
type Loop struct {
	cfg      Config
	policy   decision.Policy
	breaker  *decision.Breaker
	executor Executor
	harness  *safety.Harness
	graph    GraphBuilder
	logger   telemetry.Logger
	tracer   telemetry.Tracer
}

// New constructs a Loop. harness and graph may be nil (harness becomes a
// disabled no-op; graph post-processing is skipped regardless of
// Config.GenerateGraph).
func New(cfg Config, policy decision.Policy, executor Executor, harness *safety.Harness, graph GraphBuilder, logger telemetry.Logger, tracer telemetry.Tracer) *Loop {
	if !cfg.EnableSafety || harness == nil {
		harness = safety.NewDisabledHarness()
	}
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	return &Loop{
		cfg:      cfg,
		policy:   policy,
		breaker:  decision.NewBreaker(cfg.BreakerThreshold),
		executor: executor,
		harness:  harness,
		graph:    graph,
		logger:   logger,
		tracer:   tracer,
	}
}

// Run executes one investigation for goal, emitting progress events to sink
// (a nil sink is replaced with a no-op). It returns the terminal session
// regardless of how the run ended — callers should inspect the session's
// reasoning trace for cancellation/error detail rather than treat a
// returned error as the sole signal.
func (l *Loop) Run(ctx context.Context, goal string, sink Sink) (*session.Session, error) {
	if sink == nil {
		sink = noopSink{}
	}
	ctx, span := l.tracer.Start(ctx, "agentloop.Run")
	defer span.End()

	sess := session.New(goal, "")
	sink.Emit(ProgressEvent{Kind: EventStarted, InvestigationID: sess.ID(), Timestamp: time.Now().UTC(), Goal: goal})

	if strings.TrimSpace(goal) == "" {
		sess.RecordReasoning("empty goal: declining to investigate")
		return l.finalize(ctx, sess, sink), nil
	}

	if err := l.seed(ctx, sess, sink); err != nil {
		return l.abort(ctx, sess, sink, err)
	}

	for sess.TurnCount() < l.cfg.MaxTurns {
		if err := ctx.Err(); err != nil {
			return l.abort(ctx, sess, sink, err)
		}

		action, err := l.decide(ctx, sess)
		if err != nil {
			return l.abort(ctx, sess, sink, err)
		}
		if action.Conclude {
			sess.RecordReasoning("concluded: " + action.Reasoning)
			break
		}

		l.executeTurn(ctx, sess, sink, action)

		if err := ctx.Err(); err != nil {
			return l.abort(ctx, sess, sink, err)
		}
	}

	return l.finalize(ctx, sess, sink), nil
}

func (l *Loop) seed(ctx context.Context, sess *session.Session, sink Sink) error {
	args := tools.Args{"query": sess.Goal()}
	result, err := l.callTool(ctx, sess, l.cfg.SeedTool, args)
	if err != nil {
		// A failed seed is not fatal: record it as a finding-less reasoning
		// entry and let the decide-execute phase pick up from there.
		sess.RecordReasoning(fmt.Sprintf("seed tool %q failed: %v", l.cfg.SeedTool, err))
		return nil
	}

	finding := l.ingestFinding(l.cfg.SeedTool, args, result)
	sess.AddFinding(finding)
	sink.Emit(ProgressEvent{Kind: EventFinding, InvestigationID: sess.ID(), Timestamp: time.Now().UTC(), Finding: &finding})

	entityIDs := entityIDsOf(result)
	if l.cfg.AutoSanctionsScreen && len(entityIDs) > 0 {
		l.seedAutoLead(sess, sink, finding.ID, l.cfg.SanctionsTool, "screen seeded entities against sanctions lists", entityIDs)
	}
	if l.cfg.AutoNewsCheck && len(entityIDs) > 0 {
		l.seedAutoLead(sess, sink, finding.ID, l.cfg.NewsTool, "check news/OSINT coverage of seeded entities", entityIDs)
	}
	return nil
}

func (l *Loop) seedAutoLead(sess *session.Session, sink Sink, findingID, tool, description string, entityIDs []string) {
	lead := session.Lead{
		Description:     description,
		Priority:        1,
		SourceFindingID: findingID,
		SuggestedTool:   tool,
		SuggestedQuery:  sess.Goal(),
		EntityIDs:       entityIDs,
	}
	sess.AddLead(lead)
	sink.Emit(ProgressEvent{Kind: EventLead, InvestigationID: sess.ID(), Timestamp: time.Now().UTC(), Lead: &lead})
}

func (l *Loop) decide(ctx context.Context, sess *session.Session) (decision.Action, error) {
	snap := decision.Snapshot{
		Goal:         sess.Goal(),
		FindingCount: sess.FindingCount(),
		OpenLeads:    leadViewsOf(sess.GetOpenLeads()),
		ContextText:  sess.ContextForLLM(4000),
		DemoMode:     l.cfg.DemoMode,
		ProviderID:   l.cfg.LLMProvider,
	}
	action, err := l.policy.Decide(ctx, snap)
	if err != nil {
		return decision.Action{}, fmt.Errorf("decision policy: %w", err)
	}
	if !action.Conclude {
		if breakerErr := l.breaker.Allow(action.Tool); breakerErr != nil {
			sess.RecordReasoning(breakerErr.Error())
			return decision.ConcludeAction(breakerErr.Error()), nil
		}
	}
	return action, nil
}

func (l *Loop) executeTurn(ctx context.Context, sess *session.Session, sink Sink, action decision.Action) {
	turn := sess.TurnCount() + 1
	sink.Emit(ProgressEvent{Kind: EventTurn, InvestigationID: sess.ID(), Timestamp: time.Now().UTC(), TurnNumber: turn, Action: action.Tool})
	sess.RecordReasoning(action.Reasoning)

	var drivingLead string
	for _, lead := range sess.GetOpenLeads() {
		if lead.SuggestedTool == action.Tool {
			drivingLead = lead.ID
			break
		}
	}

	result, err := l.callTool(ctx, sess, action.Tool, action.Args)
	sess.IncrementTurn()
	if err != nil {
		l.breaker.ReportFailure(action.Tool)
		sess.RecordReasoning(fmt.Sprintf("tool %q failed: %v", action.Tool, err))
		if drivingLead != "" {
			sess.ResolveLead(drivingLead, session.LeadDeadEnd)
		}
		return
	}
	l.breaker.ReportSuccess(action.Tool)

	finding := l.ingestFinding(action.Tool, action.Args, result)
	sess.AddFinding(finding)
	sink.Emit(ProgressEvent{Kind: EventFinding, InvestigationID: sess.ID(), Timestamp: time.Now().UTC(), Finding: &finding})

	for _, id := range newEntityIDs(sess, result) {
		lead := session.Lead{
			Description:     fmt.Sprintf("investigate entity %s discovered via %s", id, action.Tool),
			Priority:        0.5,
			SourceFindingID: finding.ID,
			SuggestedTool:   l.cfg.SeedTool,
			SuggestedQuery:  id,
		}
		sess.AddLead(lead)
		sink.Emit(ProgressEvent{Kind: EventLead, InvestigationID: sess.ID(), Timestamp: time.Now().UTC(), Lead: &lead})
	}

	if drivingLead != "" {
		sess.ResolveLead(drivingLead, session.LeadResolved)
	}
}

// callTool runs a tool under the safety harness's pre/post checks and a
// per-call deadline (spec §4.5 steps b-d, "Timeouts").
func (l *Loop) callTool(ctx context.Context, sess *session.Session, tool string, args tools.Args) (tools.Result, error) {
	verdict := l.harness.PreCheck(tool, args, 0)
	if !verdict.Allowed {
		return nil, fmt.Errorf("%w: %s", toolerr.ErrPolicyBlock, verdict.Reason)
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if l.cfg.ToolTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, l.cfg.ToolTimeout)
		defer cancel()
	}

	result, err := l.executor.Execute(callCtx, tool, args)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: tool %q", toolerr.ErrTimeout, tool)
		}
		return nil, err
	}

	l.harness.PostCheck(tool, stringifyResult(result))
	sess.RecordToolUse(tool, args, result)
	l.harness.RecordSpend(estimateCost(result))
	return result, nil
}

func (l *Loop) abort(ctx context.Context, sess *session.Session, sink Sink, cause error) (*session.Session, error) {
	reason := "aborted by caller"
	if cause != nil && cause != context.Canceled {
		reason = fmt.Sprintf("aborted: %v", cause)
	}
	sess.RecordReasoning(reason)
	sink.Emit(ProgressEvent{Kind: EventError, InvestigationID: sess.ID(), Timestamp: time.Now().UTC(), Err: fmt.Errorf("%w: %s", toolerr.ErrCancellationRequest, reason)})
	sess.SetSafetyAudit(l.harness.AuditSummary())
	l.persist(ctx, sess)
	return sess, nil
}

// persist saves sess to Config.PersistPath when one is set. A failed save is
// logged and does not change the run's outcome.
func (l *Loop) persist(ctx context.Context, sess *session.Session) {
	if l.cfg.PersistPath == "" {
		return
	}
	if err := persistence.Save(sess, l.cfg.PersistPath); err != nil {
		l.logger.Warn(ctx, "agentloop: saving session failed", "error", err.Error())
	}
}

func (l *Loop) finalize(ctx context.Context, sess *session.Session, sink Sink) *session.Session {
	if l.cfg.GenerateGraph && l.graph != nil {
		if graph, err := l.graph.Build(sess.Entities()); err == nil {
			sess.SetInvestigationGraph(graph)
		} else {
			l.logger.Warn(ctx, "agentloop: graph post-processor failed", "error", err.Error())
		}
	}

	sess.SetSafetyAudit(l.harness.AuditSummary())
	l.persist(ctx, sess)
	report := l.renderReport(sess)
	pub := l.harness.ScrubForPublication(report, "finalize")

	summary := sess.Summary()
	sink.Emit(ProgressEvent{
		Kind:            EventCompleted,
		InvestigationID: sess.ID(),
		Timestamp:       time.Now().UTC(),
		Summary:         &summary,
		Report:          pub.ScrubbedText,
	})
	return sess
}

func (l *Loop) renderReport(sess *session.Session) string {
	summary := sess.Summary()
	report := fmt.Sprintf("Investigation: %s\nTurns: %d\nFindings: %d\nEntities: %d\n",
		summary.Goal, summary.Turns, summary.FindingCount, summary.EntityCount)
	if open := sess.GetOpenLeads(); len(open) > 0 {
		report += fmt.Sprintf("\nOpen leads (%d):\n", len(open))
		for _, lead := range open {
			report += fmt.Sprintf("  - %s\n", lead.Description)
		}
	}
	for _, f := range sess.Findings() {
		report += fmt.Sprintf("\n[%s] %s\n", f.Source, f.Summary)
	}
	return report
}

func (l *Loop) ingestFinding(tool string, args tools.Args, result tools.Result) session.Finding {
	confidence := confidenceTable[tool]
	if confidence == 0 {
		confidence = defaultConfidence
	}
	if count, ok := result["result_count"].(int); ok && count == 0 {
		confidence *= emptyResultBackoff
	}

	summary := summaryOf(tool, result)
	entities := entityFindingsOf(result)

	return session.Finding{
		Source:     tool,
		Summary:    summary,
		Entities:   entities,
		Confidence: confidence,
		RawData:    result,
	}
}

func summaryOf(tool string, result tools.Result) string {
	if v, ok := result["entities"]; ok {
		if list, ok := v.([]session.Entity); ok {
			return fmt.Sprintf("%s found %d entities", tool, len(list))
		}
	}
	if v, ok := result["matches"]; ok {
		if list, ok := v.([]map[string]any); ok {
			return fmt.Sprintf("%s found %d matches", tool, len(list))
		}
	}
	if v, ok := result["articles"]; ok {
		if list, ok := v.([]map[string]any); ok {
			return fmt.Sprintf("%s found %d articles", tool, len(list))
		}
	}
	if v, ok := result["result_count"]; ok {
		return fmt.Sprintf("%s returned %v result(s)", tool, v)
	}
	return fmt.Sprintf("%s completed", tool)
}

func entityFindingsOf(result tools.Result) []session.Entity {
	if v, ok := result["entities"]; ok {
		if list, ok := v.([]session.Entity); ok {
			return list
		}
	}
	return nil
}

func entityIDsOf(result tools.Result) []string {
	var ids []string
	for _, e := range entityFindingsOf(result) {
		ids = append(ids, e.ID)
	}
	return ids
}

// newEntityIDs returns entity ids in result that the session had not yet
// indexed before this call (spec §4.5 step f).
func newEntityIDs(sess *session.Session, result tools.Result) []string {
	var fresh []string
	for _, e := range entityFindingsOf(result) {
		if _, ok := sess.Entity(e.ID); !ok {
			fresh = append(fresh, e.ID)
		}
	}
	return fresh
}

func leadViewsOf(leads []session.Lead) []decision.LeadView {
	views := make([]decision.LeadView, len(leads))
	for i, l := range leads {
		views[i] = decision.LeadView{
			ID:            l.ID,
			Description:   l.Description,
			SuggestedTool: l.SuggestedTool,
			Priority:      l.Priority,
			EntityIDs:     l.EntityIDs,
		}
	}
	return views
}

func stringifyResult(result tools.Result) string {
	return fmt.Sprintf("%v", result)
}

func estimateCost(result tools.Result) float64 {
	if count, ok := result["result_count"].(int); ok {
		return float64(count) * 0.01
	}
	return 0.01
}
