package agentloop_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightframe/investigator/internal/agentloop"
	"github.com/brightframe/investigator/internal/decision"
	"github.com/brightframe/investigator/internal/session"
	"github.com/brightframe/investigator/internal/tools"
)

type scriptedPolicy struct {
	mu      sync.Mutex
	actions []decision.Action
	i       int
}

func (p *scriptedPolicy) Decide(context.Context, decision.Snapshot) (decision.Action, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.i >= len(p.actions) {
		return decision.ConcludeAction("script exhausted"), nil
	}
	a := p.actions[p.i]
	p.i++
	return a, nil
}

type fakeExecutor struct {
	results map[string]tools.Result
	errs    map[string]error
	calls   []string
}

func (e *fakeExecutor) Execute(_ context.Context, name string, _ tools.Args) (tools.Result, error) {
	e.calls = append(e.calls, name)
	if err, ok := e.errs[name]; ok {
		return nil, err
	}
	return e.results[name], nil
}

type collectingSink struct {
	mu     sync.Mutex
	events []agentloop.ProgressEvent
}

func (s *collectingSink) Emit(e agentloop.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *collectingSink) kinds() []agentloop.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]agentloop.EventKind, len(s.events))
	for i, e := range s.events {
		out[i] = e.Kind
	}
	return out
}

func TestLoop_SeedsThenConcludesWhenPolicyConcludes(t *testing.T) {
	exec := &fakeExecutor{results: map[string]tools.Result{
		"search_entities": {"entities": []session.Entity{session.NewEntity("e1", "Company")}, "result_count": 1},
	}}
	policy := &scriptedPolicy{}
	cfg := agentloop.DefaultConfig()
	loop := agentloop.New(cfg, policy, exec, nil, nil, nil, nil)

	sink := &collectingSink{}
	sess, err := loop.Run(context.Background(), "Meridian Holdings", sink)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.FindingCount())
	assert.Contains(t, sink.kinds(), agentloop.EventStarted)
	assert.Contains(t, sink.kinds(), agentloop.EventCompleted)
}

func TestLoop_AutoSeedsSanctionsAndNewsLeads(t *testing.T) {
	exec := &fakeExecutor{results: map[string]tools.Result{
		"search_entities": {"entities": []session.Entity{session.NewEntity("e1", "Company")}, "result_count": 1},
	}}
	policy := &scriptedPolicy{}
	cfg := agentloop.DefaultConfig()
	cfg.AutoSanctionsScreen = true
	cfg.AutoNewsCheck = true
	loop := agentloop.New(cfg, policy, exec, nil, nil, nil, nil)

	sess, err := loop.Run(context.Background(), "Meridian Holdings", nil)
	require.NoError(t, err)
	leads := sess.Leads()
	require.Len(t, leads, 2)
}

func TestLoop_StopsAtMaxTurns(t *testing.T) {
	exec := &fakeExecutor{results: map[string]tools.Result{
		"search_entities": {"result_count": 0},
		"generic_lookup":  {"result_count": 0},
	}}
	policy := &scriptedPolicy{actions: []decision.Action{
		{Tool: "generic_lookup", Args: tools.Args{"query": "x"}},
		{Tool: "generic_lookup", Args: tools.Args{"query": "x"}},
		{Tool: "generic_lookup", Args: tools.Args{"query": "x"}},
	}}
	cfg := agentloop.DefaultConfig()
	cfg.MaxTurns = 2
	loop := agentloop.New(cfg, policy, exec, nil, nil, nil, nil)

	sess, err := loop.Run(context.Background(), "goal", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sess.TurnCount())
}

func TestLoop_ToolFailureDoesNotAbortTheRun(t *testing.T) {
	exec := &fakeExecutor{
		errs: map[string]error{
			"search_entities": errors.New("seed collaborator down"),
			"generic_lookup":  errors.New("collaborator down"),
		},
	}
	policy := &scriptedPolicy{actions: []decision.Action{
		{Tool: "generic_lookup"},
	}}
	cfg := agentloop.DefaultConfig()
	cfg.MaxTurns = 1
	loop := agentloop.New(cfg, policy, exec, nil, nil, nil, nil)

	sess, err := loop.Run(context.Background(), "goal", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.TurnCount())
	assert.Equal(t, 0, sess.FindingCount())
}

func TestLoop_HonorsCancellation(t *testing.T) {
	exec := &fakeExecutor{results: map[string]tools.Result{"search_entities": {"result_count": 0}}}
	policy := &scriptedPolicy{actions: []decision.Action{{Tool: "search_entities"}}}
	cfg := agentloop.DefaultConfig()
	loop := agentloop.New(cfg, policy, exec, nil, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := &collectingSink{}
	sess, err := loop.Run(ctx, "goal", sink)
	require.NoError(t, err)
	assert.NotNil(t, sess)
	assert.Contains(t, sink.kinds(), agentloop.EventError)
}
