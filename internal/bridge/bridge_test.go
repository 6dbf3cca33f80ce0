package bridge_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightframe/investigator/internal/agentloop"
	"github.com/brightframe/investigator/internal/bridge"
	"github.com/brightframe/investigator/internal/decision"
	"github.com/brightframe/investigator/internal/tools"
)

func newTestLoop(bridge.RunOptions) *agentloop.Loop {
	reg := tools.NewRegistry()
	reg.Register(tools.Func{
		Ident: "search_entities",
		Fn: func(context.Context, tools.Args) (tools.Result, error) {
			return tools.Result{"result_count": 0}, nil
		},
	})
	executor := tools.NewExecutor(reg)
	policy := decision.NewHeuristic(decision.HeuristicConfig{ConcludeAfterFindings: 1})
	cfg := agentloop.DefaultConfig()
	return agentloop.New(cfg, policy, executor, nil, nil, nil, nil)
}

func TestRunInvestigation_ReturnsScrubbedReport(t *testing.T) {
	b := bridge.New(newTestLoop)
	result := b.RunInvestigation(context.Background(), "Meridian Holdings", nil)
	assert.Empty(t, result.Error)
	assert.NotEmpty(t, result.ScrubbedReportText)
}

func TestRunInvestigationWithOptions_DryRunSkipsTheLoop(t *testing.T) {
	b := bridge.New(newTestLoop)
	result := b.RunInvestigationWithOptions(context.Background(), "Meridian Holdings", nil, bridge.RunOptions{DryRun: true})
	assert.Empty(t, result.Error)
	assert.Equal(t, 0, result.Session.Summary().Turns)
	assert.Contains(t, result.ReportText, "dry run")
}

type recordingSend struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingSend) send(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, text)
	return nil
}

func (r *recordingSend) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func TestHandleInvestigateCommand_RejectsDuplicateChannel(t *testing.T) {
	b := bridge.New(newTestLoop)

	var wg sync.WaitGroup
	wg.Add(1)
	started := make(chan struct{})
	go func() {
		defer wg.Done()
		rec := &recordingSend{}
		send := func(ctx context.Context, text string) error {
			close1Once(started)
			time.Sleep(20 * time.Millisecond)
			return rec.send(ctx, text)
		}
		b.HandleInvestigateCommand(context.Background(), "first goal", "chan-1", send)
	}()

	<-started
	rec2 := &recordingSend{}
	result := b.HandleInvestigateCommand(context.Background(), "second goal", "chan-1", rec2.send)
	assert.NotEmpty(t, result.Error)
	assert.Contains(t, rec2.all()[0], "already running")

	wg.Wait()
}

func close1Once(ch chan struct{}) {
	select {
	case <-ch:
	default:
		close(ch)
	}
}

func TestHandleInvestigateCommand_ParallelAcrossChannels(t *testing.T) {
	b := bridge.New(newTestLoop)

	var wg sync.WaitGroup
	results := make([]string, 2)
	for i, ch := range []string{"chan-a", "chan-b"} {
		wg.Add(1)
		go func(i int, channel string) {
			defer wg.Done()
			rec := &recordingSend{}
			r := b.HandleInvestigateCommand(context.Background(), "goal", channel, rec.send)
			results[i] = r.Error
		}(i, ch)
	}
	wg.Wait()

	for _, errStr := range results {
		assert.Empty(t, errStr)
	}
}

func TestRunBatch_RunsAllGoalsAndPreservesOrder(t *testing.T) {
	b := bridge.New(newTestLoop)
	goals := []string{"Meridian Holdings", "Helios Trust", "Arcadia Partners"}

	results, err := b.RunBatch(context.Background(), goals)
	require.NoError(t, err)
	require.Len(t, results, len(goals))
	for i, r := range results {
		assert.Empty(t, r.Error, "goal %d (%s) should not fail", i, goals[i])
	}
}

func TestFormatForSlack_ErrorResult(t *testing.T) {
	payload := bridge.FormatForSlack(bridge.InvestigationResult{Error: "boom"})
	require.NotEmpty(t, payload.Blocks)
	assert.Contains(t, payload.Text, "failed")
}
