package decision_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightframe/investigator/internal/decision"
)

func TestHeuristic_SeedsFromGoalWhenNoFindings(t *testing.T) {
	h := decision.NewHeuristic(decision.DefaultHeuristicConfig())
	action, err := h.Decide(context.Background(), decision.Snapshot{Goal: "Meridian Holdings"})
	require.NoError(t, err)
	assert.Equal(t, "search_entities", action.Tool)
	assert.Equal(t, "Meridian Holdings", action.Args["query"])
	assert.False(t, action.Conclude)
}

func TestHeuristic_FollowsTopPriorityLead(t *testing.T) {
	h := decision.NewHeuristic(decision.DefaultHeuristicConfig())
	action, err := h.Decide(context.Background(), decision.Snapshot{
		FindingCount: 1,
		OpenLeads: []decision.LeadView{
			{ID: "lead-1", Description: "screen Jordan Vale", SuggestedTool: "screen_sanctions", Priority: 1},
			{ID: "lead-2", Description: "check Helios Trust", SuggestedTool: "check_news", Priority: 5},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "check_news", action.Tool)
	assert.Contains(t, action.Reasoning, "lead-2")
}

func TestHeuristic_ConcludesWhenNoLeadsRemain(t *testing.T) {
	h := decision.NewHeuristic(decision.HeuristicConfig{ConcludeAfterFindings: 2})
	action, err := h.Decide(context.Background(), decision.Snapshot{FindingCount: 2})
	require.NoError(t, err)
	assert.True(t, action.Conclude)
	assert.Equal(t, "conclude", action.Tool)
}

func TestHeuristic_FallsBackWhenBelowConcludeThreshold(t *testing.T) {
	h := decision.NewHeuristic(decision.HeuristicConfig{ConcludeAfterFindings: 5, FallbackTool: "generic_lookup"})
	action, err := h.Decide(context.Background(), decision.Snapshot{FindingCount: 1, Goal: "Helios Trust"})
	require.NoError(t, err)
	assert.Equal(t, "generic_lookup", action.Tool)
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := decision.NewBreaker(2)
	require.NoError(t, b.Allow("check_news"))
	b.ReportFailure("check_news")
	require.NoError(t, b.Allow("check_news"))
	b.ReportFailure("check_news")
	err := b.Allow("check_news")
	require.Error(t, err)
	var openErr *decision.BreakerOpenError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, "check_news", openErr.Tool)
}

func TestBreaker_ResetsOnSuccess(t *testing.T) {
	b := decision.NewBreaker(1)
	b.ReportFailure("check_news")
	require.Error(t, b.Allow("check_news"))
	b.ReportSuccess("check_news")
	require.NoError(t, b.Allow("check_news"))
}
