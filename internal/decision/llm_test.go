package decision_test

import (
	"context"
	"errors"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightframe/investigator/internal/decision"
)

type fakeMessagesClient struct {
	reply *sdk.Message
	err   error
}

func (f *fakeMessagesClient) New(context.Context, sdk.MessageNewParams, ...option.RequestOption) (*sdk.Message, error) {
	return f.reply, f.err
}

func textMessage(text string) *sdk.Message {
	return &sdk.Message{
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: text},
		},
	}
}

func TestLLM_ParsesValidToolAction(t *testing.T) {
	client := &fakeMessagesClient{reply: textMessage(`{"tool":"search_entities","args":{"query":"Helios Trust"},"reasoning":"seed search"}`)}
	fallback := decision.NewHeuristic(decision.DefaultHeuristicConfig())
	policy := decision.NewLLM(client, "claude-sonnet", fallback, nil)

	action, err := policy.Decide(context.Background(), decision.Snapshot{Goal: "Helios Trust"})
	require.NoError(t, err)
	assert.Equal(t, "search_entities", action.Tool)
	assert.Equal(t, "Helios Trust", action.Args["query"])
}

func TestLLM_ParsesConcludeSentinel(t *testing.T) {
	client := &fakeMessagesClient{reply: textMessage(`{"tool":"conclude","reasoning":"sufficient evidence"}`)}
	fallback := decision.NewHeuristic(decision.DefaultHeuristicConfig())
	policy := decision.NewLLM(client, "claude-sonnet", fallback, nil)

	action, err := policy.Decide(context.Background(), decision.Snapshot{FindingCount: 3})
	require.NoError(t, err)
	assert.True(t, action.Conclude)
}

func TestLLM_DegradesToHeuristicOnTransportFailure(t *testing.T) {
	client := &fakeMessagesClient{err: errors.New("connection reset")}
	fallback := decision.NewHeuristic(decision.DefaultHeuristicConfig())
	policy := decision.NewLLM(client, "claude-sonnet", fallback, nil)

	action, err := policy.Decide(context.Background(), decision.Snapshot{Goal: "Helios Trust"})
	require.NoError(t, err)
	assert.Equal(t, "search_entities", action.Tool)
}

func TestLLM_DegradesToHeuristicOnMalformedReply(t *testing.T) {
	client := &fakeMessagesClient{reply: textMessage("I cannot comply with structured output requests.")}
	fallback := decision.NewHeuristic(decision.DefaultHeuristicConfig())
	policy := decision.NewLLM(client, "claude-sonnet", fallback, nil)

	action, err := policy.Decide(context.Background(), decision.Snapshot{Goal: "Helios Trust"})
	require.NoError(t, err)
	assert.Equal(t, "search_entities", action.Tool)
}
