package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/brightframe/investigator/internal/telemetry"
)

// MessagesClient captures the subset of the Anthropic SDK used by LLM. It is
// satisfied by *sdk.MessageService, so tests can substitute a fake.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

const systemPrompt = `You are the decision policy for an automated investigation agent.
Given the investigation context, respond with a single JSON object describing
the next action: {"tool": "<tool_name>", "args": {...}, "reasoning": "<why>"}.
When the investigation has gathered enough evidence and no further tool call
is warranted, respond with {"tool": "conclude", "reasoning": "<why>"}.
Respond with JSON only, no surrounding prose.`

// LLM is the external-model decision policy (spec §4.4). It formats the
// session snapshot, asks a remote model for a structured action, and
// degrades to a Heuristic fallback on any parse or transport failure so the
// agent loop never stalls on an LLM outage.
type LLM struct {
	client   MessagesClient
	model    string
	fallback *Heuristic
	logger   telemetry.Logger
}

// NewLLM constructs an LLM policy. fallback must not be nil; it is used
// whenever the remote call or its response cannot be trusted.
func NewLLM(client MessagesClient, model string, fallback *Heuristic, logger telemetry.Logger) *LLM {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &LLM{client: client, model: model, fallback: fallback, logger: logger}
}

// Decide implements Policy.
func (p *LLM) Decide(ctx context.Context, snap Snapshot) (Action, error) {
	action, err := p.decideRemote(ctx, snap)
	if err != nil {
		p.logger.Warn(ctx, "decision policy: llm call failed, falling back to heuristic", "error", err.Error())
		return p.fallback.Decide(ctx, snap)
	}
	return action, nil
}

func (p *LLM) decideRemote(ctx context.Context, snap Snapshot) (Action, error) {
	if p.client == nil {
		return Action{}, fmt.Errorf("decision: no anthropic client configured")
	}

	prompt := snap.ContextText
	if prompt == "" {
		prompt = fmt.Sprintf("goal: %s\nfindings so far: %d\nopen leads: %d",
			snap.Goal, snap.FindingCount, len(snap.OpenLeads))
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(p.model),
		MaxTokens: 1024,
		System: []sdk.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}

	msg, err := p.client.New(ctx, params)
	if err != nil {
		return Action{}, fmt.Errorf("anthropic messages.new: %w", err)
	}

	text := extractText(msg)
	action, err := parseAction(text)
	if err != nil {
		return Action{}, fmt.Errorf("decision: could not parse model reply: %w", err)
	}
	return action, nil
}

func extractText(msg *sdk.Message) string {
	if msg == nil {
		return ""
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

// rawAction mirrors the JSON shape the system prompt asks the model for.
type rawAction struct {
	Tool      string         `json:"tool"`
	Args      map[string]any `json:"args"`
	Reasoning string         `json:"reasoning"`
}

func parseAction(text string) (Action, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return Action{}, fmt.Errorf("no JSON object found in reply")
	}
	var raw rawAction
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return Action{}, fmt.Errorf("invalid JSON action: %w", err)
	}
	if raw.Tool == "" {
		return Action{}, fmt.Errorf("action missing tool field")
	}
	if raw.Tool == "conclude" {
		return ConcludeAction(raw.Reasoning), nil
	}
	return Action{Tool: raw.Tool, Args: raw.Args, Reasoning: raw.Reasoning}, nil
}
