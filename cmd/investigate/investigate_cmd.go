package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/brightframe/investigator/internal/agentloop"
	"github.com/brightframe/investigator/internal/bridge"
	"github.com/brightframe/investigator/internal/persistence"
	"github.com/brightframe/investigator/internal/safety"
	"github.com/brightframe/investigator/internal/telemetry"
	"github.com/brightframe/investigator/internal/wiring"
)

var (
	investigateChannel     string
	investigateDryRun      bool
	investigateInteractive bool
	investigateSavePath    string
	investigateResumePath  string
	investigateEnforce     bool
)

var investigateCmd = &cobra.Command{
	Use:   "investigate [goal]",
	Short: "Run an investigation against a goal and print its report",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInvestigate,
}

func init() {
	f := investigateCmd.Flags()
	f.StringVar(&investigateChannel, "channel", "", "channel id to serialize this run against (rejects a second concurrent run for the same channel)")
	f.BoolVar(&investigateDryRun, "dry-run", false, "print what would run without executing the agent loop")
	f.BoolVar(&investigateInteractive, "interactive", false, "stream progress events to stdout as the loop runs")
	f.StringVar(&investigateSavePath, "save", "", "path to write the finished session as a versioned JSON document")
	f.StringVar(&investigateResumePath, "resume", "", "path to a previously saved session to display instead of starting a new run")
	f.BoolVar(&investigateEnforce, "enforce", false, "run the safety harness in enforce mode instead of the observe-mode default")
}

func runInvestigate(cmd *cobra.Command, args []string) error {
	if investigateResumePath != "" {
		return resumeSaved(investigateResumePath)
	}

	if len(args) == 0 {
		return fmt.Errorf("a goal is required unless --resume is set")
	}
	goal := args[0]
	cfg := loadConfig()

	if investigateDryRun {
		fmt.Printf("would investigate %q (demo_mode=%v, max_turns=%d, tool_timeout=%s)\n",
			goal, cfg.DemoMode, cfg.MaxTurns, cfg.ToolTimeout)
		for _, name := range wiring.NewRegistry().Names() {
			fmt.Printf("  available tool: %s\n", name)
		}
		return nil
	}

	mode := safety.Observe
	if investigateEnforce {
		mode = safety.Enforce
	}
	factory := wiring.NewLoopFactory(cfg, mode, telemetry.NewNoopLogger(), telemetry.NewNoopTracer())
	b := bridge.New(factory)

	ctx := context.Background()
	var result bridge.InvestigationResult
	if investigateChannel != "" {
		result = b.HandleInvestigateCommand(ctx, goal, investigateChannel, stdoutSend)
	} else {
		var sink agentloop.Sink
		if investigateInteractive {
			sink = stdoutSink{}
		}
		result = b.RunInvestigation(ctx, goal, sink)
		fmt.Print(result.ScrubbedReportText)
	}

	if investigateSavePath != "" && result.Session != nil {
		path := investigateSavePath
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, result.Session.ID()+".json")
		}
		if err := persistence.Save(result.Session, path); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}
		fmt.Printf("saved session to %s\n", path)
	}

	if result.Error != "" {
		return fmt.Errorf("investigation failed: %s", result.Error)
	}
	return nil
}

func resumeSaved(path string) error {
	sess, err := persistence.Load(path)
	if err != nil {
		return fmt.Errorf("loading saved session: %w", err)
	}
	summary := sess.Summary()
	fmt.Printf("resumed session %s\ngoal: %s\nturns: %d  findings: %d  entities: %d  open leads: %d\n",
		summary.SessionID, summary.Goal, summary.Turns, summary.FindingCount, summary.EntityCount, summary.LeadsOpen)
	for _, f := range sess.Findings() {
		fmt.Printf("  [%s] %s\n", f.Source, f.Summary)
	}
	return nil
}

func stdoutSend(_ context.Context, text string) error {
	fmt.Println(text)
	return nil
}

// stdoutSink prints each progress event to stdout as the loop runs, for
// --interactive runs invoked without a channel.
type stdoutSink struct{}

func (stdoutSink) Emit(e agentloop.ProgressEvent) {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	switch e.Kind {
	case agentloop.EventStarted:
		fmt.Printf("[%s] started: %s\n", ts.Format(time.Kitchen), e.Goal)
	case agentloop.EventTurn:
		fmt.Printf("[%s] turn %d: %s\n", ts.Format(time.Kitchen), e.TurnNumber, e.Action)
	case agentloop.EventFinding:
		if e.Finding != nil {
			fmt.Printf("[%s] finding: [%s] %s\n", ts.Format(time.Kitchen), e.Finding.Source, e.Finding.Summary)
		}
	case agentloop.EventLead:
		if e.Lead != nil {
			fmt.Printf("[%s] lead: %s\n", ts.Format(time.Kitchen), e.Lead.Description)
		}
	case agentloop.EventProgress:
		fmt.Printf("[%s] %s\n", ts.Format(time.Kitchen), e.Message)
	case agentloop.EventCompleted:
		fmt.Printf("[%s] completed\n", ts.Format(time.Kitchen))
	case agentloop.EventError:
		fmt.Printf("[%s] error: %v\n", ts.Format(time.Kitchen), e.Err)
	}
}
