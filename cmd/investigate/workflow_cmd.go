package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brightframe/investigator/internal/config"
	"github.com/brightframe/investigator/internal/tools"
	"github.com/brightframe/investigator/internal/wiring"
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Validate or run a YAML workflow template",
}

var workflowRunCmd = &cobra.Command{
	Use:   "run <template.yaml>",
	Short: "Execute a workflow template's steps in order against the tool registry",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkflowRun,
}

var workflowValidateCmd = &cobra.Command{
	Use:   "validate <template.yaml>",
	Short: "Parse and validate a workflow template without running it",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkflowValidate,
}

func init() {
	workflowCmd.AddCommand(workflowRunCmd, workflowValidateCmd)
}

func runWorkflowValidate(cmd *cobra.Command, args []string) error {
	tpl, err := config.LoadWorkflowTemplate(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%q is valid: %d step(s)\n", tpl.Name, len(tpl.Steps))
	return nil
}

// runWorkflowRun executes a template's steps in declared order against the
// builtin tool registry. Per-step conditions are not evaluated: a step whose
// condition is set is logged and then run like any other.
func runWorkflowRun(cmd *cobra.Command, args []string) error {
	tpl, err := config.LoadWorkflowTemplate(args[0])
	if err != nil {
		return err
	}

	executor := tools.NewExecutor(wiring.NewRegistry())
	ctx := context.Background()

	fmt.Printf("running workflow %q (%d step(s))\n", tpl.Name, len(tpl.Steps))
	for _, step := range tpl.Steps {
		if step.Condition != nil {
			fmt.Printf("  %s: condition %q noted, not evaluated by this runner\n", step.ID, step.Condition.If)
		}
		res, err := executor.Execute(ctx, step.Tool, step.Params)
		if err != nil {
			if step.OnError == "continue" {
				fmt.Printf("  %s: %v (continuing, on_error=continue)\n", step.ID, err)
				continue
			}
			if step.OnError == "skip" {
				fmt.Printf("  %s: %v (skipping remaining steps)\n", step.ID, err)
				return nil
			}
			return fmt.Errorf("step %q: %w", step.ID, err)
		}
		fmt.Printf("  %s: %s -> %v\n", step.ID, step.Tool, res)
	}
	return nil
}
