package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WorkflowParam is a user-supplied input a workflow template requires
// before it can run, grounded on the template schema's parameter
// declarations.
type WorkflowParam struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Required    bool   `yaml:"required"`
	Default     any    `yaml:"default,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// WorkflowCondition names a condition on a prior step's result. It is parsed
// but not evaluated: the workflow run command logs it and runs the step
// regardless.
type WorkflowCondition struct {
	If          string `yaml:"if,omitempty"`
	SkipMessage string `yaml:"skip_message,omitempty"`
}

// WorkflowStep is one tool invocation in a workflow template. Params are
// handed to the tool as written: "{{ ... }}" placeholders in them are not
// substituted, neither here nor by the workflow run command.
type WorkflowStep struct {
	ID             string             `yaml:"id"`
	Tool           string             `yaml:"tool"`
	Params         map[string]any     `yaml:"params,omitempty"`
	Condition      *WorkflowCondition `yaml:"condition,omitempty"`
	Description    string             `yaml:"description,omitempty"`
	TimeoutSeconds float64            `yaml:"timeout_seconds,omitempty"`
	OnError        string             `yaml:"on_error,omitempty"`
}

// WorkflowTemplate is a reusable, declarative investigation recipe: a named
// sequence of tool steps parameterized by user input (SPEC_FULL.md §4
// "workflow template validation").
type WorkflowTemplate struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Version     string          `yaml:"version,omitempty"`
	Author      string          `yaml:"author,omitempty"`
	Category    string          `yaml:"category,omitempty"`
	Tags        []string        `yaml:"tags,omitempty"`
	Parameters  []WorkflowParam `yaml:"parameters,omitempty"`
	Steps       []WorkflowStep  `yaml:"steps"`
}

// onErrorModes enumerates the step failure-handling strategies the schema
// allows.
var onErrorModes = map[string]bool{"": true, "continue": true, "abort": true, "skip": true}

// LoadWorkflowTemplate reads and validates a workflow template from path.
func LoadWorkflowTemplate(path string) (*WorkflowTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read workflow template %s: %w", path, err)
	}
	var tpl WorkflowTemplate
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("config: parse workflow template %s: %w", path, err)
	}
	if err := tpl.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid workflow template %s: %w", path, err)
	}
	return &tpl, nil
}

// Validate checks structural invariants the workflow engine depends on:
// unique step ids, every referenced tool present, and recognized
// on_error modes.
func (t *WorkflowTemplate) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("workflow template: name is required")
	}
	if len(t.Steps) == 0 {
		return fmt.Errorf("workflow template %q: at least one step is required", t.Name)
	}

	seen := make(map[string]bool, len(t.Steps))
	for _, step := range t.Steps {
		if step.ID == "" {
			return fmt.Errorf("workflow template %q: step missing id", t.Name)
		}
		if seen[step.ID] {
			return fmt.Errorf("workflow template %q: duplicate step id %q", t.Name, step.ID)
		}
		seen[step.ID] = true

		if step.Tool == "" {
			return fmt.Errorf("workflow template %q: step %q missing tool", t.Name, step.ID)
		}
		if !onErrorModes[step.OnError] {
			return fmt.Errorf("workflow template %q: step %q has unrecognized on_error %q", t.Name, step.ID, step.OnError)
		}
	}
	return nil
}
