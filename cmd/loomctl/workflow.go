package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/loomrt/loom/pkg/agent"
	"github.com/loomrt/loom/pkg/config"
	"github.com/loomrt/loom/pkg/event"
	"github.com/loomrt/loom/pkg/loomerr"
	"github.com/loomrt/loom/pkg/memory"
	"github.com/loomrt/loom/pkg/workflow"
)

// WorkflowCmd runs one of the config's named workflows as a sequential
// chain of steps, one per WorkflowStepDescriptor, each step invoking
// the agent it names.
//
// A WorkflowStepDescriptor (§4.11 config schema) carries only an agent
// name and a free-form "condition" tag — unlike a full workflow.Step it
// has no explicit dependency list. loomctl's own interpretation (not
// part of §4.9 itself) turns that tag into a keyword router: a step
// with a non-empty condition only runs when the workflow's original
// input contains that keyword, case-insensitively, letting a config
// like the sample support workflow ("general_query" vs "code_related")
// pick a branch without a real intent classifier.
type WorkflowCmd struct {
	Workflow string `arg:"" help:"Workflow name, as defined in the config's workflows section."`
	Input    string `arg:"" help:"Input passed to the workflow's first step."`
	Provider string `help:"Model provider: anthropic or openai (auto-detected from env when omitted)."`
	APIKey   string `name:"api-key" help:"API key (defaults to the provider's standard environment variable)."`
	BaseURL  string `name:"base-url" help:"Custom API base URL."`
}

func (c *WorkflowCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	descriptor, ok := cfg.Workflows[c.Workflow]
	if !ok {
		return loomerr.New(loomerr.NotFound, "loomctl.WorkflowCmd.Run", fmt.Errorf("workflow %q is not defined in config", c.Workflow))
	}
	if len(descriptor.Steps) == 0 {
		return loomerr.New(loomerr.Validation, "loomctl.WorkflowCmd.Run", fmt.Errorf("workflow %q has no steps", c.Workflow))
	}

	bus := event.NewBus()
	store := memory.NewInMemoryStore()
	flags := providerFlags{Provider: c.Provider, APIKey: c.APIKey, BaseURL: c.BaseURL}

	steps, err := buildWorkflowSteps(cfg, descriptor, flags, store, bus, c.Input)
	if err != nil {
		return err
	}

	wf, err := workflow.Build(c.Workflow, steps)
	if err != nil {
		return err
	}

	exec := workflow.NewExecutor(bus, len(steps))
	results, err := exec.Run(context.Background(), wf, c.Input)
	if err != nil {
		return fmt.Errorf("workflow run failed: %w", err)
	}

	for _, s := range wf.ListSteps() {
		r := results[s.ID]
		fmt.Printf("[%s] %s: %s\n", r.Status, s.Name, summarize(r))
	}
	return nil
}

func summarize(r workflow.StepResult) string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return r.Output
}

// buildWorkflowSteps wires one executor per agent referenced by the
// workflow and chains the steps sequentially: step i depends on step
// i-1, so a non-parallel config.WorkflowDescriptor still exercises the
// full DAG scheduler rather than a bespoke linear runner.
func buildWorkflowSteps(cfg *config.Config, descriptor config.WorkflowDescriptor, flags providerFlags, store memory.Store, bus *event.Bus, workflowInput string) ([]workflow.Step, error) {
	executors := make(map[string]*agent.Executor, len(descriptor.Steps))
	steps := make([]workflow.Step, len(descriptor.Steps))

	for i, stepDesc := range descriptor.Steps {
		stepDesc := stepDesc
		if executors[stepDesc.Agent] == nil {
			exec, err := buildExecutor(cfg, stepDesc.Agent, flags, store, bus)
			if err != nil {
				return nil, fmt.Errorf("workflow step %d (%s): %w", i, stepDesc.Agent, err)
			}
			executors[stepDesc.Agent] = exec
		}
		exec := executors[stepDesc.Agent]

		id := fmt.Sprintf("step%d", i)
		var deps []string
		if i > 0 {
			deps = []string{fmt.Sprintf("step%d", i-1)}
		}

		var condition func(map[string]workflow.StepResult) bool
		if stepDesc.Condition != "" {
			keyword := strings.ToLower(stepDesc.Condition)
			condition = func(map[string]workflow.StepResult) bool {
				return strings.Contains(strings.ToLower(workflowInput), keyword)
			}
		}

		steps[i] = workflow.Step{
			ID:           id,
			Name:         stepDesc.Agent,
			Instructions: descriptor.Trigger,
			Dependencies: deps,
			MaxRetries:   1,
			Condition:    condition,
			Run: func(ctx context.Context, input string) (string, error) {
				sess, err := store.CreateSession(stepDesc.Agent, "loomctl-workflow")
				if err != nil {
					return "", err
				}
				result, err := exec.Generate(ctx, sess.SessionID, input, agent.CallOptions{})
				if err != nil {
					return "", err
				}
				return result.Response, nil
			},
		}
	}

	return steps, nil
}
