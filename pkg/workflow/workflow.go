// Package workflow implements the §4.9 orchestrator: a directed
// acyclic graph of steps, each backed by a C6 agent.Executor turn,
// scheduled by a ready-set (dependencies Completed or Skipped),
// bounded parallelism, per-step retry, and fail-fast on non-retryable
// error. Sequential/Parallel/Conditional are expressed as dependency
// shapes over the same graph rather than as distinct types, matching
// how the teacher's workflowagent.Sequential is "a Loop with
// MaxIterations=1" rather than its own execution engine.
package workflow

import (
	"context"
	"fmt"

	"github.com/loomrt/loom/pkg/loomerr"
)

// Step is one node of the workflow graph, per §4.9.
type Step struct {
	ID           string
	Name         string
	Instructions string
	Dependencies []string
	MaxRetries   int

	// Run performs the step's work. It is handed the assembled input
	// (the workflow input, augmented with dependency outputs — see
	// buildStepInput) and must return the step's output text. Typically
	// backed by an agent.Executor.Generate call.
	Run func(ctx context.Context, input string) (string, error)

	// Condition, when non-nil, is evaluated against completed
	// dependency outputs before Run; false marks the step Skipped
	// without running it. A Skipped dependency counts as satisfied, so
	// dependents still run, and buildStepInput leaves the skipped
	// step's output out of their input (§4.9 Conditional).
	Condition func(outputs map[string]StepResult) bool
}

// StepResult is what a completed (or skipped, or failed) step leaves
// behind for its dependents and for the caller.
type StepResult struct {
	StepID string
	Status Status
	Output string
	Err    error
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusError     Status = "error"
)

// Workflow is a validated, acyclic graph of Steps.
type Workflow struct {
	Name  string
	steps map[string]Step
	// order is a topological order computed at Build time, used only
	// to give deterministic iteration in tests and ListSteps.
	order []string
}

// Build validates steps — unique non-empty ids, every dependency
// referencing a defined step, no cycles — and returns a Workflow, or
// an error if any of those invariants is violated. Cycles are
// rejected here rather than at run time, per §4.9.
func Build(name string, steps []Step) (*Workflow, error) {
	byID := make(map[string]Step, len(steps))
	for _, s := range steps {
		if s.ID == "" {
			return nil, loomerr.New(loomerr.Validation, "workflow.Build", fmt.Errorf("step %q has an empty id", s.Name))
		}
		if _, dup := byID[s.ID]; dup {
			return nil, loomerr.New(loomerr.Validation, "workflow.Build", fmt.Errorf("duplicate step id %q", s.ID))
		}
		byID[s.ID] = s
	}
	for _, s := range steps {
		for _, dep := range s.Dependencies {
			if _, ok := byID[dep]; !ok {
				return nil, loomerr.New(loomerr.Validation, "workflow.Build", fmt.Errorf("step %q depends on undefined step %q", s.ID, dep))
			}
		}
	}

	order, err := topoSort(byID)
	if err != nil {
		return nil, err
	}

	return &Workflow{Name: name, steps: byID, order: order}, nil
}

func topoSort(byID map[string]Step) ([]string, error) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(byID))
	order := make([]string, 0, len(byID))

	var visit func(id string, path []string) error
	visit = func(id string, path []string) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			return loomerr.New(loomerr.Validation, "workflow.Build", fmt.Errorf("dependency cycle detected: %v -> %s", path, id))
		}
		color[id] = gray
		for _, dep := range byID[id].Dependencies {
			if err := visit(dep, append(path, id)); err != nil {
				return err
			}
		}
		color[id] = black
		order = append(order, id)
		return nil
	}

	// Stable iteration: visit ids in sorted order, independent of map
	// iteration order.
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sortStrings(ids)

	for _, id := range ids {
		if err := visit(id, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// ListSteps returns the workflow's steps in a topological order
// (dependencies before dependents).
func (w *Workflow) ListSteps() []Step {
	out := make([]Step, len(w.order))
	for i, id := range w.order {
		out[i] = w.steps[id]
	}
	return out
}
