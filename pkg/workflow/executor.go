package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/loomrt/loom/pkg/event"
	"github.com/loomrt/loom/pkg/loomerr"
)

// Executor schedules a Workflow's steps: a ready-set of steps whose
// dependencies are all Completed or Skipped runs with a bounded
// parallelism, retrying retryable failures up to the step's
// MaxRetries and failing the whole run fast on the first
// non-retryable (or retry-exhausted) failure, per §4.9/§5.
//
// Grounded on the teacher's pkg/agent/workflowagent/parallel.go for
// the errgroup-based fan-out shape, generalized from "all sub-agents
// run every time" to dependency-gated, retryable, skip-aware
// scheduling a flat parallel agent doesn't need.
type Executor struct {
	Bus         *event.Bus
	Parallelism int
}

// NewExecutor builds an Executor. parallelism <= 0 means unbounded.
func NewExecutor(bus *event.Bus, parallelism int) *Executor {
	if bus == nil {
		bus = event.Default()
	}
	return &Executor{Bus: bus, Parallelism: parallelism}
}

// Run schedules every step of wf to completion (or to the first
// fail-fast error) and returns every step's final StepResult, plus a
// non-nil error when any step ended in Status Error.
func (e *Executor) Run(ctx context.Context, wf *Workflow, input string) (map[string]StepResult, error) {
	steps := wf.ListSteps()

	var mu sync.Mutex
	results := make(map[string]StepResult, len(steps))
	launched := make(map[string]bool, len(steps))

	eg, egCtx := errgroup.WithContext(ctx)
	if e.Parallelism > 0 {
		eg.SetLimit(e.Parallelism)
	}

	advance := make(chan struct{}, len(steps))

	depsSatisfied := func(s Step) bool {
		mu.Lock()
		defer mu.Unlock()
		for _, dep := range s.Dependencies {
			r, ok := results[dep]
			if !ok || (r.Status != StatusCompleted && r.Status != StatusSkipped) {
				return false
			}
		}
		return true
	}

	snapshotResults := func() map[string]StepResult {
		mu.Lock()
		defer mu.Unlock()
		out := make(map[string]StepResult, len(results))
		for k, v := range results {
			out[k] = v
		}
		return out
	}

scheduling:
	for {
		allLaunched := true
		for _, s := range steps {
			if launched[s.ID] {
				continue
			}
			allLaunched = false
			if !depsSatisfied(s) {
				continue
			}
			launched[s.ID] = true
			step := s
			eg.Go(func() error {
				defer func() { advance <- struct{}{} }()
				return e.runOne(egCtx, wf.Name, step, input, snapshotResults, &mu, results)
			})
		}
		if allLaunched {
			break
		}
		select {
		case <-advance:
		case <-egCtx.Done():
			break scheduling
		}
	}

	runErr := eg.Wait()

	mu.Lock()
	final := make(map[string]StepResult, len(results))
	for k, v := range results {
		final[k] = v
	}
	mu.Unlock()

	// Any step never launched (blocked behind a failed dependency)
	// is reported Skipped so callers see a complete picture.
	for _, s := range steps {
		if _, ok := final[s.ID]; !ok {
			final[s.ID] = StepResult{StepID: s.ID, Status: StatusSkipped}
		}
	}

	return final, runErr
}

func (e *Executor) runOne(ctx context.Context, workflowName string, s Step, workflowInput string, snapshot func() map[string]StepResult, mu *sync.Mutex, results map[string]StepResult) error {
	outputs := snapshot()

	if s.Condition != nil && !s.Condition(outputs) {
		r := StepResult{StepID: s.ID, Status: StatusSkipped}
		mu.Lock()
		results[s.ID] = r
		mu.Unlock()
		e.publish(event.KindWorkflowStepCompleted, workflowName, s.ID, StatusSkipped, nil)
		return nil
	}

	e.publish(event.KindWorkflowStepStarted, workflowName, s.ID, StatusRunning, nil)

	in := buildStepInput(s, workflowInput, outputs)

	var output string
	var err error
	attempts := 0
	for {
		output, err = s.Run(ctx, in)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			err = ctx.Err()
			break
		}
		if attempts >= s.MaxRetries || !loomerr.KindOf(err).Retryable() {
			break
		}
		attempts++
	}

	if err != nil {
		r := StepResult{StepID: s.ID, Status: StatusError, Err: err}
		mu.Lock()
		results[s.ID] = r
		mu.Unlock()
		e.publish(event.KindWorkflowStepCompleted, workflowName, s.ID, StatusError, map[string]any{"error": err.Error()})
		return fmt.Errorf("step %q failed: %w", s.ID, err)
	}

	r := StepResult{StepID: s.ID, Status: StatusCompleted, Output: output}
	mu.Lock()
	results[s.ID] = r
	mu.Unlock()
	e.publish(event.KindWorkflowStepCompleted, workflowName, s.ID, StatusCompleted, nil)
	return nil
}

func (e *Executor) publish(kind event.Kind, workflowName, stepID string, status Status, extra map[string]any) {
	metadata := map[string]any{
		"workflow": workflowName,
		"step_id":  stepID,
		"status":   string(status),
	}
	for k, v := range extra {
		metadata[k] = v
	}
	e.Bus.Publish(event.New(kind, stepID, metadata))
}

// buildStepInput assembles a step's input per §4.9: a step with no
// dependencies gets the raw workflow input; a step with exactly one
// dependency gets that dependency's output appended (the Sequential
// chain shape); a step with multiple dependencies (a Parallel merge
// step) gets a serialized map of dependency id to output.
func buildStepInput(s Step, workflowInput string, outputs map[string]StepResult) string {
	if len(s.Dependencies) == 0 {
		return workflowInput
	}
	if len(s.Dependencies) == 1 {
		dep := outputs[s.Dependencies[0]]
		if dep.Status == StatusSkipped {
			return workflowInput
		}
		return workflowInput + "\n\n" + dep.Output
	}

	var b strings.Builder
	b.WriteString(workflowInput)
	for _, dep := range s.Dependencies {
		r := outputs[dep]
		if r.Status == StatusSkipped {
			continue
		}
		fmt.Fprintf(&b, "\n\n[%s]: %s", dep, r.Output)
	}
	return b.String()
}
