package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoStep(id string, deps ...string) Step {
	return Step{
		ID:           id,
		Name:         id,
		Dependencies: deps,
		Run: func(ctx context.Context, input string) (string, error) {
			return id + ":" + input, nil
		},
	}
}

func TestBuild_TopologicalOrderRespectsDependencies(t *testing.T) {
	wf, err := Build("wf", []Step{
		echoStep("c", "a", "b"),
		echoStep("a"),
		echoStep("b", "a"),
	})
	require.NoError(t, err)

	order := wf.ListSteps()
	index := make(map[string]int, len(order))
	for i, s := range order {
		index[s.ID] = i
	}
	assert.Less(t, index["a"], index["b"])
	assert.Less(t, index["b"], index["c"])
}

func TestBuild_EmptyStepIDFails(t *testing.T) {
	_, err := Build("wf", []Step{{ID: "", Name: "bad"}})
	assert.Error(t, err)
}

func TestBuild_DuplicateStepIDFails(t *testing.T) {
	_, err := Build("wf", []Step{echoStep("a"), echoStep("a")})
	assert.Error(t, err)
}

func TestBuild_UndefinedDependencyFails(t *testing.T) {
	_, err := Build("wf", []Step{echoStep("a", "missing")})
	assert.Error(t, err)
}

func TestBuild_CycleFails(t *testing.T) {
	_, err := Build("wf", []Step{
		echoStep("a", "b"),
		echoStep("b", "a"),
	})
	assert.Error(t, err)
}

func TestBuild_SelfDependencyFails(t *testing.T) {
	_, err := Build("wf", []Step{echoStep("a", "a")})
	assert.Error(t, err)
}
