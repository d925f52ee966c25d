package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Project: &ProjectDescriptor{Name: "app"},
		Agents: map[string]AgentDescriptor{
			"assistant": {Model: "gpt-4"},
		},
		Workflows: map[string]WorkflowDescriptor{
			"support": {
				Trigger: "user_message",
				Steps:   []WorkflowStepDescriptor{{Agent: "assistant"}},
			},
		},
	}
}

func TestValidate_ValidConfigHasNoErrors(t *testing.T) {
	report := Validate(validConfig(), nil)
	assert.True(t, report.IsValid())
	assert.Empty(t, report.Errors)
}

func TestValidate_EmptyProjectNameFails(t *testing.T) {
	cfg := validConfig()
	cfg.Project.Name = ""
	report := Validate(cfg, nil)
	assert.False(t, report.IsValid())
}

func TestValidate_EmptyAgentModelFails(t *testing.T) {
	cfg := validConfig()
	cfg.Agents["assistant"] = AgentDescriptor{Model: ""}
	report := Validate(cfg, nil)
	assert.False(t, report.IsValid())
}

func TestValidate_UnresolvedModelFails(t *testing.T) {
	cfg := validConfig()
	resolve := func(ref string) bool { return ref == "known-model" }
	report := Validate(cfg, resolve)
	assert.False(t, report.IsValid())
}

func TestValidate_ResolvedModelSucceeds(t *testing.T) {
	cfg := validConfig()
	cfg.Agents["assistant"] = AgentDescriptor{Model: "known-model"}
	resolve := func(ref string) bool { return ref == "known-model" }
	report := Validate(cfg, resolve)
	assert.True(t, report.IsValid())
}

func TestValidate_WorkflowStepReferencingUndefinedAgentFails(t *testing.T) {
	cfg := validConfig()
	cfg.Workflows["support"] = WorkflowDescriptor{
		Trigger: "user_message",
		Steps:   []WorkflowStepDescriptor{{Agent: "missing"}},
	}
	report := Validate(cfg, nil)
	require.False(t, report.IsValid())
}

func TestValidate_TemperatureOutOfBoundsFails(t *testing.T) {
	cfg := validConfig()
	bad := 3.5
	agentCfg := cfg.Agents["assistant"]
	agentCfg.Temperature = &bad
	cfg.Agents["assistant"] = agentCfg

	report := Validate(cfg, nil)
	assert.False(t, report.IsValid())
}

func TestValidate_MaxTokensOutOfBoundsFails(t *testing.T) {
	cfg := validConfig()
	bad := 200_000
	agentCfg := cfg.Agents["assistant"]
	agentCfg.MaxTokens = &bad
	cfg.Agents["assistant"] = agentCfg

	report := Validate(cfg, nil)
	assert.False(t, report.IsValid())
}

func TestValidate_NegativeChunkSizeFails(t *testing.T) {
	cfg := validConfig()
	cfg.RAG = &RAGDescriptor{ChunkSize: -1}
	report := Validate(cfg, nil)
	assert.False(t, report.IsValid())
}

func TestValidate_NilConfigFails(t *testing.T) {
	report := Validate(nil, nil)
	assert.False(t, report.IsValid())
}
