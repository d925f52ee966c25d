package main

import (
	"fmt"

	"github.com/loomrt/loom/pkg/agent"
	"github.com/loomrt/loom/pkg/builder"
	"github.com/loomrt/loom/pkg/config"
	"github.com/loomrt/loom/pkg/event"
	"github.com/loomrt/loom/pkg/loomerr"
	"github.com/loomrt/loom/pkg/memory"
	"github.com/loomrt/loom/pkg/model"
	"github.com/loomrt/loom/pkg/tool"
)

// loadConfig reads the config at path, or falls back to config.Default()
// when path is empty — the same zero-config fallback the teacher's CLI
// applies when --config is omitted.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// providerFlags carries the CLI-level provider overrides shared by run,
// chat, and workflow (they all need to turn a config.AgentDescriptor
// into a live agent.Executor).
type providerFlags struct {
	Provider string
	APIKey   string
	BaseURL  string
}

// newToolRegistry builds the tool registry available to every executor.
// Only the calculator is a genuinely built-in tool per pkg/tool; other
// configured tool names resolve to a "tool not found" error at call
// time rather than at startup, matching the executor's own contract
// (§4.3: the executor never fabricates a tool from a bare string).
func newToolRegistry() (*tool.Registry, error) {
	reg := tool.NewRegistry()
	if err := reg.Register(tool.NewCalculatorTool()); err != nil {
		return nil, err
	}
	return reg, nil
}

// buildExecutor resolves agentName against cfg, validates it through
// pkg/builder with a registry-backed model resolver, wires a live
// model.Provider, and returns a ready-to-run agent.Executor.
func buildExecutor(cfg *config.Config, agentName string, flags providerFlags, store memory.Store, bus *event.Bus) (*agent.Executor, error) {
	descriptor, ok := cfg.GetAgent(agentName)
	if !ok {
		return nil, loomerr.New(loomerr.NotFound, "loomctl.buildExecutor", fmt.Errorf("agent %q is not defined in config", agentName))
	}

	provider, err := resolveProvider(flags.Provider, flags.APIKey, flags.BaseURL, descriptor.Model)
	if err != nil {
		return nil, err
	}

	registry := model.NewRegistry()
	if err := registry.Register(descriptor.Model, provider); err != nil {
		return nil, err
	}
	resolve := func(ref string) bool {
		_, err := registry.Resolve(ref)
		return err == nil
	}

	b := builder.New(agentName).
		WithInstructions(descriptor.Instructions).
		WithModel(descriptor.Model).
		WithTools(descriptor.Tools...).
		WithModelResolver(resolve).
		SmartDefaults()
	if descriptor.Temperature != nil {
		b = b.WithTemperature(*descriptor.Temperature)
	}
	if descriptor.MaxTokens != nil {
		b = b.WithMaxTokens(*descriptor.MaxTokens)
	}

	agentCfg, report, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("%s\n%s", err, report.Summary())
	}

	tools, err := newToolRegistry()
	if err != nil {
		return nil, err
	}

	return agent.NewExecutor(agentCfg, provider, tools, store, nil, bus), nil
}
