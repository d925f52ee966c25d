package config

import (
	"fmt"

	"github.com/loomrt/loom/pkg/builder"
)

// Validate checks cfg against the §4.11 rules — every workflow step
// references a defined agent, model names resolve, temperature and
// token caps are within bounds — and returns a builder.Report so
// callers see the same {Errors, Warnings, Successes} shape C7's
// agent-level validation uses. resolve may be nil, in which case every
// non-empty model name is accepted (matching builder.ModelResolver's
// own zero-value behavior).
func Validate(cfg *Config, resolve builder.ModelResolver) *builder.Report {
	report := &builder.Report{}
	if cfg == nil {
		report.Errors = append(report.Errors, "config is nil")
		return report
	}

	validateProject(cfg, report)
	validateAgents(cfg, resolve, report)
	validateWorkflows(cfg, report)
	validateRAG(cfg, report)

	return report
}

func validateProject(cfg *Config, report *builder.Report) {
	if cfg.Project == nil {
		report.Warnings = append(report.Warnings, "no project section; using implicit defaults")
		return
	}
	if cfg.Project.Name == "" {
		report.Errors = append(report.Errors, "project.name must not be empty")
		return
	}
	report.Successes = append(report.Successes, fmt.Sprintf("project %q is valid", cfg.Project.Name))
}

func validateAgents(cfg *Config, resolve builder.ModelResolver, report *builder.Report) {
	if len(cfg.Agents) == 0 {
		report.Warnings = append(report.Warnings, "no agents configured")
		return
	}
	for name, agentCfg := range cfg.Agents {
		if agentCfg.Model == "" {
			report.Errors = append(report.Errors, fmt.Sprintf("agent %q has an empty model", name))
			continue
		}
		if resolve != nil && !resolve(agentCfg.Model) {
			report.Errors = append(report.Errors, fmt.Sprintf("agent %q references unrecognized model %q", name, agentCfg.Model))
			continue
		}
		if agentCfg.Temperature != nil && (*agentCfg.Temperature < 0 || *agentCfg.Temperature > 2) {
			report.Errors = append(report.Errors, fmt.Sprintf("agent %q temperature must be within [0, 2], got %v", name, *agentCfg.Temperature))
			continue
		}
		if agentCfg.MaxTokens != nil && (*agentCfg.MaxTokens <= 0 || *agentCfg.MaxTokens > 100_000) {
			report.Errors = append(report.Errors, fmt.Sprintf("agent %q max_tokens must be within (0, 100000], got %d", name, *agentCfg.MaxTokens))
			continue
		}
		report.Successes = append(report.Successes, fmt.Sprintf("agent %q is valid", name))
	}
}

func validateWorkflows(cfg *Config, report *builder.Report) {
	for wfName, wf := range cfg.Workflows {
		if len(wf.Steps) == 0 {
			report.Warnings = append(report.Warnings, fmt.Sprintf("workflow %q has no steps", wfName))
			continue
		}
		for _, step := range wf.Steps {
			if _, ok := cfg.Agents[step.Agent]; !ok {
				report.Errors = append(report.Errors, fmt.Sprintf("workflow %q step references undefined agent %q", wfName, step.Agent))
			}
		}
	}
}

func validateRAG(cfg *Config, report *builder.Report) {
	if cfg.RAG == nil {
		return
	}
	if cfg.RAG.ChunkSize < 0 {
		report.Errors = append(report.Errors, "rag.chunk_size must not be negative")
		return
	}
	report.Successes = append(report.Successes, "rag configuration is valid")
}
