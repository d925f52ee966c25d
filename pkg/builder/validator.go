package builder

import (
	"github.com/loomrt/loom/pkg/agent"
)

// ModelResolver reports whether a model reference is recognized by the
// configured provider registry. The zero-value resolver (nil) accepts
// every non-empty reference, so Build() still works without a registry
// wired in (e.g. in unit tests that stub a provider directly).
type ModelResolver func(ref string) bool

// Validator runs the §4.7 validation rules over an agent.Config.
type Validator struct {
	ResolveModel ModelResolver
}

// NewValidator builds a Validator. resolve may be nil.
func NewValidator(resolve ModelResolver) *Validator {
	return &Validator{ResolveModel: resolve}
}

// Validate checks cfg and returns a structured Report. It never
// panics and never returns a nil Report.
func (v *Validator) Validate(cfg *agent.Config) *Report {
	report := &Report{}
	if cfg == nil {
		report.addError("agent config is nil")
		return report
	}

	v.validateName(cfg, report)
	v.validateModel(cfg, report)
	v.validateTemperature(cfg, report)
	v.validateMaxTokens(cfg, report)
	v.validateToolNames(cfg, report)
	v.validateLimits(cfg, report)

	return report
}

func (v *Validator) validateName(cfg *agent.Config, report *Report) {
	switch {
	case cfg.Name == "":
		report.addError("name is required")
	case len(cfg.Name) > 100:
		report.addError("name too long (max 100 characters, got %d)", len(cfg.Name))
	default:
		report.addSuccess("name %q is valid", cfg.Name)
	}
}

func (v *Validator) validateModel(cfg *agent.Config, report *Report) {
	if cfg.ModelRef == "" {
		report.addError("model_ref is required")
		return
	}
	if v.ResolveModel != nil && !v.ResolveModel(cfg.ModelRef) {
		report.addError("model %q is not recognized by the provider registry", cfg.ModelRef)
		return
	}
	report.addSuccess("model %q resolves", cfg.ModelRef)
}

func (v *Validator) validateTemperature(cfg *agent.Config, report *Report) {
	if cfg.Temperature == nil {
		return
	}
	t := *cfg.Temperature
	if t < 0 || t > 2 {
		report.addError("temperature must be between 0.0 and 2.0, got %v", t)
		return
	}
	report.addSuccess("temperature %v is valid", t)
}

func (v *Validator) validateMaxTokens(cfg *agent.Config, report *Report) {
	if cfg.MaxTokens == nil {
		return
	}
	n := *cfg.MaxTokens
	if n <= 0 || n > 100_000 {
		report.addError("max_tokens must be between 1 and 100000, got %d", n)
		return
	}
	report.addSuccess("max_tokens %d is valid", n)
}

func (v *Validator) validateToolNames(cfg *agent.Config, report *Report) {
	seen := make(map[string]bool, len(cfg.ToolNames))
	for _, name := range cfg.ToolNames {
		if name == "" {
			report.addError("tool name cannot be empty")
			continue
		}
		if seen[name] {
			report.addError("duplicate tool id %q", name)
			continue
		}
		seen[name] = true
	}
	if len(cfg.ToolNames) > 0 && len(seen) == len(cfg.ToolNames) {
		report.addSuccess("%d tool ids are unique", len(cfg.ToolNames))
	}
}

func (v *Validator) validateLimits(cfg *agent.Config, report *Report) {
	if cfg.MaxToolCalls <= 0 {
		report.addWarning("max_tool_calls is %d; smart defaults would set a positive limit", cfg.MaxToolCalls)
	}
	if cfg.ToolTimeout <= 0 {
		report.addWarning("tool_timeout is unset; smart defaults would apply a default timeout")
	}
}
