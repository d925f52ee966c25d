package builder

import (
	"fmt"
	"time"

	"github.com/loomrt/loom/pkg/agent"
	"github.com/loomrt/loom/pkg/memory"
	"github.com/loomrt/loom/pkg/tool"
)

// Builder fluently constructs an agent.Config, matching the teacher's
// factory-style wiring (pkg/agent/factory.go) generalized into a
// chainable API per §4.7.
type Builder struct {
	cfg           agent.Config
	smartDefaults bool
	resolver      ModelResolver
}

// New starts a Builder for an agent named name.
func New(name string) *Builder {
	return &Builder{cfg: agent.Config{Name: name}}
}

func (b *Builder) WithInstructions(instructions string) *Builder {
	b.cfg.Instructions = instructions
	return b
}

func (b *Builder) WithModel(ref string) *Builder {
	b.cfg.ModelRef = ref
	return b
}

// WithModelResolver supplies the predicate Build() uses to check that
// ModelRef is recognized (typically backed by a model.Registry).
func (b *Builder) WithModelResolver(resolve ModelResolver) *Builder {
	b.resolver = resolve
	return b
}

// WithTools registers tool names by reference. Name uniqueness is
// enforced at Build() time, per §4.3.
func (b *Builder) WithTools(names ...string) *Builder {
	b.cfg.ToolNames = append(b.cfg.ToolNames, names...)
	return b
}

func (b *Builder) WithMemory(maxTokens int, policy memory.RetentionPolicy) *Builder {
	b.cfg.Memory = &agent.MemoryConfig{MaxTokens: maxTokens, Policy: policy}
	return b
}

func (b *Builder) WithMaxToolCalls(n int) *Builder {
	b.cfg.MaxToolCalls = n
	return b
}

func (b *Builder) WithToolTimeout(d time.Duration) *Builder {
	b.cfg.ToolTimeout = d
	return b
}

func (b *Builder) WithFunctionCalling(enabled bool) *Builder {
	b.cfg.EnableFunctionCalling = enabled
	return b
}

func (b *Builder) WithTemperature(t float64) *Builder {
	b.cfg.Temperature = &t
	return b
}

func (b *Builder) WithMaxTokens(n int) *Builder {
	b.cfg.MaxTokens = &n
	return b
}

func (b *Builder) WithMetadata(key string, value any) *Builder {
	if b.cfg.Metadata == nil {
		b.cfg.Metadata = make(map[string]any, 1)
	}
	b.cfg.Metadata[key] = value
	return b
}

// SmartDefaults fills in a sensible tool-call limit, a default tool
// timeout, a default memory retention policy, and marks telemetry
// enabled, per §4.7 — applied during Build(), before validation, so
// validation sees the filled-in values.
func (b *Builder) SmartDefaults() *Builder {
	b.smartDefaults = true
	return b
}

const (
	defaultMaxToolCalls = 10
	defaultMemoryTokens = 4000
)

func (b *Builder) applySmartDefaults() {
	if b.cfg.MaxToolCalls <= 0 {
		b.cfg.MaxToolCalls = defaultMaxToolCalls
	}
	if b.cfg.ToolTimeout <= 0 {
		b.cfg.ToolTimeout = tool.DefaultTimeout
	}
	if b.cfg.Memory == nil {
		b.cfg.Memory = &agent.MemoryConfig{
			MaxTokens: defaultMemoryTokens,
			Policy:    memory.RetentionPolicy{Kind: memory.RetentionKeepRecent},
		}
	}
	if b.cfg.Metadata == nil {
		b.cfg.Metadata = make(map[string]any, 1)
	}
	b.cfg.Metadata["telemetry_enabled"] = true
}

// Build runs the validator and returns the finished config alongside
// its Report. err is non-nil exactly when the report contains at
// least one error; warnings never block.
func (b *Builder) Build() (*agent.Config, *Report, error) {
	if b.smartDefaults {
		b.applySmartDefaults()
	}

	cfg := b.cfg
	validator := NewValidator(b.resolver)
	report := validator.Validate(&cfg)
	if !report.IsValid() {
		return nil, report, fmt.Errorf("invalid agent config %q: %s", cfg.Name, report.Summary())
	}
	return &cfg, report, nil
}
